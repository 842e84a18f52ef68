// Package aggregate folds aligned records into the two reconciliation
// outputs: the detailed per-prediction table and the per-miner summary.
//
// Aggregation is a pure fold over the full input set. There is no
// incremental update path; every invocation recomputes from scratch, which
// trades memory for immunity to stale-state bugs.
package aggregate

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/subnetlab/minerscope/internal/domain/align"
	"github.com/subnetlab/minerscope/internal/domain/evaluate"
	"github.com/subnetlab/minerscope/internal/domain/model"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithWorkers bounds the number of concurrent per-miner computations.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// Aggregator rolls aligned records up into tables.
type Aggregator struct {
	engine  *evaluate.Engine
	workers int
}

// New creates an Aggregator backed by the given metrics engine.
func New(engine *evaluate.Engine, opts ...Option) *Aggregator {
	a := &Aggregator{
		engine:  engine,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes both tables from an alignment result. Per-miner metric
// computation fans out across a bounded worker set; miners share nothing but
// the read-only vocabulary, and a final sort keeps the output deterministic
// regardless of scheduling.
func (a *Aggregator) Aggregate(ctx context.Context, res align.Result) (Tables, error) {
	if err := ctx.Err(); err != nil {
		return Tables{}, err
	}

	t := Tables{
		Detailed:          make([]DetailedRow, 0, len(res.Records)),
		DroppedChallenges: res.DroppedChallenges,
	}

	// Detailed table: one row per record verbatim, invalid ones included.
	byMiner := make(map[string][]model.AlignedRecord, len(res.Miners))
	for _, rec := range res.Records {
		t.Detailed = append(t.Detailed, newDetailedRow(rec))
		byMiner[rec.MinerID] = append(byMiner[rec.MinerID], rec)
	}

	// Summary table: one row per (miner, mode), fanned out across miners.
	sem := make(chan struct{}, a.workers)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	summary := make([]model.MinerMetricSet, 0, len(byMiner)*len(model.Modes()))
	for _, miner := range res.Miners {
		records := byMiner[miner]
		wg.Add(1)
		sem <- struct{}{}
		go func(miner string, records []model.AlignedRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			rows := make([]model.MinerMetricSet, 0, len(model.Modes()))
			for _, mode := range model.Modes() {
				rows = append(rows, a.engine.Compute(miner, records, mode))
			}
			mu.Lock()
			summary = append(summary, rows...)
			mu.Unlock()
		}(miner, records)
	}
	wg.Wait()

	sort.Slice(summary, func(i, j int) bool {
		if summary[i].MinerID != summary[j].MinerID {
			return summary[i].MinerID < summary[j].MinerID
		}
		return summary[i].Mode < summary[j].Mode
	})
	t.Summary = summary
	return t, nil
}
