// Package worker drains the ingestion queue into the dataset store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/subnetlab/minerscope/internal/adapters/mq/queue"
	"github.com/subnetlab/minerscope/internal/adapters/repository"
	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/pkg/logger"
	"github.com/subnetlab/minerscope/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Sink is where workers write validated records. The repository store
// satisfies it.
type Sink interface {
	PutChallenge(ctx context.Context, ch model.Challenge) error
	PutPrediction(ctx context.Context, p model.Prediction) error
}

// Queue defines how workers receive ingest records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Record
}

// Worker processes ingest records until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// IngestWorker implements Worker for dataset ingestion.
type IngestWorker struct {
	queue Queue
	sink  Sink
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewIngestWorker creates a worker with configuration options.
func NewIngestWorker(q Queue, sink Sink, opts ...Option) *IngestWorker {
	w := &IngestWorker{
		queue:    q,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *IngestWorker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-records:
			if !ok {
				return
			}
			if err := w.processRecord(ctx, r); err != nil {
				w.logger.Error(ctx, "error ingesting record",
					logger.String("recordID", r.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *IngestWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processRecord validates and stores a single ingest record.
func (w *IngestWorker) processRecord(ctx context.Context, r queue.Record) error {
	switch {
	case r.Challenge != nil:
		if err := w.sink.PutChallenge(ctx, *r.Challenge); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				metrics.RecordIngestDuplicate()
				return nil
			}
			metrics.RecordIngestError("worker", "challenge_store")
			return fmt.Errorf("store challenge %s: %w", r.Challenge.ID, err)
		}
		metrics.RecordChallengeIngested()
	case r.Prediction != nil:
		if err := w.sink.PutPrediction(ctx, *r.Prediction); err != nil {
			metrics.RecordIngestError("worker", "prediction_store")
			return fmt.Errorf("store prediction %s/%s: %w",
				r.Prediction.MinerID, r.Prediction.ChallengeID, err)
		}
		metrics.RecordPredictionIngested()
	default:
		metrics.RecordIngestError("worker", "empty_record")
		return fmt.Errorf("record %s carries neither challenge nor prediction", r.ID)
	}
	return nil
}

// Pool manages multiple ingestion workers.
type Pool struct {
	workers []*IngestWorker
	queue   Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a worker pool of the given size.
func NewPool(workerCount int, q Queue, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*IngestWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewIngestWorker(q, sink, WithName("worker-"+strconv.Itoa(i)))
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
