// Package service wires the ingestion pipeline to the reconciliation core
// and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	ingestqueue "github.com/subnetlab/minerscope/internal/adapters/mq/queue"
	workerpool "github.com/subnetlab/minerscope/internal/adapters/mq/worker"
	"github.com/subnetlab/minerscope/internal/adapters/repository"
	"github.com/subnetlab/minerscope/internal/domain/aggregate"
	"github.com/subnetlab/minerscope/internal/domain/align"
	"github.com/subnetlab/minerscope/internal/domain/dedupe"
	"github.com/subnetlab/minerscope/internal/domain/evaluate"
	"github.com/subnetlab/minerscope/internal/domain/labels"
	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/pkg/logger"
	"github.com/subnetlab/minerscope/pkg/metrics"
)

// Service owns the dataset store, the ingestion pipeline, and the
// reconciliation core. Ingestion is asynchronous; reconciliation is an
// on-demand fold over a snapshot of whatever has been stored so far.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	queue      ingestqueue.Queue
	workerPool *workerpool.Pool
	vocab      *labels.Vocabulary
	aggregator *aggregate.Aggregator

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	shardCount       int
	aggregateWorkers int
	minerFilter      []string
	start, end       time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the ingestion queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the prediction shard count of the dataset store.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithAggregateWorkers bounds concurrent per-miner metric computation.
func WithAggregateWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.aggregateWorkers = count
		}
	}
}

// WithMiners restricts reconciliation to the given miner ids.
func WithMiners(ids ...string) Option {
	return func(s *Service) { s.minerFilter = ids }
}

// WithTimeRange restricts reconciliation to challenges within [start, end].
func WithTimeRange(start, end time.Time) Option {
	return func(s *Service) { s.start, s.end = start, end }
}

// WithVocabulary replaces the default label vocabulary.
func WithVocabulary(v *labels.Vocabulary) Option {
	return func(s *Service) {
		if v != nil {
			s.vocab = v
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100_000,
		dedupeSize:  50_000,
		vocab:       labels.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	storeOpts := []repository.Option{}
	if s.shardCount > 0 {
		storeOpts = append(storeOpts, repository.WithShardCount(s.shardCount))
	}
	s.store = repository.NewMemStore(storeOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = ingestqueue.NewInMemoryQueue(ingestqueue.WithCapacity(s.queueSize))

	engine := evaluate.New(s.vocab)
	aggOpts := []aggregate.Option{}
	if s.aggregateWorkers > 0 {
		aggOpts = append(aggOpts, aggregate.WithWorkers(s.aggregateWorkers))
	}
	s.aggregator = aggregate.New(engine, aggOpts...)

	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "reconciliation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop gracefully shuts down the service. The queue is closed first so the
// workers drain everything accepted before Stop was called.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping reconciliation service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "reconciliation service stopped")
}

// SeenAndRecord atomically checks if a record id was seen and records it if
// not. Returns true if the id was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordIngestDuplicate()
	}
	return seen
}

// Unrecord removes a record id from the seen set, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// IngestChallenge submits a challenge for asynchronous storage.
// The duplicate return distinguishes an idempotent replay from a rejection.
func (s *Service) IngestChallenge(ctx context.Context, ch model.Challenge) (accepted, duplicate bool) {
	if ch.ID == "" {
		return false, false
	}
	id := "challenge:" + ch.ID
	if s.SeenAndRecord(ctx, id) {
		return true, true
	}
	ok := s.queue.Enqueue(ctx, ingestqueue.Record{ID: id, Challenge: &ch})
	if !ok {
		// Backpressure must not poison the dedupe cache; the caller retries.
		s.Unrecord(ctx, id)
	}
	return ok, false
}

// IngestPrediction submits a prediction for asynchronous storage. A miner's
// first answer to a challenge wins; replays are acknowledged as duplicates.
func (s *Service) IngestPrediction(ctx context.Context, p model.Prediction) (accepted, duplicate bool) {
	if p.MinerID == "" || p.ChallengeID == "" {
		return false, false
	}
	id := "prediction:" + p.MinerID + ":" + p.ChallengeID
	if s.SeenAndRecord(ctx, id) {
		return true, true
	}
	ok := s.queue.Enqueue(ctx, ingestqueue.Record{ID: id, Prediction: &p})
	if !ok {
		s.Unrecord(ctx, id)
	}
	return ok, false
}

// QueueLen returns the number of records waiting to be stored.
func (s *Service) QueueLen(ctx context.Context) int {
	return s.queue.Len(ctx)
}

// Reconcile aligns a snapshot of the stored dataset and computes both output
// tables. Each call recomputes from scratch.
func (s *Service) Reconcile(ctx context.Context) (aggregate.Tables, error) {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return aggregate.Tables{}, fmt.Errorf("service not started")
	}
	store, vocab, aggregator := s.store, s.vocab, s.aggregator
	alignOpts := []align.Option{}
	if len(s.minerFilter) > 0 {
		alignOpts = append(alignOpts, align.WithMiners(s.minerFilter...))
	}
	if !s.start.IsZero() || !s.end.IsZero() {
		alignOpts = append(alignOpts, align.WithTimeRange(s.start, s.end))
	}
	s.mu.RUnlock()

	began := time.Now()
	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		return aggregate.Tables{}, fmt.Errorf("snapshot dataset: %w", err)
	}

	res, err := align.New(vocab, alignOpts...).Align(ctx, snapshot.Challenges, snapshot.Predictions)
	if err != nil {
		return aggregate.Tables{}, fmt.Errorf("align dataset: %w", err)
	}

	tables, err := aggregator.Aggregate(ctx, res)
	if err != nil {
		return aggregate.Tables{}, fmt.Errorf("aggregate records: %w", err)
	}

	invalid := 0
	for _, rec := range res.Records {
		if !rec.Predicted.Valid() {
			invalid++
		}
	}

	metrics.RecordReconcileRun()
	metrics.ObserveReconcileDuration(time.Since(began).Seconds())
	metrics.RecordDroppedChallenges(len(res.DroppedChallenges))
	metrics.RecordOrphanPredictions(res.OrphanPredictions)
	metrics.UpdateInvalidPredictions(invalid)
	metrics.UpdateMinersTracked(len(res.Miners))

	s.logger.Info(ctx, "reconciliation complete",
		logger.Int("miners", len(res.Miners)),
		logger.Int("records", len(res.Records)),
		logger.Int("dropped", len(res.DroppedChallenges)),
		logger.Int("orphans", res.OrphanPredictions),
		logger.Duration("elapsed", time.Since(began)),
	)
	return tables, nil
}

// MinerSummary reconciles and returns the summary rows for one miner.
// Returns repository.ErrNotFound when the miner produced no records.
func (s *Service) MinerSummary(ctx context.Context, minerID string) ([]model.MinerMetricSet, error) {
	tables, err := s.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]model.MinerMetricSet, 0, len(model.Modes()))
	for _, row := range tables.Summary {
		if row.MinerID == minerID {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		ctx := context.Background()
		challenges, predictions := s.store.Counts(ctx)
		stats["queueLength"] = s.queue.Len(ctx)
		stats["challenges"] = challenges
		stats["predictions"] = predictions
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
