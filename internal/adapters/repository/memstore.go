package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/pkg/metrics"
)

// Default store configuration constants.
const defaultShardCount = 8

// MemStore implements Store in memory. Challenges live behind a single
// ordered index; predictions are sharded by miner id to spread write
// contention across ingestion workers.
type MemStore struct {
	seq atomic.Uint64

	chMu       sync.RWMutex
	challenges []model.Challenge
	byID       map[string]int // challenge id -> index into challenges

	shards     []*predictionShard
	shardCount int

	predCount atomic.Int64
}

type predictionShard struct {
	mu    sync.Mutex
	preds []model.Prediction
}

// NewMemStore creates an in-memory dataset store with configuration options.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		byID:       make(map[string]int),
		shardCount: defaultShardCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*predictionShard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &predictionShard{}
	}
	return s
}

func (s *MemStore) shardFor(minerID string) *predictionShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(minerID))
	return s.shards[int(h.Sum32())%s.shardCount]
}

// PutChallenge stores a challenge and stamps its ingestion sequence.
func (s *MemStore) PutChallenge(_ context.Context, ch model.Challenge) error {
	if ch.ID == "" || ch.RawLabel == "" {
		return fmt.Errorf("%w: challenge needs id and label", ErrInvalidRecord)
	}

	s.chMu.Lock()
	defer s.chMu.Unlock()

	if _, ok := s.byID[ch.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, ch.ID)
	}
	ch.Seq = s.seq.Add(1)
	s.byID[ch.ID] = len(s.challenges)
	s.challenges = append(s.challenges, ch)

	metrics.UpdateStoreCounts(len(s.challenges), int(s.predCount.Load()))
	return nil
}

// PutPrediction stores one miner's prediction.
func (s *MemStore) PutPrediction(_ context.Context, p model.Prediction) error {
	if p.MinerID == "" || p.ChallengeID == "" {
		return fmt.Errorf("%w: prediction needs miner and challenge ids", ErrInvalidRecord)
	}

	shard := s.shardFor(p.MinerID)
	shard.mu.Lock()
	shard.preds = append(shard.preds, p)
	shard.mu.Unlock()

	s.predCount.Add(1)
	return nil
}

// Challenge returns a stored challenge by id.
func (s *MemStore) Challenge(_ context.Context, id string) (model.Challenge, error) {
	s.chMu.RLock()
	defer s.chMu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return model.Challenge{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.challenges[idx], nil
}

// Snapshot copies the dataset out. Challenges keep ingestion order;
// predictions come out grouped by miner id ascending so snapshots of the
// same dataset compare equal.
func (s *MemStore) Snapshot(_ context.Context) (Dataset, error) {
	s.chMu.RLock()
	challenges := make([]model.Challenge, len(s.challenges))
	copy(challenges, s.challenges)
	s.chMu.RUnlock()

	var predictions []model.Prediction
	for _, shard := range s.shards {
		shard.mu.Lock()
		predictions = append(predictions, shard.preds...)
		shard.mu.Unlock()
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].MinerID < predictions[j].MinerID
	})

	return Dataset{Challenges: challenges, Predictions: predictions}, nil
}

// Counts returns the number of stored challenges and predictions.
func (s *MemStore) Counts(_ context.Context) (int, int) {
	s.chMu.RLock()
	nc := len(s.challenges)
	s.chMu.RUnlock()
	return nc, int(s.predCount.Load())
}
