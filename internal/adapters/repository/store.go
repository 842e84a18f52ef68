// Package repository defines the dataset store interface and errors.
//
// The store holds the raw challenge and prediction records between ingestion
// and reconciliation. It assigns each challenge a monotonic ingestion
// sequence, which downstream ordering is built on.
package repository

import (
	"context"

	"github.com/subnetlab/minerscope/internal/domain/model"
)

// Dataset is an immutable snapshot of the ingested records. Challenges come
// back in ingestion order; prediction order is unspecified, alignment sorts.
type Dataset struct {
	Challenges  []model.Challenge
	Predictions []model.Prediction
}

// Store provides read/write access to the ingested dataset.
type Store interface {
	// PutChallenge stores a challenge and assigns its ingestion sequence.
	// Storing an existing id again is an error; ingestion dedupes upstream.
	PutChallenge(ctx context.Context, ch model.Challenge) error

	// PutPrediction stores one miner's prediction. Predictions may arrive
	// before their challenge; alignment accounts for orphans.
	PutPrediction(ctx context.Context, p model.Prediction) error

	// Challenge returns a stored challenge by id.
	// Returns ErrNotFound for unknown ids.
	Challenge(ctx context.Context, id string) (model.Challenge, error)

	// Snapshot returns a copy of the full dataset for reconciliation.
	Snapshot(ctx context.Context) (Dataset, error)

	// Counts returns the number of stored challenges and predictions.
	Counts(ctx context.Context) (challenges, predictions int)
}
