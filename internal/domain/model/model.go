// Package model contains domain values passed between layers.
package model

import (
	"strconv"
	"time"
)

// Mode selects the label space metrics are computed in.
type Mode string

// Evaluation modes.
const (
	ModeBinary     Mode = "binary"
	ModeMulticlass Mode = "multiclass"
)

// Modes lists all evaluation modes in summary-table order.
func Modes() []Mode { return []Mode{ModeBinary, ModeMulticlass} }

// Modality describes the media type of a challenge.
type Modality string

// Known modalities.
const (
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
)

// Class identifies a canonical label. The multiclass space for this subnet is
// {ClassReal, ClassSynthetic, ClassSemisynthetic}; the binary space collapses
// everything above ClassReal into the positive ("fake") class.
type Class int

// Canonical classes.
const (
	ClassReal          Class = 0
	ClassSynthetic     Class = 1
	ClassSemisynthetic Class = 2
)

// ToBinary collapses a multiclass label into the binary space:
// real stays negative, every generated class is positive.
func (c Class) ToBinary() Class {
	if c > ClassReal {
		return ClassSynthetic
	}
	return ClassReal
}

// String names the canonical classes for human-facing output.
func (c Class) String() string {
	switch c {
	case ClassReal:
		return "real"
	case ClassSynthetic:
		return "synthetic"
	case ClassSemisynthetic:
		return "semisynthetic"
	}
	return strconv.Itoa(int(c))
}

// Challenge is one evaluation instance emitted by a validator run.
// Immutable once ingested.
type Challenge struct {
	ID           string    // unique id for idempotency
	RawLabel     string    // source label token, resolved by the labels package
	Modality     Modality  // image or video
	MediaRef     string    // remote media path, opaque to the core
	ValidatorRun string    // originating run name
	TS           time.Time // challenge timestamp
	Seq          uint64    // ingestion order, assigned by the store
}

// Prediction is one miner's response to one challenge. A prediction with no
// usable class or score vector is still ingested and later marked invalid by
// the aligner; it must never silently vanish from the tables.
type Prediction struct {
	MinerID     string
	ChallengeID string
	RawClass    string    // raw predicted class token, empty when absent
	Scores      []float64 // optional per-class probabilities (softmax order)
	TS          time.Time
}

// HasScores reports whether a per-class probability vector was supplied.
func (p Prediction) HasScores() bool { return len(p.Scores) > 0 }
