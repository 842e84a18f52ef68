package model

import "time"

// PredictedClass is the tagged state of one miner's answer after alignment:
// either a class in the canonical space, or invalid (missing, malformed, or
// outside the vocabulary). The invalid state is first-class so it can be
// counted and rendered instead of propagating as a silent NaN.
type PredictedClass struct {
	class Class
	valid bool
}

// ValidClass wraps a resolved class.
func ValidClass(c Class) PredictedClass { return PredictedClass{class: c, valid: true} }

// InvalidClass marks a missing or unparseable prediction.
func InvalidClass() PredictedClass { return PredictedClass{} }

// Class returns the predicted class and whether the prediction was valid.
func (p PredictedClass) Class() (Class, bool) { return p.class, p.valid }

// Valid reports whether the prediction carries a usable class.
func (p PredictedClass) Valid() bool { return p.valid }

// AlignedRecord joins exactly one challenge with one miner's prediction.
// Truth is always present: a challenge whose label cannot be resolved is
// dropped upstream for all miners and never reaches this structure.
type AlignedRecord struct {
	ChallengeID string
	MinerID     string
	Truth       Class          // canonical multiclass ground truth
	Predicted   PredictedClass // multiclass prediction, possibly invalid
	Score       float64        // binary fake-probability, meaningful iff HasScore
	HasScore    bool

	// Carried through for the detailed table and the media gallery.
	Modality     Modality
	MediaRef     string
	ValidatorRun string
	TS           time.Time
	Seq          uint64 // challenge ingestion order within this miner's group
}

// Correct reports whether a valid prediction matches the truth in the given
// mode. Invalid predictions are never correct.
func (r AlignedRecord) Correct(mode Mode) bool {
	pred, ok := r.Predicted.Class()
	if !ok {
		return false
	}
	if mode == ModeBinary {
		return pred.ToBinary() == r.Truth.ToBinary()
	}
	return pred == r.Truth
}
