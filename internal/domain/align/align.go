// Package align pairs each miner's predictions with resolved ground truth.
//
// Alignment is the only place where a prediction's validity is decided:
// a missing, unparseable, or out-of-vocabulary answer becomes an invalid
// AlignedRecord that stays in every downstream denominator, while a
// challenge whose own label cannot be resolved is dropped for all miners,
// since its truth is shared.
package align

import (
	"context"
	"sort"
	"time"

	"github.com/subnetlab/minerscope/internal/domain/labels"
	"github.com/subnetlab/minerscope/internal/domain/model"
)

// Option applies a configuration option to the Aligner.
type Option func(*Aligner)

// WithMiners restricts alignment to the given miner ids.
func WithMiners(ids ...string) Option {
	return func(a *Aligner) {
		a.minerFilter = make(map[string]bool, len(ids))
		for _, id := range ids {
			a.minerFilter[id] = true
		}
	}
}

// WithTimeRange restricts alignment to challenges within [start, end].
// A zero bound is open.
func WithTimeRange(start, end time.Time) Option {
	return func(a *Aligner) {
		a.start, a.end = start, end
	}
}

// Result carries the aligned records plus alignment diagnostics.
type Result struct {
	// Records are grouped by miner id ascending, then by challenge
	// ingestion order within each miner. The grouping is deterministic
	// regardless of input ordering.
	Records []model.AlignedRecord

	// Miners is the sorted set of miner ids that produced records.
	Miners []string

	// Scorable counts challenges with resolvable truth.
	Scorable int

	// DroppedChallenges lists challenge ids whose truth could not be
	// resolved; they are excluded from scoring for every miner.
	DroppedChallenges []string

	// OrphanPredictions counts predictions referencing unknown challenges.
	OrphanPredictions int
}

// Aligner joins challenges and predictions over a shared vocabulary.
type Aligner struct {
	vocab       *labels.Vocabulary
	minerFilter map[string]bool
	start, end  time.Time
}

// New creates an Aligner over the given read-only vocabulary.
func New(vocab *labels.Vocabulary, opts ...Option) *Aligner {
	a := &Aligner{vocab: vocab}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// scorable is a challenge whose truth resolved.
type scorable struct {
	challenge model.Challenge
	truth     model.Class
}

// Align produces one AlignedRecord per (miner, scorable challenge) pair.
// Miners with no prediction for a scorable challenge get an invalid record:
// non-response is accounted for, never silently removed from denominators.
func (a *Aligner) Align(ctx context.Context, challenges []model.Challenge, predictions []model.Prediction) (Result, error) {
	var res Result

	// Resolve truth once per challenge; the vocabulary is shared.
	byID := make(map[string]scorable, len(challenges))
	dropped := make(map[string]bool)
	order := make([]scorable, 0, len(challenges))
	for _, ch := range challenges {
		if !a.inRange(ch.TS) {
			continue
		}
		truth, err := a.vocab.Resolve(ch.RawLabel)
		if err != nil {
			dropped[ch.ID] = true
			res.DroppedChallenges = append(res.DroppedChallenges, ch.ID)
			continue
		}
		s := scorable{challenge: ch, truth: truth}
		byID[ch.ID] = s
		order = append(order, s)
	}
	sort.Slice(order, func(i, j int) bool {
		return order[i].challenge.Seq < order[j].challenge.Seq
	})
	sort.Strings(res.DroppedChallenges)
	res.Scorable = len(order)

	// Index predictions by (miner, challenge); first one wins, duplicates
	// are expected to be filtered by ingestion dedupe.
	type key struct{ miner, challenge string }
	indexed := make(map[key]model.Prediction, len(predictions))
	minerSet := make(map[string]bool)
	for _, p := range predictions {
		if a.minerFilter != nil && !a.minerFilter[p.MinerID] {
			continue
		}
		if dropped[p.ChallengeID] {
			// The challenge cannot be scored, but the miner still exists.
			minerSet[p.MinerID] = true
			continue
		}
		if _, ok := byID[p.ChallengeID]; !ok {
			res.OrphanPredictions++
			continue
		}
		minerSet[p.MinerID] = true
		k := key{p.MinerID, p.ChallengeID}
		if _, dup := indexed[k]; !dup {
			indexed[k] = p
		}
	}

	res.Miners = make([]string, 0, len(minerSet))
	for id := range minerSet {
		res.Miners = append(res.Miners, id)
	}
	sort.Strings(res.Miners)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res.Records = make([]model.AlignedRecord, 0, len(res.Miners)*len(order))
	for _, miner := range res.Miners {
		for _, s := range order {
			p, ok := indexed[key{miner, s.challenge.ID}]
			rec := model.AlignedRecord{
				ChallengeID:  s.challenge.ID,
				MinerID:      miner,
				Truth:        s.truth,
				Predicted:    model.InvalidClass(),
				Modality:     s.challenge.Modality,
				MediaRef:     s.challenge.MediaRef,
				ValidatorRun: s.challenge.ValidatorRun,
				TS:           s.challenge.TS,
				Seq:          s.challenge.Seq,
			}
			if ok {
				rec.Predicted = a.resolvePrediction(p)
				if score, has := a.vocab.BinaryScore(p.Scores); has {
					rec.Score, rec.HasScore = score, true
				}
			}
			res.Records = append(res.Records, rec)
		}
	}
	return res, nil
}

// resolvePrediction decides the tagged prediction state for one answer.
// The class token takes precedence; a score vector stands in when no token
// was supplied. "-1" is the source convention for a miner that did not
// respond.
func (a *Aligner) resolvePrediction(p model.Prediction) model.PredictedClass {
	if p.RawClass != "" && p.RawClass != "-1" {
		if c, err := a.vocab.Resolve(p.RawClass); err == nil {
			return model.ValidClass(c)
		}
		return model.InvalidClass()
	}
	if c, ok := a.vocab.ClassFromScores(p.Scores); ok {
		return model.ValidClass(c)
	}
	return model.InvalidClass()
}

func (a *Aligner) inRange(ts time.Time) bool {
	if !a.start.IsZero() && ts.Before(a.start) {
		return false
	}
	if !a.end.IsZero() && ts.After(a.end) {
		return false
	}
	return true
}
