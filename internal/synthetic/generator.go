package synthetic

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// randomFloatDivisor bounds the crypto/rand draw used for uniform floats.
const randomFloatDivisor = 1000000

// Miner archetypes. Each archetype has a known expected accuracy, which the
// verification step checks the reconciled report against.
const (
	archetypeOracle     = 0 // always right, confident scores
	archetypeNoisy      = 1 // right ~70% of the time
	archetypeContrarian = 2 // systematically inverted
	archetypeSilent     = 3 // skips ~30% of challenges with -1
)

const (
	noisyAccuracy  = 0.7
	silentSkipRate = 0.3
)

// Challenge is the wire shape submitted to POST /challenges.
type Challenge struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Modality     string `json:"modality"`
	ValidatorRun string `json:"validator_run"`
	TS           string `json:"ts"`
}

// Prediction is the wire shape submitted to POST /predictions.
type Prediction struct {
	MinerID     string    `json:"miner_id"`
	ChallengeID string    `json:"challenge_id"`
	Class       string    `json:"class,omitempty"`
	Scores      []float64 `json:"scores,omitempty"`
	TS          string    `json:"ts"`
}

// Dataset is one generated workload plus the per-miner archetype table the
// verification step needs.
type Dataset struct {
	Challenges  []Challenge
	Predictions []Prediction
	Archetypes  map[string]int // miner id -> archetype
	Labels      map[string]int // challenge id -> class
}

// randomFloat returns a uniform float64 in [0, 1).
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomClass draws a class from {0, 1, 2} with equal probability.
func randomClass() int {
	n, _ := rand.Int(rand.Reader, big.NewInt(3))
	return int(n.Int64())
}

// scoresFor builds a softmax-shaped vector peaked at class.
func scoresFor(class int, confidence float64) []float64 {
	rest := (1 - confidence) / 2
	scores := []float64{rest, rest, rest}
	scores[class] = confidence
	return scores
}

// wrongClass picks a deterministic wrong answer for a truth class.
func wrongClass(truth int) int {
	return (truth + 1) % 3
}

// Generate builds a synthetic dataset: cfg.Challenges challenges with random
// labels, and one prediction per (miner, challenge) following each miner's
// archetype.
func Generate(cfg *Config) *Dataset {
	run := "synthetic-" + uuid.NewString()[:8]
	base := time.Now().UTC().Add(-time.Duration(cfg.Challenges) * time.Second)

	ds := &Dataset{
		Challenges:  make([]Challenge, 0, cfg.Challenges),
		Predictions: make([]Prediction, 0, cfg.Challenges*cfg.Miners),
		Archetypes:  make(map[string]int, cfg.Miners),
		Labels:      make(map[string]int, cfg.Challenges),
	}

	miners := make([]string, cfg.Miners)
	for i := range miners {
		miners[i] = fmt.Sprintf("miner-%03d", i)
		ds.Archetypes[miners[i]] = i % 4
	}

	for i := 0; i < cfg.Challenges; i++ {
		truth := randomClass()
		ts := base.Add(time.Duration(i) * time.Second)
		ch := Challenge{
			ID:           uuid.NewString(),
			Label:        fmt.Sprintf("%d", truth),
			Modality:     "image",
			ValidatorRun: run,
			TS:           ts.Format(time.RFC3339),
		}
		ds.Challenges = append(ds.Challenges, ch)
		ds.Labels[ch.ID] = truth

		for _, miner := range miners {
			p := predictionFor(miner, ds.Archetypes[miner], ch, truth)
			ds.Predictions = append(ds.Predictions, p)
		}
	}
	return ds
}

func predictionFor(miner string, archetype int, ch Challenge, truth int) Prediction {
	p := Prediction{
		MinerID:     miner,
		ChallengeID: ch.ID,
		TS:          ch.TS,
	}
	switch archetype {
	case archetypeOracle:
		p.Scores = scoresFor(truth, 0.9)
	case archetypeNoisy:
		if randomFloat() < noisyAccuracy {
			p.Scores = scoresFor(truth, 0.6)
		} else {
			p.Scores = scoresFor(wrongClass(truth), 0.6)
		}
	case archetypeContrarian:
		p.Scores = scoresFor(wrongClass(truth), 0.8)
	case archetypeSilent:
		if randomFloat() < silentSkipRate {
			p.Class = "-1"
		} else {
			p.Scores = scoresFor(truth, 0.7)
		}
	}
	return p
}
