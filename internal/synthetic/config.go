// Package synthetic generates a synthetic challenge/prediction workload,
// drives it through a running service, and verifies the reconciliation
// output against the known miner behaviors.
package synthetic

import "time"

// Default workload configuration constants.
const (
	DefaultBaseURL    = "http://localhost:9090"
	DefaultChallenges = 200
	DefaultMiners     = 16
	DefaultWorkers    = 8
	DefaultTimeout    = 10 * time.Second

	// processingDelay gives the async ingest pipeline time to drain before
	// the report is pulled.
	processingDelay = 2 * time.Second
)

// Config controls the synthetic workload.
type Config struct {
	BaseURL    string
	Challenges int
	Miners     int
	Workers    int
	Timeout    time.Duration
	OutputFile string // optional JSON dump of the generated dataset
}

// NewConfig returns a Config with defaults applied.
func NewConfig() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		Challenges: DefaultChallenges,
		Miners:     DefaultMiners,
		Workers:    DefaultWorkers,
		Timeout:    DefaultTimeout,
	}
}
