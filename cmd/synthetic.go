package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/subnetlab/minerscope/internal/synthetic"
)

var (
	synBaseURL    string
	synChallenges int
	synMiners     int
	synWorkers    int
	synTimeout    time.Duration
	synOutput     string
)

var syntheticCmd = &cobra.Command{
	Use:   "synthetic",
	Short: "Drive a synthetic workload through a running service and verify the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd); err != nil {
			return err
		}
		cfg := synthetic.NewConfig()
		cfg.BaseURL = synBaseURL
		cfg.Challenges = synChallenges
		cfg.Miners = synMiners
		cfg.Workers = synWorkers
		cfg.Timeout = synTimeout
		cfg.OutputFile = synOutput
		return synthetic.Run(cmd.Context(), cfg)
	},
}

func init() {
	syntheticCmd.Flags().StringVar(&synBaseURL, "base-url", synthetic.DefaultBaseURL, "service base URL")
	syntheticCmd.Flags().IntVar(&synChallenges, "challenges", synthetic.DefaultChallenges, "number of challenges to generate")
	syntheticCmd.Flags().IntVar(&synMiners, "miners", synthetic.DefaultMiners, "number of synthetic miners")
	syntheticCmd.Flags().IntVar(&synWorkers, "workers", synthetic.DefaultWorkers, "concurrent submission workers")
	syntheticCmd.Flags().DurationVar(&synTimeout, "timeout", synthetic.DefaultTimeout, "per-request timeout")
	syntheticCmd.Flags().StringVar(&synOutput, "output", "", "optional JSON dump of the generated dataset")
}
