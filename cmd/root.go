package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/subnetlab/minerscope/internal/config"
	"github.com/subnetlab/minerscope/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "minerscope",
	Short: "Miner prediction reconciliation and reporting",
	Long: `minerscope reconciles miner predictions against validator ground truth
and reports per-miner classification metrics in binary and multiclass modes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(galleryCmd)
	rootCmd.AddCommand(syntheticCmd)
}

func execute() error {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		return err
	}
	return nil
}

// loadConfig initializes logging and loads the layered configuration. Every
// subcommand starts here.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := logger.Init(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
