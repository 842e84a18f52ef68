package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/subnetlab/minerscope/internal/adapters/runs"
	"github.com/subnetlab/minerscope/internal/config"
	"github.com/subnetlab/minerscope/internal/domain/aggregate"
	"github.com/subnetlab/minerscope/internal/domain/align"
	"github.com/subnetlab/minerscope/internal/domain/evaluate"
	"github.com/subnetlab/minerscope/internal/domain/labels"
	"github.com/subnetlab/minerscope/pkg/logger"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fetch validator runs, reconcile, and write the CSV tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runReconcile(cmd.Context(), cfg)
	},
}

// fetchAndReconcile is the offline pipeline shared by reconcile and gallery:
// pull the dataset from the run-tracking service, align it, aggregate it.
func fetchAndReconcile(ctx context.Context, cfg *config.Config) (align.Result, aggregate.Tables, error) {
	client := runs.New(cfg.RunsBaseURL, runs.WithAPIKey(cfg.RunsAPIKey))
	challenges, predictions, err := client.FetchDataset(ctx, cfg.Entity, cfg.Project, runs.Query{
		Start:        parseBound(cfg.StartTS),
		End:          parseBound(cfg.EndTS),
		ValidatorRun: cfg.ValidatorRun,
	})
	if err != nil {
		return align.Result{}, aggregate.Tables{}, fmt.Errorf("fetch dataset: %w", err)
	}

	vocab := labels.New()
	alignOpts := []align.Option{}
	if len(cfg.Miners) > 0 {
		alignOpts = append(alignOpts, align.WithMiners(cfg.Miners...))
	}
	res, err := align.New(vocab, alignOpts...).Align(ctx, challenges, predictions)
	if err != nil {
		return align.Result{}, aggregate.Tables{}, fmt.Errorf("align dataset: %w", err)
	}

	aggOpts := []aggregate.Option{}
	if cfg.AggregateWorkers > 0 {
		aggOpts = append(aggOpts, aggregate.WithWorkers(cfg.AggregateWorkers))
	}
	tables, err := aggregate.New(evaluate.New(vocab), aggOpts...).Aggregate(ctx, res)
	if err != nil {
		return align.Result{}, aggregate.Tables{}, fmt.Errorf("aggregate records: %w", err)
	}
	return res, tables, nil
}

func runReconcile(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	res, tables, err := fetchAndReconcile(ctx, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeCSV(filepath.Join(cfg.OutputDir, "summary.csv"), tables.WriteSummaryCSV); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(cfg.OutputDir, "detailed.csv"), tables.WriteDetailedCSV); err != nil {
		return err
	}

	log.Info(ctx, "reconciliation tables written",
		logger.String("dir", cfg.OutputDir),
		logger.Int("miners", len(res.Miners)),
		logger.Int("detailedRows", len(tables.Detailed)),
		logger.Int("droppedChallenges", len(tables.DroppedChallenges)),
		logger.Int("orphanPredictions", res.OrphanPredictions),
	)
	return nil
}

func writeCSV(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
