package synthetic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/subnetlab/minerscope/pkg/logger"
)

const directoryPermission = 0o750

// Stats tracks workload outcomes.
type Stats struct {
	ChallengesSubmitted  int64
	PredictionsSubmitted int64
	Accepted             int64
	Duplicates           int64
	Failed               int64
	StartTime            time.Time
	Duration             time.Duration
}

// Run executes the complete synthetic workload: health check, generation,
// concurrent submission, then verification of the reconciled report.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("synthetic")

	log.Info(ctx, "starting synthetic workload",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("challenges", cfg.Challenges),
		logger.Int("miners", cfg.Miners),
		logger.Int("workers", cfg.Workers),
	)

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	ds := Generate(cfg)
	log.Info(ctx, "dataset generated",
		logger.Int("challenges", len(ds.Challenges)),
		logger.Int("predictions", len(ds.Predictions)),
	)

	if err := submit(ctx, client, cfg, ds, stats); err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	log.Info(ctx, "waiting for ingestion to drain")
	time.Sleep(processingDelay)

	if err := verify(ctx, client, cfg, ds); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveDataset(cfg.OutputFile, ds); err != nil {
			log.Warn(ctx, "failed to save dataset", logger.Error(err))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "synthetic workload complete",
		logger.Int("accepted", int(stats.Accepted)),
		logger.Int("duplicates", int(stats.Duplicates)),
		logger.Int("failed", int(stats.Failed)),
		logger.Duration("duration", stats.Duration),
	)
	if stats.Failed > 0 {
		return fmt.Errorf("%d submissions failed", stats.Failed)
	}
	return nil
}

func checkServiceHealth(ctx context.Context, client *httpClient, cfg *Config) error {
	resp, err := client.get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status := drain(resp); status != http.StatusOK {
		return fmt.Errorf("health check returned %d", status)
	}
	return nil
}

// submit pushes challenges first, then predictions, each through a bounded
// worker set. Challenges go first so predictions rarely arrive as orphans.
func submit(ctx context.Context, client *httpClient, cfg *Config, ds *Dataset, stats *Stats) error {
	challengeURL := cfg.BaseURL + "/challenges"
	work := make([]any, 0, len(ds.Challenges))
	for _, ch := range ds.Challenges {
		work = append(work, ch)
	}
	if err := submitBatch(ctx, client, cfg, challengeURL, work, stats); err != nil {
		return err
	}
	atomic.AddInt64(&stats.ChallengesSubmitted, int64(len(ds.Challenges)))

	predictionURL := cfg.BaseURL + "/predictions"
	work = work[:0]
	for _, p := range ds.Predictions {
		work = append(work, p)
	}
	if err := submitBatch(ctx, client, cfg, predictionURL, work, stats); err != nil {
		return err
	}
	atomic.AddInt64(&stats.PredictionsSubmitted, int64(len(ds.Predictions)))
	return nil
}

func submitBatch(ctx context.Context, client *httpClient, cfg *Config, url string, items []any, stats *Stats) error {
	itemChan := make(chan any, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemChan {
				resp, err := client.postJSON(ctx, url, item)
				if err != nil {
					atomic.AddInt64(&stats.Failed, 1)
					continue
				}
				switch drain(resp) {
				case http.StatusAccepted:
					atomic.AddInt64(&stats.Accepted, 1)
				case http.StatusOK:
					atomic.AddInt64(&stats.Duplicates, 1)
				default:
					atomic.AddInt64(&stats.Failed, 1)
				}
			}
		}()
	}

	for _, item := range items {
		select {
		case itemChan <- item:
		case <-ctx.Done():
			close(itemChan)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(itemChan)
	wg.Wait()
	return nil
}

func saveDataset(path string, ds *Dataset) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(struct {
		Challenges  []Challenge  `json:"challenges"`
		Predictions []Prediction `json:"predictions"`
	}{ds.Challenges, ds.Predictions}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}
