// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Layer optional YAML file and env vars on top via Load.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "runtime"

// Config contains process configuration for the reconciliation service.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory ingestion queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the ingestion deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the prediction shards in the dataset store.
	ShardCount int `koanf:"shard_count"`

	// AggregateWorkers bounds per-miner parallelism during reconciliation.
	AggregateWorkers int `koanf:"aggregate_workers"`

	// Run-tracking source (reconcile and gallery).
	RunsBaseURL string `koanf:"runs_base_url"`
	RunsAPIKey  string `koanf:"runs_api_key"`
	Entity      string `koanf:"entity"`
	Project     string `koanf:"project"`

	// ValidatorRun optionally restricts fetching to one run name.
	ValidatorRun string `koanf:"validator_run"`

	// StartTS and EndTS bound fetched challenges, RFC3339. EndTS may be empty.
	StartTS string `koanf:"start_ts"`
	EndTS   string `koanf:"end_ts"`

	// Miners optionally restricts reconciliation to the listed miner ids.
	Miners []string `koanf:"miners"`

	// Media download settings.
	MediaDir       string `koanf:"media_dir"`
	DownloadImages bool   `koanf:"download_images"`
	DownloadVideos bool   `koanf:"download_videos"`
	DownloadLimit  int    `koanf:"download_limit"`

	// Table output directory for the reconcile subcommand.
	OutputDir string `koanf:"output_dir"`

	// Gallery rendering settings.
	GalleryPath     string `koanf:"gallery_path"`
	GalleryTitle    string `koanf:"gallery_title"`
	GalleryMaxItems int    `koanf:"gallery_max_items"`
	GalleryWidth    int    `koanf:"gallery_width"`
	GalleryHeight   int    `koanf:"gallery_height"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9090",
		QueueSize:        100_000,
		WorkerCount:      runtime.NumCPU() * 2,
		DedupeSize:       500_000,
		ShardCount:       8,
		AggregateWorkers: runtime.NumCPU(),
		RunsBaseURL:      "https://api.wandb.ai",
		MediaDir:         "media",
		DownloadImages:   true,
		DownloadVideos:   true,
		OutputDir:        "out",
		GalleryPath:      "media_gallery.html",
		GalleryTitle:     "Miner Prediction Gallery",
		GalleryWidth:     500,
		GalleryHeight:    400,
	}
}
