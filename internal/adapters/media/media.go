// Package media downloads the challenge media referenced by validator runs
// into a local directory so galleries can be rendered offline.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/pkg/logger"
	"github.com/subnetlab/minerscope/pkg/metrics"
)

const defaultTimeout = 60 * time.Second

// Sentinel kinds for download failures.
var (
	ErrDownload = errors.New("media download failed")
	ErrStore    = errors.New("media store failed")
)

// Manifest maps challenge ids to local media paths.
type Manifest map[string]string

// Lookup returns the local path for a challenge, if its media was fetched.
func (m Manifest) Lookup(challengeID string) (string, bool) {
	path, ok := m[challengeID]
	return path, ok
}

// Option applies a configuration option to the Downloader.
type Option func(*Downloader)

// WithImages toggles image downloads.
func WithImages(enabled bool) Option {
	return func(d *Downloader) { d.images = enabled }
}

// WithVideos toggles video downloads.
func WithVideos(enabled bool) Option {
	return func(d *Downloader) { d.videos = enabled }
}

// WithLimit caps how many files one Fetch call downloads. Files already on
// disk do not count against the limit. Zero means unlimited.
func WithLimit(n int) Option {
	return func(d *Downloader) { d.limit = n }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Downloader) {
		if hc != nil {
			d.httpc = hc
		}
	}
}

// Downloader fetches challenge media over HTTP into a directory.
type Downloader struct {
	baseURL string
	dir     string
	httpc   *http.Client
	images  bool
	videos  bool
	limit   int
	logger  logger.Logger
}

// New creates a Downloader writing under dir. Media references resolve
// relative to baseURL.
func New(baseURL, dir string, opts ...Option) *Downloader {
	d := &Downloader{
		baseURL: baseURL,
		dir:     dir,
		httpc:   &http.Client{Timeout: defaultTimeout},
		images:  true,
		videos:  true,
		logger:  logger.Get().Named("media"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads media for every challenge whose modality is enabled.
// Existing files are reused, so repeated calls converge to a no-op. A failed
// download is logged and counted but does not abort the rest of the batch.
func (d *Downloader) Fetch(ctx context.Context, challenges []model.Challenge) (Manifest, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	manifest := make(Manifest, len(challenges))
	downloaded := 0
	for _, ch := range challenges {
		if ch.MediaRef == "" || !d.wants(ch.Modality) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return manifest, err
		}

		local := filepath.Join(d.dir, filepath.Base(ch.MediaRef))
		if _, err := os.Stat(local); err == nil {
			manifest[ch.ID] = local
			continue
		}
		if d.limit > 0 && downloaded >= d.limit {
			continue
		}

		if err := d.download(ctx, ch.MediaRef, local); err != nil {
			metrics.RecordMediaDownloadError()
			d.logger.Warn(ctx, "media download failed",
				logger.String("challenge", ch.ID),
				logger.String("ref", ch.MediaRef),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordMediaDownload()
		manifest[ch.ID] = local
		downloaded++
	}

	d.logger.Info(ctx, "media fetch complete",
		logger.Int("downloaded", downloaded),
		logger.Int("available", len(manifest)),
	)
	return manifest, nil
}

func (d *Downloader) wants(m model.Modality) bool {
	switch m {
	case model.ModalityImage:
		return d.images
	case model.ModalityVideo:
		return d.videos
	default:
		return false
	}
}

// download streams one file to disk via a temp file so partial downloads
// never appear at the final path.
func (d *Downloader) download(ctx context.Context, ref, local string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/"+ref, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	resp, err := d.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrDownload, ref, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}
