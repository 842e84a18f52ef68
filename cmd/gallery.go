package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subnetlab/minerscope/internal/adapters/media"
	"github.com/subnetlab/minerscope/internal/config"
	"github.com/subnetlab/minerscope/internal/domain/aggregate"
	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/internal/render"
	"github.com/subnetlab/minerscope/pkg/logger"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Reconcile, download challenge media, and render the HTML gallery",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runGallery(cmd.Context(), cfg)
	},
}

func runGallery(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	_, tables, err := fetchAndReconcile(ctx, cfg)
	if err != nil {
		return err
	}

	downloader := media.New(cfg.RunsBaseURL, cfg.MediaDir,
		media.WithImages(cfg.DownloadImages),
		media.WithVideos(cfg.DownloadVideos),
		media.WithLimit(cfg.DownloadLimit),
	)
	manifest, err := downloader.Fetch(ctx, challengesOf(tables))
	if err != nil {
		return fmt.Errorf("download media: %w", err)
	}

	gallery, err := render.New(
		render.WithTitle(cfg.GalleryTitle),
		render.WithMaxItems(cfg.GalleryMaxItems),
		render.WithDimensions(cfg.GalleryWidth, cfg.GalleryHeight),
	)
	if err != nil {
		return err
	}
	if err := gallery.RenderFile(cfg.GalleryPath, tables.Detailed, manifest); err != nil {
		return err
	}

	log.Info(ctx, "gallery rendered",
		logger.String("path", cfg.GalleryPath),
		logger.Int("mediaFiles", len(manifest)),
	)
	return nil
}

// challengesOf rebuilds the unique challenge list from the detailed table so
// the downloader sees each media reference once.
func challengesOf(tables aggregate.Tables) []model.Challenge {
	seen := make(map[string]bool, len(tables.Detailed))
	challenges := make([]model.Challenge, 0, len(tables.Detailed))
	for _, row := range tables.Detailed {
		if seen[row.ChallengeID] {
			continue
		}
		seen[row.ChallengeID] = true
		challenges = append(challenges, model.Challenge{
			ID:       row.ChallengeID,
			Modality: row.Modality,
			MediaRef: row.MediaRef,
			TS:       row.TS,
		})
	}
	return challenges
}
