// Package render produces the static HTML gallery: every challenge with its
// media next to each miner's answer, so disagreements can be inspected by eye.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/subnetlab/minerscope/internal/adapters/media"
	"github.com/subnetlab/minerscope/internal/domain/aggregate"
	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/pkg/metrics"
)

//go:embed templates/gallery.html.tmpl
var templateFS embed.FS

// Default gallery dimensions.
const (
	defaultWidth  = 500
	defaultHeight = 500
	defaultTitle  = "challenge gallery"
)

// MinerCell is one miner's answer on one challenge.
type MinerCell struct {
	MinerID   string
	Predicted string
	Score     string
	Correct   bool
}

// Item is one gallery entry: a challenge, its media, and all miner answers.
type Item struct {
	ChallengeID  string
	MediaPath    string
	IsVideo      bool
	Truth        string
	Modality     string
	ValidatorRun string
	Miners       []MinerCell
}

type page struct {
	Title       string
	Width       int
	Height      int
	GeneratedAt string
	Items       []Item
}

// Option applies a configuration option to the Gallery.
type Option func(*Gallery)

// WithTitle sets the page title.
func WithTitle(title string) Option {
	return func(g *Gallery) {
		if title != "" {
			g.title = title
		}
	}
}

// WithMaxItems caps how many challenges the gallery shows. Zero means all.
func WithMaxItems(n int) Option {
	return func(g *Gallery) { g.maxItems = n }
}

// WithDimensions sets the rendered media size in pixels.
func WithDimensions(width, height int) Option {
	return func(g *Gallery) {
		if width > 0 {
			g.width = width
		}
		if height > 0 {
			g.height = height
		}
	}
}

// Gallery renders detailed reconciliation rows into a standalone HTML page.
type Gallery struct {
	title    string
	maxItems int
	width    int
	height   int
	tmpl     *template.Template
}

// New creates a Gallery with the embedded template.
func New(opts ...Option) (*Gallery, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/gallery.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse gallery template: %w", err)
	}
	g := &Gallery{
		title:  defaultTitle,
		width:  defaultWidth,
		height: defaultHeight,
		tmpl:   tmpl,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Render writes the gallery for all rows whose media is in the manifest.
// Items are ordered by challenge id, miners within an item by miner id.
func (g *Gallery) Render(w io.Writer, rows []aggregate.DetailedRow, manifest media.Manifest) error {
	items := g.buildItems(rows, manifest)
	p := page{
		Title:       g.title,
		Width:       g.width,
		Height:      g.height,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Items:       items,
	}
	if err := g.tmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render gallery: %w", err)
	}
	metrics.RecordGalleryRender()
	return nil
}

// RenderFile writes the gallery to path, rewriting media paths relative to
// the output directory so the page works wherever the tree is copied.
func (g *Gallery) RenderFile(path string, rows []aggregate.DetailedRow, manifest media.Manifest) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("render gallery: %w", err)
	}

	relative := make(media.Manifest, len(manifest))
	for id, mediaPath := range manifest {
		if rel, err := filepath.Rel(dir, mediaPath); err == nil {
			relative[id] = filepath.ToSlash(rel)
		} else {
			relative[id] = mediaPath
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render gallery: %w", err)
	}
	if err := g.Render(f, rows, relative); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (g *Gallery) buildItems(rows []aggregate.DetailedRow, manifest media.Manifest) []Item {
	byChallenge := make(map[string]*Item)
	for _, row := range rows {
		mediaPath, ok := manifest.Lookup(row.ChallengeID)
		if !ok {
			continue
		}
		item, ok := byChallenge[row.ChallengeID]
		if !ok {
			item = &Item{
				ChallengeID:  row.ChallengeID,
				MediaPath:    mediaPath,
				IsVideo:      row.Modality == model.ModalityVideo,
				Truth:        row.Truth.String(),
				Modality:     string(row.Modality),
				ValidatorRun: row.ValidatorRun,
			}
			byChallenge[row.ChallengeID] = item
		}
		item.Miners = append(item.Miners, MinerCell{
			MinerID:   row.MinerID,
			Predicted: predictedName(row),
			Score:     row.ScoreLabel(),
			Correct:   row.CorrectMulti,
		})
	}

	items := make([]Item, 0, len(byChallenge))
	for _, item := range byChallenge {
		sort.Slice(item.Miners, func(i, j int) bool {
			return item.Miners[i].MinerID < item.Miners[j].MinerID
		})
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ChallengeID < items[j].ChallengeID })

	if g.maxItems > 0 && len(items) > g.maxItems {
		items = items[:g.maxItems]
	}
	return items
}

func predictedName(row aggregate.DetailedRow) string {
	if c, ok := row.Predicted.Class(); ok {
		return c.String()
	}
	return aggregate.InvalidMarker
}
