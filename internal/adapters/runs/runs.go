// Package runs fetches validator run histories from the experiment-tracking
// service and decodes them into challenge and prediction records.
//
// This is a boundary adapter: the reconciliation core never fetches anything
// itself. Fetch failures surface here, before the core runs.
package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/subnetlab/minerscope/internal/domain/model"
	"github.com/subnetlab/minerscope/pkg/logger"
)

// Default client configuration constants.
const (
	defaultTimeout = 30 * time.Second
)

// Run identifies one validator run.
type Run struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Query filters run listings.
type Query struct {
	Start        time.Time
	End          time.Time // zero means open-ended
	ValidatorRun string    // optional exact run name
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpc.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpc = hc
		}
	}
}

// Client talks to the run-tracking API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  logger.Logger
}

// New creates a run-tracking client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  logger.Get().Named("runs"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrFetch, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// ListRuns returns validator runs for an entity/project within the query's
// time bounds.
func (c *Client) ListRuns(ctx context.Context, entity, project string, q Query) ([]Run, error) {
	query := url.Values{}
	query.Set("entity", entity)
	query.Set("project", project)
	if !q.Start.IsZero() {
		query.Set("start", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		query.Set("end", q.End.UTC().Format(time.RFC3339))
	}
	if q.ValidatorRun != "" {
		query.Set("name", q.ValidatorRun)
	}

	var out struct {
		Runs []Run `json:"runs"`
	}
	if err := c.get(ctx, "/api/v1/runs", query, &out); err != nil {
		return nil, err
	}
	c.logger.Debug(ctx, "listed validator runs",
		logger.String("entity", entity),
		logger.String("project", project),
		logger.Int("count", len(out.Runs)),
	)
	return out.Runs, nil
}

// History returns the challenge rows logged by one run.
func (c *Client) History(ctx context.Context, runID string) ([]HistoryRow, error) {
	var out struct {
		Rows []HistoryRow `json:"rows"`
	}
	if err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(runID)+"/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// FetchDataset pulls every matching run's history and decodes it into
// challenge and prediction records. Rows that do not follow the documented
// shape are skipped and counted, not repaired.
func (c *Client) FetchDataset(ctx context.Context, entity, project string, q Query) ([]model.Challenge, []model.Prediction, error) {
	matched, err := c.ListRuns(ctx, entity, project, q)
	if err != nil {
		return nil, nil, err
	}

	var (
		challenges  []model.Challenge
		predictions []model.Prediction
		skipped     int
	)
	for _, run := range matched {
		rows, err := c.History(ctx, run.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("history for run %s: %w", run.Name, err)
		}
		for i, row := range rows {
			ch, preds, ok := decodeRow(run.Name, i, row)
			if !ok {
				skipped++
				continue
			}
			challenges = append(challenges, ch)
			predictions = append(predictions, preds...)
		}
	}
	if skipped > 0 {
		c.logger.Warn(ctx, "skipped malformed history rows", logger.Int("count", skipped))
	}
	c.logger.Info(ctx, "fetched dataset",
		logger.Int("runs", len(matched)),
		logger.Int("challenges", len(challenges)),
		logger.Int("predictions", len(predictions)),
	)
	return challenges, predictions, nil
}

// decodeRow turns one history row into a challenge plus its per-miner
// predictions. The challenge id is the run name plus the row index unless
// the row carries its own id.
func decodeRow(runName string, idx int, row HistoryRow) (model.Challenge, []model.Prediction, bool) {
	if row.Label == nil || len(row.MinerUIDs) == 0 {
		return model.Challenge{}, nil, false
	}
	if len(row.Predictions) != len(row.MinerUIDs) {
		return model.Challenge{}, nil, false
	}

	id := row.ChallengeID
	if id == "" {
		id = runName + "/" + strconv.Itoa(idx)
	}
	modality := model.Modality(row.Modality)
	if modality == "" {
		modality = model.ModalityImage
	}

	ch := model.Challenge{
		ID:           id,
		RawLabel:     *row.Label,
		Modality:     modality,
		MediaRef:     row.MediaPath,
		ValidatorRun: runName,
		TS:           row.Time(),
	}

	preds := make([]model.Prediction, 0, len(row.MinerUIDs))
	for i, uid := range row.MinerUIDs {
		p := model.Prediction{
			MinerID:     uid,
			ChallengeID: id,
			TS:          ch.TS,
		}
		row.Predictions[i].fill(&p)
		preds = append(preds, p)
	}
	return ch, preds, true
}
