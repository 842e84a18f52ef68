// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/subnetlab/minerscope/internal/domain/aggregate"
	"github.com/subnetlab/minerscope/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// IngestChallenge and IngestPrediction push records for async storage.
	// accepted=false signals backpressure; duplicate marks idempotent replays.
	IngestChallenge(ctx context.Context, ch model.Challenge) (accepted, duplicate bool)
	IngestPrediction(ctx context.Context, p model.Prediction) (accepted, duplicate bool)

	// Reconcile recomputes both output tables from the stored dataset.
	Reconcile(ctx context.Context) (aggregate.Tables, error)

	// MinerSummary returns one miner's summary rows across all modes.
	MinerSummary(ctx context.Context, minerID string) ([]model.MinerMetricSet, error)
}

// Server wires HTTP routes for the reconciliation API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	challengesHandler  *ChallengesHandler
	predictionsHandler *PredictionsHandler
	reportHandler      *ReportHandler
	minersHandler      *MinersHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		challengesHandler:  NewChallengesHandler(deps),
		predictionsHandler: NewPredictionsHandler(deps),
		reportHandler:      NewReportHandler(deps),
		minersHandler:      NewMinersHandler(deps),
		dashboardHandler:   newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/challenges", MetricsMiddleware(s.challengesHandler.HandlePost, "challenges"))
	mux.HandleFunc("/predictions", MetricsMiddleware(s.predictionsHandler.HandlePost, "predictions"))
	mux.HandleFunc("/report/summary", MetricsMiddleware(s.reportHandler.HandleSummary, "report_summary"))
	mux.HandleFunc("/report/detailed", MetricsMiddleware(s.reportHandler.HandleDetailed, "report_detailed"))
	mux.HandleFunc("/miners/", MetricsMiddleware(s.minersHandler.HandleGet, "miners"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
