// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/subnetlab/minerscope/internal/domain/aggregate"
	"github.com/subnetlab/minerscope/internal/domain/model"
)

// summaryRow is the JSON shape of one (miner, mode) summary line. Metric
// values render through their string form so undefined and no_data survive
// the trip instead of degrading to 0.
type summaryRow struct {
	MinerID   string `json:"miner_id"`
	Mode      string `json:"mode"`
	Total     int    `json:"total"`
	Valid     int    `json:"valid"`
	Invalid   int    `json:"invalid"`
	Accuracy  string `json:"accuracy"`
	Precision string `json:"precision"`
	Recall    string `json:"recall"`
	F1        string `json:"f1"`
	MCC       string `json:"mcc"`
	AUC       string `json:"auc"`
}

func newSummaryRow(s model.MinerMetricSet) summaryRow {
	return summaryRow{
		MinerID:   s.MinerID,
		Mode:      string(s.Mode),
		Total:     s.Total,
		Valid:     s.Valid,
		Invalid:   s.Invalid,
		Accuracy:  s.Accuracy.String(),
		Precision: s.Precision.String(),
		Recall:    s.Recall.String(),
		F1:        s.F1.String(),
		MCC:       s.MCC.String(),
		AUC:       s.AUC.String(),
	}
}

type summaryResponse struct {
	Rows              []summaryRow `json:"rows"`
	DroppedChallenges []string     `json:"dropped_challenges"`
}

// detailedRowJSON is the JSON shape of one detailed audit line.
type detailedRowJSON struct {
	ChallengeID  string  `json:"challenge_id"`
	MinerID      string  `json:"miner_id"`
	Modality     string  `json:"modality"`
	ValidatorRun string  `json:"validator_run,omitempty"`
	TS           string  `json:"ts"`
	GroundTruth  string  `json:"ground_truth"`
	Predicted    string  `json:"predicted"`
	Score        *string `json:"score"`
	CorrectBin   bool    `json:"correct_binary"`
	CorrectMulti bool    `json:"correct_multiclass"`
	MediaRef     string  `json:"media_ref,omitempty"`
}

func newDetailedRowJSON(r aggregate.DetailedRow) detailedRowJSON {
	var score *string
	if r.HasScore {
		s := r.ScoreLabel()
		score = &s
	}
	return detailedRowJSON{
		ChallengeID:  r.ChallengeID,
		MinerID:      r.MinerID,
		Modality:     string(r.Modality),
		ValidatorRun: r.ValidatorRun,
		TS:           r.TS.UTC().Format(time.RFC3339),
		GroundTruth:  r.Truth.String(),
		Predicted:    r.PredictedLabel(),
		Score:        score,
		CorrectBin:   r.CorrectBin,
		CorrectMulti: r.CorrectMulti,
		MediaRef:     r.MediaRef,
	}
}

type detailedResponse struct {
	Rows []detailedRowJSON `json:"rows"`
}

// ReportHandler serves the reconciliation output tables.
type ReportHandler struct {
	deps Dependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps Dependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleSummary handles GET /report/summary requests.
// Query params: mode=binary|multiclass filters rows, format=csv switches the
// body to the canonical CSV table.
func (h *ReportHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.report_summary"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode != "" && mode != string(model.ModeBinary) && mode != string(model.ModeMulticlass) {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	tables, err := h.deps.Reconcile(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		return
	}

	if mode != "" {
		filtered := tables.Summary[:0:0]
		for _, row := range tables.Summary {
			if string(row.Mode) == mode {
				filtered = append(filtered, row)
			}
		}
		tables.Summary = filtered
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := tables.WriteSummaryCSV(w); err != nil {
			writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		}
		return
	}

	resp := summaryResponse{
		Rows:              make([]summaryRow, 0, len(tables.Summary)),
		DroppedChallenges: tables.DroppedChallenges,
	}
	for _, row := range tables.Summary {
		resp.Rows = append(resp.Rows, newSummaryRow(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDetailed handles GET /report/detailed requests.
// Query params: miner= filters to one miner, format=csv switches the body to
// the canonical CSV table.
func (h *ReportHandler) HandleDetailed(w http.ResponseWriter, r *http.Request) {
	const op = "api.report_detailed"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	tables, err := h.deps.Reconcile(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		return
	}

	if miner := r.URL.Query().Get("miner"); miner != "" {
		filtered := tables.Detailed[:0:0]
		for _, row := range tables.Detailed {
			if row.MinerID == miner {
				filtered = append(filtered, row)
			}
		}
		tables.Detailed = filtered
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := tables.WriteDetailedCSV(w); err != nil {
			writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		}
		return
	}

	resp := detailedResponse{Rows: make([]detailedRowJSON, 0, len(tables.Detailed))}
	for _, row := range tables.Detailed {
		resp.Rows = append(resp.Rows, newDetailedRowJSON(row))
	}
	writeJSON(w, http.StatusOK, resp)
}
