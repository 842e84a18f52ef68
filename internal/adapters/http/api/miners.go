// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/subnetlab/minerscope/internal/adapters/repository"
)

// MinersHandler serves per-miner summaries.
type MinersHandler struct {
	deps Dependencies
}

// NewMinersHandler creates a new miners handler.
func NewMinersHandler(deps Dependencies) *MinersHandler {
	return &MinersHandler{deps: deps}
}

// HandleGet handles GET /miners/{id} requests.
func (h *MinersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_miner"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	minerID := strings.TrimPrefix(r.URL.Path, "/miners/")
	if minerID == "" || strings.Contains(minerID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	rows, err := h.deps.MinerSummary(r.Context(), minerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
		return
	}

	resp := make([]summaryRow, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, newSummaryRow(row))
	}
	writeJSON(w, http.StatusOK, resp)
}
