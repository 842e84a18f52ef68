// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/subnetlab/minerscope/internal/domain/model"
)

// challengeRequest mirrors the OpenAPI schema for POST /challenges.
type challengeRequest struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Modality     string `json:"modality"`
	MediaRef     string `json:"media_ref"`
	ValidatorRun string `json:"validator_run"`
	TS           string `json:"ts"`
}

func (c challengeRequest) validate() error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(c.Label) == "":
		return errors.New("missing label")
	}
	if c.TS != "" {
		if _, err := time.Parse(time.RFC3339, c.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

func (c challengeRequest) toModel() model.Challenge {
	ts, _ := time.Parse(time.RFC3339, c.TS)
	modality := model.Modality(c.Modality)
	if modality == "" {
		modality = model.ModalityImage
	}
	return model.Challenge{
		ID:           c.ID,
		RawLabel:     c.Label,
		Modality:     modality,
		MediaRef:     c.MediaRef,
		ValidatorRun: c.ValidatorRun,
		TS:           ts,
	}
}

// predictionRequest mirrors the OpenAPI schema for POST /predictions.
// Either class or scores must be present; a class of "-1" records an
// explicit non-response.
type predictionRequest struct {
	MinerID     string    `json:"miner_id"`
	ChallengeID string    `json:"challenge_id"`
	Class       string    `json:"class"`
	Scores      []float64 `json:"scores"`
	TS          string    `json:"ts"`
}

func (p predictionRequest) validate() error {
	switch {
	case strings.TrimSpace(p.MinerID) == "":
		return errors.New("missing miner_id")
	case strings.TrimSpace(p.ChallengeID) == "":
		return errors.New("missing challenge_id")
	case strings.TrimSpace(p.Class) == "" && len(p.Scores) == 0:
		return errors.New("missing class and scores")
	}
	if p.TS != "" {
		if _, err := time.Parse(time.RFC3339, p.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

func (p predictionRequest) toModel() model.Prediction {
	ts, _ := time.Parse(time.RFC3339, p.TS)
	return model.Prediction{
		MinerID:     p.MinerID,
		ChallengeID: p.ChallengeID,
		RawClass:    p.Class,
		Scores:      p.Scores,
		TS:          ts,
	}
}

// ChallengesHandler handles challenge ingestion requests.
type ChallengesHandler struct {
	deps Dependencies
}

// NewChallengesHandler creates a new challenges handler.
func NewChallengesHandler(deps Dependencies) *ChallengesHandler {
	return &ChallengesHandler{deps: deps}
}

// HandlePost handles POST /challenges requests.
func (h *ChallengesHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_challenge"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	accepted, duplicate := h.deps.IngestChallenge(r.Context(), req.toModel())
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}

// PredictionsHandler handles prediction ingestion requests.
type PredictionsHandler struct {
	deps Dependencies
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps Dependencies) *PredictionsHandler {
	return &PredictionsHandler{deps: deps}
}

// HandlePost handles POST /predictions requests.
func (h *PredictionsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_prediction"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	accepted, duplicate := h.deps.IngestPrediction(r.Context(), req.toModel())
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
