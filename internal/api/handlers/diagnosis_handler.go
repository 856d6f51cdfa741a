package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
)

const maxRequestBytes = 64 << 10

// Diagnoser answers one diagnosis question.
type Diagnoser interface {
	Diagnose(ctx context.Context, question string) (*entities.QueryResult, error)
}

// DiagnosisHandler handles diagnosis HTTP requests
type DiagnosisHandler struct {
	diagnoser Diagnoser
}

// NewDiagnosisHandler creates a new diagnosis handler
func NewDiagnosisHandler(diagnoser Diagnoser) *DiagnosisHandler {
	return &DiagnosisHandler{diagnoser: diagnoser}
}

type diagnoseRequest struct {
	Question string `json:"question"`
}

// Diagnose handles POST /api/diagnose
func (h *DiagnosisHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnoseRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.diagnoser.Diagnose(r.Context(), req.Question)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Diagnosis request failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
