package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/ballot/internal/core/domain"
)

type errorResponse struct {
	Error         string        `json:"error"`
	Message       string        `json:"message"`
	ExpectedPhase *domain.Phase `json:"expected_phase,omitempty"`
	CurrentPhase  *domain.Phase `json:"current_phase,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: message})
}

// writeError maps engine errors to a status code and a JSON body. Anything
// unrecognized is a storage or programming failure and becomes a 500.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Message: err.Error()}
	status := http.StatusInternalServerError

	var phaseErr *domain.PhaseError
	switch {
	case errors.As(err, &phaseErr):
		status = http.StatusConflict
		resp.Error = "invalid_phase"
		resp.ExpectedPhase = &phaseErr.Expected
		resp.CurrentPhase = &phaseErr.Current
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
		resp.Error = "unauthorized"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		status = http.StatusConflict
		resp.Error = "already_registered"
	case errors.Is(err, domain.ErrAlreadyVoted):
		status = http.StatusConflict
		resp.Error = "already_voted"
	case errors.Is(err, domain.ErrEmptyProposal):
		status = http.StatusBadRequest
		resp.Error = "empty_proposal"
	case errors.Is(err, domain.ErrInvalidIdentity):
		status = http.StatusBadRequest
		resp.Error = "invalid_identity"
	case errors.Is(err, domain.ErrProposalNotFound):
		status = http.StatusNotFound
		resp.Error = "proposal_not_found"
	default:
		resp.Error = "internal"
		resp.Message = "internal server error"
		slog.Error("request failed", "error", err)
	}

	writeJSON(w, status, resp)
}
