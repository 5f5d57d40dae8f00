package http

import (
	"net/http"

	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

type UserHandler struct {
	service ports.BallotService
}

func NewUserHandler(service ports.BallotService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// GetMe reports whether the caller administers the ballot and their voter
// record in the current session.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Message: "missing user context"})
		return
	}

	writeJSON(w, http.StatusOK, h.service.Me(r.Context(), identity))
}
