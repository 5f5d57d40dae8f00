package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

type BallotHandler struct {
	service ports.BallotService
}

func NewBallotHandler(service ports.BallotService) *BallotHandler {
	return &BallotHandler{
		service: service,
	}
}

type registerVoterRequest struct {
	Identity string `json:"identity"`
}

type registerProposalRequest struct {
	Description string `json:"description"`
}

type castVoteRequest struct {
	ProposalID *int `json:"proposal_id"`
}

func (h *BallotHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.State(r.Context()))
}

func (h *BallotHandler) Winner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetWinner(r.Context()))
}

// Events lists past events. Query parameters session, kind, identity and
// limit narrow the result.
func (h *BallotHandler) Events(w http.ResponseWriter, r *http.Request) {
	var filter domain.EventFilter
	q := r.URL.Query()

	if s := q.Get("session"); s != "" {
		session, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid session")
			return
		}
		filter.SessionID = &session
	}
	if k := q.Get("kind"); k != "" {
		kind, ok := domain.ParseEventKind(k)
		if !ok {
			writeBadRequest(w, "invalid event kind")
			return
		}
		filter.Kind = kind
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	filter.Identity = q.Get("identity")

	events, err := h.service.Events(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *BallotHandler) RegisterVoter(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	var req registerVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	voter, err := h.service.RegisterVoter(r.Context(), caller, req.Identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, voter)
}

func (h *BallotHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	voters, err := h.service.ListVoters(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voters)
}

func (h *BallotHandler) GetVoter(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	identity, err := url.PathUnescape(chi.URLParam(r, "identity"))
	if err != nil {
		writeBadRequest(w, "invalid identity")
		return
	}

	voter, err := h.service.GetVoter(r.Context(), caller, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voter)
}

func (h *BallotHandler) RegisterProposal(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	var req registerProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	proposal, err := h.service.RegisterProposal(r.Context(), caller, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, proposal)
}

func (h *BallotHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	proposals, err := h.service.ListProposals(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	if author := r.URL.Query().Get("author"); author != "" {
		filtered := []domain.Proposal{}
		for _, p := range proposals {
			if p.Author == author {
				filtered = append(filtered, p)
			}
		}
		proposals = filtered
	}
	writeJSON(w, http.StatusOK, proposals)
}

func (h *BallotHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid proposal id")
		return
	}

	proposal, err := h.service.GetProposal(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// SessionProposals serves the proposals of any session, including retired
// ones, for auditing.
func (h *BallotHandler) SessionProposals(w http.ResponseWriter, r *http.Request) {
	session, err := strconv.ParseUint(chi.URLParam(r, "session"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid session")
		return
	}
	writeJSON(w, http.StatusOK, h.service.SessionProposals(r.Context(), session))
}

func (h *BallotHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.ProposalID == nil {
		writeBadRequest(w, "proposal_id is required")
		return
	}

	voter, err := h.service.CastVote(r.Context(), caller, *req.ProposalID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, voter)
}

func (h *BallotHandler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	transition, err := domain.ParseTransition(chi.URLParam(r, "transition"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown_transition", Message: err.Error()})
		return
	}

	state, err := h.service.AdvancePhase(r.Context(), caller, transition)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *BallotHandler) NextPhase(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	state, err := h.service.Next(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *BallotHandler) Tally(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	winner, err := h.service.Tally(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, winner)
}

func (h *BallotHandler) Reset(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())

	state, err := h.service.Reset(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
