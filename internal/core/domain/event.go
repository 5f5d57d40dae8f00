package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventPhaseChanged       EventKind = "PhaseChanged"
	EventVoterRegistered    EventKind = "VoterRegistered"
	EventProposalRegistered EventKind = "ProposalRegistered"
	EventVoteCast           EventKind = "VoteCast"
)

func ParseEventKind(s string) (EventKind, bool) {
	switch k := EventKind(s); k {
	case EventPhaseChanged, EventVoterRegistered, EventProposalRegistered, EventVoteCast:
		return k, true
	}
	return "", false
}

// Event is the notification emitted for every state change. Seq is
// assigned by the ballot in mutation order; ID and OccurredAt are stamped
// when the event is published.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Seq           uint64    `json:"seq"`
	Kind          EventKind `json:"kind"`
	BallotID      uuid.UUID `json:"ballot_id"`
	SessionID     uint64    `json:"session_id"`
	PreviousPhase *Phase    `json:"previous_phase,omitempty"`
	NewPhase      *Phase    `json:"new_phase,omitempty"`
	Identity      string    `json:"identity,omitempty"`
	ProposalID    *int      `json:"proposal_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventFilter narrows an event history query. Zero fields match everything.
type EventFilter struct {
	SessionID *uint64
	Kind      EventKind
	Identity  string
	Limit     int
}

func (f EventFilter) Match(e Event) bool {
	if f.SessionID != nil && e.SessionID != *f.SessionID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Identity != "" && e.Identity != f.Identity {
		return false
	}
	return true
}
