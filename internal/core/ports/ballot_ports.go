package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
)

type SnapshotRepository interface {
	Save(ctx context.Context, snapshot domain.Snapshot) error
	Load(ctx context.Context, id uuid.UUID) (*domain.Snapshot, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type EventRepository interface {
	Append(ctx context.Context, event domain.Event) error
	List(ctx context.Context, ballotID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error)
}

// Observer receives every event after the state change it describes has
// been applied. A failing observer never undoes the change.
type Observer interface {
	Notify(ctx context.Context, event domain.Event) error
}

type ObserverFunc func(ctx context.Context, event domain.Event) error

func (f ObserverFunc) Notify(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

type BallotState struct {
	ID            uuid.UUID    `json:"id"`
	Administrator string       `json:"administrator"`
	Phase         domain.Phase `json:"phase"`
	PhaseLabel    string       `json:"phase_label"`
	SessionID     uint64       `json:"session_id"`
}

// CallerStatus is what the caller's own identity may do right now.
type CallerStatus struct {
	Identity        string       `json:"identity"`
	IsAdministrator bool         `json:"is_administrator"`
	Voter           domain.Voter `json:"voter"`
}

type BallotService interface {
	State(ctx context.Context) BallotState
	Me(ctx context.Context, caller string) CallerStatus
	RegisterVoter(ctx context.Context, caller, identity string) (domain.Voter, error)
	AdvancePhase(ctx context.Context, caller string, transition domain.Transition) (BallotState, error)
	Next(ctx context.Context, caller string) (BallotState, error)
	RegisterProposal(ctx context.Context, caller, description string) (domain.Proposal, error)
	CastVote(ctx context.Context, caller string, proposalID int) (domain.Voter, error)
	Tally(ctx context.Context, caller string) (domain.Winner, error)
	Reset(ctx context.Context, caller string) (BallotState, error)
	GetVoter(ctx context.Context, caller, identity string) (domain.Voter, error)
	ListVoters(ctx context.Context, caller string) ([]domain.Voter, error)
	GetProposal(ctx context.Context, caller string, id int) (domain.Proposal, error)
	ListProposals(ctx context.Context, caller string) ([]domain.Proposal, error)
	SessionProposals(ctx context.Context, session uint64) []domain.Proposal
	GetWinner(ctx context.Context) domain.Winner
	Events(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
}

type ReportService interface {
	Report(ctx context.Context, ballotID uuid.UUID) (domain.Report, error)
	ReportAll(ctx context.Context) ([]domain.Report, error)
}
