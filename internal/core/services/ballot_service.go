package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

// ballotService serializes every call on a single ballot. Each accepted
// mutation is persisted before the call returns; its event is then logged
// and handed to the observers in mutation order.
type ballotService struct {
	mu        sync.Mutex
	id        uuid.UUID
	ballot    *domain.Ballot
	snapshots ports.SnapshotRepository
	events    ports.EventRepository
	observers []ports.Observer
	logger    *slog.Logger
	now       func() time.Time
}

// NewBallotService wraps ballot. snapshots and events may be nil, in which
// case state lives in memory only and no history is kept.
func NewBallotService(ballot *domain.Ballot, snapshots ports.SnapshotRepository, events ports.EventRepository, logger *slog.Logger, observers ...ports.Observer) ports.BallotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ballotService{
		id:        ballot.ID(),
		ballot:    ballot,
		snapshots: snapshots,
		events:    events,
		observers: observers,
		logger:    logger.With("ballot_id", ballot.ID()),
		now:       time.Now,
	}
}

// LoadBallot restores the ballot stored under id, or creates and stores a
// fresh one administered by administrator.
func LoadBallot(ctx context.Context, repo ports.SnapshotRepository, id uuid.UUID, administrator string) (*domain.Ballot, error) {
	snapshot, err := repo.Load(ctx, id)
	if errors.Is(err, domain.ErrBallotNotFound) {
		b := domain.NewBallot(id, administrator)
		if err := repo.Save(ctx, b.Snapshot()); err != nil {
			return nil, fmt.Errorf("failed to store new ballot: %w", err)
		}
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ballot: %w", err)
	}

	if snapshot.Administrator != administrator {
		return nil, fmt.Errorf("ballot %s is administered by %q, not %q", id, snapshot.Administrator, administrator)
	}
	return domain.Restore(*snapshot)
}

func (s *ballotService) State(ctx context.Context) ports.BallotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *ballotService) Me(ctx context.Context, caller string) ports.CallerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := ports.CallerStatus{
		Identity:        caller,
		IsAdministrator: s.ballot.IsAdministrator(caller),
		Voter:           domain.Voter{Identity: caller},
	}
	if v, ok := s.ballot.VoterInSession(s.ballot.SessionID(), caller); ok {
		status.Voter = v
	}
	return status
}

func (s *ballotService) RegisterVoter(ctx context.Context, caller, identity string) (domain.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var registered string
	err := s.apply(ctx, "register_voter", caller, func(b *domain.Ballot) (domain.Event, error) {
		e, err := b.RegisterVoter(caller, identity)
		registered = e.Identity
		return e, err
	})
	if err != nil {
		return domain.Voter{}, err
	}
	v, _ := s.ballot.VoterInSession(s.ballot.SessionID(), registered)
	return v, nil
}

func (s *ballotService) AdvancePhase(ctx context.Context, caller string, transition domain.Transition) (ports.BallotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(ctx, "advance_phase", caller, func(b *domain.Ballot) (domain.Event, error) {
		return b.AdvancePhase(caller, transition)
	})
	if err != nil {
		return ports.BallotState{}, err
	}
	return s.state(), nil
}

func (s *ballotService) Next(ctx context.Context, caller string) (ports.BallotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(ctx, "next_phase", caller, func(b *domain.Ballot) (domain.Event, error) {
		return b.Next(caller)
	})
	if err != nil {
		return ports.BallotState{}, err
	}
	return s.state(), nil
}

func (s *ballotService) RegisterProposal(ctx context.Context, caller, description string) (domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var proposal domain.Proposal
	err := s.apply(ctx, "register_proposal", caller, func(b *domain.Ballot) (domain.Event, error) {
		p, e, err := b.RegisterProposal(caller, description)
		proposal = p
		return e, err
	})
	if err != nil {
		return domain.Proposal{}, err
	}
	return proposal, nil
}

func (s *ballotService) CastVote(ctx context.Context, caller string, proposalID int) (domain.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(ctx, "cast_vote", caller, func(b *domain.Ballot) (domain.Event, error) {
		return b.CastVote(caller, proposalID)
	})
	if err != nil {
		return domain.Voter{}, err
	}
	v, _ := s.ballot.VoterInSession(s.ballot.SessionID(), caller)
	return v, nil
}

func (s *ballotService) Tally(ctx context.Context, caller string) (domain.Winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(ctx, "tally", caller, func(b *domain.Ballot) (domain.Event, error) {
		e, _, err := b.Tally(caller)
		return e, err
	})
	if err != nil {
		return domain.Winner{}, err
	}
	w := s.ballot.Winner()
	s.logger.Info("votes tallied", "session_id", w.SessionID, "winning_proposal_id", w.ProposalID, "vote_count", w.VoteCount)
	return w, nil
}

func (s *ballotService) Reset(ctx context.Context, caller string) (ports.BallotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.apply(ctx, "reset", caller, func(b *domain.Ballot) (domain.Event, error) {
		return b.Reset(caller)
	})
	if err != nil {
		return ports.BallotState{}, err
	}
	return s.state(), nil
}

func (s *ballotService) GetVoter(ctx context.Context, caller, identity string) (domain.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ballot.Voter(caller, identity)
}

func (s *ballotService) ListVoters(ctx context.Context, caller string) ([]domain.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ballot.Voters(caller)
}

func (s *ballotService) GetProposal(ctx context.Context, caller string, id int) (domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ballot.Proposal(caller, id)
}

func (s *ballotService) ListProposals(ctx context.Context, caller string) ([]domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ballot.Proposals(caller)
}

func (s *ballotService) SessionProposals(ctx context.Context, session uint64) []domain.Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ballot.ProposalsInSession(session)
}

func (s *ballotService) GetWinner(ctx context.Context) domain.Winner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ballot.Winner()
}

func (s *ballotService) Events(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	if s.events == nil {
		return []domain.Event{}, nil
	}
	events, err := s.events.List(ctx, s.id, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *ballotService) state() ports.BallotState {
	return ports.BallotState{
		ID:            s.ballot.ID(),
		Administrator: s.ballot.Administrator(),
		Phase:         s.ballot.Phase(),
		PhaseLabel:    s.ballot.Phase().Label(),
		SessionID:     s.ballot.SessionID(),
	}
}

// apply runs one mutation with s.mu held. A rejected mutation leaves no
// trace; a mutation that cannot be persisted is rolled back.
func (s *ballotService) apply(ctx context.Context, op, caller string, mutate func(b *domain.Ballot) (domain.Event, error)) error {
	var before domain.Snapshot
	if s.snapshots != nil {
		before = s.ballot.Snapshot()
	}

	event, err := mutate(s.ballot)
	if err != nil {
		s.logger.Info("ballot operation rejected", "op", op, "caller", caller, "phase", s.ballot.Phase(), "error", err)
		return err
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, s.ballot.Snapshot()); err != nil {
			s.logger.Error("failed to persist ballot, rolling back", "op", op, "caller", caller, "error", err)
			restored, rerr := domain.Restore(before)
			if rerr != nil {
				return fmt.Errorf("failed to roll back ballot: %w", errors.Join(err, rerr))
			}
			s.ballot = restored
			return fmt.Errorf("failed to persist ballot: %w", err)
		}
	}

	s.logger.Debug("ballot operation applied", "op", op, "caller", caller, "phase", s.ballot.Phase(), "session_id", s.ballot.SessionID(), "seq", event.Seq)
	s.publish(context.WithoutCancel(ctx), event)
	return nil
}

func (s *ballotService) publish(ctx context.Context, event domain.Event) {
	event.ID = uuid.New()
	event.OccurredAt = s.now().UTC()

	if s.events != nil {
		if err := s.events.Append(ctx, event); err != nil {
			s.logger.Error("failed to append event", "kind", event.Kind, "seq", event.Seq, "error", err)
		}
	}
	for _, o := range s.observers {
		if err := o.Notify(ctx, event); err != nil {
			s.logger.Error("observer failed", "kind", event.Kind, "seq", event.Seq, "error", err)
		}
	}
}
