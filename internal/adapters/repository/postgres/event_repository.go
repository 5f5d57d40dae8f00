package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) ports.EventRepository {
	return &eventRepository{
		db: db,
	}
}

func (r *eventRepository) Append(ctx context.Context, e domain.Event) error {
	query := `
		INSERT INTO ballot_events (id, ballot_id, seq, kind, session_id, previous_phase, new_phase, identity, proposal_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ballot_id, seq) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.BallotID, int64(e.Seq), string(e.Kind), int64(e.SessionID),
		nullPhase(e.PreviousPhase), nullPhase(e.NewPhase),
		sql.NullString{String: e.Identity, Valid: e.Identity != ""},
		nullInt(e.ProposalID), e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// List returns matching events ordered by sequence. A positive limit keeps
// the most recent ones.
func (r *eventRepository) List(ctx context.Context, ballotID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
	conds := []string{"ballot_id = $1"}
	args := []any{ballotID}
	if filter.SessionID != nil {
		args = append(args, int64(*filter.SessionID))
		conds = append(conds, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Identity != "" {
		args = append(args, filter.Identity)
		conds = append(conds, fmt.Sprintf("identity = $%d", len(args)))
	}

	query := `
		SELECT id, ballot_id, seq, kind, session_id, previous_phase, new_phase, identity, proposal_id, occurred_at
		FROM ballot_events
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY seq DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			e              domain.Event
			kind           string
			previous, next sql.NullInt16
			identity       sql.NullString
			proposal       sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.BallotID, &e.Seq, &kind, &e.SessionID, &previous, &next, &identity, &proposal, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.PreviousPhase = phaseFromNull(previous)
		e.NewPhase = phaseFromNull(next)
		e.Identity = identity.String
		if proposal.Valid {
			id := int(proposal.Int64)
			e.ProposalID = &id
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	// Rows come newest first so LIMIT keeps the latest; hand them back in
	// mutation order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func nullPhase(p *domain.Phase) sql.NullInt16 {
	if p == nil {
		return sql.NullInt16{}
	}
	return sql.NullInt16{Int16: int16(*p), Valid: true}
}

func phaseFromNull(n sql.NullInt16) *domain.Phase {
	if !n.Valid {
		return nil
	}
	p := domain.Phase(n.Int16)
	return &p
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
