package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

type snapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) ports.SnapshotRepository {
	return &snapshotRepository{
		db: db,
	}
}

// Save writes the snapshot in one transaction. Rows are upserted and never
// deleted. Sessions older than the stored session_id are retired and are not
// rewritten; a ballot saved for the first time gets every session.
func (r *snapshotRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var floor int64
	err = tx.QueryRowContext(ctx, `SELECT session_id FROM ballots WHERE id = $1 FOR UPDATE`, snapshot.ID).Scan(&floor)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		floor = 0
	case err != nil:
		return fmt.Errorf("failed to lock ballot: %w", err)
	}

	queryBallot := `
		INSERT INTO ballots (id, administrator, phase, session_id, winning_proposal_id, event_seq)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET phase = EXCLUDED.phase,
		    session_id = EXCLUDED.session_id,
		    winning_proposal_id = EXCLUDED.winning_proposal_id,
		    event_seq = EXCLUDED.event_seq,
		    updated_at = NOW()
	`
	_, err = tx.ExecContext(ctx, queryBallot,
		snapshot.ID, snapshot.Administrator, int(snapshot.Phase), int64(snapshot.SessionID),
		snapshot.WinningProposalID, int64(snapshot.EventSeq),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ballot: %w", err)
	}

	queryVoter := `
		INSERT INTO ballot_voters (ballot_id, session_id, identity, position, has_voted, voted_proposal_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ballot_id, session_id, identity) DO UPDATE
		SET has_voted = EXCLUDED.has_voted,
		    voted_proposal_id = EXCLUDED.voted_proposal_id
	`
	voterStmt, err := tx.PrepareContext(ctx, queryVoter)
	if err != nil {
		return fmt.Errorf("failed to prepare voter statement: %w", err)
	}
	defer voterStmt.Close()

	for i, v := range snapshot.Voters {
		if int64(v.SessionID) < floor {
			continue
		}
		var voted sql.NullInt64
		if v.VotedProposalID != nil {
			voted = sql.NullInt64{Int64: int64(*v.VotedProposalID), Valid: true}
		}
		_, err = voterStmt.ExecContext(ctx, snapshot.ID, int64(v.SessionID), v.Identity, i, v.HasVoted, voted)
		if err != nil {
			return fmt.Errorf("failed to upsert voter: %w", err)
		}
	}

	queryProposal := `
		INSERT INTO ballot_proposals (ballot_id, session_id, proposal_id, description, author, vote_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ballot_id, session_id, proposal_id) DO UPDATE
		SET vote_count = EXCLUDED.vote_count
	`
	proposalStmt, err := tx.PrepareContext(ctx, queryProposal)
	if err != nil {
		return fmt.Errorf("failed to prepare proposal statement: %w", err)
	}
	defer proposalStmt.Close()

	for _, p := range snapshot.Proposals {
		if int64(p.SessionID) < floor {
			continue
		}
		_, err = proposalStmt.ExecContext(ctx, snapshot.ID, int64(p.SessionID), p.ID, p.Description, p.Author, int64(p.VoteCount))
		if err != nil {
			return fmt.Errorf("failed to upsert proposal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *snapshotRepository) Load(ctx context.Context, id uuid.UUID) (*domain.Snapshot, error) {
	queryBallot := `
		SELECT id, administrator, phase, session_id, winning_proposal_id, event_seq
		FROM ballots
		WHERE id = $1
	`

	var (
		snapshot domain.Snapshot
		phase    int16
	)
	err := r.db.QueryRowContext(ctx, queryBallot, id).Scan(
		&snapshot.ID, &snapshot.Administrator, &phase, &snapshot.SessionID,
		&snapshot.WinningProposalID, &snapshot.EventSeq,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBallotNotFound
		}
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}
	snapshot.Phase = domain.Phase(phase)

	voters, err := r.fetchVoters(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot.Voters = voters

	proposals, err := r.fetchProposals(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot.Proposals = proposals

	return &snapshot, nil
}

func (r *snapshotRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM ballots ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ballots: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ballot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ballots: %w", err)
	}
	return ids, nil
}

func (r *snapshotRepository) fetchVoters(ctx context.Context, ballotID uuid.UUID) ([]domain.Voter, error) {
	query := `
		SELECT identity, session_id, has_voted, voted_proposal_id
		FROM ballot_voters
		WHERE ballot_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, ballotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get voters: %w", err)
	}
	defer rows.Close()

	voters := []domain.Voter{}
	for rows.Next() {
		v := domain.Voter{IsRegistered: true}
		var voted sql.NullInt64
		if err := rows.Scan(&v.Identity, &v.SessionID, &v.HasVoted, &voted); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		if voted.Valid {
			id := int(voted.Int64)
			v.VotedProposalID = &id
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voters: %w", err)
	}
	return voters, nil
}

func (r *snapshotRepository) fetchProposals(ctx context.Context, ballotID uuid.UUID) ([]domain.Proposal, error) {
	query := `
		SELECT proposal_id, session_id, description, author, vote_count
		FROM ballot_proposals
		WHERE ballot_id = $1
		ORDER BY session_id, proposal_id
	`
	rows, err := r.db.QueryContext(ctx, query, ballotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get proposals: %w", err)
	}
	defer rows.Close()

	proposals := []domain.Proposal{}
	for rows.Next() {
		var p domain.Proposal
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Description, &p.Author, &p.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposals: %w", err)
	}
	return proposals, nil
}
