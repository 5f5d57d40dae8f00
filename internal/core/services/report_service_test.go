package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/ballot/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/services"
)

func TestReportService(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSnapshotRepository()

	tallied := domain.NewBallot(uuid.New(), owner)
	for _, id := range []string{alice, bob} {
		_, err := tallied.RegisterVoter(owner, id)
		require.NoError(t, err)
	}
	_, err := tallied.AdvancePhase(owner, domain.StartProposalsRegistration)
	require.NoError(t, err)
	_, _, err = tallied.RegisterProposal(alice, "P0")
	require.NoError(t, err)
	_, _, err = tallied.RegisterProposal(bob, "P1")
	require.NoError(t, err)
	_, err = tallied.AdvancePhase(owner, domain.EndProposalsRegistration)
	require.NoError(t, err)
	_, err = tallied.AdvancePhase(owner, domain.StartVotingSession)
	require.NoError(t, err)
	_, err = tallied.CastVote(alice, 1)
	require.NoError(t, err)
	_, err = tallied.AdvancePhase(owner, domain.EndVotingSession)
	require.NoError(t, err)
	_, _, err = tallied.Tally(owner)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, tallied.Snapshot()))

	fresh := domain.NewBallot(uuid.New(), owner)
	require.NoError(t, repo.Save(ctx, fresh.Snapshot()))

	svc := services.NewReportService(repo)

	r, err := svc.Report(ctx, tallied.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.VotesTallied, r.Phase)
	assert.Equal(t, 2, r.RegisteredVoters)
	assert.Equal(t, 1, r.VotesCast)
	assert.InDelta(t, 50.0, r.Turnout, 0.001)
	assert.Equal(t, 1, r.Winner.ProposalID)

	_, err = svc.Report(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrBallotNotFound)

	all, err := svc.ReportAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	ids := []uuid.UUID{all[0].BallotID, all[1].BallotID}
	assert.ElementsMatch(t, []uuid.UUID{tallied.ID(), fresh.ID()}, ids)
}
