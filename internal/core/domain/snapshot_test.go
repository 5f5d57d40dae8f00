package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/ballot/internal/core/domain"
)

func TestRestoreKeepsBehavior(t *testing.T) {
	b := votingStarted(t)
	mustVote(t, b, alice, 1)

	restored, err := domain.Restore(b.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, b.Snapshot(), restored.Snapshot())

	_, err = restored.CastVote(alice, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	mustVote(t, restored, bob, 1)

	e, err := restored.AdvancePhase(owner, domain.EndVotingSession)
	require.NoError(t, err)
	assert.Equal(t, b.Snapshot().EventSeq+2, e.Seq, "sequence numbers continue after a restore")

	_, w, err := restored.Tally(owner)
	require.NoError(t, err)
	assert.Equal(t, 1, w.ProposalID)
	assert.Equal(t, uint64(2), w.VoteCount)
}

func TestRestoreKeepsRetiredSessions(t *testing.T) {
	b := ballotAt(t, domain.VotesTallied)
	_, err := b.Reset(owner)
	require.NoError(t, err)
	mustRegister(t, b, marc)

	restored, err := domain.Restore(b.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), restored.SessionID())
	assert.False(t, restored.IsVoter(alice))
	assert.True(t, restored.IsVoter(marc))
	_, ok := restored.VoterInSession(0, alice)
	assert.True(t, ok)
	assert.Len(t, restored.ProposalsInSession(0), 2)
}

func TestSnapshotJSON(t *testing.T) {
	b := ballotAt(t, domain.VotesTallied)

	raw, err := json.Marshal(b.Snapshot())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"phase":"VotesTallied"`)

	var decoded domain.Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	restored, err := domain.Restore(decoded)
	require.NoError(t, err)
	assert.Equal(t, b.Winner(), restored.Winner())
}

func TestRestoreRejectsInconsistentSnapshots(t *testing.T) {
	valid := func() domain.Snapshot {
		b := votingStarted(t)
		mustVote(t, b, alice, 1)
		return b.Snapshot()
	}

	cases := map[string]func(s *domain.Snapshot){
		"missing administrator": func(s *domain.Snapshot) { s.Administrator = "" },
		"unknown phase":         func(s *domain.Snapshot) { s.Phase = domain.Phase(42) },
		"vote sum mismatch":     func(s *domain.Snapshot) { s.Proposals[0].VoteCount = 5 },
		"vote for missing proposal": func(s *domain.Snapshot) {
			id := 7
			s.Voters[1].VotedProposalID = &id
		},
		"vote without target": func(s *domain.Snapshot) { s.Voters[1].VotedProposalID = nil },
		"duplicate voter":     func(s *domain.Snapshot) { s.Voters = append(s.Voters, s.Voters[0]) },
		"gap in proposal ids": func(s *domain.Snapshot) { s.Proposals[1].ID = 4 },
		"future session":      func(s *domain.Snapshot) { s.Voters[0].SessionID = 3 },
		"premature winner":    func(s *domain.Snapshot) { s.WinningProposalID = 1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid()
			mutate(&s)
			_, err := domain.Restore(s)
			assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)
		})
	}
}
