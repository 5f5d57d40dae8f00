package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/ballot/internal/core/domain"
)

func TestPhaseNext(t *testing.T) {
	p := domain.RegisteringVoters
	var seen []string
	for {
		seen = append(seen, p.String())
		next, ok := p.Next()
		if !ok {
			break
		}
		assert.Equal(t, p+1, next)
		p = next
	}

	assert.Equal(t, []string{
		"RegisteringVoters",
		"ProposalsRegistrationStarted",
		"ProposalsRegistrationEnded",
		"VotingSessionStarted",
		"VotingSessionEnded",
		"VotesTallied",
	}, seen)
}

func TestPhaseText(t *testing.T) {
	raw, err := json.Marshal(struct {
		Phase domain.Phase `json:"phase"`
	}{domain.VotingSessionStarted})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"VotingSessionStarted"}`, string(raw))

	var decoded struct {
		Phase domain.Phase `json:"phase"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"phase":"VotesTallied"}`), &decoded))
	assert.Equal(t, domain.VotesTallied, decoded.Phase)

	assert.Error(t, json.Unmarshal([]byte(`{"phase":"Closed"}`), &decoded))
	assert.Equal(t, "Voting session has ended", domain.VotingSessionEnded.Label())
	assert.Equal(t, "Not a valid status", domain.Phase(9).Label())
}

func TestParseTransition(t *testing.T) {
	for _, tr := range []domain.Transition{
		domain.StartProposalsRegistration,
		domain.EndProposalsRegistration,
		domain.StartVotingSession,
		domain.EndVotingSession,
	} {
		parsed, err := domain.ParseTransition(tr.String())
		require.NoError(t, err)
		assert.Equal(t, tr, parsed)
	}

	_, err := domain.ParseTransition("tally")
	assert.Error(t, err)
	assert.Equal(t, domain.ProposalsRegistrationEnded, domain.StartVotingSession.From())
}

func TestBuildReport(t *testing.T) {
	b := votingStarted(t)
	mustVote(t, b, alice, 1)
	mustVote(t, b, bob, 1)
	mustVote(t, b, owner, 0)
	mustAdvance(t, b, domain.EndVotingSession)
	_, _, err := b.Tally(owner)
	require.NoError(t, err)

	r := domain.BuildReport(b)
	assert.Equal(t, 3, r.RegisteredVoters)
	assert.Equal(t, 3, r.VotesCast)
	assert.InDelta(t, 100.0, r.Turnout, 0.001)
	require.Len(t, r.Standings, 2)
	assert.Equal(t, 1, r.Standings[0].ProposalID)
	assert.InDelta(t, 66.666, r.Standings[0].Percentage, 0.01)
	assert.Equal(t, r.Winner.ProposalID, r.Standings[0].ProposalID)
}
