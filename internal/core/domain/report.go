package domain

import (
	"sort"

	"github.com/google/uuid"
)

type Standing struct {
	ProposalID  int     `json:"proposal_id"`
	Description string  `json:"description"`
	VoteCount   uint64  `json:"vote_count"`
	Percentage  float64 `json:"percentage"`
}

// Report summarizes the current session of a ballot.
type Report struct {
	BallotID         uuid.UUID  `json:"ballot_id"`
	Phase            Phase      `json:"phase"`
	SessionID        uint64     `json:"session_id"`
	RegisteredVoters int        `json:"registered_voters"`
	VotesCast        int        `json:"votes_cast"`
	Turnout          float64    `json:"turnout"`
	Standings        []Standing `json:"standings"`
	Winner           Winner     `json:"winner"`
}

// BuildReport ranks the current session's proposals by votes, falling back
// to registration order so the ranking agrees with the tally.
func BuildReport(b *Ballot) Report {
	session := b.SessionID()
	voters := b.VotersInSession(session)
	proposals := b.ProposalsInSession(session)

	r := Report{
		BallotID:         b.ID(),
		Phase:            b.Phase(),
		SessionID:        session,
		RegisteredVoters: len(voters),
		Standings:        make([]Standing, 0, len(proposals)),
		Winner:           b.Winner(),
	}
	for _, v := range voters {
		if v.HasVoted {
			r.VotesCast++
		}
	}
	if r.RegisteredVoters > 0 {
		r.Turnout = float64(r.VotesCast) / float64(r.RegisteredVoters) * 100
	}

	for _, p := range proposals {
		percentage := 0.0
		if r.VotesCast > 0 {
			percentage = float64(p.VoteCount) / float64(r.VotesCast) * 100
		}
		r.Standings = append(r.Standings, Standing{
			ProposalID:  p.ID,
			Description: p.Description,
			VoteCount:   p.VoteCount,
			Percentage:  percentage,
		})
	}
	sort.SliceStable(r.Standings, func(i, j int) bool {
		return r.Standings[i].VoteCount > r.Standings[j].VoteCount
	})
	return r
}
