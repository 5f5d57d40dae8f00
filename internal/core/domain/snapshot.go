package domain

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Snapshot is the persisted form of a ballot. It carries every session's
// records so retired rounds stay inspectable after a restart.
type Snapshot struct {
	ID                uuid.UUID  `json:"id"`
	Administrator     string     `json:"administrator"`
	Phase             Phase      `json:"phase"`
	SessionID         uint64     `json:"session_id"`
	Voters            []Voter    `json:"voters"`
	Proposals         []Proposal `json:"proposals"`
	WinningProposalID int        `json:"winning_proposal_id"`
	EventSeq          uint64     `json:"event_seq"`
}

// Snapshot copies the full state of the ballot. Proposals are ordered by
// session, then id.
func (b *Ballot) Snapshot() Snapshot {
	s := Snapshot{
		ID:                b.id,
		Administrator:     b.administrator,
		Phase:             b.phase,
		SessionID:         b.session.Current(),
		Voters:            make([]Voter, 0, len(b.voters)),
		WinningProposalID: b.winningProposalID,
		EventSeq:          b.eventSeq,
	}
	for _, v := range b.voters {
		s.Voters = append(s.Voters, v.clone())
	}

	sessions := make([]uint64, 0, len(b.proposals))
	for session := range b.proposals {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i] < sessions[j] })
	for _, session := range sessions {
		s.Proposals = append(s.Proposals, b.proposals[session]...)
	}
	if s.Proposals == nil {
		s.Proposals = []Proposal{}
	}
	return s
}

// Restore rebuilds a ballot from a snapshot, refusing snapshots that break
// the ballot invariants.
func Restore(s Snapshot) (*Ballot, error) {
	if s.Administrator == "" {
		return nil, fmt.Errorf("%w: missing administrator", ErrInvalidSnapshot)
	}
	if !s.Phase.Valid() {
		return nil, fmt.Errorf("%w: unknown phase %d", ErrInvalidSnapshot, uint8(s.Phase))
	}

	b := NewBallot(s.ID, s.Administrator)
	b.phase = s.Phase
	b.session = NewSessionCounter(s.SessionID)
	b.eventSeq = s.EventSeq

	proposals := make([]Proposal, len(s.Proposals))
	copy(proposals, s.Proposals)
	sort.SliceStable(proposals, func(i, j int) bool {
		if proposals[i].SessionID != proposals[j].SessionID {
			return proposals[i].SessionID < proposals[j].SessionID
		}
		return proposals[i].ID < proposals[j].ID
	})
	for _, p := range proposals {
		if p.SessionID > s.SessionID {
			return nil, fmt.Errorf("%w: proposal %d belongs to future session %d", ErrInvalidSnapshot, p.ID, p.SessionID)
		}
		if p.ID != len(b.proposals[p.SessionID]) {
			return nil, fmt.Errorf("%w: proposal ids of session %d are not contiguous", ErrInvalidSnapshot, p.SessionID)
		}
		if p.Description == "" {
			return nil, fmt.Errorf("%w: proposal %d of session %d has no description", ErrInvalidSnapshot, p.ID, p.SessionID)
		}
		b.proposals[p.SessionID] = append(b.proposals[p.SessionID], p)
	}

	voted := make(map[uint64]uint64)
	for _, v := range s.Voters {
		if v.Identity == "" || !v.IsRegistered {
			return nil, fmt.Errorf("%w: voter record without identity or registration", ErrInvalidSnapshot)
		}
		if v.SessionID > s.SessionID {
			return nil, fmt.Errorf("%w: voter %s belongs to future session %d", ErrInvalidSnapshot, v.Identity, v.SessionID)
		}
		if _, dup := b.voterIndex[v.key()]; dup {
			return nil, fmt.Errorf("%w: voter %s registered twice in session %d", ErrInvalidSnapshot, v.Identity, v.SessionID)
		}
		if v.HasVoted != (v.VotedProposalID != nil) {
			return nil, fmt.Errorf("%w: voter %s has an inconsistent vote", ErrInvalidSnapshot, v.Identity)
		}
		if v.HasVoted {
			if id := *v.VotedProposalID; id < 0 || id >= len(b.proposals[v.SessionID]) {
				return nil, fmt.Errorf("%w: voter %s voted for missing proposal %d", ErrInvalidSnapshot, v.Identity, id)
			}
			voted[v.SessionID]++
		}
		b.voterIndex[v.key()] = len(b.voters)
		b.voters = append(b.voters, v.clone())
	}

	for session, list := range b.proposals {
		var sum uint64
		for _, p := range list {
			sum += p.VoteCount
		}
		if sum != voted[session] {
			return nil, fmt.Errorf("%w: session %d counts %d votes for %d voters", ErrInvalidSnapshot, session, sum, voted[session])
		}
	}

	if s.WinningProposalID < 0 {
		return nil, fmt.Errorf("%w: negative winning proposal", ErrInvalidSnapshot)
	}
	if s.Phase != VotesTallied && s.WinningProposalID != 0 {
		return nil, fmt.Errorf("%w: winner set before tally", ErrInvalidSnapshot)
	}
	if n := len(b.proposals[s.SessionID]); s.Phase == VotesTallied && n > 0 && s.WinningProposalID >= n {
		return nil, fmt.Errorf("%w: winning proposal %d out of range", ErrInvalidSnapshot, s.WinningProposalID)
	}
	b.winningProposalID = s.WinningProposalID

	return b, nil
}
