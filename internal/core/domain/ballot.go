package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Ballot is the election aggregate: the phase state machine, the voter
// registry, the proposals and the tally. It is not safe for concurrent use;
// callers serialize access.
type Ballot struct {
	id                uuid.UUID
	administrator     string
	phase             Phase
	session           SessionCounter
	voters            []Voter
	voterIndex        map[voterKey]int
	proposals         map[uint64][]Proposal
	winningProposalID int
	eventSeq          uint64
}

// NewBallot creates a ballot in RegisteringVoters, session 0. The
// administrator cannot be changed afterwards.
func NewBallot(id uuid.UUID, administrator string) *Ballot {
	return &Ballot{
		id:            id,
		administrator: administrator,
		phase:         RegisteringVoters,
		voterIndex:    make(map[voterKey]int),
		proposals:     make(map[uint64][]Proposal),
	}
}

func (b *Ballot) ID() uuid.UUID { return b.id }

func (b *Ballot) Administrator() string { return b.administrator }

func (b *Ballot) Phase() Phase { return b.phase }

func (b *Ballot) SessionID() uint64 { return b.session.Current() }

func (b *Ballot) IsAdministrator(caller string) bool {
	return caller != "" && caller == b.administrator
}

// IsVoter reports whether caller is registered in the current session.
func (b *Ballot) IsVoter(caller string) bool {
	_, ok := b.currentVoter(caller)
	return ok
}

func (b *Ballot) RegisterVoter(caller, identity string) (Event, error) {
	if !b.IsAdministrator(caller) {
		return Event{}, errNotAdministrator
	}
	if b.phase != RegisteringVoters {
		return Event{}, phaseError("register voter", RegisteringVoters, b.phase, "Voters registration is not open yet")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return Event{}, ErrInvalidIdentity
	}
	if b.IsVoter(identity) {
		return Event{}, ErrAlreadyRegistered
	}

	v := Voter{Identity: identity, IsRegistered: true, SessionID: b.session.Current()}
	b.voterIndex[v.key()] = len(b.voters)
	b.voters = append(b.voters, v)

	e := b.emit(EventVoterRegistered)
	e.Identity = identity
	return e, nil
}

// AdvancePhase applies one forward edge of the workflow.
func (b *Ballot) AdvancePhase(caller string, t Transition) (Event, error) {
	if !b.IsAdministrator(caller) {
		return Event{}, errNotAdministrator
	}
	e, ok := edges[t]
	if !ok {
		return Event{}, phaseError(t.String(), b.phase, b.phase, "unknown phase transition")
	}
	if b.phase != e.from {
		return Event{}, phaseError(e.slug, e.from, b.phase, e.failure)
	}
	next, _ := b.phase.Next()
	return b.moveTo(next), nil
}

// Next applies whichever edge leaves the current phase, tallying when the
// voting session has ended.
func (b *Ballot) Next(caller string) (Event, error) {
	if !b.IsAdministrator(caller) {
		return Event{}, errNotAdministrator
	}
	switch b.phase {
	case RegisteringVoters:
		return b.AdvancePhase(caller, StartProposalsRegistration)
	case ProposalsRegistrationStarted:
		return b.AdvancePhase(caller, EndProposalsRegistration)
	case ProposalsRegistrationEnded:
		return b.AdvancePhase(caller, StartVotingSession)
	case VotingSessionStarted:
		return b.AdvancePhase(caller, EndVotingSession)
	case VotingSessionEnded:
		e, _, err := b.Tally(caller)
		return e, err
	default:
		return Event{}, phaseError("next", VotingSessionEnded, b.phase, "Votes have already been tallied")
	}
}

func (b *Ballot) RegisterProposal(caller, description string) (Proposal, Event, error) {
	if !b.IsVoter(caller) {
		return Proposal{}, Event{}, errNotVoter
	}
	if b.phase != ProposalsRegistrationStarted {
		return Proposal{}, Event{}, phaseError("register proposal", ProposalsRegistrationStarted, b.phase, "Proposals are not allowed yet")
	}
	if strings.TrimSpace(description) == "" {
		return Proposal{}, Event{}, ErrEmptyProposal
	}

	session := b.session.Current()
	p := Proposal{
		ID:          len(b.proposals[session]),
		SessionID:   session,
		Description: description,
		Author:      caller,
	}
	b.proposals[session] = append(b.proposals[session], p)

	e := b.emit(EventProposalRegistered)
	e.Identity = caller
	e.ProposalID = intPtr(p.ID)
	return p, e, nil
}

func (b *Ballot) CastVote(caller string, proposalID int) (Event, error) {
	v, ok := b.currentVoter(caller)
	if !ok {
		return Event{}, errNotVoter
	}
	if b.phase != VotingSessionStarted {
		return Event{}, phaseError("cast vote", VotingSessionStarted, b.phase, "Voting session havent started yet")
	}
	if v.HasVoted {
		return Event{}, ErrAlreadyVoted
	}
	list := b.proposals[b.session.Current()]
	if proposalID < 0 || proposalID >= len(list) {
		return Event{}, ErrProposalNotFound
	}

	list[proposalID].VoteCount++
	v.HasVoted = true
	v.VotedProposalID = intPtr(proposalID)

	e := b.emit(EventVoteCast)
	e.Identity = caller
	e.ProposalID = intPtr(proposalID)
	return e, nil
}

// Tally picks the current session's winner and closes the session.
func (b *Ballot) Tally(caller string) (Event, Winner, error) {
	if !b.IsAdministrator(caller) {
		return Event{}, Winner{}, errNotAdministrator
	}
	if b.phase != VotingSessionEnded {
		return Event{}, Winner{}, phaseError("tally votes", VotingSessionEnded, b.phase, tallyFailure)
	}
	b.winningProposalID = winningIndex(b.proposals[b.session.Current()])
	e := b.moveTo(VotesTallied)
	return e, b.Winner(), nil
}

// Reset opens a new session from any phase. Records of the previous
// session are kept but no longer live.
func (b *Ballot) Reset(caller string) (Event, error) {
	if !b.IsAdministrator(caller) {
		return Event{}, errNotAdministrator
	}
	previous := b.phase
	b.session.Advance()
	b.phase = RegisteringVoters
	b.winningProposalID = 0

	e := b.emit(EventPhaseChanged)
	e.PreviousPhase = phasePtr(previous)
	e.NewPhase = phasePtr(RegisteringVoters)
	return e, nil
}

// Voter returns identity's record in the current session, or a blank
// unregistered record. Only current voters may look voters up.
func (b *Ballot) Voter(caller, identity string) (Voter, error) {
	if !b.IsVoter(caller) {
		return Voter{}, errNotVoter
	}
	identity = strings.TrimSpace(identity)
	if v, ok := b.currentVoter(identity); ok {
		return v.clone(), nil
	}
	return Voter{Identity: identity}, nil
}

// Voters lists the current session's voters in registration order.
func (b *Ballot) Voters(caller string) ([]Voter, error) {
	if !b.IsAdministrator(caller) && !b.IsVoter(caller) {
		return nil, errNotVoter
	}
	return b.VotersInSession(b.session.Current()), nil
}

func (b *Ballot) Proposal(caller string, id int) (Proposal, error) {
	if !b.IsVoter(caller) {
		return Proposal{}, errNotVoter
	}
	list := b.proposals[b.session.Current()]
	if id < 0 || id >= len(list) {
		return Proposal{}, ErrProposalNotFound
	}
	return list[id], nil
}

func (b *Ballot) Proposals(caller string) ([]Proposal, error) {
	if !b.IsVoter(caller) {
		return nil, errNotVoter
	}
	return b.ProposalsInSession(b.session.Current()), nil
}

// Winner is meaningful once the session is tallied.
func (b *Ballot) Winner() Winner {
	if b.phase != VotesTallied {
		return Winner{}
	}
	w := Winner{
		ProposalID: b.winningProposalID,
		SessionID:  b.session.Current(),
		Tallied:    true,
	}
	if list := b.proposals[b.session.Current()]; b.winningProposalID < len(list) {
		w.Description = list[b.winningProposalID].Description
		w.VoteCount = list[b.winningProposalID].VoteCount
	}
	return w
}

// VoterInSession looks a record up with an explicit session, including
// retired ones.
func (b *Ballot) VoterInSession(session uint64, identity string) (Voter, bool) {
	idx, ok := b.voterIndex[voterKey{session: session, identity: strings.TrimSpace(identity)}]
	if !ok {
		return Voter{}, false
	}
	return b.voters[idx].clone(), true
}

func (b *Ballot) VotersInSession(session uint64) []Voter {
	out := []Voter{}
	for _, v := range b.voters {
		if v.SessionID == session {
			out = append(out, v.clone())
		}
	}
	return out
}

func (b *Ballot) ProposalsInSession(session uint64) []Proposal {
	list := b.proposals[session]
	out := make([]Proposal, len(list))
	copy(out, list)
	return out
}

func (b *Ballot) currentVoter(identity string) (*Voter, bool) {
	idx, ok := b.voterIndex[voterKey{session: b.session.Current(), identity: identity}]
	if !ok {
		return nil, false
	}
	return &b.voters[idx], true
}

func (b *Ballot) moveTo(next Phase) Event {
	previous := b.phase
	b.phase = next

	e := b.emit(EventPhaseChanged)
	e.PreviousPhase = phasePtr(previous)
	e.NewPhase = phasePtr(next)
	return e
}

func (b *Ballot) emit(kind EventKind) Event {
	b.eventSeq++
	return Event{
		Seq:       b.eventSeq,
		Kind:      kind,
		BallotID:  b.id,
		SessionID: b.session.Current(),
	}
}

func phasePtr(p Phase) *Phase { return &p }

func intPtr(i int) *int { return &i }
