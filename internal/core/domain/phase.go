package domain

import "fmt"

// Phase is the workflow status of a ballot session.
type Phase uint8

const (
	RegisteringVoters Phase = iota
	ProposalsRegistrationStarted
	ProposalsRegistrationEnded
	VotingSessionStarted
	VotingSessionEnded
	VotesTallied
)

var phaseNames = [...]string{
	RegisteringVoters:            "RegisteringVoters",
	ProposalsRegistrationStarted: "ProposalsRegistrationStarted",
	ProposalsRegistrationEnded:   "ProposalsRegistrationEnded",
	VotingSessionStarted:         "VotingSessionStarted",
	VotingSessionEnded:           "VotingSessionEnded",
	VotesTallied:                 "VotesTallied",
}

var phaseLabels = [...]string{
	RegisteringVoters:            "Registering voters",
	ProposalsRegistrationStarted: "Proposal registration",
	ProposalsRegistrationEnded:   "Proposal registration has ended",
	VotingSessionStarted:         "Voting session",
	VotingSessionEnded:           "Voting session has ended",
	VotesTallied:                 "Votes tallied",
}

func (p Phase) Valid() bool {
	return int(p) < len(phaseNames)
}

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
	return phaseNames[p]
}

// Label is the human readable name shown to participants.
func (p Phase) Label() string {
	if !p.Valid() {
		return "Not a valid status"
	}
	return phaseLabels[p]
}

// Next returns the phase that follows p. The second value is false for
// VotesTallied, which only a reset can leave.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case RegisteringVoters:
		return ProposalsRegistrationStarted, true
	case ProposalsRegistrationStarted:
		return ProposalsRegistrationEnded, true
	case ProposalsRegistrationEnded:
		return VotingSessionStarted, true
	case VotingSessionStarted:
		return VotingSessionEnded, true
	case VotingSessionEnded:
		return VotesTallied, true
	default:
		return p, false
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", uint8(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// Transition names one administrator-driven forward edge of the workflow.
// Tallying is its own operation because it also computes the winner.
type Transition uint8

const (
	StartProposalsRegistration Transition = iota + 1
	EndProposalsRegistration
	StartVotingSession
	EndVotingSession
)

type edge struct {
	slug    string
	from    Phase
	failure string
}

var edges = map[Transition]edge{
	StartProposalsRegistration: {slug: "start-proposals-registration", from: RegisteringVoters, failure: "Registering proposals cant be started now"},
	EndProposalsRegistration:   {slug: "end-proposals-registration", from: ProposalsRegistrationStarted, failure: "Registering proposals havent started yet"},
	StartVotingSession:         {slug: "start-voting-session", from: ProposalsRegistrationEnded, failure: "Registering proposals phase is not finished"},
	EndVotingSession:           {slug: "end-voting-session", from: VotingSessionStarted, failure: "Voting session havent started yet"},
}

const tallyFailure = "Current status is not voting session ended"

func (t Transition) String() string {
	if e, ok := edges[t]; ok {
		return e.slug
	}
	return fmt.Sprintf("Transition(%d)", uint8(t))
}

// From is the phase the transition must start from.
func (t Transition) From() Phase {
	return edges[t].from
}

func ParseTransition(slug string) (Transition, error) {
	for t, e := range edges {
		if e.slug == slug {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transition %q", slug)
}
