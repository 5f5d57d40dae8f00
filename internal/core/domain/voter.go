package domain

type Voter struct {
	Identity        string `json:"identity"`
	IsRegistered    bool   `json:"is_registered"`
	HasVoted        bool   `json:"has_voted"`
	VotedProposalID *int   `json:"voted_proposal_id,omitempty"`
	SessionID       uint64 `json:"session_id"`
}

type voterKey struct {
	session  uint64
	identity string
}

func (v Voter) key() voterKey {
	return voterKey{session: v.SessionID, identity: v.Identity}
}

func (v Voter) clone() Voter {
	if v.VotedProposalID != nil {
		id := *v.VotedProposalID
		v.VotedProposalID = &id
	}
	return v
}
