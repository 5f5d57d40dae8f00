package domain

type Proposal struct {
	ID          int    `json:"id"`
	SessionID   uint64 `json:"session_id"`
	Description string `json:"description"`
	Author      string `json:"author"`
	VoteCount   uint64 `json:"vote_count"`
}

// Winner is the outcome of a tallied session. Before the tally it is the
// zero value with Tallied unset.
type Winner struct {
	ProposalID  int    `json:"proposal_id"`
	Description string `json:"description"`
	VoteCount   uint64 `json:"vote_count"`
	SessionID   uint64 `json:"session_id"`
	Tallied     bool   `json:"tallied"`
}

// winningIndex scans proposals in ascending order and keeps the incumbent
// unless a strictly higher count shows up, so the lowest index wins a tie.
func winningIndex(proposals []Proposal) int {
	winner := 0
	var best uint64
	for i, p := range proposals {
		if p.VoteCount > best {
			best = p.VoteCount
			winner = i
		}
	}
	return winner
}
