package domain

// SessionCounter identifies the live round of a ballot. Every voter and
// proposal is stamped with the counter value active when it was created;
// records with another stamp belong to a retired session.
type SessionCounter struct {
	value uint64
}

func NewSessionCounter(start uint64) SessionCounter {
	return SessionCounter{value: start}
}

func (c SessionCounter) Current() uint64 {
	return c.value
}

// Advance moves to the next session and returns its id.
func (c *SessionCounter) Advance() uint64 {
	c.value++
	return c.value
}

// IsCurrent reports whether a record stamped with session belongs to the
// live round.
func (c SessionCounter) IsCurrent(session uint64) bool {
	return c.value == session
}
