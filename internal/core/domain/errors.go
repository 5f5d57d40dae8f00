package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidPhase      = errors.New("invalid phase")
	ErrAlreadyRegistered = errors.New("voter is already registered")
	ErrAlreadyVoted      = errors.New("voter has already voted")
	ErrEmptyProposal     = errors.New("proposal description must not be empty")
	ErrProposalNotFound  = errors.New("proposal not found")
	ErrInvalidIdentity   = errors.New("identity must not be empty")
	ErrInvalidSnapshot   = errors.New("invalid ballot snapshot")
	ErrBallotNotFound    = errors.New("ballot not found")
)

var (
	errNotAdministrator = fmt.Errorf("%w: caller is not the administrator", ErrUnauthorized)
	errNotVoter         = fmt.Errorf("%w: caller is not a registered voter", ErrUnauthorized)
)

// PhaseError reports an operation attempted outside of the phase it needs.
type PhaseError struct {
	Op       string
	Expected Phase
	Current  Phase
	Message  string
}

func (e *PhaseError) Error() string {
	return e.Message
}

func (e *PhaseError) Unwrap() error {
	return ErrInvalidPhase
}

func phaseError(op string, expected, current Phase, message string) error {
	return &PhaseError{Op: op, Expected: expected, Current: current, Message: message}
}
