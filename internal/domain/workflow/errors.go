package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted in the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a stored status is not a lifecycle state
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guard for a trigger rejects it
	ErrGuardFailed = errors.New("guard condition failed")
)
