package approval

import "errors"

var (
	// ErrValidation is returned when a chain or its input is malformed
	ErrValidation = errors.New("validation error")

	// ErrOutOfTurn is returned when the actor is not the next eligible approver
	ErrOutOfTurn = errors.New("out of turn")

	// ErrAlreadyProcessed is returned when the actor's entry is no longer pending
	ErrAlreadyProcessed = errors.New("already processed")
)
