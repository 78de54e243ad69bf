package workflow

import "context"

// StateMachine tracks a document's lifecycle state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether any transition is configured for trigger.
	// Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Fire takes the first permitted transition for trigger
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the configured triggers in lexical order
	PermittedTriggers() []Trigger
}
