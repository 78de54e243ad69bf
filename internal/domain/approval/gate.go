package approval

import (
	"fmt"
	"time"
)

// Turn is the result of turn computation for one user
type Turn int

const (
	TurnNotYours Turn = iota
	TurnNotYet
	TurnAlreadyActed
	TurnMine
)

// String returns the string representation of the turn
func (t Turn) String() string {
	switch t {
	case TurnNotYours:
		return "NOT_YOUR_TURN"
	case TurnNotYet:
		return "NOT_YOUR_TURN_YET"
	case TurnAlreadyActed:
		return "ALREADY_ACTED"
	case TurnMine:
		return "IS_MY_TURN"
	default:
		return "UNKNOWN"
	}
}

// Signal tells the document lifecycle what an applied action did to the chain
type Signal string

const (
	SignalAdvanced Signal = "CHAIN_ADVANCED"
	SignalComplete Signal = "CHAIN_COMPLETE"
	SignalRejected Signal = "CHAIN_REJECTED"
)

// ComputeTurn determines whether userID may act on the chain now.
// Pending acknowledge entries never hold back later entries.
func ComputeTurn(chain Chain, userID string) Turn {
	idx := chain.IndexOf(userID)
	if idx < 0 {
		return TurnNotYours
	}
	if !chain[idx].IsPending() {
		return TurnAlreadyActed
	}
	if chain.IsFinished() {
		return TurnNotYet
	}

	for _, prev := range chain[:idx] {
		if prev.Status == StatusApproved {
			continue
		}
		if prev.IsPending() && !prev.Kind.Blocking() {
			continue
		}
		return TurnNotYet
	}

	return TurnMine
}

// IsMyTurn reports whether userID is currently eligible to act
func IsMyTurn(chain Chain, userID string) bool {
	return ComputeTurn(chain, userID) == TurnMine
}

// EligibleApprovers returns the users that may act on the chain right now
func EligibleApprovers(chain Chain) []string {
	var ids []string
	for _, e := range chain {
		if IsMyTurn(chain, e.UserID) {
			ids = append(ids, e.UserID)
		}
	}
	return ids
}

// TurnError converts a non-eligible turn into its error
func TurnError(turn Turn, userID string) error {
	switch turn {
	case TurnMine:
		return nil
	case TurnAlreadyActed:
		return fmt.Errorf("%w: user %s has already acted on this chain", ErrAlreadyProcessed, userID)
	case TurnNotYet:
		return fmt.Errorf("%w: earlier approvers have not approved yet (%s)", ErrOutOfTurn, turn)
	default:
		return fmt.Errorf("%w: user %s is not an approver on this chain (%s)", ErrOutOfTurn, userID, turn)
	}
}

// Apply records the user's action and returns the updated chain and its signal.
// The input chain is never mutated.
func Apply(chain Chain, userID string, action Action, now time.Time) (Chain, Signal, error) {
	if !action.IsValid() {
		return chain, "", fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	if err := TurnError(ComputeTurn(chain, userID), userID); err != nil {
		return chain, "", err
	}

	idx := chain.IndexOf(userID)
	if action == ActionReject && !chain[idx].Kind.Blocking() {
		return chain, "", fmt.Errorf("%w: acknowledge entries cannot reject", ErrValidation)
	}

	out := chain.Clone()
	at := now
	out[idx].ProcessedAt = &at

	if action == ActionReject {
		out[idx].Status = StatusRejected
		return out, SignalRejected, nil
	}

	out[idx].Status = StatusApproved
	if out.IsComplete() {
		return out, SignalComplete, nil
	}
	return out, SignalAdvanced, nil
}
