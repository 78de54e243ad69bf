package approval

import (
	"fmt"
	"strings"
)

// Chain is an ordered approver list. Index order is approval order.
type Chain []Entry

// NewChain builds a pending chain from the given approvers
func NewChain(approvers []Approver) (Chain, error) {
	if len(approvers) == 0 {
		return nil, fmt.Errorf("%w: approval chain must have at least one approver", ErrValidation)
	}

	chain := make(Chain, 0, len(approvers))
	for _, a := range approvers {
		if err := chain.add(a); err != nil {
			return nil, err
		}
	}

	return chain, nil
}

// Validate checks the structural invariants of a chain
func (c Chain) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: approval chain must have at least one approver", ErrValidation)
	}

	seen := make(map[string]bool, len(c))
	for i, e := range c {
		if strings.TrimSpace(e.UserID) == "" {
			return fmt.Errorf("%w: entry %d has no user", ErrValidation, i)
		}
		if !e.Kind.IsValid() {
			return fmt.Errorf("%w: entry %d (%s) has invalid kind %q", ErrValidation, i, e.UserID, e.Kind)
		}
		if seen[e.UserID] {
			return fmt.Errorf("%w: user %s appears more than once", ErrValidation, e.UserID)
		}
		seen[e.UserID] = true
	}

	return nil
}

// Add appends a pending entry for the approver
func (c Chain) Add(a Approver) (Chain, error) {
	out := c.Clone()
	if err := out.add(a); err != nil {
		return c, err
	}
	return out, nil
}

func (c *Chain) add(a Approver) error {
	if strings.TrimSpace(a.UserID) == "" {
		return fmt.Errorf("%w: approver has no user id", ErrValidation)
	}
	if !a.Kind.IsValid() {
		return fmt.Errorf("%w: approver %s has invalid kind %q", ErrValidation, a.UserID, a.Kind)
	}
	if c.IndexOf(a.UserID) >= 0 {
		return fmt.Errorf("%w: user %s appears more than once", ErrValidation, a.UserID)
	}

	*c = append(*c, Entry{
		UserID:     a.UserID,
		Name:       a.Name,
		Email:      a.Email,
		Role:       a.Role,
		Department: a.Department,
		Kind:       a.Kind,
		Status:     StatusPending,
	})
	return nil
}

// IndexOf returns the position of the user's entry or -1
func (c Chain) IndexOf(userID string) int {
	for i, e := range c {
		if e.UserID == userID {
			return i
		}
	}
	return -1
}

// MoveUp swaps the entry at index with its predecessor
func (c Chain) MoveUp(index int) (Chain, error) {
	if index < 0 || index >= len(c) {
		return c, fmt.Errorf("%w: index %d out of range", ErrValidation, index)
	}
	if index == 0 {
		return c, fmt.Errorf("%w: first approver cannot move up", ErrValidation)
	}

	out := c.Clone()
	out[index-1], out[index] = out[index], out[index-1]
	return out, nil
}

// MoveDown swaps the entry at index with its successor
func (c Chain) MoveDown(index int) (Chain, error) {
	if index < 0 || index >= len(c) {
		return c, fmt.Errorf("%w: index %d out of range", ErrValidation, index)
	}
	if index == len(c)-1 {
		return c, fmt.Errorf("%w: last approver cannot move down", ErrValidation)
	}

	out := c.Clone()
	out[index], out[index+1] = out[index+1], out[index]
	return out, nil
}

// Remove drops the user's entry from the chain
func (c Chain) Remove(userID string) (Chain, error) {
	idx := c.IndexOf(userID)
	if idx < 0 {
		return c, fmt.Errorf("%w: user %s is not in the chain", ErrValidation, userID)
	}

	out := make(Chain, 0, len(c)-1)
	out = append(out, c[:idx]...)
	out = append(out, c[idx+1:]...)
	return out.Clone(), nil
}

// Clone returns a deep copy of the chain
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}

	out := make(Chain, len(c))
	for i, e := range c {
		out[i] = e
		if e.ProcessedAt != nil {
			t := *e.ProcessedAt
			out[i].ProcessedAt = &t
		}
	}
	return out
}

// Fresh returns a deep copy with every entry reset to pending
func (c Chain) Fresh() Chain {
	out := c.Clone()
	for i := range out {
		out[i].Status = StatusPending
		out[i].ProcessedAt = nil
	}
	return out
}

// IsRejected returns true if any entry has rejected
func (c Chain) IsRejected() bool {
	for _, e := range c {
		if e.Status == StatusRejected {
			return true
		}
	}
	return false
}

// IsComplete returns true once no blocking entry is pending and at least one
// entry has approved. A chain of only acknowledge entries completes on the
// first acknowledgement.
func (c Chain) IsComplete() bool {
	if len(c) == 0 || c.IsRejected() {
		return false
	}

	acted := false
	for _, e := range c {
		if e.Kind.Blocking() && e.IsPending() {
			return false
		}
		if e.Status == StatusApproved {
			acted = true
		}
	}
	return acted
}

// IsFinished returns true once the chain can no longer change
func (c Chain) IsFinished() bool {
	return c.IsRejected() || c.IsComplete()
}

// UserIDs returns the user ids in chain order
func (c Chain) UserIDs() []string {
	ids := make([]string, len(c))
	for i, e := range c {
		ids[i] = e.UserID
	}
	return ids
}
