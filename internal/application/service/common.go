package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// EventPublisher queues domain events for asynchronous handling
type EventPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// ApproverInput names a user and the kind of their chain entry
type ApproverInput struct {
	UserID string        `json:"user_id"`
	Kind   approval.Kind `json:"kind"`
}

// maxActionAttempts bounds optimistic-lock retries of one user action
const maxActionAttempts = 3

func requireActor(actor *entity.User) error {
	if actor == nil || actor.ID == "" {
		return fmt.Errorf("%w: missing acting user", entity.ErrForbidden)
	}
	return nil
}

func requireRole(actor *entity.User, roles ...string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not perform this action (requires %s)",
		entity.ErrForbidden, actor.Role, strings.Join(roles, " or "))
}

func notFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", entity.ErrNotFound, what, id)
}

// buildChain snapshots directory users into a new pending chain
func buildChain(users map[string]*entity.User, inputs []ApproverInput) (approval.Chain, error) {
	approvers := make([]approval.Approver, 0, len(inputs))
	for _, in := range inputs {
		u, ok := users[in.UserID]
		if !ok {
			return nil, notFound("user", in.UserID)
		}
		approvers = append(approvers, approverFromUser(u, in.Kind))
	}
	return approval.NewChain(approvers)
}

func approverFromUser(u *entity.User, kind approval.Kind) approval.Approver {
	return approval.Approver{
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
		Kind:       kind,
	}
}

func userIndex(users []*entity.User) map[string]*entity.User {
	idx := make(map[string]*entity.User, len(users))
	for _, u := range users {
		idx[u.ID] = u
	}
	return idx
}

func inputIDs(inputs []ApproverInput) []string {
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		ids[i] = in.UserID
	}
	return ids
}

// newlyEligible returns ids in after that were not in before
func newlyEligible(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, id := range before {
		seen[id] = true
	}
	var out []string
	for _, id := range after {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
