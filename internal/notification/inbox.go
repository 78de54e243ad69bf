package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/google/uuid"
)

// InboxSink stores notifications in the in-app feed
type InboxSink struct {
	repo port.NotificationRepository
}

// NewInboxSink creates a sink backed by the notification repository
func NewInboxSink(repo port.NotificationRepository) *InboxSink {
	return &InboxSink{repo: repo}
}

// Name identifies the sink in handler registrations
func (s *InboxSink) Name() string { return "inbox" }

// Send appends the message to the recipient's feed
func (s *InboxSink) Send(ctx context.Context, msg port.NotificationMessage) error {
	n := &entity.Notification{
		ID:              uuid.NewString(),
		RecipientUserID: msg.RecipientUserID,
		Type:            msg.Type,
		Title:           msg.Title,
		Message:         msg.Message,
		Link:            msg.Link,
		DocumentID:      msg.DocumentID,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

var _ port.NotificationSink = (*InboxSink)(nil)
