package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/application/dispatcher"
	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
)

// DefaultFeedLimit bounds a notification feed page
const DefaultFeedLimit = 50

// NotificationFeed is a page of a user's notifications
type NotificationFeed struct {
	Items  []*entity.Notification `json:"items"`
	Unread int                    `json:"unread"`
}

// NotificationService turns domain events into per-user notifications
// and serves the in-app feed
type NotificationService interface {
	// Register subscribes every sink to the notifying event types
	Register(d dispatcher.Dispatcher)
	Feed(ctx context.Context, userID string, unreadOnly bool, limit int) (*NotificationFeed, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	users         port.UserRepository
	sinks         []port.NotificationSink
	linkBaseURL   string
	logger        Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	notifications port.NotificationRepository,
	users port.UserRepository,
	linkBaseURL string,
	logger Logger,
	sinks ...port.NotificationSink,
) NotificationService {
	return &notificationServiceImpl{
		notifications: notifications,
		users:         users,
		sinks:         sinks,
		linkBaseURL:   strings.TrimRight(linkBaseURL, "/"),
		logger:        logger,
	}
}

// notifyingEvents lists the event types that produce notifications
var notifyingEvents = []event.Type{
	event.TypeDocumentSubmitted,
	event.TypeDocumentValidated,
	event.TypeValidationRejected,
	event.TypeChainAdvanced,
	event.TypeChainCompleted,
	event.TypeChainRejected,
	event.TypePurchaseOrderOpened,
	event.TypeBASTConfirmed,
	event.TypeCommentMentioned,
	event.TypeApprovalReminder,
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	for _, sink := range s.sinks {
		for _, t := range notifyingEvents {
			d.SubscribeNamed(t, "notify."+sink.Name(), s.handlerFor(sink))
		}
		s.logger.Info("Notification sink registered", "sink", sink.Name(), "events", len(notifyingEvents))
	}
}

func (s *notificationServiceImpl) handlerFor(sink port.NotificationSink) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		messages, err := s.messagesFor(ctx, evt)
		if err != nil {
			return err
		}

		var errs []error
		for _, msg := range messages {
			if err := sink.Send(ctx, msg); err != nil {
				s.logger.Error("Failed to deliver notification", "error", err,
					"sink", sink.Name(), "recipient", msg.RecipientUserID, "event", evt.Type)
				errs = append(errs, fmt.Errorf("%s to %s: %w", sink.Name(), msg.RecipientUserID, err))
			}
		}
		return errors.Join(errs...)
	}
}

// messagesFor expands an event into one message per recipient
func (s *notificationServiceImpl) messagesFor(ctx context.Context, evt *event.Event) ([]port.NotificationMessage, error) {
	kind, title, body, ok := compose(evt)
	if !ok {
		return nil, nil
	}

	recipients, err := s.recipientsFor(ctx, evt)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	messages := make([]port.NotificationMessage, 0, len(recipients))
	for _, u := range recipients {
		if u.ID == evt.ActorID {
			continue
		}
		messages = append(messages, port.NotificationMessage{
			RecipientUserID: u.ID,
			RecipientEmail:  u.Email,
			Type:            kind,
			Title:           title,
			Message:         body,
			Link:            s.linkBaseURL + "/documents/" + evt.DocumentID,
			DocumentID:      evt.DocumentID,
		})
	}
	return messages, nil
}

// recipientsFor resolves the event's recipients against the directory.
// Submitted documents go to general affair staff of the same company.
func (s *notificationServiceImpl) recipientsFor(ctx context.Context, evt *event.Event) ([]*entity.User, error) {
	if evt.Type == event.TypeDocumentSubmitted {
		all, err := s.users.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		requester, err := s.users.GetByID(ctx, evt.GetPayloadString(event.KeyRequesterID))
		if err != nil {
			return nil, fmt.Errorf("failed to get requester: %w", err)
		}

		var out []*entity.User
		for _, u := range all {
			if u.IsGeneralAffair() && (requester == nil || u.Company == requester.Company) {
				out = append(out, u)
			}
		}
		return out, nil
	}

	ids := evt.GetPayloadStrings(event.KeyRecipients)
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}

	known := userIndex(users)
	out := make([]*entity.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := known[id]; ok {
			out = append(out, u)
		} else {
			out = append(out, &entity.User{ID: id})
		}
	}
	return out, nil
}

// compose returns the notification type, title and message for an event
func compose(evt *event.Event) (string, string, string, bool) {
	number := evt.GetPayloadString(event.KeyDocumentNumber)
	note := evt.GetPayloadString(event.KeyNote)
	withNote := func(msg string) string {
		if note == "" {
			return msg
		}
		return msg + ": " + note
	}

	switch evt.Type {
	case event.TypeDocumentSubmitted:
		return entity.NotificationValidationNeeded, "Validation needed",
			fmt.Sprintf("%s was submitted and waits for validation", number), true
	case event.TypeDocumentValidated, event.TypeChainAdvanced:
		return entity.NotificationApprovalNeeded, "Approval needed",
			fmt.Sprintf("%s is waiting for your approval", number), true
	case event.TypeValidationRejected:
		return entity.NotificationRejected, "Document rejected",
			withNote(fmt.Sprintf("%s was rejected at validation", number)), true
	case event.TypeChainRejected:
		return entity.NotificationRejected, "Document rejected",
			withNote(fmt.Sprintf("%s was rejected", number)), true
	case event.TypeChainCompleted:
		return entity.NotificationApproved, "Document approved",
			fmt.Sprintf("%s has been fully approved", number), true
	case event.TypePurchaseOrderOpened:
		return entity.NotificationPurchaseOrder, "Purchase order created",
			fmt.Sprintf("Purchase order %s was raised for your request", number), true
	case event.TypeBASTConfirmed:
		return entity.NotificationCompleted, "Goods received",
			fmt.Sprintf("Goods for %s were received and the request is completed", number), true
	case event.TypeCommentMentioned:
		return entity.NotificationMention, "You were mentioned",
			fmt.Sprintf("You were mentioned in a comment on %s", number), true
	case event.TypeApprovalReminder:
		return entity.NotificationReminder, "Approval reminder",
			fmt.Sprintf("%s is still waiting for your approval", number), true
	default:
		return "", "", "", false
	}
}

func (s *notificationServiceImpl) Feed(ctx context.Context, userID string, unreadOnly bool, limit int) (*NotificationFeed, error) {
	if limit <= 0 || limit > DefaultFeedLimit {
		limit = DefaultFeedLimit
	}

	items, err := s.notifications.ListByRecipient(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return &NotificationFeed{Items: items, Unread: unread}, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.notifications.MarkRead(ctx, notificationID, userID, time.Now())
}
