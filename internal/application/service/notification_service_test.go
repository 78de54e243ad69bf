package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/procurement/internal/application/dispatcher"
	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotificationRepo struct {
	listFunc      func(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error)
	countFunc     func(ctx context.Context, userID string) (int, error)
	markReadCalls []string
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, unreadOnly, limit)
	}
	return nil, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	m.markReadCalls = append(m.markReadCalls, userID+":"+id)
	return nil
}

func newNotificationFixture(t *testing.T, sinks ...port.NotificationSink) dispatcher.Dispatcher {
	t.Helper()
	users := newMockUserRepo(
		testUser("req", entity.RoleRequester),
		testUser("a", entity.RoleApprover),
		testUser("b", entity.RoleApprover),
		testUser("ga", entity.RoleGeneralAffair),
		&entity.User{ID: "ga2", Role: entity.RoleGeneralAffair, Company: "Other"},
	)
	svc := NewNotificationService(&mockNotificationRepo{}, users, "https://procure.example.com/", &mockLogger{}, sinks...)

	d, err := dispatcher.NewDispatcher()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	svc.Register(d)
	return d
}

func sampleEvent(t event.Type, actorID string, recipients ...string) *event.Event {
	payload := map[string]interface{}{
		event.KeyDocumentNumber: "MR-2024-0001",
		event.KeyRequesterID:    "req",
	}
	if len(recipients) > 0 {
		payload[event.KeyRecipients] = recipients
	}
	return event.NewEvent(t, "d1", actorID, payload)
}

func TestNotificationService_ApprovalNeeded(t *testing.T) {
	sink := &mockSink{name: "inbox"}
	d := newNotificationFixture(t, sink)

	require.NoError(t, d.Dispatch(context.Background(), sampleEvent(event.TypeChainAdvanced, "a", "b")))

	require.Len(t, sink.messages, 1)
	msg := sink.messages[0]
	assert.Equal(t, "b", msg.RecipientUserID)
	assert.Equal(t, "b@example.com", msg.RecipientEmail)
	assert.Equal(t, entity.NotificationApprovalNeeded, msg.Type)
	assert.Equal(t, "https://procure.example.com/documents/d1", msg.Link)
	assert.Contains(t, msg.Message, "MR-2024-0001")
}

func TestNotificationService_RejectionCarriesNote(t *testing.T) {
	sink := &mockSink{name: "inbox"}
	d := newNotificationFixture(t, sink)

	evt := sampleEvent(event.TypeChainRejected, "a", "req").WithPayload(event.KeyNote, "over budget")
	require.NoError(t, d.Dispatch(context.Background(), evt))

	require.Len(t, sink.messages, 1)
	assert.Equal(t, entity.NotificationRejected, sink.messages[0].Type)
	assert.Contains(t, sink.messages[0].Message, "over budget")
}

func TestNotificationService_SubmittedGoesToGeneralAffair(t *testing.T) {
	sink := &mockSink{name: "inbox"}
	d := newNotificationFixture(t, sink)

	require.NoError(t, d.Dispatch(context.Background(), sampleEvent(event.TypeDocumentSubmitted, "req")))

	require.Len(t, sink.messages, 1, "only general affair of the requester's company")
	assert.Equal(t, "ga", sink.messages[0].RecipientUserID)
	assert.Equal(t, entity.NotificationValidationNeeded, sink.messages[0].Type)
}

func TestNotificationService_SkipsActorAndFansOutToSinks(t *testing.T) {
	inbox := &mockSink{name: "inbox"}
	lark := &mockSink{name: "lark"}
	d := newNotificationFixture(t, inbox, lark)

	require.NoError(t, d.Dispatch(context.Background(), sampleEvent(event.TypeBASTConfirmed, "req", "req", "a")))

	for _, sink := range []*mockSink{inbox, lark} {
		require.Len(t, sink.messages, 1, sink.name)
		assert.Equal(t, "a", sink.messages[0].RecipientUserID)
		assert.Equal(t, entity.NotificationCompleted, sink.messages[0].Type)
	}
}

func TestNotificationService_SinkFailureIsReported(t *testing.T) {
	failing := &mockSink{name: "lark", sendFunc: func(ctx context.Context, msg port.NotificationMessage) error {
		return errors.New("rate limited")
	}}
	d := newNotificationFixture(t, failing)

	err := d.Dispatch(context.Background(), sampleEvent(event.TypeCommentMentioned, "req", "a", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestNotificationService_Feed(t *testing.T) {
	repo := &mockNotificationRepo{
		listFunc: func(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
			assert.Equal(t, "a", userID)
			assert.True(t, unreadOnly)
			assert.Equal(t, DefaultFeedLimit, limit)
			return []*entity.Notification{{ID: "n1", RecipientUserID: "a"}}, nil
		},
		countFunc: func(ctx context.Context, userID string) (int, error) { return 4, nil },
	}
	svc := NewNotificationService(repo, newMockUserRepo(), "", &mockLogger{})

	feed, err := svc.Feed(context.Background(), "a", true, 0)
	require.NoError(t, err)
	assert.Len(t, feed.Items, 1)
	assert.Equal(t, 4, feed.Unread)

	require.NoError(t, svc.MarkRead(context.Background(), "a", "n1"))
	assert.Equal(t, []string{"a:n1"}, repo.markReadCalls)
}
