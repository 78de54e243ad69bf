package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/garyjia/procurement/internal/domain/workflow"
)

// ReminderActor is the actor ID recorded on system-generated reminders
const ReminderActor = "system"

const reminderPageSize = 100

// ReminderService nudges approvers whose turn has been open too long
type ReminderService interface {
	// SendReminders publishes one reminder per stale document in approval
	// and returns how many were sent
	SendReminders(ctx context.Context, now time.Time) (int, error)
}

type reminderServiceImpl struct {
	documents  port.DocumentRepository
	publisher  EventPublisher
	staleAfter time.Duration
	logger     Logger
}

// NewReminderService creates a ReminderService; documents untouched for
// staleAfter are considered stale
func NewReminderService(documents port.DocumentRepository, publisher EventPublisher, staleAfter time.Duration, logger Logger) ReminderService {
	return &reminderServiceImpl{
		documents:  documents,
		publisher:  publisher,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

func (s *reminderServiceImpl) SendReminders(ctx context.Context, now time.Time) (int, error) {
	sent := 0
	for offset := 0; ; offset += reminderPageSize {
		page, err := s.documents.List(ctx, entity.DocumentFilter{
			Status: workflow.StatePendingApproval,
			Limit:  reminderPageSize,
			Offset: offset,
		})
		if err != nil {
			return sent, fmt.Errorf("failed to list documents in approval: %w", err)
		}

		for _, doc := range page {
			if now.Sub(doc.UpdatedAt) < s.staleAfter {
				continue
			}
			recipients := approval.EligibleApprovers(doc.Chain)
			if len(recipients) == 0 {
				continue
			}
			s.publisher.DispatchAsync(ctx, documentEvent(event.TypeApprovalReminder, doc, ReminderActor, recipients))
			sent++
		}

		if len(page) < reminderPageSize {
			break
		}
	}

	if sent > 0 {
		s.logger.Info("Approval reminders sent", "count", sent)
	}
	return sent, nil
}
