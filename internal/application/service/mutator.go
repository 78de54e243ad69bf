package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
)

// changeFunc modifies a freshly loaded document and returns the history
// record to store with it, or nil for none
type changeFunc func(ctx context.Context, doc *entity.Document) (*entity.DocumentHistory, error)

// documentMutator runs load-modify-save cycles under optimistic locking
type documentMutator struct {
	documents port.DocumentRepository
	history   port.HistoryRepository
	txManager port.TransactionManager
	logger    Logger
}

// mutate applies change to the stored document inside one transaction.
// On a version conflict the document is reloaded and change runs again.
func (m documentMutator) mutate(ctx context.Context, id string, change changeFunc) (*entity.Document, error) {
	var saved *entity.Document

	err := m.retryOnConflict(ctx, id, func(txCtx context.Context) error {
		doc, err := loadDocument(txCtx, m.documents, id)
		if err != nil {
			return err
		}

		record, err := change(txCtx, doc)
		if err != nil {
			return err
		}

		doc.UpdatedAt = time.Now()
		if err := m.documents.Update(txCtx, doc); err != nil {
			return err
		}

		if record != nil {
			if err := m.record(txCtx, doc, record); err != nil {
				return err
			}
		}
		saved = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// retryOnConflict runs fn in a transaction and reruns it from a fresh load
// when it fails with ErrConflict, up to maxActionAttempts times in total.
// fn must reload everything it writes.
func (m documentMutator) retryOnConflict(ctx context.Context, id string, fn func(txCtx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := m.txManager.WithTransaction(ctx, fn)
		if err == nil || !errors.Is(err, entity.ErrConflict) || attempt >= maxActionAttempts {
			return err
		}
		m.logger.Info("Document changed concurrently, retrying", "document_id", id, "attempt", attempt)
	}
}

func (m documentMutator) record(ctx context.Context, doc *entity.Document, h *entity.DocumentHistory) error {
	h.DocumentID = doc.ID
	if h.NewStatus == "" {
		h.NewStatus = string(doc.Status)
	}
	if h.PreviousStatus == "" {
		h.PreviousStatus = h.NewStatus
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	if err := m.history.Create(ctx, h); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

func loadDocument(ctx context.Context, documents port.DocumentRepository, id string) (*entity.Document, error) {
	doc, err := documents.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return nil, notFound("document", id)
	}
	return doc, nil
}

// documentEvent builds an event carrying the document summary and recipients
func documentEvent(t event.Type, doc *entity.Document, actorID string, recipients []string) *event.Event {
	payload := map[string]interface{}{
		event.KeyDocumentNumber: doc.Number,
		event.KeyDocumentKind:   string(doc.Kind),
		event.KeyRequesterID:    doc.RequesterID,
		event.KeyStatus:         string(doc.Status),
	}
	if len(recipients) > 0 {
		payload[event.KeyRecipients] = recipients
	}
	return event.NewEvent(t, doc.ID, actorID, payload)
}
