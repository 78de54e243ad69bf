package port

import (
	"context"
	"time"

	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/workflow"
)

// DocumentRepository persists MR and PO aggregates.
// Getters return (nil, nil) when nothing matches.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)

	// Update writes the whole aggregate if its stored version still equals
	// doc.Version, then increments doc.Version. A stale version yields
	// entity.ErrConflict and writes nothing.
	Update(ctx context.Context, doc *entity.Document) error

	List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.Document, error)

	// ListAwaiting pre-selects documents whose awaiting approver set contains
	// userID. Callers must still confirm the turn against the chain.
	ListAwaiting(ctx context.Context, userID string, status workflow.State) ([]*entity.Document, error)

	// GetActivePurchaseOrder returns the non-rejected PO raised against an MR
	GetActivePurchaseOrder(ctx context.Context, materialRequestID string) (*entity.Document, error)

	// NextNumber returns the next running number for the kind, e.g. MR-2024-0007
	NextNumber(ctx context.Context, kind entity.DocumentKind, at time.Time) (string, error)

	CountByStatus(ctx context.Context, company string) (map[workflow.State]int, error)
}

// TemplateRepository persists approval templates
type TemplateRepository interface {
	Create(ctx context.Context, tpl *entity.ApprovalTemplate) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalTemplate, error)
	GetByName(ctx context.Context, name string) (*entity.ApprovalTemplate, error)
	Update(ctx context.Context, tpl *entity.ApprovalTemplate) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entity.ApprovalTemplate, error)
}

// UserRepository is the user directory
type UserRepository interface {
	Upsert(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error)
	SearchByName(ctx context.Context, query, role string, limit int) ([]*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
}

// NotificationRepository persists the in-app notification feed
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByRecipient(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
}

// HistoryRepository persists the document audit trail
type HistoryRepository interface {
	Create(ctx context.Context, h *entity.DocumentHistory) error
	GetByDocumentID(ctx context.Context, documentID string) ([]*entity.DocumentHistory, error)
}

// CommentRepository persists document discussions
type CommentRepository interface {
	Create(ctx context.Context, c *entity.Comment) error
	ListByDocument(ctx context.Context, documentID string) ([]*entity.Comment, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
