package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a feed entry
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO notifications (
			id, recipient_user_id, type, title, message, link, document_id, read_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		n.ID, n.RecipientUserID, n.Type, n.Title, n.Message, n.Link, n.DocumentID,
		nullTime(n.ReadAt), n.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("recipient", n.RecipientUserID), zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByRecipient returns the newest notifications of a user
func (r *NotificationRepository) ListByRecipient(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, recipient_user_id, type, title, message, link, document_id, read_at, created_at
		FROM notifications
		WHERE recipient_user_id = ?
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.String("recipient", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.RecipientUserID, &n.Type, &n.Title, &n.Message,
			&n.Link, &n.DocumentID, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, &n)
	}

	return out, rows.Err()
}

// CountUnread returns the number of unread notifications of a user
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_user_id = ? AND read_at IS NULL`, userID,
	).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count unread notifications", zap.String("recipient", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks a notification read; only its recipient may do so
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE id = ? AND recipient_user_id = ?`,
		at, id, userID,
	)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: notification %s", entity.ErrNotFound, id)
	}
	return nil
}

func (r *NotificationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
