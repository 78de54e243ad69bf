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

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, h *entity.DocumentHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO document_history (
			document_id, actor_id, action, previous_status, new_status, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		h.DocumentID, h.ActorID, h.Action, h.PreviousStatus, h.NewStatus, h.Note, h.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("document_id", h.DocumentID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	h.ID = id
	return nil
}

// GetByDocumentID retrieves the audit trail of a document, oldest first
func (r *HistoryRepository) GetByDocumentID(ctx context.Context, documentID string) ([]*entity.DocumentHistory, error) {
	query := `
		SELECT id, document_id, actor_id, action, previous_status, new_status, note, created_at
		FROM document_history
		WHERE document_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.String("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.DocumentHistory
	for rows.Next() {
		var h entity.DocumentHistory
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.ActorID, &h.Action,
			&h.PreviousStatus, &h.NewStatus, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, &h)
	}

	return records, rows.Err()
}

func (r *HistoryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
