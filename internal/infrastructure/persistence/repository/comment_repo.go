package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// CommentRepository implements port.CommentRepository
type CommentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sql.DB, logger *zap.Logger) port.CommentRepository {
	return &CommentRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a discussion message
func (r *CommentRepository) Create(ctx context.Context, c *entity.Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	mentions := c.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	encoded, err := json.Marshal(mentions)
	if err != nil {
		return fmt.Errorf("failed to encode mentions: %w", err)
	}

	query := `
		INSERT INTO comments (id, document_id, author_id, author_name, body, mentions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		c.ID, c.DocumentID, c.AuthorID, c.AuthorName, c.Body, string(encoded), c.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create comment", zap.String("document_id", c.DocumentID), zap.Error(err))
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

// ListByDocument returns the discussion of a document, oldest first
func (r *CommentRepository) ListByDocument(ctx context.Context, documentID string) ([]*entity.Comment, error) {
	query := `
		SELECT id, document_id, author_id, author_name, body, mentions, created_at
		FROM comments
		WHERE document_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.String("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*entity.Comment
	for rows.Next() {
		var c entity.Comment
		var mentions string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.AuthorID, &c.AuthorName,
			&c.Body, &mentions, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if err := json.Unmarshal([]byte(mentions), &c.Mentions); err != nil {
			return nil, fmt.Errorf("failed to decode mentions of %s: %w", c.ID, err)
		}
		comments = append(comments, &c)
	}

	return comments, rows.Err()
}

func (r *CommentRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

var _ port.CommentRepository = (*CommentRepository)(nil)
