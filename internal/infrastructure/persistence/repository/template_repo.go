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

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new template
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.ApprovalTemplate) error {
	path, err := json.Marshal(tpl.ApprovalPath)
	if err != nil {
		return fmt.Errorf("failed to encode approval path: %w", err)
	}

	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	query := `
		INSERT INTO approval_templates (
			id, template_name, description, approval_path, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		tpl.ID, tpl.Name, tpl.Description, string(path), tpl.CreatedBy, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%w: template %q already exists", entity.ErrConflict, tpl.Name)
		}
		r.logger.Error("Failed to create template", zap.String("name", tpl.Name), zap.Error(err))
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalTemplate, error) {
	return r.getOne(ctx, "id", id)
}

// GetByName retrieves a template by its unique name
func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*entity.ApprovalTemplate, error) {
	return r.getOne(ctx, "template_name", name)
}

func (r *TemplateRepository) getOne(ctx context.Context, column, value string) (*entity.ApprovalTemplate, error) {
	query := `
		SELECT id, template_name, description, approval_path, created_by, created_at, updated_at
		FROM approval_templates
		WHERE ` + column + ` = ?
	`

	tpl, err := scanTemplate(r.getExecutor(ctx).QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get template", zap.String(column, value), zap.Error(err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return tpl, nil
}

// Update rewrites name, description and path of a template
func (r *TemplateRepository) Update(ctx context.Context, tpl *entity.ApprovalTemplate) error {
	path, err := json.Marshal(tpl.ApprovalPath)
	if err != nil {
		return fmt.Errorf("failed to encode approval path: %w", err)
	}

	tpl.UpdatedAt = time.Now()
	query := `
		UPDATE approval_templates
		SET template_name = ?, description = ?, approval_path = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		tpl.Name, tpl.Description, string(path), tpl.UpdatedAt, tpl.ID)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%w: template %q already exists", entity.ErrConflict, tpl.Name)
		}
		r.logger.Error("Failed to update template", zap.String("id", tpl.ID), zap.Error(err))
		return fmt.Errorf("failed to update template: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: template %s", entity.ErrNotFound, tpl.ID)
	}
	return nil
}

// Delete removes a template. Documents keep their cloned chains.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM approval_templates WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete template", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete template: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: template %s", entity.ErrNotFound, id)
	}
	return nil
}

// List retrieves all templates ordered by name
func (r *TemplateRepository) List(ctx context.Context) ([]*entity.ApprovalTemplate, error) {
	query := `
		SELECT id, template_name, description, approval_path, created_by, created_at, updated_at
		FROM approval_templates
		ORDER BY template_name
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*entity.ApprovalTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}

	return templates, rows.Err()
}

func (r *TemplateRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

func scanTemplate(row rowScanner) (*entity.ApprovalTemplate, error) {
	var tpl entity.ApprovalTemplate
	var path string

	if err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Description, &path,
		&tpl.CreatedBy, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(path), &tpl.ApprovalPath); err != nil {
		return nil, fmt.Errorf("failed to decode approval path of %s: %w", tpl.ID, err)
	}

	return &tpl, nil
}

var _ port.TemplateRepository = (*TemplateRepository)(nil)
