package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/workflow"
	"github.com/garyjia/procurement/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const documentColumns = `
	id, kind, number, title, company, department, requester_id, requester_name,
	status, notes, cost_center, material_request_id, vendor_name, currency,
	items, attachments, approval_chain, template_id, validated_by,
	bast_proof_path, bast_confirmed_by, bast_confirmed_at,
	version, created_at, updated_at
`

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new document at version 1
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	enc, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.Version = 1

	query := `
		INSERT INTO documents (
			id, kind, number, title, company, department, requester_id, requester_name,
			status, notes, cost_center, material_request_id, vendor_name, currency,
			items, attachments, approval_chain, awaiting_approvers, template_id, validated_by,
			bast_proof_path, bast_confirmed_by, bast_confirmed_at,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		doc.ID, doc.Kind, doc.Number, doc.Title, doc.Company, doc.Department,
		doc.RequesterID, doc.RequesterName, doc.Status, doc.Notes, doc.CostCenter,
		nullString(doc.MaterialRequestID), doc.VendorName, doc.Currency,
		enc.items, enc.attachments, enc.chain, doc.AwaitingApprovers(),
		doc.TemplateID, doc.ValidatedBy,
		doc.BASTProofPath, doc.BASTConfirmedBy, nullTime(doc.BASTConfirmedAt),
		doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%w: document %s already exists", entity.ErrConflict, doc.Number)
		}
		r.logger.Error("Failed to create document", zap.String("number", doc.Number), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// Update writes the aggregate guarded by its version
func (r *DocumentRepository) Update(ctx context.Context, doc *entity.Document) error {
	enc, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE documents SET
			title = ?, company = ?, department = ?, status = ?, notes = ?, cost_center = ?,
			vendor_name = ?, currency = ?, items = ?, attachments = ?, approval_chain = ?,
			awaiting_approvers = ?, template_id = ?, validated_by = ?,
			bast_proof_path = ?, bast_confirmed_by = ?, bast_confirmed_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		doc.Title, doc.Company, doc.Department, doc.Status, doc.Notes, doc.CostCenter,
		doc.VendorName, doc.Currency, enc.items, enc.attachments, enc.chain,
		doc.AwaitingApprovers(), doc.TemplateID, doc.ValidatedBy,
		doc.BASTProofPath, doc.BASTConfirmedBy, nullTime(doc.BASTConfirmedAt),
		now, doc.ID, doc.Version,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%w: document %s violates a uniqueness rule", entity.ErrConflict, doc.Number)
		}
		r.logger.Error("Failed to update document", zap.String("id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to update document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: document %s was modified concurrently (version %d)", entity.ErrConflict, doc.ID, doc.Version)
	}

	doc.Version++
	doc.UpdatedAt = now
	return nil
}

// List retrieves documents matching the filter, newest first
func (r *DocumentRepository) List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.Document, error) {
	var conds []string
	var args []interface{}

	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Company != "" {
		conds = append(conds, "company = ?")
		args = append(args, filter.Company)
	}
	if filter.RequesterID != "" {
		conds = append(conds, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	return r.query(ctx, "list documents", query, args...)
}

// ListAwaiting pre-selects documents whose awaiting approver set contains userID
func (r *DocumentRepository) ListAwaiting(ctx context.Context, userID string, status workflow.State) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE awaiting_approvers LIKE ? ESCAPE '\'`
	args := []interface{}{"%|" + escapeLike(userID) + "|%"}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at ASC"

	return r.query(ctx, "list awaiting documents", query, args...)
}

// GetActivePurchaseOrder returns the non-rejected PO raised against an MR
func (r *DocumentRepository) GetActivePurchaseOrder(ctx context.Context, materialRequestID string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE kind = ? AND material_request_id = ? AND status <> ?
		LIMIT 1`

	doc, err := scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query,
		entity.KindPurchaseOrder, materialRequestID, workflow.StateRejected))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get active purchase order",
			zap.String("material_request_id", materialRequestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get active purchase order: %w", err)
	}

	return doc, nil
}

// NextNumber returns the next running number for the kind within the year of at
func (r *DocumentRepository) NextNumber(ctx context.Context, kind entity.DocumentKind, at time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", kind, at.Year())

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE kind = ? AND number LIKE ?`,
		kind, prefix+"%",
	).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count documents", zap.String("kind", string(kind)), zap.Error(err))
		return "", fmt.Errorf("failed to compute document number: %w", err)
	}

	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

// CountByStatus returns document counts per status, optionally for one company
func (r *DocumentRepository) CountByStatus(ctx context.Context, company string) (map[workflow.State]int, error) {
	query := `SELECT status, COUNT(*) FROM documents`
	var args []interface{}
	if company != "" {
		query += ` WHERE company = ?`
		args = append(args, company)
	}
	query += ` GROUP BY status`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to count documents by status", zap.Error(err))
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[workflow.State]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[workflow.State(status)] = n
	}

	return counts, rows.Err()
}

func (r *DocumentRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]*entity.Document, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			r.logger.Error("Failed to scan document", zap.Error(err))
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (r *DocumentRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type encodedDocument struct {
	items       string
	attachments string
	chain       string
}

func encodeDocument(doc *entity.Document) (encodedDocument, error) {
	var enc encodedDocument

	items := doc.Items
	if items == nil {
		items = []entity.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return enc, fmt.Errorf("failed to encode items: %w", err)
	}
	enc.items = string(b)

	attachments := doc.Attachments
	if attachments == nil {
		attachments = []entity.Attachment{}
	}
	if b, err = json.Marshal(attachments); err != nil {
		return enc, fmt.Errorf("failed to encode attachments: %w", err)
	}
	enc.attachments = string(b)

	chain := doc.Chain
	if chain == nil {
		chain = approval.Chain{}
	}
	if b, err = json.Marshal(chain); err != nil {
		return enc, fmt.Errorf("failed to encode approval chain: %w", err)
	}
	enc.chain = string(b)

	return enc, nil
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var status string
	var mrID sql.NullString
	var items, attachments, chain string
	var confirmedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.Kind, &doc.Number, &doc.Title, &doc.Company, &doc.Department,
		&doc.RequesterID, &doc.RequesterName, &status, &doc.Notes, &doc.CostCenter,
		&mrID, &doc.VendorName, &doc.Currency,
		&items, &attachments, &chain, &doc.TemplateID, &doc.ValidatedBy,
		&doc.BASTProofPath, &doc.BASTConfirmedBy, &confirmedAt,
		&doc.Version, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = workflow.State(status)
	doc.MaterialRequestID = mrID.String
	if confirmedAt.Valid {
		t := confirmedAt.Time
		doc.BASTConfirmedAt = &t
	}

	if err := json.Unmarshal([]byte(items), &doc.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal([]byte(attachments), &doc.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal([]byte(chain), &doc.Chain); err != nil {
		return nil, fmt.Errorf("failed to decode approval chain of %s: %w", doc.ID, err)
	}

	return &doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

var _ port.DocumentRepository = (*DocumentRepository)(nil)
