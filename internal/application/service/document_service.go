package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	appwf "github.com/garyjia/procurement/internal/application/workflow"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/garyjia/procurement/internal/domain/workflow"
	"github.com/google/uuid"
)

// MaterialRequestInput is the payload for raising a material request
type MaterialRequestInput struct {
	Title      string            `json:"title"`
	Company    string            `json:"company"`
	Department string            `json:"department"`
	CostCenter string            `json:"cost_center"`
	Notes      string            `json:"notes"`
	Items      []entity.LineItem `json:"items"`
}

// PurchaseOrderInput is the payload for raising a PO against an MR.
// Items default to the MR's items when empty.
type PurchaseOrderInput struct {
	Title      string            `json:"title"`
	VendorName string            `json:"vendor_name"`
	Currency   string            `json:"currency"`
	Notes      string            `json:"notes"`
	Items      []entity.LineItem `json:"items"`
}

// ExportFile is a rendered document ready for download
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// DashboardSummary aggregates document counts for a company
type DashboardSummary struct {
	Company      string                 `json:"company"`
	ByStatus     map[workflow.State]int `json:"by_status"`
	Total        int                    `json:"total"`
	PendingForMe int                    `json:"pending_for_me"`
}

// DocumentService manages MR and PO documents outside the approval chain
type DocumentService interface {
	CreateMaterialRequest(ctx context.Context, actor *entity.User, input MaterialRequestInput) (*entity.Document, error)
	CreatePurchaseOrder(ctx context.Context, actor *entity.User, materialRequestID string, input PurchaseOrderInput) (*entity.Document, error)
	UpdateItems(ctx context.Context, actor *entity.User, id string, items []entity.LineItem) (*entity.Document, error)
	Submit(ctx context.Context, actor *entity.User, id string) (*entity.Document, error)
	Get(ctx context.Context, id string) (*entity.Document, error)
	List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.Document, error)
	History(ctx context.Context, id string) ([]*entity.DocumentHistory, error)
	Summary(ctx context.Context, actor *entity.User) (*DashboardSummary, error)
	Export(ctx context.Context, id string) (*ExportFile, error)
}

type documentServiceImpl struct {
	documentMutator
	exporter  port.DocumentExporter
	publisher EventPublisher
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	documents port.DocumentRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	exporter port.DocumentExporter,
	publisher EventPublisher,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		documentMutator: documentMutator{
			documents: documents,
			history:   history,
			txManager: txManager,
			logger:    logger,
		},
		exporter:  exporter,
		publisher: publisher,
	}
}

func (s *documentServiceImpl) CreateMaterialRequest(ctx context.Context, actor *entity.User, input MaterialRequestInput) (*entity.Document, error) {
	if err := requireRole(actor, entity.RoleRequester, entity.RoleGeneralAffair); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", approval.ErrValidation)
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &entity.Document{
		ID:            uuid.NewString(),
		Kind:          entity.KindMaterialRequest,
		Title:         strings.TrimSpace(input.Title),
		Company:       firstNonEmpty(input.Company, actor.Company),
		Department:    firstNonEmpty(input.Department, actor.Department),
		RequesterID:   actor.ID,
		RequesterName: actor.Name,
		Status:        workflow.StateDraft,
		Notes:         input.Notes,
		CostCenter:    input.CostCenter,
		Items:         input.Items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		number, err := s.documents.NextNumber(txCtx, doc.Kind, now)
		if err != nil {
			return fmt.Errorf("failed to allocate number: %w", err)
		}
		doc.Number = number

		if err := s.documents.Create(txCtx, doc); err != nil {
			return fmt.Errorf("failed to create material request: %w", err)
		}
		return s.record(txCtx, doc, &entity.DocumentHistory{ActorID: actor.ID, Action: entity.ActionCreated})
	})
	if err != nil {
		s.logger.Error("Failed to create material request", "error", err, "requester", actor.ID)
		return nil, err
	}

	s.logger.Info("Material request created", "document_id", doc.ID, "number", doc.Number)
	return doc, nil
}

func (s *documentServiceImpl) CreatePurchaseOrder(ctx context.Context, actor *entity.User, materialRequestID string, input PurchaseOrderInput) (*entity.Document, error) {
	if err := requireRole(actor, entity.RolePurchasing, entity.RoleGeneralAffair); err != nil {
		return nil, err
	}
	if len(input.Items) > 0 {
		if err := validateItems(input.Items); err != nil {
			return nil, err
		}
	}

	var po, mr *entity.Document
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		mr, err = loadDocument(txCtx, s.documents, materialRequestID)
		if err != nil {
			return err
		}
		if !mr.IsMaterialRequest() {
			return fmt.Errorf("%w: %s is not a material request", approval.ErrValidation, mr.Number)
		}
		if mr.Status != workflow.StateWaitingPO {
			return fmt.Errorf("%w: material request %s is %s, not %s",
				workflow.ErrInvalidTransition, mr.Number, mr.Status, workflow.StateWaitingPO)
		}

		active, err := s.documents.GetActivePurchaseOrder(txCtx, mr.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing purchase order: %w", err)
		}
		if active != nil {
			return fmt.Errorf("%w: material request %s already has purchase order %s",
				entity.ErrConflict, mr.Number, active.Number)
		}

		po = newPurchaseOrder(actor, mr, input)
		number, err := s.documents.NextNumber(txCtx, po.Kind, po.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to allocate number: %w", err)
		}
		po.Number = number

		if err := s.documents.Create(txCtx, po); err != nil {
			return fmt.Errorf("failed to create purchase order: %w", err)
		}
		if err := s.record(txCtx, po, &entity.DocumentHistory{ActorID: actor.ID, Action: entity.ActionCreated, Note: "from " + mr.Number}); err != nil {
			return err
		}
		return s.record(txCtx, mr, &entity.DocumentHistory{ActorID: actor.ID, Action: entity.ActionPurchaseOrderMade, Note: po.Number})
	})
	if err != nil {
		s.logger.Error("Failed to create purchase order", "error", err, "material_request_id", materialRequestID)
		return nil, err
	}

	s.logger.Info("Purchase order created", "document_id", po.ID, "number", po.Number, "material_request_id", materialRequestID)
	s.publisher.DispatchAsync(ctx, documentEvent(event.TypePurchaseOrderOpened, po, actor.ID, []string{mr.RequesterID}))
	return po, nil
}

func newPurchaseOrder(actor *entity.User, mr *entity.Document, input PurchaseOrderInput) *entity.Document {
	items := input.Items
	if len(items) == 0 {
		items = append([]entity.LineItem(nil), mr.Items...)
	}
	now := time.Now()
	return &entity.Document{
		ID:                uuid.NewString(),
		Kind:              entity.KindPurchaseOrder,
		Title:             firstNonEmpty(strings.TrimSpace(input.Title), mr.Title),
		Company:           mr.Company,
		Department:        mr.Department,
		RequesterID:       actor.ID,
		RequesterName:     actor.Name,
		Status:            workflow.StateDraft,
		Notes:             input.Notes,
		MaterialRequestID: mr.ID,
		VendorName:        input.VendorName,
		Currency:          firstNonEmpty(input.Currency, "IDR"),
		Items:             items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (s *documentServiceImpl) UpdateItems(ctx context.Context, actor *entity.User, id string, items []entity.LineItem) (*entity.Document, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(ctx context.Context, doc *entity.Document) (*entity.DocumentHistory, error) {
		if err := requireOwner(actor, doc); err != nil {
			return nil, err
		}
		if doc.Status != workflow.StateDraft {
			return nil, fmt.Errorf("%w: items of %s can only change in %s",
				workflow.ErrInvalidTransition, doc.Number, workflow.StateDraft)
		}
		doc.Items = items
		return &entity.DocumentHistory{ActorID: actor.ID, Action: entity.ActionItemsUpdated}, nil
	})
}

func (s *documentServiceImpl) Submit(ctx context.Context, actor *entity.User, id string) (*entity.Document, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var tr appwf.Transition
	doc, err := s.mutate(ctx, id, func(ctx context.Context, doc *entity.Document) (*entity.DocumentHistory, error) {
		if err := requireOwner(actor, doc); err != nil {
			return nil, err
		}
		var err error
		if tr, err = appwf.Fire(ctx, doc, workflow.TriggerSubmit); err != nil {
			return nil, err
		}
		return transitionHistory(actor.ID, entity.ActionSubmitted, tr, ""), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Document submitted", "document_id", doc.ID, "number", doc.Number)
	s.publisher.DispatchAsync(ctx, documentEvent(event.TypeDocumentSubmitted, doc, actor.ID, nil))
	return doc, nil
}

func (s *documentServiceImpl) Get(ctx context.Context, id string) (*entity.Document, error) {
	return loadDocument(ctx, s.documents, id)
}

func (s *documentServiceImpl) List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.Document, error) {
	if filter.Kind != "" && !filter.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", approval.ErrValidation, filter.Kind)
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", approval.ErrValidation, filter.Status)
	}
	return s.documents.List(ctx, filter)
}

func (s *documentServiceImpl) History(ctx context.Context, id string) ([]*entity.DocumentHistory, error) {
	if _, err := loadDocument(ctx, s.documents, id); err != nil {
		return nil, err
	}
	return s.history.GetByDocumentID(ctx, id)
}

func (s *documentServiceImpl) Summary(ctx context.Context, actor *entity.User) (*DashboardSummary, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	counts, err := s.documents.CountByStatus(ctx, actor.Company)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	summary := &DashboardSummary{Company: actor.Company, ByStatus: counts}
	for _, n := range counts {
		summary.Total += n
	}

	awaiting, err := s.documents.ListAwaiting(ctx, actor.ID, workflow.StatePendingApproval)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	for _, doc := range awaiting {
		if approval.IsMyTurn(doc.Chain, actor.ID) {
			summary.PendingForMe++
		}
	}
	return summary, nil
}

func (s *documentServiceImpl) Export(ctx context.Context, id string) (*ExportFile, error) {
	doc, err := loadDocument(ctx, s.documents, id)
	if err != nil {
		return nil, err
	}

	content, err := s.exporter.Export(ctx, doc)
	if err != nil {
		s.logger.Error("Failed to export document", "error", err, "document_id", id)
		return nil, fmt.Errorf("failed to export document: %w", err)
	}
	return &ExportFile{
		Filename:    doc.Number + s.exporter.Extension(),
		ContentType: s.exporter.ContentType(),
		Content:     content,
	}, nil
}

func validateItems(items []entity.LineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", approval.ErrValidation)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", approval.ErrValidation, i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %q must have a positive quantity", approval.ErrValidation, item.Name)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %q has a negative price", approval.ErrValidation, item.Name)
		}
	}
	return nil
}

// requireOwner allows the document's requester and general affair staff
func requireOwner(actor *entity.User, doc *entity.Document) error {
	if actor.ID == doc.RequesterID || actor.IsGeneralAffair() {
		return nil
	}
	return fmt.Errorf("%w: only the requester may change %s", entity.ErrForbidden, doc.Number)
}

func transitionHistory(actorID, action string, tr appwf.Transition, note string) *entity.DocumentHistory {
	return &entity.DocumentHistory{
		ActorID:        actorID,
		Action:         action,
		PreviousStatus: string(tr.From),
		NewStatus:      string(tr.To),
		Note:           note,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
