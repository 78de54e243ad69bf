package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	appwf "github.com/garyjia/procurement/internal/application/workflow"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/garyjia/procurement/internal/domain/workflow"
)

// BASTProof is the uploaded goods-receipt evidence (Berita Acara Serah Terima)
type BASTProof struct {
	Filename string
	Content  []byte
	Note     string
}

// BASTService confirms goods receipt for approved purchase orders
type BASTService interface {
	// Confirm stores the proof and completes the PO and its MR together
	Confirm(ctx context.Context, actor *entity.User, purchaseOrderID string, proof BASTProof) (*entity.Document, error)
}

type bastServiceImpl struct {
	documentMutator
	storage   port.FileStorage
	inspector port.ProofInspector
	publisher EventPublisher
}

// NewBASTService creates a new BASTService instance
func NewBASTService(
	documents port.DocumentRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	storage port.FileStorage,
	inspector port.ProofInspector,
	publisher EventPublisher,
	logger Logger,
) BASTService {
	return &bastServiceImpl{
		documentMutator: documentMutator{
			documents: documents,
			history:   history,
			txManager: txManager,
			logger:    logger,
		},
		storage:   storage,
		inspector: inspector,
		publisher: publisher,
	}
}

func (s *bastServiceImpl) Confirm(ctx context.Context, actor *entity.User, purchaseOrderID string, proof BASTProof) (*entity.Document, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if len(proof.Content) == 0 {
		return nil, fmt.Errorf("%w: BAST proof file is required", approval.ErrValidation)
	}

	po, err := loadDocument(ctx, s.documents, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	if err := checkBASTAllowed(actor, po); err != nil {
		return nil, err
	}

	info, err := s.inspector.Inspect(ctx, proof.Filename, proof.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid BAST proof: %v", approval.ErrValidation, err)
	}

	proofPath := path.Join("bast", po.Number, fmt.Sprintf("%d_%s", time.Now().Unix(), safeFilename(proof.Filename)))
	if err := s.storage.Save(ctx, proofPath, proof.Content); err != nil {
		s.logger.Error("Failed to store BAST proof", "error", err, "document_id", po.ID)
		return nil, fmt.Errorf("failed to store BAST proof: %w", err)
	}

	var mr *entity.Document
	err = s.retryOnConflict(ctx, purchaseOrderID, func(txCtx context.Context) error {
		var err error
		if po, err = s.completePurchaseOrder(txCtx, actor, purchaseOrderID, proofPath, info, proof); err != nil {
			return err
		}
		mr, err = s.completeMaterialRequest(txCtx, actor, po)
		return err
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, proofPath); delErr != nil {
			s.logger.Error("Failed to remove orphaned BAST proof", "error", delErr, "path", proofPath)
		}
		s.logger.Error("Failed to confirm BAST", "error", err, "document_id", purchaseOrderID)
		return nil, err
	}

	s.logger.Info("BAST confirmed", "purchase_order", po.Number, "material_request", mr.Number, "proof", proofPath)
	recipients := uniqueStrings(mr.RequesterID, po.RequesterID)
	s.publisher.DispatchAsync(ctx, documentEvent(event.TypeBASTConfirmed, po, actor.ID, recipients))
	return po, nil
}

func (s *bastServiceImpl) completePurchaseOrder(ctx context.Context, actor *entity.User, id, proofPath string, info *port.ProofInfo, proof BASTProof) (*entity.Document, error) {
	po, err := loadDocument(ctx, s.documents, id)
	if err != nil {
		return nil, err
	}
	if err := checkBASTAllowed(actor, po); err != nil {
		return nil, err
	}

	tr, err := appwf.Fire(ctx, po, workflow.TriggerConfirmBAST)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	po.BASTProofPath = proofPath
	po.BASTConfirmedBy = actor.ID
	po.BASTConfirmedAt = &now
	po.Attachments = append(po.Attachments, entity.Attachment{
		Name:        proof.Filename,
		Path:        proofPath,
		ContentType: info.ContentType,
		Size:        int64(len(proof.Content)),
		UploadedBy:  actor.ID,
		UploadedAt:  now,
	})
	po.UpdatedAt = now

	if err := s.documents.Update(ctx, po); err != nil {
		return nil, err
	}
	if err := s.record(ctx, po, transitionHistory(actor.ID, entity.ActionBASTConfirmed, tr, proof.Note)); err != nil {
		return nil, err
	}
	return po, nil
}

func (s *bastServiceImpl) completeMaterialRequest(ctx context.Context, actor *entity.User, po *entity.Document) (*entity.Document, error) {
	mr, err := loadDocument(ctx, s.documents, po.MaterialRequestID)
	if err != nil {
		return nil, err
	}

	tr, err := appwf.Fire(ctx, mr, workflow.TriggerConfirmBAST)
	if err != nil {
		return nil, err
	}
	mr.UpdatedAt = time.Now()

	if err := s.documents.Update(ctx, mr); err != nil {
		return nil, err
	}
	if err := s.record(ctx, mr, transitionHistory(actor.ID, entity.ActionBASTConfirmed, tr, po.Number)); err != nil {
		return nil, err
	}
	return mr, nil
}

// checkBASTAllowed permits the PO creator and general affair staff on purchase orders
func checkBASTAllowed(actor *entity.User, po *entity.Document) error {
	if !po.IsPurchaseOrder() {
		return fmt.Errorf("%w: BAST is confirmed on purchase orders, %s is not one", approval.ErrValidation, po.Number)
	}
	if po.Status != workflow.StatePendingBAST {
		return fmt.Errorf("%w: purchase order %s is %s, not %s",
			workflow.ErrInvalidTransition, po.Number, po.Status, workflow.StatePendingBAST)
	}
	if actor.ID != po.RequesterID && !actor.IsGeneralAffair() {
		return fmt.Errorf("%w: only the purchase order creator may confirm BAST", entity.ErrForbidden)
	}
	return nil
}

func uniqueStrings(values ...string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// safeFilename keeps the base name and replaces characters unsafe in paths
func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "proof"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
