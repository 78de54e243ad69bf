package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/procurement/internal/application/port"
	appwf "github.com/garyjia/procurement/internal/application/workflow"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/garyjia/procurement/internal/domain/workflow"
)

// ValidateInput selects the chain a document is validated with.
// TemplateID wins over Approvers; with neither, the chain edited
// during construction is used.
type ValidateInput struct {
	TemplateID string          `json:"template_id"`
	Approvers  []ApproverInput `json:"approvers"`
}

// MoveDirection moves a chain entry one position
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// ValidationService covers general affair review and chain construction
type ValidationService interface {
	Validate(ctx context.Context, actor *entity.User, id string, input ValidateInput) (*entity.Document, error)
	RejectValidation(ctx context.Context, actor *entity.User, id, note string) (*entity.Document, error)
	AddApprover(ctx context.Context, actor *entity.User, id string, input ApproverInput) (*entity.Document, error)
	MoveApprover(ctx context.Context, actor *entity.User, id string, index int, direction MoveDirection) (*entity.Document, error)
	RemoveApprover(ctx context.Context, actor *entity.User, id, userID string) (*entity.Document, error)
}

type validationServiceImpl struct {
	documentMutator
	templates port.TemplateRepository
	users     port.UserRepository
	publisher EventPublisher
}

// NewValidationService creates a new ValidationService instance
func NewValidationService(
	documents port.DocumentRepository,
	templates port.TemplateRepository,
	users port.UserRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	publisher EventPublisher,
	logger Logger,
) ValidationService {
	return &validationServiceImpl{
		documentMutator: documentMutator{
			documents: documents,
			history:   history,
			txManager: txManager,
			logger:    logger,
		},
		templates: templates,
		users:     users,
		publisher: publisher,
	}
}

func (s *validationServiceImpl) Validate(ctx context.Context, actor *entity.User, id string, input ValidateInput) (*entity.Document, error) {
	if err := requireRole(actor, entity.RoleGeneralAffair); err != nil {
		return nil, err
	}

	chain, templateID, replace, err := s.chainFor(ctx, input)
	if err != nil {
		return nil, err
	}

	doc, err := s.mutate(ctx, id, func(ctx context.Context, doc *entity.Document) (*entity.DocumentHistory, error) {
		if replace {
			doc.Chain = chain.Clone()
			doc.TemplateID = templateID
		} else {
			doc.Chain = doc.Chain.Fresh()
		}

		tr, err := appwf.Fire(ctx, doc, workflow.TriggerValidate)
		if err != nil {
			return nil, err
		}
		doc.ValidatedBy = actor.ID
		return transitionHistory(actor.ID, entity.ActionValidated, tr, templateID), nil
	})
	if err != nil {
		s.logger.Error("Failed to validate document", "error", err, "document_id", id)
		return nil, err
	}

	s.logger.Info("Document validated", "document_id", doc.ID, "number", doc.Number, "approvers", len(doc.Chain))
	s.publisher.DispatchAsync(ctx, documentEvent(event.TypeDocumentValidated, doc, actor.ID,
		approval.EligibleApprovers(doc.Chain)))
	return doc, nil
}

// chainFor resolves a template or explicit approver list into a fresh chain.
// replace is false when the document keeps its own chain.
func (s *validationServiceImpl) chainFor(ctx context.Context, input ValidateInput) (chain approval.Chain, templateID string, replace bool, err error) {
	if input.TemplateID != "" {
		tpl, err := s.templates.GetByID(ctx, input.TemplateID)
		if err != nil {
			return nil, "", false, fmt.Errorf("failed to get template: %w", err)
		}
		if tpl == nil {
			return nil, "", false, notFound("approval template", input.TemplateID)
		}
		return tpl.ApprovalPath.Fresh(), tpl.ID, true, nil
	}

	if len(input.Approvers) > 0 {
		users, err := s.users.GetByIDs(ctx, inputIDs(input.Approvers))
		if err != nil {
			return nil, "", false, fmt.Errorf("failed to load approvers: %w", err)
		}
		chain, err := buildChain(userIndex(users), input.Approvers)
		if err != nil {
			return nil, "", false, err
		}
		return chain, "", true, nil
	}
	return nil, "", false, nil
}

func (s *validationServiceImpl) RejectValidation(ctx context.Context, actor *entity.User, id, note string) (*entity.Document, error) {
	if err := requireRole(actor, entity.RoleGeneralAffair); err != nil {
		return nil, err
	}
	if strings.TrimSpace(note) == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", approval.ErrValidation)
	}

	doc, err := s.mutate(ctx, id, func(ctx context.Context, doc *entity.Document) (*entity.DocumentHistory, error) {
		tr, err := appwf.Fire(ctx, doc, workflow.TriggerRejectValidation)
		if err != nil {
			return nil, err
		}
		return transitionHistory(actor.ID, entity.ActionValidationReject, tr, note), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Document rejected at validation", "document_id", doc.ID, "number", doc.Number)
	evt := documentEvent(event.TypeValidationRejected, doc, actor.ID, []string{doc.RequesterID})
	s.publisher.DispatchAsync(ctx, evt.WithPayload(event.KeyNote, note))
	return doc, nil
}

func (s *validationServiceImpl) AddApprover(ctx context.Context, actor *entity.User, id string, input ApproverInput) (*entity.Document, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", input.UserID)
	}

	return s.editChain(ctx, actor, id, "added "+user.Name, func(chain approval.Chain) (approval.Chain, error) {
		return chain.Add(approverFromUser(user, input.Kind))
	})
}

func (s *validationServiceImpl) MoveApprover(ctx context.Context, actor *entity.User, id string, index int, direction MoveDirection) (*entity.Document, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	note := fmt.Sprintf("moved entry %d %s", index+1, direction)
	return s.editChain(ctx, actor, id, note, func(chain approval.Chain) (approval.Chain, error) {
		switch direction {
		case MoveUp:
			return chain.MoveUp(index)
		case MoveDown:
			return chain.MoveDown(index)
		default:
			return nil, fmt.Errorf("%w: unknown direction %q", approval.ErrValidation, direction)
		}
	})
}

func (s *validationServiceImpl) RemoveApprover(ctx context.Context, actor *entity.User, id, userID string) (*entity.Document, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	return s.editChain(ctx, actor, id, "removed "+userID, func(chain approval.Chain) (approval.Chain, error) {
		return chain.Remove(userID)
	})
}

// editChain applies a chain edit while the document is still under construction
func (s *validationServiceImpl) editChain(ctx context.Context, actor *entity.User, id, note string, edit func(approval.Chain) (approval.Chain, error)) (*entity.Document, error) {
	doc, err := s.mutate(ctx, id, func(ctx context.Context, doc *entity.Document) (*entity.DocumentHistory, error) {
		if err := requireOwner(actor, doc); err != nil {
			return nil, err
		}
		if !doc.Status.IsConstruction() {
			return nil, fmt.Errorf("%w: chain of %s is locked in %s",
				workflow.ErrInvalidTransition, doc.Number, doc.Status)
		}

		chain, err := edit(doc.Chain)
		if err != nil {
			return nil, err
		}
		doc.Chain = chain
		return &entity.DocumentHistory{ActorID: actor.ID, Action: entity.ActionChainEdited, Note: note}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval chain edited", "document_id", doc.ID, "change", note)
	return doc, nil
}
