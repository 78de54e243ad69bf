package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/procurement/internal/application/port"
	appwf "github.com/garyjia/procurement/internal/application/workflow"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/event"
	"github.com/garyjia/procurement/internal/domain/workflow"
)

// ActionResult reports the outcome of one approve or reject
type ActionResult struct {
	Document *entity.Document `json:"document"`
	Signal   approval.Signal  `json:"signal"`
}

// ApprovalService records approver decisions on documents
type ApprovalService interface {
	// Act approves or rejects the document on behalf of actor.
	// Turn violations return approval.ErrOutOfTurn or approval.ErrAlreadyProcessed.
	Act(ctx context.Context, actor *entity.User, documentID string, action approval.Action, note string) (*ActionResult, error)

	// PendingApprovals lists documents where it is the user's turn
	PendingApprovals(ctx context.Context, userID string, status workflow.State) ([]*entity.Document, error)
}

type approvalServiceImpl struct {
	documentMutator
	publisher EventPublisher
}

// NewApprovalService creates a new ApprovalService instance
func NewApprovalService(
	documents port.DocumentRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	publisher EventPublisher,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		documentMutator: documentMutator{
			documents: documents,
			history:   history,
			txManager: txManager,
			logger:    logger,
		},
		publisher: publisher,
	}
}

func (s *approvalServiceImpl) Act(ctx context.Context, actor *entity.User, documentID string, action approval.Action, note string) (*ActionResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", approval.ErrValidation, action)
	}

	var (
		signal   approval.Signal
		eligible []string
	)
	doc, err := s.mutate(ctx, documentID, func(ctx context.Context, doc *entity.Document) (*entity.DocumentHistory, error) {
		if doc.Status != workflow.StatePendingApproval {
			return nil, notInApproval(doc, actor.ID)
		}

		before := approval.EligibleApprovers(doc.Chain)
		chain, sig, err := approval.Apply(doc.Chain, actor.ID, action, time.Now())
		if err != nil {
			return nil, err
		}
		kind := doc.Chain[doc.Chain.IndexOf(actor.ID)].Kind
		doc.Chain = chain
		signal = sig

		tr := appwf.Transition{From: doc.Status, To: doc.Status}
		if trigger, ok := appwf.TriggerForSignal(sig); ok {
			if tr, err = appwf.Fire(ctx, doc, trigger); err != nil {
				return nil, err
			}
		}
		eligible = newlyEligible(before, approval.EligibleApprovers(doc.Chain))

		return transitionHistory(actor.ID, historyAction(action, kind), tr, note), nil
	})
	if err != nil {
		s.logger.Error("Failed to record approval action", "error", err,
			"document_id", documentID, "user_id", actor.ID, "action", action)
		return nil, err
	}

	s.logger.Info("Approval action recorded", "document_id", doc.ID, "number", doc.Number,
		"user_id", actor.ID, "action", action, "signal", signal, "status", doc.Status)
	s.publish(ctx, doc, actor.ID, signal, eligible, note)

	return &ActionResult{Document: doc, Signal: signal}, nil
}

func (s *approvalServiceImpl) publish(ctx context.Context, doc *entity.Document, actorID string, signal approval.Signal, eligible []string, note string) {
	var evt *event.Event
	switch signal {
	case approval.SignalAdvanced:
		if len(eligible) == 0 {
			return
		}
		evt = documentEvent(event.TypeChainAdvanced, doc, actorID, eligible)
	case approval.SignalComplete:
		evt = documentEvent(event.TypeChainCompleted, doc, actorID, []string{doc.RequesterID})
	case approval.SignalRejected:
		evt = documentEvent(event.TypeChainRejected, doc, actorID, []string{doc.RequesterID})
	default:
		return
	}
	if note != "" {
		evt = evt.WithPayload(event.KeyNote, note)
	}
	s.publisher.DispatchAsync(ctx, evt)
}

func (s *approvalServiceImpl) PendingApprovals(ctx context.Context, userID string, status workflow.State) ([]*entity.Document, error) {
	if status == "" {
		status = workflow.StatePendingApproval
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", approval.ErrValidation, status)
	}

	candidates, err := s.documents.ListAwaiting(ctx, userID, status)
	if err != nil {
		s.logger.Error("Failed to list awaiting documents", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}

	docs := make([]*entity.Document, 0, len(candidates))
	for _, doc := range candidates {
		if approval.IsMyTurn(doc.Chain, userID) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// notInApproval explains why a document outside approval cannot be acted on
func notInApproval(doc *entity.Document, userID string) error {
	turn := approval.ComputeTurn(doc.Chain, userID)
	if turn == approval.TurnAlreadyActed {
		return approval.TurnError(turn, userID)
	}
	return fmt.Errorf("%w: document %s is %s", approval.ErrOutOfTurn, doc.Number, doc.Status)
}

func historyAction(action approval.Action, kind approval.Kind) string {
	switch {
	case action == approval.ActionReject:
		return entity.ActionRejected
	case !kind.Blocking():
		return entity.ActionAcknowledged
	default:
		return entity.ActionApproved
	}
}
