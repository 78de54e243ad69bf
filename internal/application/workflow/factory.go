package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/procurement/internal/domain/entity"
	domainwf "github.com/garyjia/procurement/internal/domain/workflow"
)

// BuildDocumentStateMachine creates the lifecycle machine for a document.
// Guards read the document's chain, so approval-driven transitions only
// happen when the chain actually reached the matching outcome.
func BuildDocumentStateMachine(doc *entity.Document) (domainwf.StateMachine, error) {
	if !doc.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", domainwf.ErrInvalidState, doc.Kind)
	}

	chainReady := func(ctx context.Context) bool { return doc.Chain.Validate() == nil }
	chainComplete := func(ctx context.Context) bool { return doc.Chain.IsComplete() }
	chainRejected := func(ctx context.Context) bool { return doc.Chain.IsRejected() }

	// MR waits for a PO after approval; a PO waits for goods receipt
	afterApproval := domainwf.StateWaitingPO
	if doc.IsPurchaseOrder() {
		afterApproval = domainwf.StatePendingBAST
	}

	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StatePendingValidation)

	builder.Configure(domainwf.StatePendingValidation).
		PermitIf(domainwf.TriggerValidate, domainwf.StatePendingApproval, chainReady).
		Permit(domainwf.TriggerRejectValidation, domainwf.StateRejected)

	builder.Configure(domainwf.StatePendingApproval).
		PermitIf(domainwf.TriggerChainComplete, afterApproval, chainComplete).
		PermitIf(domainwf.TriggerChainReject, domainwf.StateRejected, chainRejected)

	builder.Configure(afterApproval).
		Permit(domainwf.TriggerConfirmBAST, domainwf.StateCompleted)

	// REJECTED and COMPLETED are terminal states - no outgoing transitions

	return builder.Build(doc.Status)
}
