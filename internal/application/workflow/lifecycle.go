package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	domainwf "github.com/garyjia/procurement/internal/domain/workflow"
)

// Transition describes one applied lifecycle step
type Transition struct {
	From    domainwf.State
	To      domainwf.State
	Trigger domainwf.Trigger
}

// Fire applies trigger to the document and updates doc.Status.
// The document is left unchanged when the trigger is not permitted.
func Fire(ctx context.Context, doc *entity.Document, trigger domainwf.Trigger) (Transition, error) {
	machine, err := BuildDocumentStateMachine(doc)
	if err != nil {
		return Transition{}, err
	}

	from := machine.State()
	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, domainwf.ErrGuardFailed) && trigger == domainwf.TriggerValidate {
			return Transition{}, fmt.Errorf("%w: document %s has no valid approval chain: %v",
				approval.ErrValidation, doc.Number, doc.Chain.Validate())
		}
		return Transition{}, fmt.Errorf("document %s: %w", doc.Number, err)
	}

	doc.Status = machine.State()
	return Transition{From: from, To: doc.Status, Trigger: trigger}, nil
}

// TriggerForSignal maps a chain signal to the lifecycle trigger it fires.
// CHAIN_ADVANCED does not change the document status.
func TriggerForSignal(sig approval.Signal) (domainwf.Trigger, bool) {
	switch sig {
	case approval.SignalComplete:
		return domainwf.TriggerChainComplete, true
	case approval.SignalRejected:
		return domainwf.TriggerChainReject, true
	default:
		return "", false
	}
}

// PermittedTriggers lists the triggers configured for the document's current state
func PermittedTriggers(doc *entity.Document) []domainwf.Trigger {
	machine, err := BuildDocumentStateMachine(doc)
	if err != nil {
		return nil
	}
	return machine.PermittedTriggers()
}
