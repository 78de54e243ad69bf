package event

// Type identifies the type of domain event
type Type string

const (
	TypeDocumentSubmitted   Type = "document.submitted"
	TypeDocumentValidated   Type = "document.validated"
	TypeValidationRejected  Type = "document.validation_rejected"
	TypeChainAdvanced       Type = "chain.advanced"
	TypeChainCompleted      Type = "chain.completed"
	TypeChainRejected       Type = "chain.rejected"
	TypePurchaseOrderOpened Type = "purchase_order.created"
	TypeBASTConfirmed       Type = "bast.confirmed"
	TypeCommentMentioned    Type = "comment.mentioned"
	TypeApprovalReminder    Type = "approval.reminder"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDocumentSubmitted,
		TypeDocumentValidated,
		TypeValidationRejected,
		TypeChainAdvanced,
		TypeChainCompleted,
		TypeChainRejected,
		TypePurchaseOrderOpened,
		TypeBASTConfirmed,
		TypeCommentMentioned,
		TypeApprovalReminder:
		return true
	default:
		return false
	}
}
