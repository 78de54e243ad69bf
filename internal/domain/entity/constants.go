package entity

// Role constants for User
const (
	RoleGeneralAffair = "general_affair"
	RoleApprover      = "approver"
	RolePurchasing    = "purchasing"
	RoleRequester     = "requester"
)

// History action constants
const (
	ActionCreated           = "CREATED"
	ActionItemsUpdated      = "ITEMS_UPDATED"
	ActionSubmitted         = "SUBMITTED"
	ActionChainEdited       = "CHAIN_EDITED"
	ActionValidated         = "VALIDATED"
	ActionValidationReject  = "VALIDATION_REJECTED"
	ActionApproved          = "APPROVED"
	ActionAcknowledged      = "ACKNOWLEDGED"
	ActionRejected          = "REJECTED"
	ActionPurchaseOrderMade = "PO_CREATED"
	ActionBASTConfirmed     = "BAST_CONFIRMED"
)

// Notification type constants
const (
	NotificationValidationNeeded = "VALIDATION_NEEDED"
	NotificationApprovalNeeded   = "APPROVAL_NEEDED"
	NotificationApproved         = "APPROVED"
	NotificationRejected         = "REJECTED"
	NotificationPurchaseOrder    = "PO_CREATED"
	NotificationCompleted        = "COMPLETED"
	NotificationMention          = "MENTION"
	NotificationReminder         = "APPROVAL_REMINDER"
)

// DefaultCandidateLimit bounds approver candidate searches
const DefaultCandidateLimit = 10
