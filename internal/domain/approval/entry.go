package approval

import "time"

// Kind describes what an approver is expected to do with a document
type Kind string

const (
	// KindAcknowledge entries are notify-only ("Mengetahui")
	KindAcknowledge Kind = "Mengetahui"
	// KindApprove entries must approve before the chain can proceed ("Menyetujui")
	KindApprove Kind = "Menyetujui"
)

// IsValid returns true if the kind is one of the defined constants
func (k Kind) IsValid() bool {
	return k == KindAcknowledge || k == KindApprove
}

// Blocking reports whether a pending entry of this kind holds back later entries
func (k Kind) Blocking() bool {
	return k == KindApprove
}

// Status is the per-entry approval status
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Entry is one approver position in a chain.
// Name, Email, Role and Department are a snapshot taken when the entry was built.
type Entry struct {
	UserID      string     `json:"user_id" yaml:"user_id"`
	Name        string     `json:"name" yaml:"name"`
	Email       string     `json:"email" yaml:"email"`
	Role        string     `json:"role" yaml:"role"`
	Department  string     `json:"department" yaml:"department"`
	Kind        Kind       `json:"kind" yaml:"kind"`
	Status      Status     `json:"status" yaml:"-"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" yaml:"-"`
}

// IsPending returns true if the entry has not been acted on
func (e Entry) IsPending() bool {
	return e.Status == "" || e.Status == StatusPending
}

// Approver is the input for building a chain entry
type Approver struct {
	UserID     string
	Name       string
	Email      string
	Role       string
	Department string
	Kind       Kind
}

// Action is an approver's decision on their entry
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// IsValid returns true if the action is one of the defined constants
func (a Action) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}
