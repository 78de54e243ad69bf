package entity

import (
	"strings"
	"time"

	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/workflow"
)

// DocumentKind distinguishes material requests from purchase orders
type DocumentKind string

const (
	KindMaterialRequest DocumentKind = "MR"
	KindPurchaseOrder   DocumentKind = "PO"
)

// IsValid returns true if the kind is one of the defined constants
func (k DocumentKind) IsValid() bool {
	return k == KindMaterialRequest || k == KindPurchaseOrder
}

// Document is a material request or purchase order together with its approval chain.
// It is loaded and saved as a whole aggregate.
type Document struct {
	ID            string         `json:"id"`
	Kind          DocumentKind   `json:"kind"`
	Number        string         `json:"number"`
	Title         string         `json:"title"`
	Company       string         `json:"company"`
	Department    string         `json:"department"`
	RequesterID   string         `json:"requester_id"`
	RequesterName string         `json:"requester_name"`
	Status        workflow.State `json:"status"`
	Notes         string         `json:"notes,omitempty"`

	// Material request only
	CostCenter string `json:"cost_center,omitempty"`

	// Purchase order only
	MaterialRequestID string `json:"material_request_id,omitempty"`
	VendorName        string `json:"vendor_name,omitempty"`
	Currency          string `json:"currency,omitempty"`

	Items       []LineItem     `json:"items"`
	Attachments []Attachment   `json:"attachments"`
	Chain       approval.Chain `json:"approval_chain"`
	TemplateID  string         `json:"template_id,omitempty"`
	ValidatedBy string         `json:"validated_by,omitempty"`

	BASTProofPath   string     `json:"bast_proof_path,omitempty"`
	BASTConfirmedBy string     `json:"bast_confirmed_by,omitempty"`
	BASTConfirmedAt *time.Time `json:"bast_confirmed_at,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItem is one requested or ordered good
type LineItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
}

// Subtotal returns quantity times unit price
func (i LineItem) Subtotal() float64 {
	return i.Quantity * i.UnitPrice
}

// Attachment is a stored file linked to a document
type Attachment struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// IsMaterialRequest returns true for MR documents
func (d *Document) IsMaterialRequest() bool {
	return d.Kind == KindMaterialRequest
}

// IsPurchaseOrder returns true for PO documents
func (d *Document) IsPurchaseOrder() bool {
	return d.Kind == KindPurchaseOrder
}

// Total returns the sum of item subtotals
func (d *Document) Total() float64 {
	var total float64
	for _, item := range d.Items {
		total += item.Subtotal()
	}
	return total
}

// AwaitingApprovers encodes the currently eligible approvers as "|id1|id2|"
// so a LIKE '%|id|%' filter can pre-select a user's pending documents.
func (d *Document) AwaitingApprovers() string {
	if d.Status != workflow.StatePendingApproval {
		return ""
	}

	ids := approval.EligibleApprovers(d.Chain)
	if len(ids) == 0 {
		return ""
	}
	return "|" + strings.Join(ids, "|") + "|"
}

// DocumentFilter narrows document listings
type DocumentFilter struct {
	Kind        DocumentKind
	Status      workflow.State
	Company     string
	RequesterID string
	Limit       int
	Offset      int
}
