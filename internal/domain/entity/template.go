package entity

import (
	"time"

	"github.com/garyjia/procurement/internal/domain/approval"
)

// ApprovalTemplate is a named, reusable approval chain blueprint.
// Applying it copies ApprovalPath into the document.
type ApprovalTemplate struct {
	ID           string         `json:"id"`
	Name         string         `json:"template_name"`
	Description  string         `json:"description"`
	ApprovalPath approval.Chain `json:"approval_path"`
	CreatedBy    string         `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
