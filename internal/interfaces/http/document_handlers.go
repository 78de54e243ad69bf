package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/garyjia/procurement/internal/application/service"
	appwf "github.com/garyjia/procurement/internal/application/workflow"
	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/workflow"
	"github.com/gin-gonic/gin"
)

// CreateMaterialRequest handles POST /api/v1/material-requests
func (h *Handlers) CreateMaterialRequest(c *gin.Context) {
	var input service.MaterialRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc, err := h.services.Documents.CreateMaterialRequest(c.Request.Context(), currentUser(c), input)
	if err != nil {
		h.fail(c, "create_material_request", err)
		return
	}
	created(c, doc)
}

// CreatePurchaseOrder handles POST /api/v1/material-requests/:id/purchase-orders
func (h *Handlers) CreatePurchaseOrder(c *gin.Context) {
	var input service.PurchaseOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc, err := h.services.Documents.CreatePurchaseOrder(c.Request.Context(), currentUser(c), c.Param("id"), input)
	if err != nil {
		h.fail(c, "create_purchase_order", err)
		return
	}
	created(c, doc)
}

// ListDocuments handles GET /api/v1/documents?kind=&status=&company=&requester=&limit=&offset=
func (h *Handlers) ListDocuments(c *gin.Context) {
	filter := entity.DocumentFilter{
		Kind:        entity.DocumentKind(c.Query("kind")),
		Status:      workflow.State(c.Query("status")),
		Company:     c.Query("company"),
		RequesterID: c.Query("requester"),
	}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		badRequest(c, "invalid kind parameter: "+string(filter.Kind))
		return
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		badRequest(c, "invalid status parameter: "+string(filter.Status))
		return
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit", 0); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		badRequest(c, err.Error())
		return
	}

	docs, err := h.services.Documents.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list_documents", err)
		return
	}
	ok(c, docs)
}

// GetDocument handles GET /api/v1/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.services.Documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get_document", err)
		return
	}
	ok(c, documentView{Document: doc, Transitions: appwf.PermittedTriggers(doc)})
}

// documentView is a document plus the lifecycle triggers its current status accepts
type documentView struct {
	*entity.Document
	Transitions []workflow.Trigger `json:"transitions"`
}

type itemsRequest struct {
	Items []entity.LineItem `json:"items"`
}

// UpdateItems handles PUT /api/v1/documents/:id/items
func (h *Handlers) UpdateItems(c *gin.Context) {
	var req itemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc, err := h.services.Documents.UpdateItems(c.Request.Context(), currentUser(c), c.Param("id"), req.Items)
	if err != nil {
		h.fail(c, "update_items", err)
		return
	}
	ok(c, doc)
}

// Submit handles POST /api/v1/documents/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	doc, err := h.services.Documents.Submit(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.fail(c, "submit", err)
		return
	}
	ok(c, doc)
}

// History handles GET /api/v1/documents/:id/history
func (h *Handlers) History(c *gin.Context) {
	history, err := h.services.Documents.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "history", err)
		return
	}
	ok(c, history)
}

// Export handles GET /api/v1/documents/:id/export
func (h *Handlers) Export(c *gin.Context) {
	file, err := h.services.Documents.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "export", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// Validate handles POST /api/v1/documents/:id/validate
func (h *Handlers) Validate(c *gin.Context) {
	var input service.ValidateInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	doc, err := h.services.Validation.Validate(c.Request.Context(), currentUser(c), c.Param("id"), input)
	if err != nil {
		h.fail(c, "validate", err)
		return
	}
	ok(c, doc)
}

type noteRequest struct {
	Note string `json:"note"`
}

// RejectValidation handles POST /api/v1/documents/:id/reject-validation
func (h *Handlers) RejectValidation(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc, err := h.services.Validation.RejectValidation(c.Request.Context(), currentUser(c), c.Param("id"), req.Note)
	if err != nil {
		h.fail(c, "reject_validation", err)
		return
	}
	ok(c, doc)
}

// AddApprover handles POST /api/v1/documents/:id/chain/approvers
func (h *Handlers) AddApprover(c *gin.Context) {
	var input service.ApproverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc, err := h.services.Validation.AddApprover(c.Request.Context(), currentUser(c), c.Param("id"), input)
	if err != nil {
		h.fail(c, "add_approver", err)
		return
	}
	ok(c, doc)
}

type moveRequest struct {
	Index     *int                  `json:"index"`
	Direction service.MoveDirection `json:"direction"`
}

// MoveApprover handles POST /api/v1/documents/:id/chain/move
func (h *Handlers) MoveApprover(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Index == nil {
		badRequest(c, "index is required")
		return
	}

	doc, err := h.services.Validation.MoveApprover(c.Request.Context(), currentUser(c), c.Param("id"), *req.Index, req.Direction)
	if err != nil {
		h.fail(c, "move_approver", err)
		return
	}
	ok(c, doc)
}

// RemoveApprover handles DELETE /api/v1/documents/:id/chain/approvers/:userId
func (h *Handlers) RemoveApprover(c *gin.Context) {
	doc, err := h.services.Validation.RemoveApprover(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		h.fail(c, "remove_approver", err)
		return
	}
	ok(c, doc)
}

// Approve handles POST /api/v1/documents/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	h.act(c, approval.ActionApprove)
}

// Reject handles POST /api/v1/documents/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	h.act(c, approval.ActionReject)
}

// ActionResponse is the outcome of an approve or reject call
type ActionResponse struct {
	Document *entity.Document `json:"document"`
	Signal   approval.Signal  `json:"signal"`
}

func (h *Handlers) act(c *gin.Context, action approval.Action) {
	var req noteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.services.Approvals.Act(c.Request.Context(), currentUser(c), c.Param("id"), action, req.Note)
	if err != nil {
		h.fail(c, string(action), err)
		return
	}
	ok(c, ActionResponse{Document: result.Document, Signal: result.Signal})
}

// ConfirmBAST handles POST /api/v1/documents/:id/bast (multipart field "proof")
func (h *Handlers) ConfirmBAST(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)

	fh, err := c.FormFile("proof")
	if err != nil {
		badRequest(c, "proof file is required")
		return
	}
	if fh.Size > h.maxUploadBytes {
		badRequest(c, fmt.Sprintf("proof exceeds %d bytes", h.maxUploadBytes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "cannot read proof file")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "cannot read proof file")
		return
	}

	doc, err := h.services.BAST.Confirm(c.Request.Context(), currentUser(c), c.Param("id"), service.BASTProof{
		Filename: fh.Filename,
		Content:  content,
		Note:     c.PostForm("note"),
	})
	if err != nil {
		h.fail(c, "confirm_bast", err)
		return
	}
	ok(c, doc)
}

// ListComments handles GET /api/v1/documents/:id/comments
func (h *Handlers) ListComments(c *gin.Context) {
	comments, err := h.services.Comments.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "list_comments", err)
		return
	}
	ok(c, comments)
}

// AddComment handles POST /api/v1/documents/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	var input service.CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	comment, err := h.services.Comments.Add(c.Request.Context(), currentUser(c), c.Param("id"), input)
	if err != nil {
		h.fail(c, "add_comment", err)
		return
	}
	created(c, comment)
}
