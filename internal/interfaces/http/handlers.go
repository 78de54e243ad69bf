package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/garyjia/procurement/internal/application/service"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}
	return &Handlers{
		services:       services,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// ListTemplates handles GET /api/v1/approval-templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.services.Templates.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list_templates", err)
		return
	}
	ok(c, templates)
}

// CreateTemplate handles POST /api/v1/approval-templates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var input service.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	tpl, err := h.services.Templates.Create(c.Request.Context(), currentUser(c), input)
	if err != nil {
		h.fail(c, "create_template", err)
		return
	}
	created(c, tpl)
}

// GetTemplate handles GET /api/v1/approval-templates/:id
func (h *Handlers) GetTemplate(c *gin.Context) {
	tpl, err := h.services.Templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get_template", err)
		return
	}
	ok(c, tpl)
}

// UpdateTemplate handles PATCH /api/v1/approval-templates/:id
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	var input service.TemplatePatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	tpl, err := h.services.Templates.Update(c.Request.Context(), currentUser(c), c.Param("id"), input)
	if err != nil {
		h.fail(c, "update_template", err)
		return
	}
	ok(c, tpl)
}

// DeleteTemplate handles DELETE /api/v1/approval-templates/:id
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	if err := h.services.Templates.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.fail(c, "delete_template", err)
		return
	}
	ok(c, gin.H{"deleted": c.Param("id")})
}

// SearchApproverCandidates handles GET /api/v1/approver-candidates?q=&limit=
func (h *Handlers) SearchApproverCandidates(c *gin.Context) {
	limit, err := queryInt(c, "limit", entity.DefaultCandidateLimit)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	users, err := h.services.Templates.SearchApproverCandidates(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.fail(c, "search_candidates", err)
		return
	}
	ok(c, users)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &queryError{key: key, value: raw}
	}
	return n, nil
}

type queryError struct {
	key   string
	value string
}

func (e *queryError) Error() string {
	return "invalid " + e.key + " parameter: " + e.value
}
