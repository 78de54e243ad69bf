package http

import (
	"github.com/garyjia/procurement/internal/application/service"
	"github.com/garyjia/procurement/internal/domain/workflow"
	"github.com/gin-gonic/gin"
)

// PendingApprovals handles GET /api/v1/me/pending-approvals?status=
func (h *Handlers) PendingApprovals(c *gin.Context) {
	docs, err := h.services.Approvals.PendingApprovals(c.Request.Context(), currentUser(c).ID, workflow.State(c.Query("status")))
	if err != nil {
		h.fail(c, "pending_approvals", err)
		return
	}
	ok(c, docs)
}

// DashboardSummary handles GET /api/v1/dashboard/summary
func (h *Handlers) DashboardSummary(c *gin.Context) {
	summary, err := h.services.Documents.Summary(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, "dashboard_summary", err)
		return
	}
	ok(c, summary)
}

// Notifications handles GET /api/v1/me/notifications?unread=true&limit=
func (h *Handlers) Notifications(c *gin.Context) {
	limit, err := queryInt(c, "limit", service.DefaultFeedLimit)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	feed, err := h.services.Notifications.Feed(c.Request.Context(), currentUser(c).ID, c.Query("unread") == "true", limit)
	if err != nil {
		h.fail(c, "notifications", err)
		return
	}
	ok(c, feed)
}

// MarkNotificationRead handles POST /api/v1/me/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.services.Notifications.MarkRead(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.fail(c, "mark_notification_read", err)
		return
	}
	ok(c, gin.H{"read": c.Param("id")})
}
