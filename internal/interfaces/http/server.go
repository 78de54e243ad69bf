// Package http exposes the procurement services over a JSON API.
// It translates HTTP requests into application service calls.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/garyjia/procurement/internal/application/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxUploadBytes: 20 << 20,
	}
}

// Services bundles the application services served over HTTP
type Services struct {
	Templates     service.TemplateService
	Documents     service.DocumentService
	Validation    service.ValidationService
	Approvals     service.ApprovalService
	BAST          service.BASTService
	Comments      service.CommentService
	Notifications service.NotificationService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	auth       *Authenticator
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, auth *Authenticator, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		auth:     auth,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestID())
	s.router.Use(s.loggingMiddleware())

	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", RequestIDHeader},
			ExposeHeaders:    []string{RequestIDHeader, "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// RequestIDHeader carries the request correlation id
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config.MaxUploadBytes, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1", s.auth.Middleware())
	{
		api.GET("/approval-templates", h.ListTemplates)
		api.POST("/approval-templates", h.CreateTemplate)
		api.GET("/approval-templates/:id", h.GetTemplate)
		api.PATCH("/approval-templates/:id", h.UpdateTemplate)
		api.DELETE("/approval-templates/:id", h.DeleteTemplate)
		api.GET("/approver-candidates", h.SearchApproverCandidates)

		api.POST("/material-requests", h.CreateMaterialRequest)
		api.POST("/material-requests/:id/purchase-orders", h.CreatePurchaseOrder)

		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.PUT("/documents/:id/items", h.UpdateItems)
		api.POST("/documents/:id/submit", h.Submit)
		api.POST("/documents/:id/validate", h.Validate)
		api.POST("/documents/:id/reject-validation", h.RejectValidation)
		api.POST("/documents/:id/chain/approvers", h.AddApprover)
		api.POST("/documents/:id/chain/move", h.MoveApprover)
		api.DELETE("/documents/:id/chain/approvers/:userId", h.RemoveApprover)
		api.POST("/documents/:id/approve", h.Approve)
		api.POST("/documents/:id/reject", h.Reject)
		api.POST("/documents/:id/bast", h.ConfirmBAST)
		api.GET("/documents/:id/history", h.History)
		api.GET("/documents/:id/comments", h.ListComments)
		api.POST("/documents/:id/comments", h.AddComment)
		api.GET("/documents/:id/export", h.Export)

		api.GET("/me/pending-approvals", h.PendingApprovals)
		api.GET("/me/notifications", h.Notifications)
		api.POST("/me/notifications/:id/read", h.MarkNotificationRead)
		api.GET("/dashboard/summary", h.DashboardSummary)
	}
}

// Start runs the server until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
