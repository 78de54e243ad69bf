package http

import (
	"errors"
	"net/http"

	"github.com/garyjia/procurement/internal/domain/approval"
	"github.com/garyjia/procurement/internal/domain/entity"
	"github.com/garyjia/procurement/internal/domain/workflow"
	"github.com/gin-gonic/gin"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Error codes returned in the response envelope
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeOutOfTurn         = "OUT_OF_TURN"
	CodeAlreadyProcessed  = "ALREADY_PROCESSED"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

// errorStatus maps a service error to its HTTP status and code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, approval.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, approval.ErrOutOfTurn):
		return http.StatusConflict, CodeOutOfTurn
	case errors.Is(err, approval.ErrAlreadyProcessed):
		return http.StatusConflict, CodeAlreadyProcessed
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusConflict, CodeInvalidTransition
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg, Code: CodeValidation})
}

// fail writes err in the envelope; internal errors are logged and masked
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "error", err, "request_id", c.GetString(requestIDKey))
		msg = "internal server error"
	}
	c.JSON(status, Response{Success: false, Error: msg, Code: code})
}
