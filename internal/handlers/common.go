package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/prepstack/attempt-engine/internal/errors"
	"github.com/prepstack/attempt-engine/internal/services"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and response functionality
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogError logs error details with request context
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	}
	fields = append(fields, additionalFields...)
	h.logger.LogError(err, message, fields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		h.LogError(c, err, message, "status_code", statusCode)
		resp.Details = err.Error()
	}
	c.JSON(statusCode, resp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{Message: message, Data: data})
}

// RespondWithServiceError maps service errors to HTTP status codes
func (h *BaseHandler) RespondWithServiceError(c *gin.Context, err error) {
	var validationErrs apperrors.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Details: validationErrs,
			Code:    "VALIDATION_ERROR",
		})
	case services.IsNoActiveSessionError(err):
		h.RespondWithError(c, http.StatusConflict, "no active session", err)
	case services.IsQuestionNotFoundError(err):
		h.RespondWithError(c, http.StatusNotFound, "question not found", err)
	case errors.Is(err, services.ErrIndexOutOfRange):
		h.RespondWithError(c, http.StatusBadRequest, "question index out of range", err)
	case services.IsNotAuthenticatedError(err):
		h.RespondWithError(c, http.StatusUnauthorized, "authentication required", err)
	case errors.Is(err, services.ErrInvalidRequest):
		h.RespondWithError(c, http.StatusBadRequest, "invalid request", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "internal error", err)
	}
}

// HealthCheck reports service liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "attempt-engine",
	})
}
