package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/poserp/accounting/internal/domain/shared"
	"github.com/poserp/accounting/internal/interfaces/http/dto"
	"github.com/poserp/accounting/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getOrgID extracts the organization ID from JWT claims
func getOrgID(c *gin.Context) (uuid.UUID, error) {
	orgIDStr := middleware.GetJWTOrgID(c)
	if orgIDStr == "" {
		// Header fallback for development
		orgIDStr = c.GetHeader("X-Org-ID")
	}
	if orgIDStr == "" {
		return uuid.Nil, errors.New("organization ID not found in context")
	}
	return uuid.Parse(orgIDStr)
}

// getUserID extracts the acting user ID from JWT claims, nil when absent
func getUserID(c *gin.Context) *uuid.UUID {
	userIDStr := middleware.GetJWTUserID(c)
	if userIDStr == "" {
		return nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil
	}
	return &userID
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response for work recorded but not finalized
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// DomainError sends an error response derived from a domain error
func (h *BaseHandler) DomainError(c *gin.Context, err error) {
	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, verr.Error())
		return
	}

	if errors.Is(err, shared.ErrNotFound) {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Resource not found")
		return
	}

	var derr *shared.DomainError
	if errors.As(err, &derr) {
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeBusinessRule, derr.Message)
		return
	}

	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, err.Error())
}
