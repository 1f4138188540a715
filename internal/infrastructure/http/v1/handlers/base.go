// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"growermarket/internal/core/apperror"
	appctx "growermarket/internal/core/context"
	"growermarket/internal/core/id"
	"growermarket/internal/infrastructure/http/v1/dto"
	"growermarket/internal/infrastructure/http/v1/middleware"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseID parses a required identifier from a path parameter, query
// parameter or body field. field names it in the validation error.
func (h *BaseHandler) ParseID(c *gin.Context, field, raw string) (id.ID, bool) {
	parsed, err := id.ParseField(field, raw)
	if err != nil {
		h.Error(c, err)
		return id.ID{}, false
	}
	return parsed, true
}

// RequireGrowerAccess aborts with 403 unless the caller is an admin or the
// grower identified by growerID.
func (h *BaseHandler) RequireGrowerAccess(c *gin.Context, growerID id.ID) bool {
	if appctx.CanActForGrower(c.Request.Context(), growerID.String()) {
		return true
	}
	h.Error(c, apperror.NewForbidden("not allowed to act for this grower").
		WithDetail("growerId", growerID.String()))
	return false
}

// ActingGrowerID returns the grower the caller's token belongs to, or the nil
// id for accounts that are not growers.
func (h *BaseHandler) ActingGrowerID(c *gin.Context) id.ID {
	u := appctx.GetUser(c.Request.Context())
	if u == nil || u.GrowerID == "" {
		return id.ID{}
	}
	growerID, err := id.Parse(u.GrowerID)
	if err != nil {
		return id.ID{}
	}
	return growerID
}

// IsAdmin reports whether the caller is an administrator.
func (h *BaseHandler) IsAdmin(c *gin.Context) bool {
	u := appctx.GetUser(c.Request.Context())
	return u != nil && u.IsAdmin
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", data)
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	h.OK(c, dto.SuccessResponse{Success: true, Message: message})
}

func missingField(field string) error {
	return apperror.NewValidation(field+" is required").WithDetail("field", field)
}
