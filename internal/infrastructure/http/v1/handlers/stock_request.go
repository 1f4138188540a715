package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"growermarket/internal/core/apperror"
	appctx "growermarket/internal/core/context"
	"growermarket/internal/core/id"
	"growermarket/internal/domain/stockrequest"
	"growermarket/internal/infrastructure/http/v1/dto"
)

// AlertCounters serves the badge counts shown to admins and growers.
type AlertCounters interface {
	PendingCount(ctx context.Context) (int64, error)
	UnviewedCount(ctx context.Context, growerID id.ID) (int64, error)
	Invalidate(ctx context.Context, growerID id.ID)
}

// StockRequestHandler serves the stock change approval workflow.
type StockRequestHandler struct {
	*BaseHandler
	service *stockrequest.Service
	alerts  AlertCounters
}

// NewStockRequestHandler creates a new stock request handler.
func NewStockRequestHandler(service *stockrequest.Service, alerts AlertCounters) *StockRequestHandler {
	return &StockRequestHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		alerts:      alerts,
	}
}

// Submit records a new pending request.
// POST /stock-requests
func (h *StockRequestHandler) Submit(c *gin.Context) {
	var req dto.SubmitStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	growerID, ok := h.ParseID(c, "growerId", req.GrowerID)
	if !ok {
		return
	}
	unitID, ok := h.ParseID(c, "unitId", req.UnitID)
	if !ok {
		return
	}
	if !h.RequireGrowerAccess(c, growerID) {
		return
	}

	created, err := h.service.Submit(c.Request.Context(), stockrequest.SubmitInput{
		GrowerID:       growerID,
		UnitID:         unitID,
		RequestedStock: *req.RequestedStock,
		RequestedPrice: req.RequestedPrice,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.alerts.Invalidate(c.Request.Context(), id.ID{})
	h.Created(c, dto.FromStockRequest(created))
}

// Get returns one request.
// GET /stock-requests/:id
func (h *StockRequestHandler) Get(c *gin.Context) {
	requestID, ok := h.ParseID(c, "id", c.Param("id"))
	if !ok {
		return
	}
	req, err := h.service.Get(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !h.RequireGrowerAccess(c, req.GrowerID) {
		return
	}
	h.OK(c, dto.FromStockRequest(req))
}

// ListByGrower returns a grower's requests, newest first.
// GET /growers/:growerId/stock-requests?status=&limit=&offset=
func (h *StockRequestHandler) ListByGrower(c *gin.Context) {
	growerID, ok := h.ParseID(c, "growerId", c.Param("growerId"))
	if !ok {
		return
	}
	if !h.RequireGrowerAccess(c, growerID) {
		return
	}

	filter := stockrequest.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status := stockrequest.Status(raw)
		filter.Status = &status
	}

	items, err := h.service.ListByGrower(c.Request.Context(), growerID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockRequests(items))
}

// Decide approves or rejects a pending request. Admin only.
// POST /stock-requests/:id/decision
func (h *StockRequestHandler) Decide(c *gin.Context) {
	requestID, ok := h.ParseID(c, "id", c.Param("id"))
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	adminID := req.AdminID
	if adminID == "" {
		adminID = appctx.GetUserID(ctx)
	}

	var (
		processed *stockrequest.StockChangeRequest
		err       error
	)
	switch req.Decision {
	case dto.DecisionApprove:
		processed, err = h.service.Approve(ctx, requestID, adminID)
	case dto.DecisionReject:
		processed, err = h.service.Reject(ctx, requestID, adminID, req.Reason)
	default:
		err = apperror.NewValidation("decision must be approve or reject").
			WithDetail("field", "decision").
			WithDetail("value", req.Decision)
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.alerts.Invalidate(ctx, processed.GrowerID)
	h.OK(c, dto.FromStockRequest(processed))
}

// Acknowledge marks the grower's processed requests as viewed. Only the
// grower itself may do this; admins get 403.
// POST /stock-requests/acknowledge
func (h *StockRequestHandler) Acknowledge(c *gin.Context) {
	var req dto.AcknowledgeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	growerID, ok := h.ParseID(c, "growerId", req.GrowerID)
	if !ok {
		return
	}

	in := stockrequest.AcknowledgeInput{
		ActingGrowerID: h.ActingGrowerID(c),
		GrowerID:       growerID,
	}
	// An omitted list means every response; an explicit [] means none.
	if req.RequestIDs != nil {
		in.RequestIDs = make([]id.ID, 0, len(req.RequestIDs))
		for i, raw := range req.RequestIDs {
			rid, ok := h.ParseID(c, fmt.Sprintf("requestIds[%d]", i), raw)
			if !ok {
				return
			}
			in.RequestIDs = append(in.RequestIDs, rid)
		}
	}

	n, err := h.service.Acknowledge(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.alerts.Invalidate(c.Request.Context(), growerID)
	h.OK(c, dto.AcknowledgeResponse{UpdatedCount: n})
}

// PendingCount returns the admin badge (requests awaiting a decision) or,
// with growerId, the grower badge (processed requests not yet viewed).
// GET /stock-requests/pending-count?growerId=
func (h *StockRequestHandler) PendingCount(c *gin.Context) {
	ctx := c.Request.Context()
	raw := c.Query("growerId")
	if raw == "" {
		if !h.IsAdmin(c) {
			h.Error(c, apperror.NewForbidden("pending count is available to admins only"))
			return
		}
		n, err := h.alerts.PendingCount(ctx)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.CountResponse{Count: n})
		return
	}

	growerID, ok := h.ParseID(c, "growerId", raw)
	if !ok {
		return
	}
	if !h.RequireGrowerAccess(c, growerID) {
		return
	}
	n, err := h.alerts.UnviewedCount(ctx, growerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CountResponse{Count: n})
}
