package handlers

import (
	"github.com/gin-gonic/gin"

	"growermarket/internal/domain/commission"
	"growermarket/internal/infrastructure/http/v1/dto"
)

// CommissionHandler exposes the commission resolver.
type CommissionHandler struct {
	*BaseHandler
	service *commission.Service
}

// NewCommissionHandler creates a new commission handler.
func NewCommissionHandler(service *commission.Service) *CommissionHandler {
	return &CommissionHandler{BaseHandler: NewBaseHandler(), service: service}
}

// GrowerCommission returns the effective rate for a grower and where it came from.
// GET /commission/growers/:growerId
func (h *CommissionHandler) GrowerCommission(c *gin.Context) {
	growerID, ok := h.ParseID(c, "growerId", c.Param("growerId"))
	if !ok {
		return
	}
	if !h.RequireGrowerAccess(c, growerID) {
		return
	}
	res, err := h.service.ResolveForGrower(c.Request.Context(), growerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromResolution(growerID.String(), res))
}

// Quote computes the consumer price for a grower's offer on a unit.
// GET /commission/quote?growerId=&unitId=
func (h *CommissionHandler) Quote(c *gin.Context) {
	growerID, ok := h.ParseID(c, "growerId", c.Query("growerId"))
	if !ok {
		return
	}
	unitID, ok := h.ParseID(c, "unitId", c.Query("unitId"))
	if !ok {
		return
	}
	q, err := h.service.Quote(c.Request.Context(), growerID, unitID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromQuote(q))
}
