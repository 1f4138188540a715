package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/pricing"
	"growermarket/internal/infrastructure/http/v1/dto"
)

// PricingHandler serves ledger reads and writes and price aggregates.
type PricingHandler struct {
	*BaseHandler
	ledger     *ledger.Service
	aggregator *pricing.Aggregator
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(ledgerService *ledger.Service, aggregator *pricing.Aggregator) *PricingHandler {
	return &PricingHandler{
		BaseHandler: NewBaseHandler(),
		ledger:      ledgerService,
		aggregator:  aggregator,
	}
}

// ProductPrices returns the lowest in-stock price per variant.
// GET /products/:productId/prices
func (h *PricingHandler) ProductPrices(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId", c.Param("productId"))
	if !ok {
		return
	}
	infos, err := h.aggregator.GetProductPriceInfo(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVariantPriceInfo(infos))
}

// GlobalStock returns stock summed over every grower and variant.
// GET /products/:productId/stock
func (h *PricingHandler) GlobalStock(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId", c.Param("productId"))
	if !ok {
		return
	}
	stock, err := h.aggregator.GetGlobalStock(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.GlobalStockResponse{ProductID: productID.String(), Stock: stock})
}

// UnitPrices lists every grower's offer for a unit.
// GET /units/:unitId/prices
func (h *PricingHandler) UnitPrices(c *gin.Context) {
	unitID, ok := h.ParseID(c, "unitId", c.Param("unitId"))
	if !ok {
		return
	}
	records, err := h.ledger.GetRecordsForUnit(c.Request.Context(), unitID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromGrowerPriceRecords(records))
}

// UnitSummary returns the offers for a unit with the lowest in-stock price.
// GET /units/:unitId/summary
func (h *PricingHandler) UnitSummary(c *gin.Context) {
	unitID, ok := h.ParseID(c, "unitId", c.Param("unitId"))
	if !ok {
		return
	}
	summary, err := h.aggregator.GetUnitPriceSummary(c.Request.Context(), unitID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromUnitPriceSummary(summary))
}

// GrowerProductRecords returns one grower's offers across a product.
// GET /growers/:growerId/products/:productId/records
func (h *PricingHandler) GrowerProductRecords(c *gin.Context) {
	growerID, ok := h.ParseID(c, "growerId", c.Param("growerId"))
	if !ok {
		return
	}
	productID, ok := h.ParseID(c, "productId", c.Param("productId"))
	if !ok {
		return
	}
	if !h.RequireGrowerAccess(c, growerID) {
		return
	}
	result, err := h.ledger.GetRecordsForGrowerAndProduct(c.Request.Context(), growerID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromGrowerProductStock(result))
}

// UpdatePrice upserts one ledger record.
// PUT /prices
func (h *PricingHandler) UpdatePrice(c *gin.Context) {
	var req dto.UpdatePriceRequest
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

	if _, err := h.ledger.UpsertPrice(c.Request.Context(), growerID, unitID, *req.Price, req.Stock); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "")
}

// BatchUpdatePrices upserts several records for one grower atomically.
// PUT /prices/batch
func (h *PricingHandler) BatchUpdatePrices(c *gin.Context) {
	var req dto.BatchUpdatePricesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	growerID, ok := h.ParseID(c, "growerId", req.GrowerID)
	if !ok {
		return
	}
	if !h.RequireGrowerAccess(c, growerID) {
		return
	}

	entries := make([]ledger.PriceEntry, len(req.Entries))
	for i, e := range req.Entries {
		unitID, ok := h.ParseID(c, fmt.Sprintf("entries[%d].unitId", i), e.UnitID)
		if !ok {
			return
		}
		entries[i] = ledger.PriceEntry{UnitID: unitID, Stock: e.Stock}
		if e.Price == nil {
			h.Error(c, missingField(fmt.Sprintf("entries[%d].price", i)))
			return
		}
		entries[i].Price = *e.Price
	}

	if _, err := h.ledger.BatchUpsertPrices(c.Request.Context(), growerID, entries); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "")
}
