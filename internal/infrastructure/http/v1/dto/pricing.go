package dto

import (
	"time"

	"growermarket/internal/core/types"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/pricing"
)

// --- Requests ---

// UpdatePriceRequest is the body of PUT /prices.
type UpdatePriceRequest struct {
	GrowerID string       `json:"growerId" binding:"required"`
	UnitID   string       `json:"unitId" binding:"required"`
	Price    *types.Money `json:"price" binding:"required"`
	Stock    *int64       `json:"stock"`
}

// PriceEntryRequest is one line of a batch update.
type PriceEntryRequest struct {
	UnitID string       `json:"unitId"`
	Price  *types.Money `json:"price"`
	Stock  *int64       `json:"stock"`
}

// BatchUpdatePricesRequest is the body of PUT /prices/batch.
type BatchUpdatePricesRequest struct {
	GrowerID string              `json:"growerId" binding:"required"`
	Entries  []PriceEntryRequest `json:"entries"`
}

// --- Responses ---

// GrowerPriceResponse is one grower's offer for a unit.
type GrowerPriceResponse struct {
	ID           string    `json:"id"`
	GrowerID     string    `json:"growerId"`
	UnitID       string    `json:"unitId"`
	Price        float64   `json:"price"`
	Stock        int64     `json:"stock"`
	GrowerName   string    `json:"growerName,omitempty"`
	GrowerAvatar *string   `json:"growerAvatar,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FromGrowerPriceRecord converts a ledger record to response DTO.
func FromGrowerPriceRecord(r ledger.GrowerPriceRecord) GrowerPriceResponse {
	return GrowerPriceResponse{
		ID:           r.ID.String(),
		GrowerID:     r.GrowerID.String(),
		UnitID:       r.UnitID.String(),
		Price:        MoneyValue(r.Price),
		Stock:        r.Stock,
		GrowerName:   r.GrowerName,
		GrowerAvatar: r.GrowerAvatar,
		UpdatedAt:    r.UpdatedAt,
	}
}

// FromGrowerPriceRecords converts a list, never returning nil.
func FromGrowerPriceRecords(records []ledger.GrowerPriceRecord) []GrowerPriceResponse {
	out := make([]GrowerPriceResponse, len(records))
	for i, r := range records {
		out[i] = FromGrowerPriceRecord(r)
	}
	return out
}

// UnitSummaryResponse is the response of GET /units/:unitId/summary.
type UnitSummaryResponse struct {
	UnitID      string                `json:"unitId"`
	Records     []GrowerPriceResponse `json:"records"`
	LowestPrice *float64              `json:"lowestPrice"`
}

// FromUnitPriceSummary converts the aggregator summary.
func FromUnitPriceSummary(s *pricing.UnitPriceSummary) UnitSummaryResponse {
	return UnitSummaryResponse{
		UnitID:      s.UnitID.String(),
		Records:     FromGrowerPriceRecords(s.Records),
		LowestPrice: OptionalMoney(s.LowestPrice),
	}
}

// VariantPriceResponse is one variant of GET /products/:productId/prices.
type VariantPriceResponse struct {
	VariantID    string   `json:"variantId"`
	VariantLabel string   `json:"variantLabel"`
	Quantity     *float64 `json:"quantity,omitempty"`
	UnitSymbol   *string  `json:"unitSymbol,omitempty"`
	LowestPrice  *float64 `json:"lowestPrice"`
}

// FromVariantPriceInfo converts aggregator output.
func FromVariantPriceInfo(infos []pricing.VariantPriceInfo) []VariantPriceResponse {
	out := make([]VariantPriceResponse, len(infos))
	for i, v := range infos {
		out[i] = VariantPriceResponse{
			VariantID:    v.VariantID.String(),
			VariantLabel: v.VariantLabel,
			UnitSymbol:   v.UnitSymbol,
			LowestPrice:  OptionalMoney(v.LowestPrice),
		}
		if v.Quantity != nil {
			q := v.Quantity.InexactFloat64()
			out[i].Quantity = &q
		}
	}
	return out
}

// GlobalStockResponse is the response of GET /products/:productId/stock.
type GlobalStockResponse struct {
	ProductID string `json:"productId"`
	Stock     int64  `json:"stock"`
}

// GrowerProductRecordsResponse lists a grower's offers across a product.
type GrowerProductRecordsResponse struct {
	GrowerID   string                `json:"growerId"`
	ProductID  string                `json:"productId"`
	Records    []GrowerPriceResponse `json:"records"`
	TotalStock int64                 `json:"totalStock"`
}

// FromGrowerProductStock converts ledger output.
func FromGrowerProductStock(s *ledger.GrowerProductStock) GrowerProductRecordsResponse {
	return GrowerProductRecordsResponse{
		GrowerID:   s.GrowerID.String(),
		ProductID:  s.ProductID.String(),
		Records:    FromGrowerPriceRecords(s.Records),
		TotalStock: s.TotalStock,
	}
}
