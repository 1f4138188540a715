package dto

import (
	"growermarket/internal/domain/commission"
)

// CommissionResponse is the response of GET /commission/growers/:growerId.
type CommissionResponse struct {
	GrowerID      string   `json:"growerId"`
	EffectiveRate float64  `json:"effectiveRate"`
	SessionRate   float64  `json:"sessionRate"`
	GrowerRate    *float64 `json:"growerRate"`
	IsCustomRate  bool     `json:"isCustomRate"`
	Source        string   `json:"source"`
}

// FromResolution converts a commission resolution.
func FromResolution(growerID string, r commission.Resolution) CommissionResponse {
	resp := CommissionResponse{
		GrowerID:      growerID,
		EffectiveRate: r.EffectiveRate.InexactFloat64(),
		SessionRate:   r.SessionRate.InexactFloat64(),
		IsCustomRate:  r.IsCustomRate,
		Source:        string(r.Source),
	}
	if r.GrowerRate != nil {
		v := r.GrowerRate.InexactFloat64()
		resp.GrowerRate = &v
	}
	return resp
}

// QuoteResponse is the response of GET /commission/quote.
type QuoteResponse struct {
	GrowerID         string  `json:"growerId"`
	UnitID           string  `json:"unitId"`
	Stock            int64   `json:"stock"`
	BasePrice        float64 `json:"basePrice"`
	EffectiveRate    float64 `json:"effectiveRate"`
	CommissionAmount float64 `json:"commissionAmount"`
	FinalPrice       float64 `json:"finalPrice"`
	Source           string  `json:"source"`
	IsCustomRate     bool    `json:"isCustomRate"`
}

// FromQuote converts a commission quote.
func FromQuote(q *commission.Quote) QuoteResponse {
	c := q.Calculation
	return QuoteResponse{
		GrowerID:         q.GrowerID.String(),
		UnitID:           q.UnitID.String(),
		Stock:            q.Stock,
		BasePrice:        MoneyValue(c.BasePrice),
		EffectiveRate:    c.EffectiveRate.InexactFloat64(),
		CommissionAmount: MoneyValue(c.CommissionAmount),
		FinalPrice:       MoneyValue(c.FinalPrice),
		Source:           string(c.Source),
		IsCustomRate:     c.IsCustomRate,
	}
}
