package dto

import (
	"time"

	"growermarket/internal/core/types"
	"growermarket/internal/domain/stockrequest"
)

// Decision values of DecisionRequest.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// SubmitStockRequest is the body of POST /stock-requests.
type SubmitStockRequest struct {
	GrowerID       string       `json:"growerId" binding:"required"`
	UnitID         string       `json:"unitId" binding:"required"`
	RequestedStock *int64       `json:"requestedStock" binding:"required"`
	RequestedPrice *types.Money `json:"requestedPrice"`
}

// DecisionRequest is the body of POST /stock-requests/:id/decision.
type DecisionRequest struct {
	AdminID  string  `json:"adminId"`
	Decision string  `json:"decision" binding:"required,oneof=approve reject"`
	Reason   *string `json:"reason"`
}

// AcknowledgeRequest is the body of POST /stock-requests/acknowledge.
type AcknowledgeRequest struct {
	GrowerID string `json:"growerId" binding:"required"`
	// Omitted (nil) acknowledges every processed request; [] acknowledges none.
	RequestIDs []string `json:"requestIds"`
}

// AcknowledgeResponse reports how many requests were marked viewed.
type AcknowledgeResponse struct {
	UpdatedCount int64 `json:"updatedCount"`
}

// StockRequestResponse represents a stock change request in API responses.
type StockRequestResponse struct {
	ID              string     `json:"id"`
	GrowerID        string     `json:"growerId"`
	UnitID          string     `json:"unitId"`
	RequestedStock  int64      `json:"requestedStock"`
	RequestedPrice  *float64   `json:"requestedPrice,omitempty"`
	Status          string     `json:"status"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
	ProcessedBy     *string    `json:"processedBy,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	ViewedAt        *time.Time `json:"viewedAt,omitempty"`
}

// FromStockRequest converts entity to response DTO.
func FromStockRequest(r *stockrequest.StockChangeRequest) StockRequestResponse {
	return StockRequestResponse{
		ID:              r.ID.String(),
		GrowerID:        r.GrowerID.String(),
		UnitID:          r.UnitID.String(),
		RequestedStock:  r.RequestedStock,
		RequestedPrice:  OptionalMoney(r.RequestedPrice),
		Status:          string(r.Status),
		SubmittedAt:     r.SubmittedAt,
		ProcessedAt:     r.ProcessedAt,
		ProcessedBy:     r.ProcessedBy,
		RejectionReason: r.RejectionReason,
		ViewedAt:        r.ViewedAt,
	}
}

// FromStockRequests converts a list, never returning nil.
func FromStockRequests(requests []stockrequest.StockChangeRequest) []StockRequestResponse {
	out := make([]StockRequestResponse, len(requests))
	for i := range requests {
		out[i] = FromStockRequest(&requests[i])
	}
	return out
}
