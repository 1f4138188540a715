// Package stockrequest implements the approval workflow for grower-submitted
// stock and price changes.
//
//	       submit
//	(none) -------> PENDING
//	PENDING --approve--> APPROVED  (terminal)
//	PENDING --reject---> REJECTED  (terminal)
//	APPROVED/REJECTED --acknowledge--> same state, viewed_at set
package stockrequest

import (
	"time"

	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
)

// Status is the workflow state of a request.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// StockChangeRequest is a grower's request to change the available stock
// (and optionally the price) of one sellable unit.
type StockChangeRequest struct {
	ID             id.ID        `db:"id" json:"id"`
	GrowerID       id.ID        `db:"grower_id" json:"growerId"`
	UnitID         id.ID        `db:"unit_id" json:"unitId"`
	RequestedStock int64        `db:"requested_stock" json:"requestedStock"`
	RequestedPrice *types.Money `db:"requested_price" json:"requestedPrice,omitempty"`
	Status         Status       `db:"status" json:"status"`
	SubmittedAt    time.Time    `db:"submitted_at" json:"submittedAt"`

	// Set exactly when the request leaves PENDING.
	ProcessedAt     *time.Time `db:"processed_at" json:"processedAt,omitempty"`
	ProcessedBy     *string    `db:"processed_by" json:"processedBy,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejectionReason,omitempty"`

	// Set only by the submitting grower, after processing.
	ViewedAt *time.Time `db:"viewed_at" json:"viewedAt,omitempty"`
}

// IsUnviewedResponse reports whether the grower still has to acknowledge the outcome.
func (r *StockChangeRequest) IsUnviewedResponse() bool {
	return r.Status.IsTerminal() && r.ProcessedAt != nil && r.ViewedAt == nil
}

// Transition is a compare-and-swap state change from PENDING.
type Transition struct {
	RequestID id.ID
	To        Status
	AdminID   string
	Reason    *string
	At        time.Time
}

// ListFilter narrows request listings.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// ProcessedEvent is emitted when a request is approved or rejected so the
// grower can be notified.
type ProcessedEvent struct {
	RequestID      id.ID     `json:"requestId"`
	GrowerID       id.ID     `json:"growerId"`
	UnitID         id.ID     `json:"unitId"`
	Status         Status    `json:"status"`
	RequestedStock int64     `json:"requestedStock"`
	Reason         *string   `json:"reason,omitempty"`
	ProcessedAt    time.Time `json:"processedAt"`
}

// EventTypeProcessed is the outbox event type of ProcessedEvent.
const EventTypeProcessed = "stock_request.processed"
