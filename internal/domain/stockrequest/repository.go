package stockrequest

import (
	"context"
	"time"

	"growermarket/internal/core/id"
)

// Repository defines persistence for stock change requests.
type Repository interface {
	// Create inserts a new PENDING request. A second PENDING request for the
	// same (grower, unit) is rejected with an apperror Conflict.
	Create(ctx context.Context, req *StockChangeRequest) error

	// Get returns the request or an apperror NotFound.
	Get(ctx context.Context, requestID id.ID) (*StockChangeRequest, error)

	// Transition moves a request out of PENDING only if it is still PENDING.
	// ok is false when no pending request matched.
	Transition(ctx context.Context, t Transition) (req *StockChangeRequest, ok bool, err error)

	// MarkViewed sets viewed_at on the grower's processed, unviewed requests.
	// A nil requestIDs matches all of them.
	MarkViewed(ctx context.Context, growerID id.ID, requestIDs []id.ID, at time.Time) (int64, error)

	CountPending(ctx context.Context) (int64, error)
	CountUnviewedResponses(ctx context.Context, growerID id.ID) (int64, error)

	// ListByGrower returns the grower's requests, newest first.
	ListByGrower(ctx context.Context, growerID id.ID, filter ListFilter) ([]StockChangeRequest, error)
}

// EventPublisher records workflow events inside the current transaction.
type EventPublisher interface {
	PublishProcessed(ctx context.Context, event ProcessedEvent) error
}
