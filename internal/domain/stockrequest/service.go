package stockrequest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/core/tx"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/catalog"
	"growermarket/internal/domain/ledger"
	"growermarket/pkg/logger"
)

var tracer = otel.Tracer("growermarket/stockrequest")

const entityName = "stock request"

// SubmitInput is a grower's stock change request.
type SubmitInput struct {
	GrowerID       id.ID
	UnitID         id.ID
	RequestedStock int64
	RequestedPrice *types.Money
}

// Service is the stock change approval workflow.
type Service struct {
	repo      Repository
	catalog   catalog.Repository
	ledger    *ledger.Service
	events    EventPublisher
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates the workflow service.
func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	ledgerService *ledger.Service,
	events EventPublisher,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalogRepo,
		ledger:    ledgerService,
		events:    events,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a new PENDING request.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*StockChangeRequest, error) {
	if id.IsNil(in.GrowerID) {
		return nil, apperror.NewValidation("growerId is required").WithDetail("field", "growerId")
	}
	if id.IsNil(in.UnitID) {
		return nil, apperror.NewValidation("unitId is required").WithDetail("field", "unitId")
	}
	if err := types.ValidateStock("requestedStock", in.RequestedStock); err != nil {
		return nil, err
	}
	if in.RequestedPrice != nil {
		if err := types.ValidatePrice("requestedPrice", *in.RequestedPrice); err != nil {
			return nil, err
		}
	}
	if _, err := s.catalog.GetGrower(ctx, in.GrowerID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetUnit(ctx, in.UnitID); err != nil {
		return nil, err
	}
	if in.RequestedPrice == nil {
		hasOffer, err := s.ledger.HasOffer(ctx, in.GrowerID, in.UnitID)
		if err != nil {
			return nil, err
		}
		if !hasOffer {
			return nil, apperror.NewValidation("requestedPrice is required for a grower's first offer on a unit").
				WithDetail("field", "requestedPrice")
		}
	}

	req := &StockChangeRequest{
		ID:             id.New(),
		GrowerID:       in.GrowerID,
		UnitID:         in.UnitID,
		RequestedStock: in.RequestedStock,
		RequestedPrice: in.RequestedPrice,
		Status:         StatusPending,
		SubmittedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock request submitted",
		"stock_request_id", req.ID,
		"grower_id", req.GrowerID,
		"unit_id", req.UnitID,
		"requested_stock", req.RequestedStock,
	)
	return req, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, requestID id.ID) (*StockChangeRequest, error) {
	return s.repo.Get(ctx, requestID)
}

// ListByGrower returns the grower's requests, newest first.
func (s *Service) ListByGrower(ctx context.Context, growerID id.ID, filter ListFilter) ([]StockChangeRequest, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperror.NewValidation("invalid status filter").WithDetail("value", string(*filter.Status))
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListByGrower(ctx, growerID, filter)
}

// Approve moves a PENDING request to APPROVED and commits the requested
// stock to the ledger. Both happen in one transaction: if the ledger write
// fails the request stays PENDING.
func (s *Service) Approve(ctx context.Context, requestID id.ID, adminID string) (*StockChangeRequest, error) {
	ctx, span := tracer.Start(ctx, "stockrequest.Approve",
		trace.WithAttributes(attribute.String("request.id", requestID.String())))
	defer span.End()

	if err := validateAdmin(adminID); err != nil {
		return nil, err
	}

	var approved *StockChangeRequest
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		req, err := s.transition(ctx, Transition{
			RequestID: requestID,
			To:        StatusApproved,
			AdminID:   adminID,
			At:        s.now(),
		})
		if err != nil {
			return err
		}

		if _, err := s.ledger.CommitStockChange(ctx, req.GrowerID, req.UnitID, req.RequestedStock, req.RequestedPrice); err != nil {
			return fmt.Errorf("commit approved stock: %w", err)
		}
		if err := s.publish(ctx, req); err != nil {
			return err
		}
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock request approved",
		"stock_request_id", approved.ID,
		"grower_id", approved.GrowerID,
		"admin_id", adminID,
	)
	return approved, nil
}

// Reject moves a PENDING request to REJECTED. The ledger is untouched.
func (s *Service) Reject(ctx context.Context, requestID id.ID, adminID string, reason *string) (*StockChangeRequest, error) {
	ctx, span := tracer.Start(ctx, "stockrequest.Reject",
		trace.WithAttributes(attribute.String("request.id", requestID.String())))
	defer span.End()

	if err := validateAdmin(adminID); err != nil {
		return nil, err
	}
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}

	var rejected *StockChangeRequest
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		req, err := s.transition(ctx, Transition{
			RequestID: requestID,
			To:        StatusRejected,
			AdminID:   adminID,
			Reason:    reason,
			At:        s.now(),
		})
		if err != nil {
			return err
		}
		if err := s.publish(ctx, req); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock request rejected",
		"stock_request_id", rejected.ID,
		"grower_id", rejected.GrowerID,
		"admin_id", adminID,
	)
	return rejected, nil
}

// AcknowledgeInput is a grower's acknowledgment of processed requests.
type AcknowledgeInput struct {
	// ActingGrowerID is the authenticated caller. It must be GrowerID:
	// nobody else, admins included, may mark a grower's responses viewed.
	ActingGrowerID id.ID
	GrowerID       id.ID
	// RequestIDs selects requests to acknowledge. nil means every processed,
	// unviewed request of the grower; an empty non-nil slice means none.
	RequestIDs []id.ID
}

// Acknowledge marks the grower's processed, unviewed requests as viewed.
// Pending requests and other growers' requests are never touched.
func (s *Service) Acknowledge(ctx context.Context, in AcknowledgeInput) (int64, error) {
	if id.IsNil(in.GrowerID) {
		return 0, apperror.NewValidation("growerId is required").WithDetail("field", "growerId")
	}
	if id.IsNil(in.ActingGrowerID) || in.ActingGrowerID != in.GrowerID {
		return 0, apperror.NewForbidden("only the grower can acknowledge its responses").
			WithDetail("growerId", in.GrowerID.String())
	}
	if in.RequestIDs != nil && len(in.RequestIDs) == 0 {
		return 0, nil
	}

	n, err := s.repo.MarkViewed(ctx, in.GrowerID, in.RequestIDs, s.now())
	if err != nil {
		return 0, err
	}

	logger.Debug(ctx, "stock request responses acknowledged",
		"grower_id", in.GrowerID,
		"count", n,
	)
	return n, nil
}

// CountPending returns the number of requests awaiting an admin decision.
func (s *Service) CountPending(ctx context.Context) (int64, error) {
	return s.repo.CountPending(ctx)
}

// CountUnviewedResponses returns how many processed requests the grower has not acknowledged.
func (s *Service) CountUnviewedResponses(ctx context.Context, growerID id.ID) (int64, error) {
	if id.IsNil(growerID) {
		return 0, apperror.NewValidation("growerId is required").WithDetail("field", "growerId")
	}
	return s.repo.CountUnviewedResponses(ctx, growerID)
}

// transition performs the compare-and-swap and explains a miss.
func (s *Service) transition(ctx context.Context, t Transition) (*StockChangeRequest, error) {
	req, ok, err := s.repo.Transition(ctx, t)
	if err != nil {
		return nil, err
	}
	if ok {
		return req, nil
	}

	current, err := s.repo.Get(ctx, t.RequestID)
	if err != nil {
		return nil, err
	}
	return nil, apperror.NewAlreadyProcessed(entityName, t.RequestID.String(), string(current.Status))
}

func (s *Service) publish(ctx context.Context, req *StockChangeRequest) error {
	if s.events == nil {
		return nil
	}
	event := ProcessedEvent{
		RequestID:      req.ID,
		GrowerID:       req.GrowerID,
		UnitID:         req.UnitID,
		Status:         req.Status,
		RequestedStock: req.RequestedStock,
		Reason:         req.RejectionReason,
	}
	if req.ProcessedAt != nil {
		event.ProcessedAt = *req.ProcessedAt
	}
	if err := s.events.PublishProcessed(ctx, event); err != nil {
		return fmt.Errorf("publish processed event: %w", err)
	}
	return nil
}

func validateAdmin(adminID string) error {
	if strings.TrimSpace(adminID) == "" {
		return apperror.NewValidation("adminId is required").WithDetail("field", "adminId")
	}
	return nil
}
