package commission

import (
	"context"
	"fmt"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/core/settings"
	"growermarket/internal/domain/catalog"
	"growermarket/internal/domain/ledger"
)

// Quote is a grower's ledger offer priced for the consumer.
type Quote struct {
	GrowerID    id.ID
	UnitID      id.ID
	Stock       int64
	Resolution  Resolution
	Calculation Calculation
}

// Service resolves commission policies from stored configuration.
type Service struct {
	catalog  catalog.Repository
	ledger   ledger.Repository
	settings settings.Provider
}

// NewService creates a commission service.
func NewService(catalogRepo catalog.Repository, ledgerRepo ledger.Repository, provider settings.Provider) *Service {
	return &Service{catalog: catalogRepo, ledger: ledgerRepo, settings: provider}
}

// PolicyForGrower reads the session rate (at call time) and the grower override.
func (s *Service) PolicyForGrower(ctx context.Context, growerID id.ID) (Policy, error) {
	grower, err := s.catalog.GetGrower(ctx, growerID)
	if err != nil {
		return Policy{}, err
	}
	sessionRate, err := s.settings.SessionCommissionRate(ctx)
	if err != nil {
		return Policy{}, fmt.Errorf("read session commission rate: %w", err)
	}
	return Policy{SessionRate: sessionRate, GrowerRate: grower.CommissionRate}, nil
}

// ResolveForGrower returns the effective commission for sales by growerID.
func (s *Service) ResolveForGrower(ctx context.Context, growerID id.ID) (Resolution, error) {
	policy, err := s.PolicyForGrower(ctx, growerID)
	if err != nil {
		return Resolution{}, err
	}
	return Resolve(policy)
}

// Quote prices the grower's current ledger offer for unitID.
func (s *Service) Quote(ctx context.Context, growerID, unitID id.ID) (*Quote, error) {
	if _, err := s.catalog.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	res, err := s.ResolveForGrower(ctx, growerID)
	if err != nil {
		return nil, err
	}

	records, err := s.ledger.ListByGrowerAndUnits(ctx, growerID, []id.ID{unitID})
	if err != nil {
		return nil, fmt.Errorf("lookup offer: %w", err)
	}
	if len(records) == 0 {
		return nil, apperror.NewNotFound("price record", growerID.String()+"/"+unitID.String())
	}

	calc, err := ComputeFinalPrice(records[0].Price, res)
	if err != nil {
		return nil, err
	}
	return &Quote{
		GrowerID:    growerID,
		UnitID:      unitID,
		Stock:       records[0].Stock,
		Resolution:  res,
		Calculation: calc,
	}, nil
}
