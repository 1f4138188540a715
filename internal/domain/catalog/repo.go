package catalog

import (
	"context"

	"growermarket/internal/core/id"
)

// Repository defines read-only catalog lookups.
// Implementations return apperror NotFound for unknown ids.
type Repository interface {
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)
	GetUnit(ctx context.Context, unitID id.ID) (*SellableUnit, error)
	GetGrower(ctx context.Context, growerID id.ID) (*Grower, error)

	// ListUnitsByProduct returns the product's units in catalog order
	// (position, then id).
	ListUnitsByProduct(ctx context.Context, productID id.ID) ([]SellableUnit, error)

	// ExistingUnitIDs returns the subset of unitIDs that exist.
	ExistingUnitIDs(ctx context.Context, unitIDs []id.ID) (map[id.ID]bool, error)
}
