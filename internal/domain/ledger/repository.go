package ledger

import (
	"context"

	"growermarket/internal/core/id"
)

// Repository defines ledger persistence.
//
// Upsert must be a single atomic insert-or-update keyed by (grower, unit):
// it can never leave two rows for the same pair.
type Repository interface {
	Upsert(ctx context.Context, u PriceUpsert) (*GrowerPriceRecord, error)

	// GetForUpdate returns the record for the pair with a row lock, or an
	// apperror NotFound when the grower has no offer for the unit.
	GetForUpdate(ctx context.Context, growerID, unitID id.ID) (*GrowerPriceRecord, error)

	// ListByUnits returns all records for the given units, joined with grower
	// name and avatar, ordered by unit, price, grower name.
	ListByUnits(ctx context.Context, unitIDs []id.ID) ([]GrowerPriceRecord, error)

	// ListByGrowerAndUnits returns one grower's records for the given units.
	ListByGrowerAndUnits(ctx context.Context, growerID id.ID, unitIDs []id.ID) ([]GrowerPriceRecord, error)
}
