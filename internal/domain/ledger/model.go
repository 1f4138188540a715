// Package ledger is the authoritative store of grower price and stock offers:
// exactly one record per (grower, sellable unit).
package ledger

import (
	"time"

	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
)

// GrowerPriceRecord ties one grower to one sellable unit.
type GrowerPriceRecord struct {
	ID        id.ID       `db:"id" json:"id"`
	GrowerID  id.ID       `db:"grower_id" json:"growerId"`
	UnitID    id.ID       `db:"unit_id" json:"unitId"`
	Price     types.Money `db:"price" json:"price"`
	Stock     int64       `db:"stock" json:"stock"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`

	// Presentation fields joined from the grower catalog on read paths.
	GrowerName   string  `db:"grower_name" json:"growerName,omitempty"`
	GrowerAvatar *string `db:"grower_avatar" json:"growerAvatar,omitempty"`
}

// InStock reports whether the grower currently offers the unit.
func (r GrowerPriceRecord) InStock() bool {
	return r.Stock > 0
}

// PriceUpsert is the single write primitive of the ledger.
type PriceUpsert struct {
	GrowerID id.ID
	UnitID   id.ID
	Price    types.Money
	// Stock nil keeps the current stock of an existing record (0 for a new one).
	Stock *int64
	At    time.Time
}

// PriceEntry is one line of a batch update.
type PriceEntry struct {
	UnitID id.ID
	Price  types.Money
	Stock  *int64
}

// GrowerProductStock is a grower's offers across all variants of one product.
type GrowerProductStock struct {
	GrowerID   id.ID
	ProductID  id.ID
	Records    []GrowerPriceRecord
	TotalStock int64
}
