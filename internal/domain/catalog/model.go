// Package catalog provides read access to products, sellable units and growers.
// Catalog maintenance itself happens elsewhere; the pricing core only looks
// entities up to validate references and to decorate responses.
package catalog

import (
	"github.com/shopspring/decimal"

	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
)

// Product groups one or more sellable units.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// SellableUnit is a product variant (size, weight option) at which growers
// price and stock inventory. A product without variants has a single unit
// whose ID equals the product ID.
type SellableUnit struct {
	ID        id.ID  `db:"id" json:"id"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	Label     string `db:"label" json:"label"`

	// Quantity is the amount sold per unit (e.g. 500 for "500 g"), optional.
	Quantity *decimal.Decimal `db:"quantity" json:"quantity,omitempty"`

	// UnitSymbol is the unit of measure symbol (e.g. "g", "kg"), optional.
	UnitSymbol *string `db:"unit_symbol" json:"unitSymbol,omitempty"`

	// Position is the declared catalog order within the product.
	Position int `db:"position" json:"position"`
}

// Grower is an independent seller.
type Grower struct {
	ID        id.ID   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	AvatarURL *string `db:"avatar_url" json:"avatarUrl,omitempty"`

	// CommissionRate overrides the session rate for this grower when set.
	CommissionRate *types.Rate `db:"commission_rate" json:"commissionRate,omitempty"`
}
