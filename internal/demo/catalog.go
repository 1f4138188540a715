// Package demo holds the fixed catalog used by local development: the
// in-memory server and cmd/seed load the same products and growers so tokens
// printed by the seeder work against either.
package demo

import (
	"github.com/shopspring/decimal"

	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/catalog"
)

// Fixed identifiers so repeated seeding is idempotent.
var (
	TomatoesID   = id.MustParse("0b5c6f1e-5a43-4d5e-9f0e-1d2a3b4c5d01")
	Tomatoes500  = id.MustParse("0b5c6f1e-5a43-4d5e-9f0e-1d2a3b4c5d02")
	Tomatoes1000 = id.MustParse("0b5c6f1e-5a43-4d5e-9f0e-1d2a3b4c5d03")
	HoneyID      = id.MustParse("0b5c6f1e-5a43-4d5e-9f0e-1d2a3b4c5d04")

	GreenAcresID = id.MustParse("7d1e2f3a-4b5c-4d6e-8f90-a1b2c3d4e501")
	HillsideID   = id.MustParse("7d1e2f3a-4b5c-4d6e-8f90-a1b2c3d4e502")
)

// Catalog is a set of catalog rows to load.
type Catalog struct {
	Products []catalog.Product
	Units    []catalog.SellableUnit
	Growers  []catalog.Grower
}

// Data returns the demo catalog. Honey has no variants, so its single unit
// shares the product ID.
func Data() Catalog {
	grams := "g"
	customRate := types.MustRate("0.10")
	return Catalog{
		Products: []catalog.Product{
			{ID: TomatoesID, Name: "Heirloom tomatoes"},
			{ID: HoneyID, Name: "Wildflower honey"},
		},
		Units: []catalog.SellableUnit{
			{ID: Tomatoes500, ProductID: TomatoesID, Label: "500 g", Quantity: ptr(decimal.NewFromInt(500)), UnitSymbol: &grams, Position: 0},
			{ID: Tomatoes1000, ProductID: TomatoesID, Label: "1 kg", Quantity: ptr(decimal.NewFromInt(1000)), UnitSymbol: &grams, Position: 1},
			{ID: HoneyID, ProductID: HoneyID, Label: "Jar", Position: 0},
		},
		Growers: []catalog.Grower{
			{ID: GreenAcresID, Name: "Green Acres"},
			{ID: HillsideID, Name: "Hillside Farm", CommissionRate: &customRate},
		},
	}
}

func ptr[T any](v T) *T { return &v }
