// Package pricing derives consumer-facing price summaries from the ledger.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/catalog"
	"growermarket/internal/domain/ledger"
)

var tracer = otel.Tracer("growermarket/pricing")

// UnitPriceSummary is every grower offer for a unit plus the lowest in-stock price.
type UnitPriceSummary struct {
	UnitID  id.ID
	Records []ledger.GrowerPriceRecord
	// LowestPrice is nil when no grower has stock. Zero is a valid price.
	LowestPrice *types.Money
}

// VariantPriceInfo describes one variant of a product for the storefront.
type VariantPriceInfo struct {
	VariantID    id.ID
	VariantLabel string
	Quantity     *decimal.Decimal
	UnitSymbol   *string
	LowestPrice  *types.Money
}

// Aggregator reads the ledger to build price summaries on demand.
type Aggregator struct {
	ledger  ledger.Repository
	catalog catalog.Repository
}

// NewAggregator creates a pricing aggregator.
func NewAggregator(ledgerRepo ledger.Repository, catalogRepo catalog.Repository) *Aggregator {
	return &Aggregator{ledger: ledgerRepo, catalog: catalogRepo}
}

// GetUnitPriceSummary returns all offers for the unit and the lowest in-stock price.
func (a *Aggregator) GetUnitPriceSummary(ctx context.Context, unitID id.ID) (*UnitPriceSummary, error) {
	ctx, span := tracer.Start(ctx, "pricing.GetUnitPriceSummary",
		trace.WithAttributes(attribute.String("unit.id", unitID.String())))
	defer span.End()

	if _, err := a.catalog.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	records, err := a.ledger.ListByUnits(ctx, []id.ID{unitID})
	if err != nil {
		return nil, fmt.Errorf("list unit records: %w", err)
	}
	return &UnitPriceSummary{
		UnitID:      unitID,
		Records:     records,
		LowestPrice: LowestInStock(records),
	}, nil
}

// GetProductPriceInfo returns a price line per variant, in catalog order.
func (a *Aggregator) GetProductPriceInfo(ctx context.Context, productID id.ID) ([]VariantPriceInfo, error) {
	ctx, span := tracer.Start(ctx, "pricing.GetProductPriceInfo",
		trace.WithAttributes(attribute.String("product.id", productID.String())))
	defer span.End()

	units, records, err := a.productRecords(ctx, productID)
	if err != nil {
		return nil, err
	}

	byUnit := make(map[id.ID][]ledger.GrowerPriceRecord, len(units))
	for _, r := range records {
		byUnit[r.UnitID] = append(byUnit[r.UnitID], r)
	}

	infos := make([]VariantPriceInfo, 0, len(units))
	for _, u := range units {
		infos = append(infos, VariantPriceInfo{
			VariantID:    u.ID,
			VariantLabel: u.Label,
			Quantity:     u.Quantity,
			UnitSymbol:   u.UnitSymbol,
			LowestPrice:  LowestInStock(byUnit[u.ID]),
		})
	}
	return infos, nil
}

// GetGlobalStock sums stock across every grower and variant of the product.
// A product nobody stocks has zero stock.
func (a *Aggregator) GetGlobalStock(ctx context.Context, productID id.ID) (int64, error) {
	_, records, err := a.productRecords(ctx, productID)
	if err != nil {
		return 0, err
	}
	return ledger.SumStock(records), nil
}

func (a *Aggregator) productRecords(ctx context.Context, productID id.ID) ([]catalog.SellableUnit, []ledger.GrowerPriceRecord, error) {
	if _, err := a.catalog.GetProduct(ctx, productID); err != nil {
		return nil, nil, err
	}
	units, err := a.catalog.ListUnitsByProduct(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 {
		return units, nil, nil
	}

	ids := make([]id.ID, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	records, err := a.ledger.ListByUnits(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("list product records: %w", err)
	}
	return units, records, nil
}

// LowestInStock returns the minimum price among records with positive stock,
// or nil when no record has stock.
func LowestInStock(records []ledger.GrowerPriceRecord) *types.Money {
	var lowest *types.Money
	for i := range records {
		if !records[i].InStock() {
			continue
		}
		if lowest == nil || records[i].Price.LessThan(*lowest) {
			p := records[i].Price
			lowest = &p
		}
	}
	return lowest
}
