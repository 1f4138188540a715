package ledger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/core/settings"
	"growermarket/internal/core/tx"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/catalog"
	"growermarket/pkg/logger"
)

var tracer = otel.Tracer("growermarket/ledger")

// Service provides business operations for the price ledger.
// All ledger mutation in the process goes through this service.
type Service struct {
	repo      Repository
	catalog   catalog.Repository
	txManager tx.Manager
	settings  settings.Provider
	now       func() time.Time
}

// NewService creates a new ledger service.
func NewService(repo Repository, catalogRepo catalog.Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalogRepo,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithSettings enables the stock approval guard: while RequireStockApproval
// is on, direct updates may change prices but not stock.
func (s *Service) WithSettings(p settings.Provider) *Service {
	s.settings = p
	return s
}

// UpsertPrice creates or updates the single record for (growerID, unitID).
// A nil stock keeps the current stock level.
func (s *Service) UpsertPrice(ctx context.Context, growerID, unitID id.ID, price types.Money, stock *int64) (*GrowerPriceRecord, error) {
	ctx, span := tracer.Start(ctx, "ledger.UpsertPrice", trace.WithAttributes(
		attribute.String("grower.id", growerID.String()),
		attribute.String("unit.id", unitID.String()),
	))
	defer span.End()

	if err := validateEntry("", unitID, price, stock); err != nil {
		return nil, err
	}
	if err := s.guardDirectStock(ctx, stock != nil); err != nil {
		return nil, err
	}
	if err := s.ensureGrower(ctx, growerID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}

	rec, err := s.repo.Upsert(ctx, PriceUpsert{
		GrowerID: growerID,
		UnitID:   unitID,
		Price:    price,
		Stock:    stock,
		At:       s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert price: %w", err)
	}

	logger.Info(ctx, "grower price updated",
		"grower_id", growerID,
		"unit_id", unitID,
		"price", price.String(),
		"stock", rec.Stock,
	)
	return rec, nil
}

// BatchUpsertPrices applies several unit updates for one grower as one unit of
// work. Every entry is validated before anything is written; any invalid entry
// rejects the whole batch.
func (s *Service) BatchUpsertPrices(ctx context.Context, growerID id.ID, entries []PriceEntry) ([]GrowerPriceRecord, error) {
	ctx, span := tracer.Start(ctx, "ledger.BatchUpsertPrices", trace.WithAttributes(
		attribute.String("grower.id", growerID.String()),
		attribute.Int("entries", len(entries)),
	))
	defer span.End()

	if len(entries) == 0 {
		return nil, apperror.NewValidation("entries must not be empty").WithDetail("field", "entries")
	}

	seen := make(map[id.ID]int, len(entries))
	unitIDs := make([]id.ID, 0, len(entries))
	carriesStock := false
	for i, e := range entries {
		prefix := fmt.Sprintf("entries[%d].", i)
		if err := validateEntry(prefix, e.UnitID, e.Price, e.Stock); err != nil {
			return nil, err
		}
		if first, dup := seen[e.UnitID]; dup {
			return nil, apperror.NewValidation("duplicate unit in batch").
				WithDetail("field", prefix+"unitId").
				WithDetail("firstIndex", first)
		}
		seen[e.UnitID] = i
		unitIDs = append(unitIDs, e.UnitID)
		carriesStock = carriesStock || e.Stock != nil
	}
	if err := s.guardDirectStock(ctx, carriesStock); err != nil {
		return nil, err
	}

	if err := s.ensureGrower(ctx, growerID); err != nil {
		return nil, err
	}
	existing, err := s.catalog.ExistingUnitIDs(ctx, unitIDs)
	if err != nil {
		return nil, fmt.Errorf("check units: %w", err)
	}
	for i, uid := range unitIDs {
		if !existing[uid] {
			return nil, apperror.NewNotFound("unit", uid.String()).
				WithDetail("field", fmt.Sprintf("entries[%d].unitId", i))
		}
	}

	now := s.now()
	records := make([]GrowerPriceRecord, 0, len(entries))
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, e := range entries {
			rec, err := s.repo.Upsert(ctx, PriceUpsert{
				GrowerID: growerID,
				UnitID:   e.UnitID,
				Price:    e.Price,
				Stock:    e.Stock,
				At:       now,
			})
			if err != nil {
				return fmt.Errorf("upsert unit %s: %w", e.UnitID, err)
			}
			records = append(records, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "grower prices updated in batch",
		"grower_id", growerID,
		"count", len(records),
	)
	return records, nil
}

// GetRecordsForUnit returns every grower's offer for a unit, with grower identity.
func (s *Service) GetRecordsForUnit(ctx context.Context, unitID id.ID) ([]GrowerPriceRecord, error) {
	if _, err := s.catalog.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByUnits(ctx, []id.ID{unitID})
	if err != nil {
		return nil, fmt.Errorf("list records for unit: %w", err)
	}
	return records, nil
}

// GetRecordsForGrowerAndProduct returns the grower's offers across every
// variant of the product together with the summed stock.
func (s *Service) GetRecordsForGrowerAndProduct(ctx context.Context, growerID, productID id.ID) (*GrowerProductStock, error) {
	if err := s.ensureGrower(ctx, growerID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	units, err := s.catalog.ListUnitsByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	result := &GrowerProductStock{GrowerID: growerID, ProductID: productID, Records: []GrowerPriceRecord{}}
	if len(units) == 0 {
		return result, nil
	}

	records, err := s.repo.ListByGrowerAndUnits(ctx, growerID, unitIDs(units))
	if err != nil {
		return nil, fmt.Errorf("list grower records: %w", err)
	}
	result.Records = records
	result.TotalStock = SumStock(records)
	return result, nil
}

// CommitStockChange writes an approved stock level into the ledger. The
// existing price is kept unless price is given; a grower without an existing
// record for the unit must supply a price.
//
// Runs inside the caller's transaction when there is one.
func (s *Service) CommitStockChange(ctx context.Context, growerID, unitID id.ID, stock int64, price *types.Money) (*GrowerPriceRecord, error) {
	if err := types.ValidateStock("stock", stock); err != nil {
		return nil, err
	}
	if price != nil {
		if err := types.ValidatePrice("price", *price); err != nil {
			return nil, err
		}
	}

	var rec *GrowerPriceRecord
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		newPrice, err := s.resolveCommitPrice(ctx, growerID, unitID, price)
		if err != nil {
			return err
		}
		rec, err = s.repo.Upsert(ctx, PriceUpsert{
			GrowerID: growerID,
			UnitID:   unitID,
			Price:    newPrice,
			Stock:    &stock,
			At:       s.now(),
		})
		if err != nil {
			return fmt.Errorf("commit stock change: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// HasOffer reports whether the grower already has a ledger record for the unit.
func (s *Service) HasOffer(ctx context.Context, growerID, unitID id.ID) (bool, error) {
	records, err := s.repo.ListByGrowerAndUnits(ctx, growerID, []id.ID{unitID})
	if err != nil {
		return false, fmt.Errorf("lookup offer: %w", err)
	}
	return len(records) > 0, nil
}

func (s *Service) resolveCommitPrice(ctx context.Context, growerID, unitID id.ID, price *types.Money) (types.Money, error) {
	if price != nil {
		return *price, nil
	}
	current, err := s.repo.GetForUpdate(ctx, growerID, unitID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return types.Money{}, apperror.NewValidation("price is required for a grower's first offer on a unit").
				WithDetail("field", "price").
				WithDetail("growerId", growerID.String()).
				WithDetail("unitId", unitID.String())
		}
		return types.Money{}, fmt.Errorf("lock current record: %w", err)
	}
	return current.Price, nil
}

func (s *Service) guardDirectStock(ctx context.Context, carriesStock bool) error {
	if !carriesStock || s.settings == nil {
		return nil
	}
	required, err := s.settings.RequireStockApproval(ctx)
	if err != nil {
		return fmt.Errorf("read stock approval setting: %w", err)
	}
	if required {
		return apperror.NewValidation("stock changes require approval; submit a stock request").
			WithDetail("field", "stock")
	}
	return nil
}

func (s *Service) ensureGrower(ctx context.Context, growerID id.ID) error {
	if id.IsNil(growerID) {
		return apperror.NewValidation("growerId is required").WithDetail("field", "growerId")
	}
	_, err := s.catalog.GetGrower(ctx, growerID)
	return err
}

func validateEntry(prefix string, unitID id.ID, price types.Money, stock *int64) error {
	if id.IsNil(unitID) {
		return apperror.NewValidation(prefix+"unitId is required").WithDetail("field", prefix+"unitId")
	}
	if err := types.ValidatePrice(prefix+"price", price); err != nil {
		return err
	}
	if stock != nil {
		if err := types.ValidateStock(prefix+"stock", *stock); err != nil {
			return err
		}
	}
	return nil
}

// SumStock adds up stock across records.
func SumStock(records []GrowerPriceRecord) int64 {
	var total int64
	for _, r := range records {
		total += r.Stock
	}
	return total
}

func unitIDs(units []catalog.SellableUnit) []id.ID {
	ids := make([]id.ID, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}
