// Package catalog_repo provides the PostgreSQL catalog lookups used by the
// pricing core.
package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/domain/catalog"
	"growermarket/internal/infrastructure/storage/postgres"
)

const (
	productsTable = "cat_products"
	unitsTable    = "cat_sellable_units"
	growersTable  = "cat_growers"
)

var (
	productCols = postgres.ExtractDBColumns[catalog.Product]()
	unitCols    = postgres.ExtractDBColumns[catalog.SellableUnit]()
	growerCols  = postgres.ExtractDBColumns[catalog.Grower]()
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txManager *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetProduct retrieves a product by ID.
func (r *CatalogRepo) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	var p catalog.Product
	if err := r.getByID(ctx, productsTable, productCols, productID, &p); err != nil {
		return nil, mapNotFound(err, "product", productID)
	}
	return &p, nil
}

// GetUnit retrieves a sellable unit by ID.
func (r *CatalogRepo) GetUnit(ctx context.Context, unitID id.ID) (*catalog.SellableUnit, error) {
	var u catalog.SellableUnit
	if err := r.getByID(ctx, unitsTable, unitCols, unitID, &u); err != nil {
		return nil, mapNotFound(err, "unit", unitID)
	}
	return &u, nil
}

// GetGrower retrieves a grower by ID.
func (r *CatalogRepo) GetGrower(ctx context.Context, growerID id.ID) (*catalog.Grower, error) {
	var g catalog.Grower
	if err := r.getByID(ctx, growersTable, growerCols, growerID, &g); err != nil {
		return nil, mapNotFound(err, "grower", growerID)
	}
	return &g, nil
}

// ListUnitsByProduct returns the product's units in catalog order.
func (r *CatalogRepo) ListUnitsByProduct(ctx context.Context, productID id.ID) ([]catalog.SellableUnit, error) {
	sql, args, err := r.unitsByProductQuery(productID).ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	var units []catalog.SellableUnit
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &units, sql, args...); err != nil {
		return nil, apperror.NewStorage("list units by product", err)
	}
	return units, nil
}

// ExistingUnitIDs returns the subset of unitIDs present in the catalog.
func (r *CatalogRepo) ExistingUnitIDs(ctx context.Context, unitIDs []id.ID) (map[id.ID]bool, error) {
	out := make(map[id.ID]bool, len(unitIDs))
	if len(unitIDs) == 0 {
		return out, nil
	}

	sql, args, err := r.builder.
		Select("id").
		From(unitsTable).
		Where(squirrel.Eq{"id": unitIDs}).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	var found []id.ID
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &found, sql, args...); err != nil {
		return nil, apperror.NewStorage("check units", err)
	}
	for _, uid := range found {
		out[uid] = true
	}
	return out, nil
}

func (r *CatalogRepo) unitsByProductQuery(productID id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(unitCols...).
		From(unitsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("position", "id")
}

func (r *CatalogRepo) getByID(ctx context.Context, table string, cols []string, entityID id.ID, dst any) error {
	sql, args, err := r.builder.
		Select(cols...).
		From(table).
		Where(squirrel.Eq{"id": entityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return apperror.NewInternal(err)
	}
	return pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...)
}

func mapNotFound(err error, entity string, entityID id.ID) error {
	if pgxscan.NotFound(err) {
		return apperror.NewNotFound(entity, entityID.String())
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	return apperror.NewStorage("get "+entity, err)
}
