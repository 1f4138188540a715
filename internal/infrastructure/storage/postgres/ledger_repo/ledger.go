// Package ledger_repo provides the PostgreSQL grower price ledger.
package ledger_repo

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/reconcile"
	"growermarket/internal/infrastructure/storage/postgres"
)

const pricesTable = "reg_grower_prices"

var recordCols = []string{"id", "grower_id", "unit_id", "price", "stock", "created_at", "updated_at"}

// LedgerRepo implements ledger.Repository and reconcile.Repository.
//
// reg_grower_prices carries a UNIQUE (grower_id, unit_id) index; Upsert
// relies on it through ON CONFLICT so concurrent writers can never create a
// second row for a pair.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var (
	_ ledger.Repository    = (*LedgerRepo)(nil)
	_ reconcile.Repository = (*LedgerRepo)(nil)
)

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert inserts the pair's record or updates it in place in one statement.
func (r *LedgerRepo) Upsert(ctx context.Context, u ledger.PriceUpsert) (*ledger.GrowerPriceRecord, error) {
	sql, args, err := r.upsertQuery(u).ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	var rec ledger.GrowerPriceRecord
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &rec, sql, args...); err != nil {
		return nil, apperror.NewStorage("upsert grower price", err)
	}
	return &rec, nil
}

func (r *LedgerRepo) upsertQuery(u ledger.PriceUpsert) squirrel.InsertBuilder {
	var stock int64
	stockUpdate := "stock = EXCLUDED.stock"
	if u.Stock != nil {
		stock = *u.Stock
	} else {
		stockUpdate = "stock = " + pricesTable + ".stock"
	}

	return r.builder.
		Insert(pricesTable).
		Columns(recordCols...).
		Values(id.New(), u.GrowerID, u.UnitID, u.Price, stock, u.At, u.At).
		Suffix("ON CONFLICT (grower_id, unit_id) DO UPDATE SET " +
			"price = EXCLUDED.price, " + stockUpdate + ", updated_at = EXCLUDED.updated_at " +
			"RETURNING id, grower_id, unit_id, price, stock, created_at, updated_at")
}

// GetForUpdate locks and returns the pair's record.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, growerID, unitID id.ID) (*ledger.GrowerPriceRecord, error) {
	sql, args, err := r.builder.
		Select(recordCols...).
		From(pricesTable).
		Where(squirrel.Eq{"grower_id": growerID, "unit_id": unitID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	var rec ledger.GrowerPriceRecord
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("price record", growerID.String()+"/"+unitID.String())
		}
		return nil, apperror.NewStorage("lock grower price", err)
	}
	return &rec, nil
}

// ListByUnits returns every record for the units with grower identity joined.
func (r *LedgerRepo) ListByUnits(ctx context.Context, unitIDs []id.ID) ([]ledger.GrowerPriceRecord, error) {
	records := []ledger.GrowerPriceRecord{}
	if len(unitIDs) == 0 {
		return records, nil
	}

	sql, args, err := r.byUnitsQuery(unitIDs).ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &records, sql, args...); err != nil {
		return nil, apperror.NewStorage("list grower prices", err)
	}
	return records, nil
}

func (r *LedgerRepo) byUnitsQuery(unitIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(
			"p.id", "p.grower_id", "p.unit_id", "p.price", "p.stock", "p.created_at", "p.updated_at",
			"g.name AS grower_name", "g.avatar_url AS grower_avatar",
		).
		From(pricesTable+" p").
		Join("cat_growers g ON g.id = p.grower_id").
		Where(squirrel.Eq{"p.unit_id": unitIDs}).
		OrderBy("p.unit_id", "p.price", "g.name", "p.id")
}

// ListByGrowerAndUnits returns one grower's records for the units.
func (r *LedgerRepo) ListByGrowerAndUnits(ctx context.Context, growerID id.ID, unitIDs []id.ID) ([]ledger.GrowerPriceRecord, error) {
	records := []ledger.GrowerPriceRecord{}
	if len(unitIDs) == 0 {
		return records, nil
	}

	sql, args, err := r.builder.
		Select(recordCols...).
		From(pricesTable).
		Where(squirrel.Eq{"grower_id": growerID}).
		Where(squirrel.Eq{"unit_id": unitIDs}).
		OrderBy("unit_id").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &records, sql, args...); err != nil {
		return nil, apperror.NewStorage("list grower prices", err)
	}
	return records, nil
}

// ListAllRecords implements reconcile.Repository.
func (r *LedgerRepo) ListAllRecords(ctx context.Context) ([]ledger.GrowerPriceRecord, error) {
	sql, args, err := r.builder.
		Select(recordCols...).
		From(pricesTable).
		OrderBy("grower_id", "unit_id").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	var records []ledger.GrowerPriceRecord
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &records, sql, args...); err != nil {
		return nil, apperror.NewStorage("scan ledger", err)
	}
	return records, nil
}

// DeleteRecords implements reconcile.Repository.
func (r *LedgerRepo) DeleteRecords(ctx context.Context, ids []id.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	sql, args, err := r.builder.
		Delete(pricesTable).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, apperror.NewInternal(err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, apperror.NewStorage("delete duplicate prices", err)
	}
	return tag.RowsAffected(), nil
}
