package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/reconcile"
	"growermarket/internal/infrastructure/storage/memory"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(grower, unit id.ID, price string, stock int64, created time.Time) ledger.GrowerPriceRecord {
	return ledger.GrowerPriceRecord{
		ID:        id.New(),
		GrowerID:  grower,
		UnitID:    unit,
		Price:     types.MustMoney(price),
		Stock:     stock,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newReconciler(store *memory.Store) *reconcile.Reconciler {
	return reconcile.NewReconciler(memory.NewLedgerRepo(store), memory.NewAuditLog(store), memory.NewTxManager(store))
}

func TestFindDuplicates_KeepsNewestRow(t *testing.T) {
	grower, unit := id.New(), id.New()
	oldest := record(grower, unit, "1.00", 1, base)
	newest := record(grower, unit, "3.00", 3, base.Add(2*time.Hour))
	middle := record(grower, unit, "2.00", 2, base.Add(time.Hour))
	single := record(id.New(), unit, "5.00", 5, base)

	groups := reconcile.FindDuplicates([]ledger.GrowerPriceRecord{oldest, newest, middle, single})
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, grower, g.GrowerID)
	assert.Equal(t, unit, g.UnitID)
	assert.Equal(t, newest.ID, g.Kept.ID)
	require.Len(t, g.Removed, 2)
	assert.Equal(t, middle.ID, g.Removed[0].ID)
	assert.Equal(t, oldest.ID, g.Removed[1].ID)
}

func TestFindDuplicates_TieBrokenByID(t *testing.T) {
	grower, unit := id.New(), id.New()
	a := record(grower, unit, "1.00", 1, base)
	b := record(grower, unit, "2.00", 2, base)

	groups := reconcile.FindDuplicates([]ledger.GrowerPriceRecord{a, b})
	require.Len(t, groups, 1)

	want := a.ID
	if id.Compare(b.ID, a.ID) > 0 {
		want = b.ID
	}
	assert.Equal(t, want, groups[0].Kept.ID)
}

func TestRun_RemovesDuplicatesAndAudits(t *testing.T) {
	store := memory.New()
	grower, unitA, unitB := id.New(), id.New(), id.New()
	keep := record(grower, unitA, "3.00", 3, base.Add(time.Hour))
	drop := record(grower, unitA, "1.00", 1, base)
	other := record(grower, unitB, "9.00", 9, base)
	for _, r := range []ledger.GrowerPriceRecord{keep, drop, other} {
		store.InsertRecord(r)
	}

	report, err := newReconciler(store).Run(context.Background(), reconcile.Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.DuplicateGroups)
	assert.Equal(t, int64(1), report.Removed)
	assert.Equal(t, []id.ID{drop.ID}, report.RemovedIDs)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	assert.Equal(t, 2, store.RecordCount())

	remaining, err := memory.NewLedgerRepo(store).ListByGrowerAndUnits(context.Background(), grower, []id.ID{unitA})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)

	audit := store.AuditEntries()
	require.Len(t, audit, 1)
	require.Len(t, audit[0].Removed, 1)
	assert.Equal(t, drop.ID, audit[0].Removed[0].ID)
}

func TestRun_SecondRunIsNoOp(t *testing.T) {
	store := memory.New()
	grower, unit := id.New(), id.New()
	store.InsertRecord(record(grower, unit, "1.00", 1, base))
	store.InsertRecord(record(grower, unit, "2.00", 2, base.Add(time.Minute)))

	r := newReconciler(store)
	_, err := r.Run(context.Background(), reconcile.Options{})
	require.NoError(t, err)

	report, err := r.Run(context.Background(), reconcile.Options{})
	require.NoError(t, err)
	assert.Zero(t, report.DuplicateGroups)
	assert.Zero(t, report.Removed)
	assert.Empty(t, report.RemovedIDs)
	assert.Equal(t, 1, store.RecordCount())
	assert.Len(t, store.AuditEntries(), 1)
}

func TestRun_DryRunDeletesNothing(t *testing.T) {
	store := memory.New()
	grower, unit := id.New(), id.New()
	store.InsertRecord(record(grower, unit, "1.00", 1, base))
	store.InsertRecord(record(grower, unit, "2.00", 2, base.Add(time.Minute)))

	report, err := newReconciler(store).Run(context.Background(), reconcile.Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.DuplicateGroups)
	assert.Len(t, report.RemovedIDs, 1)
	assert.Zero(t, report.Removed)
	assert.Equal(t, 2, store.RecordCount())
	assert.Empty(t, store.AuditEntries())
}

func TestRun_UpsertAfterReconcileUpdatesSurvivor(t *testing.T) {
	store := memory.New()
	grower, unit := id.New(), id.New()
	store.InsertRecord(record(grower, unit, "1.00", 1, base))
	survivor := record(grower, unit, "2.00", 2, base.Add(time.Minute))
	store.InsertRecord(survivor)

	_, err := newReconciler(store).Run(context.Background(), reconcile.Options{})
	require.NoError(t, err)

	rec, err := memory.NewLedgerRepo(store).Upsert(context.Background(), ledger.PriceUpsert{
		GrowerID: grower,
		UnitID:   unit,
		Price:    types.MustMoney("2.50"),
		At:       base.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, survivor.ID, rec.ID)
	assert.Equal(t, int64(2), rec.Stock)
	assert.Equal(t, 1, store.RecordCount())
}
