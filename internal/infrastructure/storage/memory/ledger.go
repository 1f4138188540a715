package memory

import (
	"context"
	"sort"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/reconcile"
)

// LedgerRepo implements ledger.Repository and reconcile.Repository.
type LedgerRepo struct {
	store *Store
}

var (
	_ ledger.Repository    = (*LedgerRepo)(nil)
	_ reconcile.Repository = (*LedgerRepo)(nil)
)

// NewLedgerRepo creates a ledger repository over s.
func NewLedgerRepo(s *Store) *LedgerRepo {
	return &LedgerRepo{store: s}
}

// Upsert updates the pair's row in place or inserts a new one.
func (r *LedgerRepo) Upsert(ctx context.Context, u ledger.PriceUpsert) (*ledger.GrowerPriceRecord, error) {
	var out ledger.GrowerPriceRecord
	err := r.store.exec(ctx, func(t *tables) error {
		if cur, ok := findPair(t, u.GrowerID, u.UnitID); ok {
			cur.Price = u.Price
			if u.Stock != nil {
				cur.Stock = *u.Stock
			}
			cur.UpdatedAt = u.At
			t.records[cur.ID] = cur
			out = cur
			return nil
		}

		rec := ledger.GrowerPriceRecord{
			ID:        id.New(),
			GrowerID:  u.GrowerID,
			UnitID:    u.UnitID,
			Price:     u.Price,
			CreatedAt: u.At,
			UpdatedAt: u.At,
		}
		if u.Stock != nil {
			rec.Stock = *u.Stock
		}
		t.records[rec.ID] = rec
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LedgerRepo) GetForUpdate(ctx context.Context, growerID, unitID id.ID) (*ledger.GrowerPriceRecord, error) {
	var out ledger.GrowerPriceRecord
	err := r.store.exec(ctx, func(t *tables) error {
		rec, ok := findPair(t, growerID, unitID)
		if !ok {
			return apperror.NewNotFound("price record", growerID.String()+"/"+unitID.String())
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LedgerRepo) ListByUnits(ctx context.Context, unitIDs []id.ID) ([]ledger.GrowerPriceRecord, error) {
	want := idSet(unitIDs)
	out := []ledger.GrowerPriceRecord{}
	err := r.store.exec(ctx, func(t *tables) error {
		for _, rec := range t.records {
			if !want[rec.UnitID] {
				continue
			}
			if g, ok := t.growers[rec.GrowerID]; ok {
				rec.GrowerName = g.Name
				rec.GrowerAvatar = g.AvatarURL
			}
			out = append(out, rec)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := id.Compare(a.UnitID, b.UnitID); c != 0 {
			return c < 0
		}
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
		if a.GrowerName != b.GrowerName {
			return a.GrowerName < b.GrowerName
		}
		return id.Compare(a.ID, b.ID) < 0
	})
	return out, err
}

func (r *LedgerRepo) ListByGrowerAndUnits(ctx context.Context, growerID id.ID, unitIDs []id.ID) ([]ledger.GrowerPriceRecord, error) {
	want := idSet(unitIDs)
	out := []ledger.GrowerPriceRecord{}
	err := r.store.exec(ctx, func(t *tables) error {
		for _, rec := range t.records {
			if rec.GrowerID == growerID && want[rec.UnitID] {
				out = append(out, rec)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return id.Compare(out[i].UnitID, out[j].UnitID) < 0
	})
	return out, err
}

// ListAllRecords implements reconcile.Repository.
func (r *LedgerRepo) ListAllRecords(ctx context.Context) ([]ledger.GrowerPriceRecord, error) {
	var out []ledger.GrowerPriceRecord
	err := r.store.exec(ctx, func(t *tables) error {
		out = make([]ledger.GrowerPriceRecord, 0, len(t.records))
		for _, rec := range t.records {
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// DeleteRecords implements reconcile.Repository.
func (r *LedgerRepo) DeleteRecords(ctx context.Context, ids []id.ID) (int64, error) {
	var n int64
	err := r.store.exec(ctx, func(t *tables) error {
		for _, rid := range ids {
			if _, ok := t.records[rid]; ok {
				delete(t.records, rid)
				n++
			}
		}
		return nil
	})
	return n, err
}

// findPair returns the newest row for the pair.
func findPair(t *tables, growerID, unitID id.ID) (ledger.GrowerPriceRecord, bool) {
	var (
		best  ledger.GrowerPriceRecord
		found bool
	)
	for _, rec := range t.records {
		if rec.GrowerID != growerID || rec.UnitID != unitID {
			continue
		}
		if !found || rec.CreatedAt.After(best.CreatedAt) ||
			(rec.CreatedAt.Equal(best.CreatedAt) && id.Compare(rec.ID, best.ID) > 0) {
			best = rec
			found = true
		}
	}
	return best, found
}

func idSet(ids []id.ID) map[id.ID]bool {
	m := make(map[id.ID]bool, len(ids))
	for _, v := range ids {
		m[v] = true
	}
	return m
}
