package memory

import (
	"context"
	"sort"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/domain/catalog"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	store *Store
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// NewCatalogRepo creates a catalog repository over s.
func NewCatalogRepo(s *Store) *CatalogRepo {
	return &CatalogRepo{store: s}
}

func (r *CatalogRepo) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	var out *catalog.Product
	err := r.store.exec(ctx, func(t *tables) error {
		p, ok := t.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID.String())
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *CatalogRepo) GetUnit(ctx context.Context, unitID id.ID) (*catalog.SellableUnit, error) {
	var out *catalog.SellableUnit
	err := r.store.exec(ctx, func(t *tables) error {
		u, ok := t.units[unitID]
		if !ok {
			return apperror.NewNotFound("unit", unitID.String())
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *CatalogRepo) GetGrower(ctx context.Context, growerID id.ID) (*catalog.Grower, error) {
	var out *catalog.Grower
	err := r.store.exec(ctx, func(t *tables) error {
		g, ok := t.growers[growerID]
		if !ok {
			return apperror.NewNotFound("grower", growerID.String())
		}
		out = &g
		return nil
	})
	return out, err
}

func (r *CatalogRepo) ListUnitsByProduct(ctx context.Context, productID id.ID) ([]catalog.SellableUnit, error) {
	var out []catalog.SellableUnit
	err := r.store.exec(ctx, func(t *tables) error {
		for _, u := range t.units {
			if u.ProductID == productID {
				out = append(out, u)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return id.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, err
}

func (r *CatalogRepo) ExistingUnitIDs(ctx context.Context, unitIDs []id.ID) (map[id.ID]bool, error) {
	out := make(map[id.ID]bool, len(unitIDs))
	err := r.store.exec(ctx, func(t *tables) error {
		for _, uid := range unitIDs {
			if _, ok := t.units[uid]; ok {
				out[uid] = true
			}
		}
		return nil
	})
	return out, err
}
