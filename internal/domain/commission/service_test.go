package commission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growermarket/internal/core/apperror"
	"growermarket/internal/core/id"
	"growermarket/internal/core/settings"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/catalog"
	"growermarket/internal/domain/commission"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/infrastructure/storage/memory"
)

type fixture struct {
	store   *memory.Store
	service *commission.Service
	unitID  id.ID
	plain   id.ID
	custom  id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()

	productID := id.New()
	store.AddProduct(catalog.Product{ID: productID, Name: "Carrots"})
	store.AddUnit(catalog.SellableUnit{ID: productID, ProductID: productID, Label: "Bunch"})

	plain, custom := id.New(), id.New()
	customRate := types.MustRate("0.10")
	store.AddGrower(catalog.Grower{ID: plain, Name: "Plain"})
	store.AddGrower(catalog.Grower{ID: custom, Name: "Custom", CommissionRate: &customRate})

	provider := settings.NewStoreProvider(memory.NewSettingsSource(store), settings.Static{})
	store.SetSetting(settings.KeySessionCommissionRate, "0.15")

	return &fixture{
		store:   store,
		service: commission.NewService(memory.NewCatalogRepo(store), memory.NewLedgerRepo(store), provider),
		unitID:  productID,
		plain:   plain,
		custom:  custom,
	}
}

func TestService_ResolveForGrower(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.ResolveForGrower(ctx, f.plain)
	require.NoError(t, err)
	assert.Equal(t, commission.SourceSession, res.Source)
	assert.Equal(t, "0.15", res.EffectiveRate.String())

	res, err = f.service.ResolveForGrower(ctx, f.custom)
	require.NoError(t, err)
	assert.Equal(t, commission.SourceGrower, res.Source)
	assert.Equal(t, "0.1", res.EffectiveRate.String())
}

func TestService_SessionRateReadAtCallTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.SetSetting(settings.KeySessionCommissionRate, "0.20")

	res, err := f.service.ResolveForGrower(ctx, f.plain)
	require.NoError(t, err)
	assert.Equal(t, "0.2", res.EffectiveRate.String())
}

func TestService_UnknownGrower(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ResolveForGrower(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_Quote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stock := int64(4)
	_, err := memory.NewLedgerRepo(f.store).Upsert(ctx, ledger.PriceUpsert{
		GrowerID: f.plain,
		UnitID:   f.unitID,
		Price:    types.MustMoney("19.99"),
		Stock:    &stock,
	})
	require.NoError(t, err)

	q, err := f.service.Quote(ctx, f.plain, f.unitID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), q.Stock)
	assert.Equal(t, "3.00", q.Calculation.CommissionAmount.StringFixed(2))
	assert.Equal(t, "22.99", q.Calculation.FinalPrice.StringFixed(2))
}

func TestService_QuoteWithoutOffer(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Quote(context.Background(), f.custom, f.unitID)
	assert.True(t, apperror.IsNotFound(err))
}
