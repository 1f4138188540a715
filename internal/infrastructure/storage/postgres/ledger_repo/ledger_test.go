package ledger_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/ledger"
)

func TestUpsertQuery(t *testing.T) {
	repo := NewLedgerRepo(nil)
	stock := int64(7)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		stock        *int64
		wantStock    int64
		wantFragment string
	}{
		{
			name:         "with stock",
			stock:        &stock,
			wantStock:    7,
			wantFragment: "stock = EXCLUDED.stock",
		},
		{
			name:         "keep stock",
			stock:        nil,
			wantStock:    0,
			wantFragment: "stock = reg_grower_prices.stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := ledger.PriceUpsert{
				GrowerID: id.New(),
				UnitID:   id.New(),
				Price:    types.MustMoney("3.20"),
				Stock:    tt.stock,
				At:       at,
			}

			sql, args, err := repo.upsertQuery(u).ToSql()
			require.NoError(t, err)

			assert.Contains(t, sql, "INSERT INTO reg_grower_prices")
			assert.Contains(t, sql, "ON CONFLICT (grower_id, unit_id) DO UPDATE SET")
			assert.Contains(t, sql, tt.wantFragment)
			assert.Contains(t, sql, "RETURNING id, grower_id, unit_id, price, stock, created_at, updated_at")
			require.Len(t, args, 7)
			assert.Equal(t, u.GrowerID, args[1])
			assert.Equal(t, u.UnitID, args[2])
			assert.Equal(t, tt.wantStock, args[4])
			assert.Equal(t, at, args[5])
		})
	}
}

func TestByUnitsQuery(t *testing.T) {
	repo := NewLedgerRepo(nil)
	a, b := id.New(), id.New()

	sql, args, err := repo.byUnitsQuery([]id.ID{a, b}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "JOIN cat_growers g ON g.id = p.grower_id")
	assert.Contains(t, sql, "p.unit_id IN ($1,$2)")
	assert.Contains(t, sql, "ORDER BY p.unit_id, p.price, g.name, p.id")
	assert.Equal(t, []any{a, b}, args)
}
