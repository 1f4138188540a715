package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"growermarket/internal/core/id"
	"growermarket/internal/core/types"
	"growermarket/internal/domain/stockrequest"
)

type settingRow struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	Scratch   string `db:"-"`
	NoTag     string
	UpdatedAt time.Time `db:"updated_at"`
}

func TestExtractDBColumns_SkipsUntaggedFields(t *testing.T) {
	cols := ExtractDBColumns[settingRow]()

	assert.Equal(t, []string{"key", "value", "updated_at"}, cols)
}

func TestExtractDBColumns_StockChangeRequest(t *testing.T) {
	cols := ExtractDBColumns[stockrequest.StockChangeRequest]()

	for _, expected := range []string{
		"id", "grower_id", "unit_id", "requested_stock", "requested_price",
		"status", "submitted_at", "processed_at", "processed_by", "rejection_reason", "viewed_at",
	} {
		assert.Contains(t, cols, expected)
	}
}

func TestStructToMap_StockChangeRequest(t *testing.T) {
	now := time.Now().UTC()
	price := types.MustMoney("12.50")
	req := &stockrequest.StockChangeRequest{
		ID:             id.New(),
		GrowerID:       id.New(),
		UnitID:         id.New(),
		RequestedStock: 40,
		RequestedPrice: &price,
		Status:         stockrequest.StatusPending,
		SubmittedAt:    now,
	}

	m := StructToMap(req)

	assert.Equal(t, req.ID, m["id"])
	assert.Equal(t, int64(40), m["requested_stock"])
	assert.Equal(t, &price, m["requested_price"])
	assert.Equal(t, stockrequest.StatusPending, m["status"])
	assert.Equal(t, now, m["submitted_at"])
	assert.Nil(t, m["processed_at"])
}

func TestStructToMap_SkipsUntaggedFields(t *testing.T) {
	now := time.Now().UTC()
	row := settingRow{Key: "stock.require_approval", Value: "true", Scratch: "x", NoTag: "skip", UpdatedAt: now}

	m := StructToMap(row)

	assert.Len(t, m, 3)
	assert.Equal(t, "true", m["value"])
	assert.Equal(t, now, m["updated_at"])
	assert.Nil(t, StructToMap("not a struct"))
}
