package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growermarket/internal/core/id"
)

func TestUnitsByProductQuery(t *testing.T) {
	repo := NewCatalogRepo(nil)
	productID := id.New()

	sql, args, err := repo.unitsByProductQuery(productID).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, product_id, label, quantity, unit_symbol, position FROM cat_sellable_units WHERE product_id = $1 ORDER BY position, id",
		sql)
	// squirrel.Eq unwraps driver.Valuer arguments.
	assert.Equal(t, []any{productID.String()}, args)
}
