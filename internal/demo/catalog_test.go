package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestData_UnitsReferenceProducts(t *testing.T) {
	c := Data()
	products := map[any]bool{}
	for _, p := range c.Products {
		products[p.ID] = true
	}
	for _, u := range c.Units {
		assert.True(t, products[u.ProductID], "unit %s references unknown product", u.Label)
	}
}

func TestData_VariantlessProductSharesID(t *testing.T) {
	c := Data()
	var honeyUnits int
	for _, u := range c.Units {
		if u.ProductID == HoneyID {
			honeyUnits++
			assert.Equal(t, HoneyID, u.ID)
		}
	}
	assert.Equal(t, 1, honeyUnits)
}
