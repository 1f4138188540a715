package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"growermarket/internal/core/apperror"
)

func TestValidatePrice(t *testing.T) {
	tests := []struct {
		price   string
		wantErr bool
	}{
		{"0", false},
		{"19.99", false},
		{"10.500", false},
		{"9999999999.99", false},
		{"-0.01", true},
		{"10.005", true},
		{"0.001", true},
		{"10000000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			err := ValidatePrice("price", MustMoney(tt.price))
			if tt.wantErr {
				assert.True(t, apperror.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoundMoney_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "5.03", RoundMoney(MustMoney("5.025")).StringFixed(MoneyPlaces))
	assert.Equal(t, "2.99", RoundMoney(MustMoney("2.9849")).StringFixed(MoneyPlaces))
}

func TestValidateRate(t *testing.T) {
	assert.NoError(t, ValidateRate("rate", MustRate("0")))
	assert.NoError(t, ValidateRate("rate", MustRate("1")))
	assert.Error(t, ValidateRate("rate", MustRate("1.01")))
	assert.Error(t, ValidateRate("rate", MustRate("-0.1")))
}
