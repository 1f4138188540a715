// Package types provides monetary and rate value types.
package types

import (
	"github.com/shopspring/decimal"

	"growermarket/internal/core/apperror"
)

// MoneyPlaces is the number of fractional digits kept for consumer prices.
const MoneyPlaces int32 = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Rate is a commission fraction in [0,1].
type Rate = decimal.Decimal

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MustRate is MustMoney for rates.
func MustRate(s string) Rate {
	return MustMoney(s)
}

// RoundMoney rounds half away from zero to MoneyPlaces. For the non-negative
// amounts handled here that is half-up.
func RoundMoney(m Money) Money {
	return m.Round(MoneyPlaces)
}

// MaxPrice is the largest price the ledger column (NUMERIC(12,2)) holds.
var MaxPrice = decimal.New(1, 10).Sub(decimal.New(1, -MoneyPlaces))

// ValidatePrice rejects negative prices, prices with more than MoneyPlaces
// fractional digits and prices above MaxPrice. Zero is a legal price.
// Trailing zeros are fine: 10.500 is 10.50.
func ValidatePrice(field string, p Money) error {
	switch {
	case p.IsNegative():
		return priceError(field, p, " must not be negative")
	case !p.Equal(p.Truncate(MoneyPlaces)):
		return priceError(field, p, " must have at most 2 decimal places")
	case p.GreaterThan(MaxPrice):
		return priceError(field, p, " is too large")
	}
	return nil
}

func priceError(field string, p Money, reason string) error {
	return apperror.NewValidation(field+reason).
		WithDetail("field", field).
		WithDetail("value", p.String())
}

// ValidateStock rejects negative stock levels.
func ValidateStock(field string, stock int64) error {
	if stock < 0 {
		return apperror.NewValidation(field+" must not be negative").
			WithDetail("field", field).
			WithDetail("value", stock)
	}
	return nil
}

// ValidateRate checks that r lies in [0,1].
func ValidateRate(field string, r Rate) error {
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return apperror.NewValidation(field+" must be between 0 and 1").
			WithDetail("field", field).
			WithDetail("value", r.String())
	}
	return nil
}
