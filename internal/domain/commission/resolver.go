// Package commission resolves the commission rate applied to a sale and the
// resulting consumer price.
package commission

import (
	"growermarket/internal/core/apperror"
	"growermarket/internal/core/types"
)

// Source tells which rate won the precedence check.
type Source string

const (
	SourceSession Source = "session"
	SourceGrower  Source = "grower"
)

// Policy is the rate context of one sale.
type Policy struct {
	// SessionRate is the marketplace default and must be present.
	SessionRate *types.Rate
	// GrowerRate overrides SessionRate when present.
	GrowerRate *types.Rate
}

// Resolution is the outcome of applying precedence to a Policy.
type Resolution struct {
	EffectiveRate types.Rate
	SessionRate   types.Rate
	GrowerRate    *types.Rate
	IsCustomRate  bool
	Source        Source
}

// Calculation is the consumer price breakdown for one base price.
type Calculation struct {
	BasePrice        types.Money
	EffectiveRate    types.Rate
	CommissionAmount types.Money
	FinalPrice       types.Money
	Source           Source
	IsCustomRate     bool
}

// Resolve applies grower-over-session precedence. A missing session rate is a
// configuration error and is reported, never defaulted.
func Resolve(policy Policy) (Resolution, error) {
	if policy.SessionRate == nil {
		return Resolution{}, apperror.NewValidation("session commission rate is not configured").
			WithDetail("field", "sessionRate")
	}
	if err := types.ValidateRate("sessionRate", *policy.SessionRate); err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		EffectiveRate: *policy.SessionRate,
		SessionRate:   *policy.SessionRate,
		Source:        SourceSession,
	}
	if policy.GrowerRate != nil {
		if err := types.ValidateRate("growerRate", *policy.GrowerRate); err != nil {
			return Resolution{}, err
		}
		gr := *policy.GrowerRate
		res.GrowerRate = &gr
		res.EffectiveRate = gr
		res.IsCustomRate = true
		res.Source = SourceGrower
	}
	return res, nil
}

// ComputeFinalPrice adds the rounded commission to basePrice.
// The commission is rounded once, half-up to cents, and the final price is
// the exact sum, so repeated application never drifts.
func ComputeFinalPrice(basePrice types.Money, res Resolution) (Calculation, error) {
	if err := types.ValidatePrice("basePrice", basePrice); err != nil {
		return Calculation{}, err
	}
	if err := types.ValidateRate("effectiveRate", res.EffectiveRate); err != nil {
		return Calculation{}, err
	}

	amount := types.RoundMoney(basePrice.Mul(res.EffectiveRate))
	return Calculation{
		BasePrice:        basePrice,
		EffectiveRate:    res.EffectiveRate,
		CommissionAmount: amount,
		FinalPrice:       basePrice.Add(amount),
		Source:           res.Source,
		IsCustomRate:     res.IsCustomRate,
	}, nil
}
