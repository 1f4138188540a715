// Package dto provides Data Transfer Objects for API requests/responses.
//
// Money leaves the API as JSON numbers; inside the service it stays decimal.
package dto

import (
	"growermarket/internal/core/types"
)

// SuccessResponse is a generic acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CountResponse carries a single counter.
type CountResponse struct {
	Count int64 `json:"count"`
}

// MoneyValue renders a money amount as a JSON number.
func MoneyValue(m types.Money) float64 {
	return types.RoundMoney(m).InexactFloat64()
}

// OptionalMoney renders a nullable money amount.
func OptionalMoney(m *types.Money) *float64 {
	if m == nil {
		return nil
	}
	v := MoneyValue(*m)
	return &v
}
