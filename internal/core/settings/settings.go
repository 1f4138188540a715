// Package settings exposes marketplace configuration that may change while the
// process runs (commission defaults, approval requirements).
//
// Values are looked up at call time through a Provider that is passed to the
// services that need it; nothing here is a mutable package-level flag.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"growermarket/internal/core/types"
)

// Setting keys stored in sys_settings.
const (
	KeySessionCommissionRate = "commission.session_rate"
	KeyRequireStockApproval  = "stock.require_approval"
)

// Provider resolves configuration values for the current call.
type Provider interface {
	// SessionCommissionRate returns the marketplace default commission rate,
	// or nil when none is configured.
	SessionCommissionRate(ctx context.Context) (*types.Rate, error)

	// RequireStockApproval reports whether stock changes must go through the
	// approval workflow instead of direct ledger updates.
	RequireStockApproval(ctx context.Context) (bool, error)
}

// Static is a Provider with fixed values, usually built from process config.
type Static struct {
	SessionRate     *types.Rate
	RequireApproval bool
}

// SessionCommissionRate implements Provider.
func (s Static) SessionCommissionRate(context.Context) (*types.Rate, error) {
	if s.SessionRate == nil {
		return nil, nil
	}
	r := *s.SessionRate
	return &r, nil
}

// RequireStockApproval implements Provider.
func (s Static) RequireStockApproval(context.Context) (bool, error) {
	return s.RequireApproval, nil
}

// Source reads raw setting values from persistent storage.
type Source interface {
	Lookup(ctx context.Context, key string) (value string, found bool, err error)
}

// StoreProvider reads every value from a Source on each call and falls back to
// the static defaults for keys that are not stored.
type StoreProvider struct {
	source   Source
	fallback Static
}

// NewStoreProvider creates a Source-backed provider.
func NewStoreProvider(source Source, fallback Static) *StoreProvider {
	return &StoreProvider{source: source, fallback: fallback}
}

// SessionCommissionRate implements Provider.
func (p *StoreProvider) SessionCommissionRate(ctx context.Context) (*types.Rate, error) {
	raw, found, err := p.source.Lookup(ctx, KeySessionCommissionRate)
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		return p.fallback.SessionCommissionRate(ctx)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("setting %s: %w", KeySessionCommissionRate, err)
	}
	return &rate, nil
}

// RequireStockApproval implements Provider.
func (p *StoreProvider) RequireStockApproval(ctx context.Context) (bool, error) {
	raw, found, err := p.source.Lookup(ctx, KeyRequireStockApproval)
	if err != nil {
		return false, err
	}
	if !found || raw == "" {
		return p.fallback.RequireStockApproval(ctx)
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", KeyRequireStockApproval, err)
	}
	return enabled, nil
}

var (
	_ Provider = Static{}
	_ Provider = (*StoreProvider)(nil)
)
