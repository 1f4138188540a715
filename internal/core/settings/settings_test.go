package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growermarket/internal/core/types"
)

type mapSource map[string]string

func (m mapSource) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

type brokenSource struct{}

func (brokenSource) Lookup(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection reset")
}

func TestStoreProvider_StoredValuesWin(t *testing.T) {
	fallback := types.MustRate("0.05")
	src := mapSource{
		KeySessionCommissionRate: "0.12",
		KeyRequireStockApproval:  "true",
	}
	p := NewStoreProvider(src, Static{SessionRate: &fallback})

	rate, err := p.SessionCommissionRate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, "0.12", rate.String())

	required, err := p.RequireStockApproval(context.Background())
	require.NoError(t, err)
	assert.True(t, required)
}

func TestStoreProvider_FallsBackToStatic(t *testing.T) {
	fallback := types.MustRate("0.05")
	p := NewStoreProvider(mapSource{}, Static{SessionRate: &fallback, RequireApproval: true})

	rate, err := p.SessionCommissionRate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, "0.05", rate.String())

	required, err := p.RequireStockApproval(context.Background())
	require.NoError(t, err)
	assert.True(t, required)
}

func TestStoreProvider_NoRateConfigured(t *testing.T) {
	p := NewStoreProvider(mapSource{}, Static{})

	rate, err := p.SessionCommissionRate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestStoreProvider_MalformedValues(t *testing.T) {
	p := NewStoreProvider(mapSource{
		KeySessionCommissionRate: "fifteen percent",
		KeyRequireStockApproval:  "maybe",
	}, Static{})

	_, err := p.SessionCommissionRate(context.Background())
	assert.Error(t, err)

	_, err = p.RequireStockApproval(context.Background())
	assert.Error(t, err)
}

func TestStoreProvider_SourceErrorsPropagate(t *testing.T) {
	p := NewStoreProvider(brokenSource{}, Static{})

	_, err := p.SessionCommissionRate(context.Background())
	assert.Error(t, err)
}

func TestStatic_ReturnsCopy(t *testing.T) {
	r := types.MustRate("0.1")
	s := Static{SessionRate: &r}

	got, err := s.SessionCommissionRate(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, &r, got)
}
