package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.False(t, cfg.RequireStockApproval)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DEFAULT_SESSION_COMMISSION_RATE", "0.15")
	t.Setenv("REQUIRE_STOCK_APPROVAL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, "9090", cfg.Port)

	static := cfg.StaticSettings()
	require.NotNil(t, static.SessionRate)
	assert.Equal(t, "0.15", static.SessionRate.String())
	assert.True(t, static.RequireApproval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"postgres", Config{StorageDriver: "postgres"}, false},
		{"memory", Config{StorageDriver: "memory"}, false},
		{"unknown driver", Config{StorageDriver: "mysql"}, true},
		{"rate not a number", Config{StorageDriver: "memory", DefaultSessionCommissionRate: "abc"}, true},
		{"rate above one", Config{StorageDriver: "memory", DefaultSessionCommissionRate: "1.2"}, true},
		{"rate in range", Config{StorageDriver: "memory", DefaultSessionCommissionRate: "0.2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
