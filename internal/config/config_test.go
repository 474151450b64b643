package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BUDGETIQ_CONFIG", "")
	t.Setenv("PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("OCR_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Env)
	require.Equal(t, "8080", cfg.HTTP.Port)
	require.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, "INR", cfg.Currency.DefaultAccountCurrency)
	require.Equal(t, "INR", cfg.Currency.ReportingCurrency)
	require.Equal(t, "mock", cfg.OCR.Provider)
	require.Equal(t, "@hourly", cfg.Recurring.Schedule)
	require.Equal(t, 5, cfg.Jobs.Workers)
	require.False(t, cfg.Production())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/budgetiq")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("BUDGETIQ_CURRENCY_REPORTINGCURRENCY", "usd")
	t.Setenv("BUDGETIQ_JOBS_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "postgres://localhost:5432/budgetiq", cfg.Database.URL)
	require.Equal(t, "secret", cfg.Auth.JWTSecret)
	require.Equal(t, "9090", cfg.HTTP.Port)
	require.Equal(t, "USD", cfg.Currency.ReportingCurrency)
	require.Equal(t, 2, cfg.Jobs.Workers)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "budgetiq.yaml")
	content := []byte("http:\n  port: \"7070\"\nstorage:\n  bucket: receipts-bucket\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("BUDGETIQ_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.HTTP.Port)
	require.Equal(t, "receipts-bucket", cfg.Storage.Bucket)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("BUDGETIQ_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing everything",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:    "missing secret",
			cfg:     Config{Database: DatabaseConfig{URL: "postgres://x"}},
			wantErr: true,
		},
		{
			name: "valid development",
			cfg: Config{
				Database: DatabaseConfig{URL: "postgres://x"},
				Auth:     AuthConfig{JWTSecret: "dev"},
			},
		},
		{
			name: "short secret in production",
			cfg: Config{
				Env:      "production",
				Database: DatabaseConfig{URL: "postgres://x"},
				Auth:     AuthConfig{JWTSecret: "dev"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
