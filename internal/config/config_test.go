package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("PORTONE_API_SECRET", "portone-secret")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "https://api.portone.io", cfg.PortOne.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.PortOne.Timeout)
	assert.Equal(t, "portone-secret", cfg.PortOne.APISecret)
	assert.Equal(t, 30*24*time.Hour, cfg.Billing.Period())
	assert.Equal(t, 30*time.Second, cfg.Billing.EventTimeout)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "env", cfg.Secrets.Backend)
}

func TestLoadFromEnv_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "8181")
	t.Setenv("PORTONE_TIMEOUT", "3")
	t.Setenv("BILLING_EVENT_TIMEOUT", "45s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.PortOne.Timeout)
	assert.Equal(t, 45*time.Second, cfg.Billing.EventTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.False(t, cfg.Logger.Development)
}

func TestLoadFromEnv_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	setRequiredEnv(t)

	path := filepath.Join(dir, "billing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
portone:
  store_id: store-yaml
  timeout: 8s
billing:
  period_days: 31
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7100")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "store-yaml", cfg.PortOne.StoreID)
	assert.Equal(t, 8*time.Second, cfg.PortOne.Timeout)
	assert.Equal(t, 31, cfg.Billing.PeriodDays)
	assert.Equal(t, 9090, cfg.Server.MetricsPort, "defaults survive")
}

func TestLoadFromEnv_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DB_PASSWORD=from-dotenv\nPORTONE_API_SECRET=dotenv-secret\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DB_PASSWORD")
		os.Unsetenv("PORTONE_API_SECRET")
	})

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Database.Password)
	assert.Equal(t, "dotenv-secret", cfg.PortOne.APISecret)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing database password",
			env:     map[string]string{"PORTONE_API_SECRET": "x"},
			wantErr: "Password",
		},
		{
			name:    "missing provider secret",
			env:     map[string]string{"DB_PASSWORD": "x"},
			wantErr: "PORTONE_API_SECRET is required",
		},
		{
			name:    "unknown secret backend",
			env:     map[string]string{"DB_PASSWORD": "x", "PORTONE_API_SECRET": "x", "SECRETS_BACKEND": "gcp"},
			wantErr: "Backend",
		},
		{
			name:    "aws backend without region",
			env:     map[string]string{"DB_PASSWORD": "x", "SECRETS_BACKEND": "aws", "SECRETS_PATH": "billing/portone"},
			wantErr: "Region",
		},
		{
			name:    "metrics port clashes",
			env:     map[string]string{"DB_PASSWORD": "x", "PORTONE_API_SECRET": "x", "SERVER_PORT": "9090"},
			wantErr: "MetricsPort",
		},
		{
			name:    "bad redis url",
			env:     map[string]string{"DB_PASSWORD": "x", "PORTONE_API_SECRET": "x", "REDIS_URL": "not a url"},
			wantErr: "URL",
		},
		{
			name:    "rate limit without burst",
			env:     map[string]string{"DB_PASSWORD": "x", "PORTONE_API_SECRET": "x", "RATE_LIMIT_BURST": "0"},
			wantErr: "RATE_LIMIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "billing", SSLMode: "disable", MaxConns: 10, MinConns: 2}
	assert.Equal(t,
		"host=db port=5432 user=u password=p dbname=billing sslmode=disable pool_max_conns=10 pool_min_conns=2",
		db.ConnectionString())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=billing sslmode=disable", db.DSN())
}

func TestDatabaseFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("password required", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "")
		_, err := DatabaseFromEnv()
		require.Error(t, err)
	})

	t.Run("provider secret not needed", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "secret")
		t.Setenv("DB_NAME", "billing_dev")

		db, err := DatabaseFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "billing_dev", db.Database)
		assert.Equal(t, "localhost", db.Host)
	})
}
