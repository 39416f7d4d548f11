package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://procura@localhost/procura")
	t.Setenv("APPROVER_ROLES", "approver,manager")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, LockBackendRedis, cfg.LockBackend)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.True(t, cfg.IdempotencyEnabled)
	assert.Equal(t, []string{"approver", "manager"}, cfg.ApproverRoles)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://procura@localhost/procura")
	t.Setenv("LOCK_TTL", "soon")

	_, err := Load()

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL:     "postgres://localhost/procura",
			LockBackend:     LockBackendMemory,
			DBMaxConns:      10,
			DBMinConns:      1,
			OutboxBatchSize: 10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL"},
		{name: "unknown lock backend", mutate: func(c *Config) { c.LockBackend = "etcd" }, wantErr: "LOCK_BACKEND"},
		{name: "production without secret", mutate: func(c *Config) { c.AppEnv = "production" }, wantErr: "JWT_SECRET"},
		{name: "min above max", mutate: func(c *Config) { c.DBMinConns = 20 }, wantErr: "DB_MIN_CONNS"},
		{name: "zero batch", mutate: func(c *Config) { c.OutboxBatchSize = 0 }, wantErr: "OUTBOX_BATCH_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
