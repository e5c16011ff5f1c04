package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "shopkit-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "shopkit", cfg.Database.DBName)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "USD", cfg.Commerce.Currency)
	assert.Equal(t, 2, cfg.Commerce.PriceDecimals)
	assert.Equal(t, 15*time.Minute, cfg.Commerce.MetaCacheTTL)
	assert.Equal(t, time.Hour, cfg.Commerce.CouponHoldLimit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHOPKIT_DATABASE_PORT", "5433")
	t.Setenv("SHOPKIT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	t.Setenv("SHOPKIT_APP_ENV", "sandbox")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_ProductionRequiresCredentials(t *testing.T) {
	t.Setenv("SHOPKIT_APP_ENV", "production")

	_, err := Load()
	assert.ErrorContains(t, err, "database.password")

	t.Setenv("SHOPKIT_DATABASE_PASSWORD", "secret")
	_, err = Load()
	assert.ErrorContains(t, err, "sslmode")

	t.Setenv("SHOPKIT_DATABASE_SSLMODE", "require")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.App.Env)
}

func TestValidate_IdleConnsCappedByOpenConns(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1

	assert.ErrorContains(t, cfg.validate(), "max_idle_conns")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "shop",
		Password: "p@ss/word",
		DBName:   "shopkit",
		SSLMode:  "require",
	}

	dsn := d.DSN()

	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "p@ss/word", "the password is escaped")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
