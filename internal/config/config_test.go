package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.RequestExpiry)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.Equal(t, DefaultNotifyWorkers, cfg.NotifyWorkers)
	assert.Equal(t, DefaultPaystackURL, cfg.PaystackBaseURL)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safedeal.yaml")
	body := `
port: "9090"
jwt_secret: from-file
request_expiry: 48h
sweep_interval: 1m
notify_workers: 4
database:
  url: postgres://file
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SWEEP_INTERVAL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 48*time.Hour, cfg.RequestExpiry)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, DefaultNotifyQueue, cfg.NotifyQueue)

	dsn, err := cfg.Database.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://file", dsn)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REQUEST_EXPIRY", "soon")

	_, err := Load("")
	require.Error(t, err)
}

func TestDSNFromParts(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p", Name: "deals", Port: "5432"}
	dsn, err := d.DSN()
	require.NoError(t, err)
	assert.Equal(t, "host=db user=u password=p dbname=deals port=5432 sslmode=disable TimeZone=UTC", dsn)

	_, err = DatabaseConfig{Host: "db"}.DSN()
	assert.Error(t, err)
}
