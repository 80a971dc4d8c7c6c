package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

database:
  dsn: "postgres://localhost/coldroute"
  max_open_conns: 25

campaign_db:
  host: "mailwizz-db"
  failover_host: "172.17.0.1"
  port: 5432

nodes:
  - node_id: vps1
    host: vps1.example.com
    domains: ["example.com"]

warmup:
  emergency_bounce_rate: 0.08
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "postgres://localhost/coldroute", cfg.Database.DSN)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "mailwizz-db", cfg.CampaignDB.Host)
	assert.Equal(t, "172.17.0.1", cfg.CampaignDB.FailoverHost)
	assert.Len(t, cfg.Nodes, 1)
	assert.Equal(t, "vps1", cfg.Nodes[0].NodeID)
	assert.Equal(t, 0.08, cfg.Warmup.EmergencyBounceRate)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 1\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 200, cfg.Webhook.RateLimitPerMin)
	assert.Equal(t, 0.05, cfg.Warmup.EmergencyBounceRate)
	assert.Equal(t, 0.001, cfg.Warmup.EmergencySpamRate)
	assert.Equal(t, 0.02, cfg.Warmup.MaxBounceRate7d)
	assert.Equal(t, 0.0003, cfg.Warmup.MaxSpamRate7d)
	assert.Equal(t, 14, cfg.Warmup.RestDays)
	assert.Len(t, cfg.RBL.Zones, 8)
	assert.Contains(t, cfg.RBL.Zones, "zen.spamhaus.org")
}

func TestLoadFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database:\n  dsn: \"file-dsn\"\n"), 0644))

	os.Setenv("DATABASE_DSN", "env-dsn")
	os.Setenv("WEBHOOK_HMAC_SECRET", "supersecret")
	defer func() {
		os.Unsetenv("DATABASE_DSN")
		os.Unsetenv("WEBHOOK_HMAC_SECRET")
	}()

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "env-dsn", cfg.Database.DSN)
	assert.Equal(t, "supersecret", cfg.Webhook.HMACSecret)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestDatabaseTimeout(t *testing.T) {
	cfg := DatabaseConfig{TimeoutSeconds: 10}
	assert.Equal(t, int64(10e9), cfg.Timeout().Nanoseconds())
}
