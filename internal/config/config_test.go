package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://localhost:5432/payments?sslmode=disable"

redis:
  addr: "localhost:6379"

funnel:
  product_match: "coaching"
  exclude_products: ["trial"]
  recent_window_days: 14
  expiring_soon_days: 7
  timezone: "UTC"

cache:
  ttl_seconds: 60

refresh:
  enabled: true
  interval_seconds: 120

archive:
  type: "aws"
  s3_bucket: "funnel-reports"
  dynamodb_table: "funnel-kpis"

logging:
  level: "debug"
  redact_pii: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "http://localhost:9090", cfg.Server.BaseURL)
	assert.Equal(t, "postgres://localhost:5432/payments?sslmode=disable", cfg.Database.URL)
	assert.True(t, cfg.Redis.Enabled())

	assert.Equal(t, "coaching", cfg.Funnel.ProductMatch)
	assert.Equal(t, []string{"trial"}, cfg.Funnel.ExcludeProducts)
	assert.Equal(t, 14*24*time.Hour, cfg.Funnel.RecentWindow())
	assert.Equal(t, 7, cfg.Funnel.ExpiringSoonDays)
	assert.Equal(t, time.UTC, cfg.Funnel.Location())

	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Refresh.Interval())

	assert.Equal(t, "aws", cfg.Archive.Type)
	assert.Equal(t, "funnel-reports", cfg.Archive.S3Bucket)
	assert.Equal(t, "funnel-kpis", cfg.Archive.DynamoDBTable)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Redact())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "intimate", cfg.Funnel.ProductMatch)
	assert.Equal(t, []string{"69 ebook", "32 ebook"}, cfg.Funnel.ExcludeProducts)
	assert.Equal(t, 30*24*time.Hour, cfg.Funnel.RecentWindow())
	assert.Equal(t, 10, cfg.Funnel.ExpiringSoonDays)
	assert.Equal(t, "Asia/Kolkata", cfg.Funnel.Timezone)
	assert.Equal(t, 10, cfg.Funnel.DefaultPageSize)
	assert.Equal(t, 100, cfg.Funnel.MaxPageSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 2*time.Minute, cfg.Refresh.LockTTL())
	assert.Equal(t, "local", cfg.Archive.Type)
	assert.Equal(t, "funnel_session", cfg.Auth.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL())
	assert.Equal(t, "memory", cfg.Auth.SessionStore)
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Logging.Redact())
}

func TestLoadExplicitEmptyExclusions(t *testing.T) {
	cfg, err := Load(writeConfig(t, "funnel:\n  exclude_products: []\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Funnel.ExcludeProducts)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://file"
redis:
  addr: "file:6379"
`)

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.Database.URL)
	assert.Equal(t, "env:6379", cfg.Redis.Addr)
	assert.Equal(t, "client-id", cfg.Auth.GoogleClientID)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLocationFallback(t *testing.T) {
	loc := FunnelConfig{Timezone: "Not/AZone"}.Location()
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 5*3600+30*60, offset)
}
