package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "6000", cfg.Web.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "sentrix-pipeline", cfg.Kafka.PipelineTopic)
	assert.Equal(t, 5*time.Minute, cfg.Rules.CacheTTL)
	assert.Equal(t, int32(25), cfg.Postgres.MaxConns)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentrix.yaml")
	content := []byte(`
web:
  port: "8080"
kafka:
  brokers:
    - broker-1:9092
    - broker-2:9092
crawler:
  rate_per_second: 2.5
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Web.Port)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.InDelta(t, 2.5, cfg.Crawler.RatePerSecond, 0.001)
	assert.Equal(t, "sentrix-control", cfg.Kafka.ControlTopic)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SENTRIX_WEB_PORT", "9999")
	t.Setenv("SENTRIX_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Web.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load("/nonexistent/sentrix.yaml")
	assert.Error(t, err)
}
