package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.HTTPPort)
	assert.Equal(t, 7, cfg.NVD.WindowDays)
	assert.Equal(t, 2000, cfg.NVD.PageSize)
	assert.Equal(t, 30, cfg.Correlate.WindowDays)
	assert.Equal(t, 4, cfg.Correlate.Workers)
	assert.Equal(t, time.Hour, cfg.IngestInterval())
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_port: "8080"
nvd:
  window_days: 3
correlate:
  workers: 8
kafka:
  brokers:
    - broker-1:9092
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 3, cfg.NVD.WindowDays)
	assert.Equal(t, 8, cfg.Correlate.Workers)
	assert.Equal(t, []string{"broker-1:9092"}, cfg.Kafka.Brokers)

	// Unset fields keep their defaults.
	assert.Equal(t, 30, cfg.Correlate.WindowDays)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.HTTPPort)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: \"8080\"\n"), 0o600))

	t.Setenv("MS_PORT", "9090")
	t.Setenv("NVD_WINDOW_DAYS", "14")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 14, cfg.NVD.WindowDays)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: [\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
