// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/threatiq/threatiq-backend/util"
)

// Config holds all tunables for the service.
type Config struct {
	HTTPPort string `yaml:"http_port"`

	NVD struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		WindowDays int    `yaml:"window_days"` // publish-date lookback per fetch
		PageSize   int    `yaml:"page_size"`
	} `yaml:"nvd"`

	KEV struct {
		URL string `yaml:"url"`
	} `yaml:"kev"`

	Ingest struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		TimeoutSeconds  int `yaml:"timeout_seconds"` // outbound fetch timeout
	} `yaml:"ingest"`

	Correlate struct {
		WindowDays int `yaml:"window_days"` // only threats published in this window are correlated
		ScanWindow int `yaml:"scan_window"` // number of most recent scans forming the inventory
		Workers    int `yaml:"workers"`     // tenant fan-out pool size
	} `yaml:"correlate"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{HTTPPort: "3000"}
	cfg.NVD.BaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	cfg.NVD.WindowDays = 7
	cfg.NVD.PageSize = 2000
	cfg.KEV.URL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	cfg.Ingest.IntervalMinutes = 60
	cfg.Ingest.TimeoutSeconds = 30
	cfg.Correlate.WindowDays = 30
	cfg.Correlate.ScanWindow = 10
	cfg.Correlate.Workers = 4
	cfg.Kafka.Topic = "scan-events"
	cfg.Kafka.GroupID = "threatiq-correlator"
	return cfg
}

// Load reads the config file at path (if it exists) over the defaults, then
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(content, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = util.GetEnvDefault("MS_PORT", c.HTTPPort)
	c.NVD.BaseURL = util.GetEnvDefault("NVD_BASE_URL", c.NVD.BaseURL)
	c.NVD.APIKey = util.GetEnvDefault("NVD_API_KEY", c.NVD.APIKey)
	c.NVD.WindowDays = util.GetEnvInt("NVD_WINDOW_DAYS", c.NVD.WindowDays)
	c.NVD.PageSize = util.GetEnvInt("NVD_PAGE_SIZE", c.NVD.PageSize)
	c.KEV.URL = util.GetEnvDefault("KEV_URL", c.KEV.URL)
	c.Ingest.IntervalMinutes = util.GetEnvInt("INGEST_INTERVAL_MINUTES", c.Ingest.IntervalMinutes)
	c.Ingest.TimeoutSeconds = util.GetEnvInt("INGEST_TIMEOUT_SECONDS", c.Ingest.TimeoutSeconds)
	c.Correlate.WindowDays = util.GetEnvInt("CORRELATE_WINDOW_DAYS", c.Correlate.WindowDays)
	c.Correlate.ScanWindow = util.GetEnvInt("CORRELATE_SCAN_WINDOW", c.Correlate.ScanWindow)
	c.Correlate.Workers = util.GetEnvInt("CORRELATE_WORKERS", c.Correlate.Workers)

	if brokers := util.GetEnvDefault("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.Kafka.Topic = util.GetEnvDefault("KAFKA_SCAN_TOPIC", c.Kafka.Topic)
	c.Kafka.GroupID = util.GetEnvDefault("KAFKA_GROUP_ID", c.Kafka.GroupID)
}

// IngestInterval returns the scheduled ingestion cadence.
func (c *Config) IngestInterval() time.Duration {
	return time.Duration(c.Ingest.IntervalMinutes) * time.Minute
}

// FetchTimeout returns the outbound feed request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Ingest.TimeoutSeconds) * time.Second
}
