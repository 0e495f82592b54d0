// Package config loads the service configuration from TOML files and
// BIDWATCH_ environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/bidwatch/internal/diagnosis"
	"github.com/JaimeStill/bidwatch/internal/enrichment"
	"github.com/JaimeStill/bidwatch/internal/extraction"
	"github.com/JaimeStill/bidwatch/internal/portal"
	"github.com/JaimeStill/bidwatch/internal/tracking"
	"github.com/JaimeStill/bidwatch/pkg/businessday"
	"github.com/JaimeStill/bidwatch/pkg/database"
	"github.com/JaimeStill/bidwatch/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvBidwatchEnv             = "BIDWATCH_ENV"
	EnvBidwatchShutdownTimeout = "BIDWATCH_SHUTDOWN_TIMEOUT"
	EnvBidwatchVersion         = "BIDWATCH_VERSION"
)

// DatabaseEnv names the variables that override the database section.
var DatabaseEnv = &database.Env{
	Host:            "BIDWATCH_DB_HOST",
	Port:            "BIDWATCH_DB_PORT",
	Name:            "BIDWATCH_DB_NAME",
	User:            "BIDWATCH_DB_USER",
	Password:        "BIDWATCH_DB_PASSWORD",
	SSLMode:         "BIDWATCH_DB_SSL_MODE",
	MaxOpenConns:    "BIDWATCH_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "BIDWATCH_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "BIDWATCH_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "BIDWATCH_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "BIDWATCH_STORAGE_CONTAINER_NAME",
	ConnectionString: "BIDWATCH_STORAGE_CONNECTION_STRING",
	AccountURL:       "BIDWATCH_STORAGE_ACCOUNT_URL",
	MaxRetries:       "BIDWATCH_STORAGE_MAX_RETRIES",
}

var calendarEnv = &businessday.Env{
	TimeZone:        "BIDWATCH_CALENDAR_TIME_ZONE",
	CloseOfBusiness: "BIDWATCH_CALENDAR_CLOSE_OF_BUSINESS",
	Holidays:        "BIDWATCH_CALENDAR_HOLIDAYS",
}

var trackingEnv = &tracking.Env{
	GraceDays:        "BIDWATCH_TRACKING_GRACE_DAYS",
	UpsetBidDays:     "BIDWATCH_TRACKING_UPSET_BID_DAYS",
	SweepConcurrency: "BIDWATCH_TRACKING_SWEEP_CONCURRENCY",
}

var diagnosisEnv = &diagnosis.Env{
	ReextractAttempts:  "BIDWATCH_DIAGNOSIS_REEXTRACT_ATTEMPTS",
	RedownloadAttempts: "BIDWATCH_DIAGNOSIS_REDOWNLOAD_ATTEMPTS",
	RecrawlAttempts:    "BIDWATCH_DIAGNOSIS_RECRAWL_ATTEMPTS",
}

var extractionEnv = &extraction.Env{
	OCRURL:        "BIDWATCH_EXTRACTION_OCR_URL",
	MinTextLength: "BIDWATCH_EXTRACTION_MIN_TEXT_LENGTH",
	DailyCostCap:  "BIDWATCH_EXTRACTION_DAILY_COST_CAP",
	HardStop:      "BIDWATCH_EXTRACTION_HARD_STOP",
	PatternsPath:  "BIDWATCH_EXTRACTION_PATTERNS_PATH",
	RateLimit:     "BIDWATCH_EXTRACTION_RATE_LIMIT",
}

var portalEnv = &portal.Env{
	CrawlerURL: "BIDWATCH_PORTAL_CRAWLER_URL",
	UserAgent:  "BIDWATCH_PORTAL_USER_AGENT",
	RateLimit:  "BIDWATCH_PORTAL_RATE_LIMIT",
}

var enrichmentEnv = &enrichment.Env{
	Workers:   "BIDWATCH_ENRICHMENT_WORKERS",
	QueueSize: "BIDWATCH_ENRICHMENT_QUEUE_SIZE",
}

// Config is the root configuration for the bidwatch service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Calendar        businessday.Config   `toml:"calendar"`
	Tracking        tracking.Config      `toml:"tracking"`
	Diagnosis       diagnosis.Config     `toml:"diagnosis"`
	Extraction      extraction.Config    `toml:"extraction"`
	Portal          portal.Config        `toml:"portal"`
	Enrichment      enrichment.Config    `toml:"enrichment"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the BIDWATCH_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvBidwatchEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Calendar.Merge(&overlay.Calendar)
	c.Tracking.Merge(&overlay.Tracking)
	c.Diagnosis.Merge(&overlay.Diagnosis)
	c.Extraction.Merge(&overlay.Extraction)
	c.Portal.Merge(&overlay.Portal)
	c.Enrichment.Merge(&overlay.Enrichment)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(DatabaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"agent", func() error { return FinalizeAgent(&c.Agent) }},
		{"calendar", func() error { return c.Calendar.Finalize(calendarEnv) }},
		{"tracking", func() error { return c.Tracking.Finalize(trackingEnv) }},
		{"diagnosis", func() error { return c.Diagnosis.Finalize(diagnosisEnv) }},
		{"extraction", func() error { return c.Extraction.Finalize(extractionEnv) }},
		{"portal", func() error { return c.Portal.Finalize(portalEnv) }},
		{"enrichment", func() error { return c.Enrichment.Finalize(enrichmentEnv) }},
	}

	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvBidwatchShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvBidwatchVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvBidwatchEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
