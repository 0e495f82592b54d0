package diagnosis

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds per-tier attempt limits.
type Config struct {
	ReextractAttempts  int    `toml:"re_extract_attempts"`
	RedownloadAttempts int    `toml:"re_download_attempts"`
	RecrawlAttempts    int    `toml:"re_crawl_attempts"`
	RetryDelay         string `toml:"retry_delay"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ReextractAttempts  string
	RedownloadAttempts string
	RecrawlAttempts    string
}

// Attempts returns the attempt limit for tier.
func (c *Config) Attempts(tier Tier) int {
	switch tier {
	case TierReextract:
		return c.ReextractAttempts
	case TierRedownload:
		return c.RedownloadAttempts
	case TierRecrawl:
		return c.RecrawlAttempts
	}
	return 1
}

// RetryDelayDuration returns RetryDelay as a time.Duration.
func (c *Config) RetryDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ReextractAttempts != 0 {
		c.ReextractAttempts = overlay.ReextractAttempts
	}
	if overlay.RedownloadAttempts != 0 {
		c.RedownloadAttempts = overlay.RedownloadAttempts
	}
	if overlay.RecrawlAttempts != 0 {
		c.RecrawlAttempts = overlay.RecrawlAttempts
	}
	if overlay.RetryDelay != "" {
		c.RetryDelay = overlay.RetryDelay
	}
}

func (c *Config) loadDefaults() {
	if c.ReextractAttempts == 0 {
		c.ReextractAttempts = 2
	}
	if c.RedownloadAttempts == 0 {
		c.RedownloadAttempts = 2
	}
	if c.RecrawlAttempts == 0 {
		c.RecrawlAttempts = 1
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "2s"
	}
}

func (c *Config) loadEnv(env *Env) {
	load := func(name string, dst *int) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	load(env.ReextractAttempts, &c.ReextractAttempts)
	load(env.RedownloadAttempts, &c.RedownloadAttempts)
	load(env.RecrawlAttempts, &c.RecrawlAttempts)
}

func (c *Config) validate() error {
	for _, tier := range Tiers {
		if c.Attempts(tier) < 1 {
			return fmt.Errorf("%s attempts must be positive", tier)
		}
	}
	if _, err := time.ParseDuration(c.RetryDelay); err != nil {
		return fmt.Errorf("invalid retry_delay: %w", err)
	}
	return nil
}
