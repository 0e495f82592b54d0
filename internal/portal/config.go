package portal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Config holds court portal and crawler service settings.
type Config struct {
	CrawlerURL string  `toml:"crawler_url"`
	UserAgent  string  `toml:"user_agent"`
	Timeout    string  `toml:"timeout"`
	RateLimit  float64 `toml:"rate_limit"`
	RateBurst  int     `toml:"rate_burst"`
	RetryDelay string  `toml:"retry_delay"`
	KeyPrefix  string  `toml:"key_prefix"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	CrawlerURL string
	UserAgent  string
	RateLimit  string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// RetryDelayDuration returns RetryDelay as a time.Duration.
func (c *Config) RetryDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

// Limiter returns a rate limiter shared by every portal request.
func (c *Config) Limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.RateLimit), max(c.RateBurst, 1))
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
	if overlay.CrawlerURL != "" {
		c.CrawlerURL = overlay.CrawlerURL
	}
	if overlay.UserAgent != "" {
		c.UserAgent = overlay.UserAgent
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.RateLimit != 0 {
		c.RateLimit = overlay.RateLimit
	}
	if overlay.RateBurst != 0 {
		c.RateBurst = overlay.RateBurst
	}
	if overlay.RetryDelay != "" {
		c.RetryDelay = overlay.RetryDelay
	}
	if overlay.KeyPrefix != "" {
		c.KeyPrefix = overlay.KeyPrefix
	}
}

func (c *Config) loadDefaults() {
	if c.CrawlerURL == "" {
		c.CrawlerURL = "http://localhost:8082/crawl"
	}
	if c.UserAgent == "" {
		c.UserAgent = "bidwatch/1.0"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.RateLimit == 0 {
		c.RateLimit = 1
	}
	if c.RateBurst == 0 {
		c.RateBurst = 2
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "1s"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "cases"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.CrawlerURL != "" {
		if v := os.Getenv(env.CrawlerURL); v != "" {
			c.CrawlerURL = v
		}
	}
	if env.UserAgent != "" {
		if v := os.Getenv(env.UserAgent); v != "" {
			c.UserAgent = v
		}
	}
	if env.RateLimit != "" {
		if v := os.Getenv(env.RateLimit); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.RateLimit = f
			}
		}
	}
}

func (c *Config) validate() error {
	if c.CrawlerURL == "" {
		return fmt.Errorf("crawler_url required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryDelay); err != nil {
		return fmt.Errorf("invalid retry_delay: %w", err)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive")
	}
	return nil
}
