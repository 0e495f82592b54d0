package tracking

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// Config holds classification sweep settings.
type Config struct {
	GraceDays        int                 `toml:"grace_days"`
	UpsetBidDays     int                 `toml:"upset_bid_days"`
	SweepConcurrency int                 `toml:"sweep_concurrency"`
	RequiredFields   map[string][]string `toml:"required_fields"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	GraceDays        string
	UpsetBidDays     string
	SweepConcurrency string
}

// Grace returns the closed-case grace window.
func (c *Config) Grace() time.Duration {
	return time.Duration(c.GraceDays) * 24 * time.Hour
}

// Required returns the required-field table keyed by classification.
func (c *Config) Required() cases.RequiredFields {
	out := make(cases.RequiredFields, len(c.RequiredFields))
	for class, fields := range c.RequiredFields {
		out[cases.Classification(class)] = fields
	}
	return out
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. A required_fields table in
// the overlay replaces the base table whole.
func (c *Config) Merge(overlay *Config) {
	if overlay.GraceDays != 0 {
		c.GraceDays = overlay.GraceDays
	}
	if overlay.UpsetBidDays != 0 {
		c.UpsetBidDays = overlay.UpsetBidDays
	}
	if overlay.SweepConcurrency != 0 {
		c.SweepConcurrency = overlay.SweepConcurrency
	}
	if len(overlay.RequiredFields) > 0 {
		c.RequiredFields = overlay.RequiredFields
	}
}

func (c *Config) loadDefaults() {
	if c.GraceDays == 0 {
		c.GraceDays = 7
	}
	if c.UpsetBidDays == 0 {
		c.UpsetBidDays = 10
	}
	if c.SweepConcurrency == 0 {
		c.SweepConcurrency = 4
	}
	if len(c.RequiredFields) == 0 {
		c.RequiredFields = make(map[string][]string)
		for class, fields := range cases.DefaultRequiredFields() {
			c.RequiredFields[string(class)] = fields
		}
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
	load(env.GraceDays, &c.GraceDays)
	load(env.UpsetBidDays, &c.UpsetBidDays)
	load(env.SweepConcurrency, &c.SweepConcurrency)
}

func (c *Config) validate() error {
	if c.GraceDays < 0 {
		return fmt.Errorf("grace_days must not be negative")
	}
	if c.UpsetBidDays < 1 {
		return fmt.Errorf("upset_bid_days must be positive")
	}
	if c.SweepConcurrency < 1 {
		return fmt.Errorf("sweep_concurrency must be positive")
	}
	if err := c.Required().Validate(); err != nil {
		return fmt.Errorf("required_fields: %w", err)
	}
	return nil
}
