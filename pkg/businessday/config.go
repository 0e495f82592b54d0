package businessday

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Config holds the holiday calendar and close-of-business settings.
type Config struct {
	TimeZone        string   `toml:"time_zone"`
	CloseOfBusiness string   `toml:"close_of_business"`
	Holidays        []string `toml:"holidays"`
}

// Env maps config fields to environment variable names for override injection.
// Holidays is a comma-separated list of YYYY-MM-DD dates.
type Env struct {
	TimeZone        string
	CloseOfBusiness string
	Holidays        string
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. A non-empty overlay holiday
// list replaces the base list.
func (c *Config) Merge(overlay *Config) {
	if overlay.TimeZone != "" {
		c.TimeZone = overlay.TimeZone
	}
	if overlay.CloseOfBusiness != "" {
		c.CloseOfBusiness = overlay.CloseOfBusiness
	}
	if len(overlay.Holidays) > 0 {
		c.Holidays = overlay.Holidays
	}
}

func (c *Config) loadDefaults() {
	if c.TimeZone == "" {
		c.TimeZone = "America/New_York"
	}
	if c.CloseOfBusiness == "" {
		c.CloseOfBusiness = "17:00"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.TimeZone != "" {
		if v := os.Getenv(env.TimeZone); v != "" {
			c.TimeZone = v
		}
	}
	if env.CloseOfBusiness != "" {
		if v := os.Getenv(env.CloseOfBusiness); v != "" {
			c.CloseOfBusiness = v
		}
	}
	if env.Holidays != "" {
		if v := os.Getenv(env.Holidays); v != "" {
			var days []string
			for d := range strings.SplitSeq(v, ",") {
				if d = strings.TrimSpace(d); d != "" {
					days = append(days, d)
				}
			}
			c.Holidays = days
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid time_zone: %w", err)
	}
	if _, err := time.Parse(clockLayout, c.CloseOfBusiness); err != nil {
		return fmt.Errorf("invalid close_of_business: %w", err)
	}
	for _, h := range c.Holidays {
		if _, err := time.Parse(dateLayout, h); err != nil {
			return fmt.Errorf("invalid holiday %q: %w", h, err)
		}
	}
	return nil
}
