package enrichment

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config sizes the background pool.
type Config struct {
	Workers     int    `toml:"workers"`
	QueueSize   int    `toml:"queue_size"`
	TaskTimeout string `toml:"task_timeout"`
	StopGrace   string `toml:"stop_grace"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Workers   string
	QueueSize string
}

// TaskTimeoutDuration returns TaskTimeout as a time.Duration.
func (c *Config) TaskTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.TaskTimeout)
	return d
}

// StopGraceDuration returns StopGrace as a time.Duration.
func (c *Config) StopGraceDuration() time.Duration {
	d, _ := time.ParseDuration(c.StopGrace)
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
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.QueueSize != 0 {
		c.QueueSize = overlay.QueueSize
	}
	if overlay.TaskTimeout != "" {
		c.TaskTimeout = overlay.TaskTimeout
	}
	if overlay.StopGrace != "" {
		c.StopGrace = overlay.StopGrace
	}
}

func (c *Config) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	if c.TaskTimeout == "" {
		c.TaskTimeout = "5m"
	}
	if c.StopGrace == "" {
		c.StopGrace = "5s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
	if env.QueueSize != "" {
		if v := os.Getenv(env.QueueSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.QueueSize = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive")
	}
	if _, err := time.ParseDuration(c.TaskTimeout); err != nil {
		return fmt.Errorf("invalid task_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.StopGrace); err != nil {
		return fmt.Errorf("invalid stop_grace: %w", err)
	}
	return nil
}
