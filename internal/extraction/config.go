package extraction

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Config holds OCR service, vision pipeline, and budget settings.
type Config struct {
	OCRURL            string  `toml:"ocr_url"`
	OCRTimeout        string  `toml:"ocr_timeout"`
	MinTextLength     int     `toml:"min_text_length"`
	VisionConcurrency int     `toml:"vision_concurrency"`
	MaxVisionPages    int     `toml:"max_vision_pages"`
	DailyCostCap      float64 `toml:"daily_cost_cap"`
	WarnRatio         float64 `toml:"warn_ratio"`
	HardStop          bool    `toml:"hard_stop"`
	InputTokenPrice   float64 `toml:"input_token_price"`
	OutputTokenPrice  float64 `toml:"output_token_price"`
	TokensPerImage    int     `toml:"tokens_per_image"`
	PatternsPath      string  `toml:"patterns_path"`
	RateLimit         float64 `toml:"rate_limit"`
	RateBurst         int     `toml:"rate_burst"`
	RetryDelay        string  `toml:"retry_delay"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	OCRURL        string
	MinTextLength string
	DailyCostCap  string
	HardStop      string
	PatternsPath  string
	RateLimit     string
}

// OCRTimeoutDuration returns OCRTimeout as a time.Duration.
func (c *Config) OCRTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.OCRTimeout)
	return d
}

// RetryDelayDuration returns RetryDelay as a time.Duration.
func (c *Config) RetryDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

// Limiter returns a rate limiter for external extraction calls.
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
	if overlay.OCRURL != "" {
		c.OCRURL = overlay.OCRURL
	}
	if overlay.OCRTimeout != "" {
		c.OCRTimeout = overlay.OCRTimeout
	}
	if overlay.MinTextLength != 0 {
		c.MinTextLength = overlay.MinTextLength
	}
	if overlay.VisionConcurrency != 0 {
		c.VisionConcurrency = overlay.VisionConcurrency
	}
	if overlay.MaxVisionPages != 0 {
		c.MaxVisionPages = overlay.MaxVisionPages
	}
	if overlay.DailyCostCap != 0 {
		c.DailyCostCap = overlay.DailyCostCap
	}
	if overlay.WarnRatio != 0 {
		c.WarnRatio = overlay.WarnRatio
	}
	if overlay.HardStop {
		c.HardStop = true
	}
	if overlay.InputTokenPrice != 0 {
		c.InputTokenPrice = overlay.InputTokenPrice
	}
	if overlay.OutputTokenPrice != 0 {
		c.OutputTokenPrice = overlay.OutputTokenPrice
	}
	if overlay.TokensPerImage != 0 {
		c.TokensPerImage = overlay.TokensPerImage
	}
	if overlay.PatternsPath != "" {
		c.PatternsPath = overlay.PatternsPath
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
}

func (c *Config) loadDefaults() {
	if c.OCRURL == "" {
		c.OCRURL = "http://localhost:8081/ocr"
	}
	if c.OCRTimeout == "" {
		c.OCRTimeout = "60s"
	}
	if c.MinTextLength == 0 {
		c.MinTextLength = 100
	}
	if c.VisionConcurrency == 0 {
		c.VisionConcurrency = 4
	}
	if c.MaxVisionPages == 0 {
		c.MaxVisionPages = 20
	}
	if c.DailyCostCap == 0 {
		c.DailyCostCap = 25
	}
	if c.WarnRatio == 0 {
		c.WarnRatio = 0.8
	}
	if c.InputTokenPrice == 0 {
		c.InputTokenPrice = 0.0025
	}
	if c.OutputTokenPrice == 0 {
		c.OutputTokenPrice = 0.01
	}
	if c.TokensPerImage == 0 {
		c.TokensPerImage = 1100
	}
	if c.RateLimit == 0 {
		c.RateLimit = 2
	}
	if c.RateBurst == 0 {
		c.RateBurst = 4
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "500ms"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.OCRURL != "" {
		if v := os.Getenv(env.OCRURL); v != "" {
			c.OCRURL = v
		}
	}
	if env.MinTextLength != "" {
		if v := os.Getenv(env.MinTextLength); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MinTextLength = n
			}
		}
	}
	if env.DailyCostCap != "" {
		if v := os.Getenv(env.DailyCostCap); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.DailyCostCap = f
			}
		}
	}
	if env.HardStop != "" {
		if v := os.Getenv(env.HardStop); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.HardStop = b
			}
		}
	}
	if env.PatternsPath != "" {
		if v := os.Getenv(env.PatternsPath); v != "" {
			c.PatternsPath = v
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
	if c.OCRURL == "" {
		return fmt.Errorf("ocr_url required")
	}
	if _, err := time.ParseDuration(c.OCRTimeout); err != nil {
		return fmt.Errorf("invalid ocr_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryDelay); err != nil {
		return fmt.Errorf("invalid retry_delay: %w", err)
	}
	if c.MinTextLength < 1 {
		return fmt.Errorf("min_text_length must be positive")
	}
	if c.VisionConcurrency < 1 {
		return fmt.Errorf("vision_concurrency must be positive")
	}
	if c.DailyCostCap < 0 {
		return fmt.Errorf("daily_cost_cap must not be negative")
	}
	if c.WarnRatio <= 0 || c.WarnRatio > 1 {
		return fmt.Errorf("warn_ratio must be in (0, 1]")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive")
	}
	return nil
}
