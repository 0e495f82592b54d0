package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/bidwatch/pkg/formatting"
	"github.com/JaimeStill/bidwatch/pkg/middleware"
	"github.com/JaimeStill/bidwatch/pkg/openapi"
	"github.com/JaimeStill/bidwatch/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "BIDWATCH_CORS_ENABLED",
	Origins:          "BIDWATCH_CORS_ORIGINS",
	AllowedMethods:   "BIDWATCH_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "BIDWATCH_CORS_ALLOWED_HEADERS",
	AllowCredentials: "BIDWATCH_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "BIDWATCH_CORS_MAX_AGE",
}

var authEnv = &middleware.AuthEnv{
	Enabled:   "BIDWATCH_AUTH_ENABLED",
	IssuerURL: "BIDWATCH_AUTH_ISSUER_URL",
	ClientID:  "BIDWATCH_AUTH_CLIENT_ID",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "BIDWATCH_OPENAPI_TITLE",
	Description: "BIDWATCH_OPENAPI_DESCRIPTION",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "BIDWATCH_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "BIDWATCH_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, auth, pagination, and OpenAPI settings.
type APIConfig struct {
	BasePath       string                `toml:"base_path"`
	MaxRequestSize string                `toml:"max_request_size"`
	CORS           middleware.CORSConfig `toml:"cors"`
	Auth           middleware.AuthConfig `toml:"auth"`
	Pagination     pagination.Config     `toml:"pagination"`
	OpenAPI        openapi.Config        `toml:"openapi"`
}

// MaxRequestSizeBytes bounds JSON request bodies.
func (c *APIConfig) MaxRequestSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxRequestSize)
	if err != nil {
		return 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxRequestSize != "" {
		c.MaxRequestSize = overlay.MaxRequestSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Auth.Merge(&overlay.Auth)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxRequestSize == "" {
		c.MaxRequestSize = "1MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("BIDWATCH_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("BIDWATCH_API_MAX_REQUEST_SIZE"); v != "" {
		c.MaxRequestSize = v
	}
}
