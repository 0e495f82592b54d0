package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/enrichment"
	"github.com/JaimeStill/bidwatch/internal/extraction"
	"github.com/JaimeStill/bidwatch/internal/portal"
	"github.com/JaimeStill/bidwatch/internal/tracking"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Cases    cases.System
	Tracking tracking.System
	Pool     *enrichment.Pool
}

// NewDomain creates all domain systems from the API runtime. The enrichment
// pool is created here but started by Start.
func NewDomain(runtime *Runtime) (*Domain, error) {
	cfg := runtime.Config
	logger := runtime.Logger

	casesSystem := cases.New(
		runtime.Database.Connection(),
		logger,
		runtime.Pagination,
	)

	patterns := extraction.EmptyPatterns()
	if path := cfg.Extraction.PatternsPath; path != "" {
		loaded, err := extraction.LoadPatterns(path)
		if err != nil {
			return nil, fmt.Errorf("load skip patterns: %w", err)
		}
		patterns = loaded
	}

	agentClient := extraction.NewAgentClient(runtime.Agent)
	budget := extraction.NewBudget(&cfg.Extraction, logger)
	limiter := cfg.Extraction.Limiter()

	ocr := extraction.NewOCRExtractor(
		&cfg.Extraction,
		&http.Client{Timeout: cfg.Extraction.OCRTimeoutDuration()},
		limiter,
		logger,
	)
	vision := extraction.NewVisionExtractor(
		&cfg.Extraction,
		runtime.Storage,
		nil,
		agentClient,
		budget,
		limiter,
		logger,
	)
	router := extraction.NewRouter(ocr, vision, patterns, casesSystem, logger)

	portalClient := portal.NewClient(
		&cfg.Portal,
		&http.Client{Timeout: cfg.Portal.TimeoutDuration()},
		cfg.Portal.Limiter(),
		logger,
	)
	downloader := portal.NewDownloader(
		portalClient,
		runtime.Storage,
		casesSystem,
		cfg.Portal.KeyPrefix,
		logger,
	)

	pool := enrichment.NewPool(&cfg.Enrichment, logger)
	narrative := enrichment.NewNarrativeEnricher(agentClient, casesSystem)

	trackingSystem := tracking.New(tracking.Deps{
		Config:       &cfg.Tracking,
		Diagnosis:    &cfg.Diagnosis,
		Store:        casesSystem,
		Router:       router,
		PatternsPath: cfg.Extraction.PatternsPath,
		Budget:       budget,
		Calendar:     runtime.Calendar,
		Downloader:   downloader,
		Crawler:      portalClient,
		Pool:         pool,
		Enrichers:    []enrichment.Enricher{narrative},
		Logger:       logger,
	})

	return &Domain{
		Cases:    casesSystem,
		Tracking: trackingSystem,
		Pool:     pool,
	}, nil
}

// Start launches background workers owned by the domain.
func (d *Domain) Start(runtime *Runtime) {
	d.Pool.Start(runtime.Lifecycle)
}
