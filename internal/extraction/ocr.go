package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/pkg/retry"
)

type ocrRequest struct {
	DocumentPath string `json:"document_path"`
}

type ocrResponse struct {
	Text *string `json:"text"`
}

// OCRExtractor sends a document path to the OCR service and parses fields
// from the returned text.
type OCRExtractor struct {
	client        *http.Client
	url           string
	minTextLength int
	limiter       *rate.Limiter
	retry         retry.Policy
	logger        *slog.Logger
}

// NewOCRExtractor creates an OCR extractor from the extraction config.
func NewOCRExtractor(cfg *Config, client *http.Client, limiter *rate.Limiter, logger *slog.Logger) *OCRExtractor {
	if client == nil {
		client = &http.Client{Timeout: cfg.OCRTimeoutDuration()}
	}
	if limiter == nil {
		limiter = cfg.Limiter()
	}

	policy := retry.Default()
	policy.BaseDelay = cfg.RetryDelayDuration()
	policy.Retryable = func(err error) bool { return errors.Is(err, ErrTransient) }

	return &OCRExtractor{
		client:        client,
		url:           cfg.OCRURL,
		minTextLength: cfg.MinTextLength,
		limiter:       limiter,
		retry:         policy,
		logger:        logger.With("extractor", "ocr"),
	}
}

func (e *OCRExtractor) Method() cases.Method { return cases.MethodOCR }

func (e *OCRExtractor) Extract(ctx context.Context, doc cases.Document) (*Output, error) {
	var text *string
	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		t, err := e.call(ctx, documentKey(doc))
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if text == nil || len(strings.TrimSpace(*text)) < e.minTextLength {
		length := 0
		if text != nil {
			length = len(strings.TrimSpace(*text))
		}
		return nil, fmt.Errorf("%w: %d characters, need %d", ErrEmptyResult, length, e.minTextLength)
	}

	result := ParseText(*text)
	result.DocumentID = doc.ID

	e.logger.DebugContext(
		ctx, "ocr extraction complete",
		"document_id", doc.ID,
		"text_length", len(*text),
		"confidence", result.Confidence,
	)

	return &Output{Result: result, Text: text}, nil
}

func (e *OCRExtractor) call(ctx context.Context, documentPath string) (*string, error) {
	body, err := json.Marshal(ocrRequest{DocumentPath: documentPath})
	if err != nil {
		return nil, fmt.Errorf("marshal ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ocr request: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: ocr service returned %d", ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode ocr response: %w", ErrTransient, err)
	}

	return out.Text, nil
}
