package extraction_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
	"github.com/JaimeStill/bidwatch/internal/extraction"
	"github.com/JaimeStill/bidwatch/pkg/lifecycle"
	"github.com/JaimeStill/bidwatch/pkg/storage"
)

type fakeStorage struct {
	blobs map[string][]byte
}

func (f *fakeStorage) Start(*lifecycle.Coordinator) error { return nil }

func (f *fakeStorage) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.blobs, key)
	return nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.blobs[key]
	return ok, nil
}

type fakeRenderer struct {
	pages []string
}

func (f fakeRenderer) Render(_ context.Context, _ []byte, maxPages int) ([]string, error) {
	if maxPages > 0 && len(f.pages) > maxPages {
		return f.pages[:maxPages], nil
	}
	return f.pages, nil
}

type fakeVision struct {
	mu        sync.Mutex
	responses map[string]string
	calls     int
}

func (f *fakeVision) Vision(_ context.Context, _ string, images []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.responses[images[0]], nil
}

func visionConfig() *extraction.Config {
	return &extraction.Config{
		VisionConcurrency: 2,
		MaxVisionPages:    10,
		DailyCostCap:      100,
		WarnRatio:         0.8,
		TokensPerImage:    1000,
		InputTokenPrice:   0.001,
		OutputTokenPrice:  0.001,
		RateLimit:         1000,
		RateBurst:         10,
		RetryDelay:        "1ms",
	}
}

func TestVisionExtractor(t *testing.T) {
	store := &fakeStorage{blobs: map[string][]byte{"cases/a.pdf": []byte("%PDF-1.7")}}
	client := &fakeVision{responses: map[string]string{
		"page-1": "```json\n{\"property_address\":\"123 Oak Street\",\"bid_amount\":null,\"confidence\":\"high\"}\n```",
		"page-2": `{"bid_amount":245000,"minimum_next_bid":257250,"sale_date":"2026-03-02","document_date":"2026-03-03","confidence":"medium"}`,
		"page-3": `{"bid_amount":1,"confidence":"high"}`,
	}}

	cfg := visionConfig()
	budget := extraction.NewBudget(cfg, discard())
	e := extraction.NewVisionExtractor(
		cfg, store,
		fakeRenderer{pages: []string{"page-1", "page-2", "page-3"}},
		client, budget, nil, discard(),
	)

	doc := cases.Document{ID: uuid.New(), FilePath: "a.pdf", StorageKey: ptr("cases/a.pdf")}
	out, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	r := out.Result
	if r.Method != cases.MethodVision {
		t.Errorf("method = %s, want vision", r.Method)
	}
	if r.DocumentID != doc.ID {
		t.Errorf("document id = %v, want %v", r.DocumentID, doc.ID)
	}
	if r.PropertyAddress == nil || *r.PropertyAddress != "123 Oak Street" {
		t.Errorf("address = %v", r.PropertyAddress)
	}
	if r.BidAmount == nil || *r.BidAmount != 245000 {
		t.Errorf("bid = %v, want 245000 from the first page reporting one", r.BidAmount)
	}
	if r.SaleDate == nil || !r.SaleDate.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("sale date = %v", r.SaleDate)
	}
	if r.Confidence != cases.ConfidenceMedium {
		t.Errorf("confidence = %s, want lowest contributing (medium)", r.Confidence)
	}
	if client.calls != 3 {
		t.Errorf("vision calls = %d, want 3", client.calls)
	}
	if u := budget.Usage(); u.Calls != 3 || u.Cost <= 0 {
		t.Errorf("budget usage = %+v, want 3 charged calls", u)
	}
}

func TestVisionExtractorNoPages(t *testing.T) {
	store := &fakeStorage{blobs: map[string][]byte{"k": []byte("%PDF")}}
	client := &fakeVision{}

	cfg := visionConfig()
	e := extraction.NewVisionExtractor(cfg, store, fakeRenderer{}, client, extraction.NewBudget(cfg, discard()), nil, discard())

	out, err := e.Extract(context.Background(), cases.Document{ID: uuid.New(), StorageKey: ptr("k")})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !out.Result.Empty() {
		t.Errorf("result = %+v, want empty", out.Result)
	}
	if client.calls != 0 {
		t.Errorf("vision calls = %d, want 0", client.calls)
	}
}

func TestVisionExtractorRequiresStoredFile(t *testing.T) {
	cfg := visionConfig()
	e := extraction.NewVisionExtractor(
		cfg, &fakeStorage{blobs: map[string][]byte{}},
		fakeRenderer{pages: []string{"p"}}, &fakeVision{},
		extraction.NewBudget(cfg, discard()), nil, discard(),
	)

	_, err := e.Extract(context.Background(), cases.Document{ID: uuid.New(), FilePath: "a.pdf"})
	if err == nil || !strings.Contains(err.Error(), extraction.ErrNoSource.Error()) {
		t.Errorf("error = %v, want no source", err)
	}
}

func TestVisionExtractorBudgetHardStop(t *testing.T) {
	cfg := visionConfig()
	cfg.HardStop = true
	cfg.DailyCostCap = 0.01

	budget := extraction.NewBudget(cfg, discard())
	budget.Charge(100000, 0)

	e := extraction.NewVisionExtractor(cfg, &fakeStorage{}, fakeRenderer{}, &fakeVision{}, budget, nil, discard())

	_, err := e.Extract(context.Background(), cases.Document{ID: uuid.New(), StorageKey: ptr("k")})
	if !errors.Is(err, extraction.ErrBudgetExceeded) {
		t.Errorf("error = %v, want ErrBudgetExceeded", err)
	}
}
