package extraction

import (
	"log/slog"
	"sync"
	"time"
)

// Usage is a snapshot of vision spend for one UTC day.
type Usage struct {
	Day          string  `json:"day"`
	Calls        int     `json:"calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	Cap          float64 `json:"cap"`
	Remaining    float64 `json:"remaining"`
	HardStop     bool    `json:"hard_stop"`
	Warned       bool    `json:"warned"`
}

// Budget tracks vision token usage and cost per UTC day. Reaching the warn
// ratio logs once per day; reaching the cap refuses calls only when hard
// stop is configured. A zero cap disables tracking limits.
type Budget struct {
	mu       sync.Mutex
	cap      float64
	warn     float64
	hardStop bool
	inPrice  float64
	outPrice float64
	usage    Usage
	now      func() time.Time
	logger   *slog.Logger
}

// NewBudget creates a Budget from the extraction config.
func NewBudget(cfg *Config, logger *slog.Logger) *Budget {
	return &Budget{
		cap:      cfg.DailyCostCap,
		warn:     cfg.WarnRatio,
		hardStop: cfg.HardStop,
		inPrice:  cfg.InputTokenPrice,
		outPrice: cfg.OutputTokenPrice,
		now:      time.Now,
		logger:   logger.With("component", "budget"),
	}
}

// WithClock replaces the time source. Used by tests.
func (b *Budget) WithClock(now func() time.Time) *Budget {
	b.now = now
	return b
}

// Allow reports whether another vision call may be made.
func (b *Budget) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roll()

	if b.hardStop && b.cap > 0 && b.usage.Cost >= b.cap {
		return ErrBudgetExceeded
	}
	return nil
}

// Charge records one vision call. Prices are per thousand tokens.
func (b *Budget) Charge(inputTokens, outputTokens int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roll()

	cost := float64(inputTokens)/1000*b.inPrice + float64(outputTokens)/1000*b.outPrice

	b.usage.Calls++
	b.usage.InputTokens += inputTokens
	b.usage.OutputTokens += outputTokens
	b.usage.Cost += cost

	if b.cap <= 0 {
		return
	}

	if !b.usage.Warned && b.usage.Cost >= b.cap*b.warn {
		b.usage.Warned = true
		b.logger.Warn(
			"vision budget approaching daily cap",
			"cost", b.usage.Cost,
			"cap", b.cap,
			"hard_stop", b.hardStop,
		)
	}
}

// Usage returns the current day's usage.
func (b *Budget) Usage() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roll()

	u := b.usage
	u.Cap = b.cap
	u.HardStop = b.hardStop
	u.Remaining = max(b.cap-u.Cost, 0)
	return u
}

func (b *Budget) roll() {
	day := b.now().UTC().Format(time.DateOnly)
	if b.usage.Day != day {
		b.usage = Usage{Day: day}
	}
}

// EstimateTokens approximates token counts for budget accounting: four
// characters per token for text plus a fixed cost per image.
func EstimateTokens(text string, images, perImage int) int {
	return len(text)/4 + images*perImage
}
