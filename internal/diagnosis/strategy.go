package diagnosis

import (
	"context"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// Tier names a repair strategy. Tiers run cheapest first.
type Tier string

// Repair tiers.
const (
	TierReextract  Tier = "re_extract"
	TierRedownload Tier = "re_download"
	TierRecrawl    Tier = "re_crawl"
)

// Tiers lists every tier in escalation order.
var Tiers = []Tier{TierReextract, TierRedownload, TierRecrawl}

// Strategy is one repair tier.
type Strategy interface {
	Tier() Tier
	Attempt(ctx context.Context, c cases.Case) error
}

// Actions performs the repairs behind each tier. Every action must leave the
// case reclassified so the verifier sees the repaired fields.
type Actions interface {
	// Reextract forces extraction of every stored document.
	Reextract(ctx context.Context, c cases.Case) error
	// Redownload fetches every document from the portal again, then re-extracts.
	Redownload(ctx context.Context, c cases.Case) error
	// Recrawl asks the crawler to refresh the case, then re-downloads and
	// re-extracts.
	Recrawl(ctx context.Context, c cases.Case) error
}

type strategy struct {
	tier Tier
	fn   func(ctx context.Context, c cases.Case) error
}

func (s strategy) Tier() Tier { return s.tier }

func (s strategy) Attempt(ctx context.Context, c cases.Case) error {
	return s.fn(ctx, c)
}

// NewStrategy adapts a function into a Strategy.
func NewStrategy(tier Tier, fn func(ctx context.Context, c cases.Case) error) Strategy {
	return strategy{tier: tier, fn: fn}
}

// Strategies returns the three tiers backed by a.
func Strategies(a Actions) []Strategy {
	return []Strategy{
		NewStrategy(TierReextract, a.Reextract),
		NewStrategy(TierRedownload, a.Redownload),
		NewStrategy(TierRecrawl, a.Recrawl),
	}
}
