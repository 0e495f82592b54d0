package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// ChatClient sends a single prompt to a language model.
type ChatClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// NarrativeStore reads the event log and stores the narrative.
type NarrativeStore interface {
	Events(ctx context.Context, caseID uuid.UUID) ([]cases.Event, error)
	SetNarrative(ctx context.Context, id uuid.UUID, narrative string) error
}

// MaxNarrativeEvents bounds the event log sent to the model.
const MaxNarrativeEvents = 40

const narrativePrompt = `You are summarizing a North Carolina foreclosure case for a real estate investor.

Case %s. Current classification: %s.

Docket entries, most recent first:
%s
Write three to five plain sentences covering where the case stands, the current bid if known, and anything that could delay or void the sale. Do not speculate beyond the docket.`

// NarrativeEnricher asks the model for a short case summary.
type NarrativeEnricher struct {
	client ChatClient
	store  NarrativeStore
}

// NewNarrativeEnricher creates a NarrativeEnricher.
func NewNarrativeEnricher(client ChatClient, store NarrativeStore) *NarrativeEnricher {
	return &NarrativeEnricher{client: client, store: store}
}

func (n *NarrativeEnricher) Name() string { return "narrative" }

func (n *NarrativeEnricher) Enrich(ctx context.Context, c cases.Case) error {
	events, err := n.store.Events(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	reply, err := n.client.Chat(ctx, NarrativePrompt(c, events))
	if err != nil {
		return fmt.Errorf("narrative chat: %w", err)
	}

	narrative := strings.TrimSpace(reply)
	if narrative == "" {
		return nil
	}

	if err := n.store.SetNarrative(ctx, c.ID, narrative); err != nil {
		return fmt.Errorf("store narrative: %w", err)
	}
	return nil
}

// NarrativePrompt renders the prompt for c from its events, most recent first.
func NarrativePrompt(c cases.Case, events []cases.Event) string {
	sorted := make([]cases.Event, len(events))
	copy(sorted, events)
	cases.SortEvents(sorted)
	if len(sorted) > MaxNarrativeEvents {
		sorted = sorted[:MaxNarrativeEvents]
	}

	var b strings.Builder
	for _, e := range sorted {
		date := "undated"
		if e.EventDate != nil {
			date = e.EventDate.Format(time.DateOnly)
		}
		fmt.Fprintf(&b, "- %s | %s", date, e.EventType)
		if e.EventDescription != "" {
			fmt.Fprintf(&b, " | %s", e.EventDescription)
		}
		b.WriteByte('\n')
	}

	return fmt.Sprintf(narrativePrompt, c.CaseNumber, c.Classification, b.String())
}
