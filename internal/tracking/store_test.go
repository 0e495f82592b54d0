package tracking_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// memStore is an in-memory tracking.Store.
type memStore struct {
	mu        sync.Mutex
	cases     map[uuid.UUID]*cases.Case
	events    map[uuid.UUID][]cases.Event
	docs      map[uuid.UUID][]*cases.Document
	monitored []uuid.UUID
	eventsErr map[uuid.UUID]error
	applied   int
	resets    int
	now       time.Time
}

func newStore(now time.Time) *memStore {
	return &memStore{
		cases:     map[uuid.UUID]*cases.Case{},
		events:    map[uuid.UUID][]cases.Event{},
		docs:      map[uuid.UUID][]*cases.Document{},
		eventsErr: map[uuid.UUID]error{},
		now:       now,
	}
}

func (s *memStore) add(c cases.Case, events []cases.Event, docs ...cases.Document) cases.Case {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.cases[c.ID] = &c
	for i := range events {
		events[i].CaseID = c.ID
	}
	s.events[c.ID] = events
	for _, d := range docs {
		d.CaseID = c.ID
		s.docs[c.ID] = append(s.docs[c.ID], &d)
	}
	s.monitored = append(s.monitored, c.ID)
	return c
}

func (s *memStore) get(id uuid.UUID) cases.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cases[id]
}

func (s *memStore) Find(_ context.Context, id uuid.UUID) (*cases.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, cases.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) Apply(_ context.Context, id uuid.UUID, u cases.Update) (*cases.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, cases.ErrNotFound
	}
	s.applied++

	switch {
	case u.Classification.Terminal() && c.Classification != u.Classification:
		now := s.now
		c.ClosedAt = &now
	case !u.Classification.Terminal():
		c.ClosedAt = nil
	}

	c.Classification = u.Classification
	c.CurrentBidAmount = u.CurrentBidAmount
	c.MinimumNextBid = u.MinimumNextBid
	c.NextBidDeadline = u.NextBidDeadline
	c.SaleDate = u.SaleDate
	c.PropertyAddress = u.PropertyAddress
	c.LegalDescription = u.LegalDescription
	c.SaleCycleStart = u.SaleCycleStart

	cp := *c
	return &cp, nil
}

func (s *memStore) SetReview(_ context.Context, id uuid.UUID, reason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cases[id]
	c.NeedsReview = reason != nil
	c.ReviewReason = reason
	return nil
}

func (s *memStore) Monitored(_ context.Context, grace time.Duration, now time.Time) ([]cases.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cases.Case
	for _, id := range s.monitored {
		if c := s.cases[id]; c.InGrace(grace, now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memStore) NeedingAttention(_ context.Context, required cases.RequiredFields) ([]cases.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cases.Case
	for _, id := range s.monitored {
		c := s.cases[id]
		if len(required.Missing(c)) > 0 {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memStore) Events(_ context.Context, id uuid.UUID) ([]cases.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eventsErr[id]; err != nil {
		return nil, err
	}
	return slices.Clone(s.events[id]), nil
}

func (s *memStore) Documents(_ context.Context, id uuid.UUID) ([]cases.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cases.Document
	for _, d := range s.docs[id] {
		out = append(out, *d)
	}
	return out, nil
}

func (s *memStore) doc(id uuid.UUID) (*cases.Document, error) {
	for _, docs := range s.docs {
		for _, d := range docs {
			if d.ID == id {
				return d, nil
			}
		}
	}
	return nil, cases.ErrDocumentNotFound
}

func (s *memStore) MarkProcessed(_ context.Context, id uuid.UUID, cmd cases.ProcessedCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(id)
	if err != nil {
		return err
	}
	now := s.now
	d.ExtractionAttemptedAt = &now
	if cmd.Method == cases.MethodVision {
		d.VisionProcessedAt = &now
	}
	if cmd.Extraction != nil {
		e := *cmd.Extraction
		d.Extraction = &e
	}
	if cmd.OCRText != nil {
		d.OCRText = cmd.OCRText
	}
	return nil
}

func (s *memStore) MarkStored(_ context.Context, id uuid.UUID, cmd cases.StoredCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(id)
	if err != nil {
		return err
	}
	key := cmd.StorageKey
	d.StorageKey = &key
	d.PageCount = cmd.PageCount
	return nil
}

func (s *memStore) ResetDocuments(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	for _, d := range s.docs[id] {
		d.ExtractionAttemptedAt = nil
		d.VisionProcessedAt = nil
		d.OCRText = nil
	}
	return nil
}

var errStore = errors.New("store unavailable")
