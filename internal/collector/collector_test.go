package collector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/arbiscope/odds-tracker/internal/analysis"
	"github.com/arbiscope/odds-tracker/internal/domain"
	"github.com/arbiscope/odds-tracker/pkg/publishers"
	"github.com/arbiscope/odds-tracker/pkg/sources"
)

// fakeFetcher returns preset markets or an error.
type fakeFetcher struct {
	id      string
	markets []domain.Market
	err     error
}

func (f *fakeFetcher) ID() string { return f.id }
func (f *fakeFetcher) Fetch(_ context.Context, _ sources.Source) ([]domain.Market, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

// fakeRegistry resolves fetchers by source id.
type fakeRegistry struct {
	fetchers map[string]sources.Fetcher
}

func (f *fakeRegistry) FetcherFor(cfg sources.Source) (sources.Fetcher, error) {
	fetcher, ok := f.fetchers[cfg.ID]
	if !ok {
		return nil, errors.New("missing fetcher")
	}
	return fetcher, nil
}

// capturePublisher records published events and can inject errors.
type capturePublisher struct {
	mu     sync.Mutex
	events []publishers.Event
	err    error
}

func (c *capturePublisher) ID() string   { return "capture" }
func (c *capturePublisher) Type() string { return "capture" }
func (c *capturePublisher) Publish(_ context.Context, evt publishers.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *capturePublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// memStore tracks seen opportunity keys in memory.
type memStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemStore() *memStore { return &memStore{seen: make(map[string]bool)} }

func (m *memStore) Close() error { return nil }
func (m *memStore) SeenOpportunity(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[key], nil
}
func (m *memStore) MarkOpportunity(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[key] = true
	return nil
}

func threeWayBooks() (oddsjet, oddscomau []domain.Market) {
	oddsjet = []domain.Market{{
		ID: "j1", SourceID: "oddsjet", EventName: "Liverpool vs Chelsea", MarketType: "match_odds",
		Odds: []domain.OutcomeOdds{
			{Outcome: "home", Price: 3.20},
			{Outcome: "draw", Price: 3.10},
			{Outcome: "away", Price: 3.00},
		},
	}}
	oddscomau = []domain.Market{{
		ID: "c1", SourceID: "oddscomau", EventName: "Liverpool vs Chelsea", MarketType: "match_odds",
		Odds: []domain.OutcomeOdds{
			{Outcome: "home", Price: 2.90},
			{Outcome: "draw", Price: 3.40},
			{Outcome: "away", Price: 3.50},
		},
	}}
	return oddsjet, oddscomau
}

func testDetector() *analysis.Detector {
	return analysis.NewDetector(analysis.DetectorOptions{
		Reliability: map[string]float64{"oddsjet": 0.9, "oddscomau": 0.9},
	})
}

func testSources() []sources.Source {
	return []sources.Source{
		{ID: "oddsjet", Name: "OddsJet", Type: "oddsjet"},
		{ID: "oddscomau", Name: "Odds.com.au", Type: "oddscomau"},
	}
}

func newTestService(reg sources.FetcherRegistry, pub publishers.Publisher, store *memStore) *Service {
	return NewService(reg, testDetector(), nil, store, publishers.NewFanout([]publishers.Publisher{pub}), nil, nil)
}

func TestRunOncePublishesDetectedOpportunity(t *testing.T) {
	jetMarkets, comauMarkets := threeWayBooks()
	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{
		"oddsjet":   &fakeFetcher{id: "oddsjet", markets: jetMarkets},
		"oddscomau": &fakeFetcher{id: "oddscomau", markets: comauMarkets},
	}}
	pub := &capturePublisher{}
	store := newMemStore()

	svc := newTestService(reg, pub, store)
	if err := svc.RunOnce(context.Background(), testSources()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if pub.count() != 1 {
		t.Fatalf("expected 1 published event, got %d", pub.count())
	}
	evt := pub.events[0]
	if evt.EventName != "Liverpool vs Chelsea" || evt.MarketType != "match_odds" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Opportunity.ProfitPercentage < 11 || evt.Opportunity.ProfitPercentage > 13 {
		t.Fatalf("ProfitPercentage = %f", evt.Opportunity.ProfitPercentage)
	}
	if !store.seen[evt.Opportunity.Key()] {
		t.Fatalf("opportunity was not marked in store")
	}
}

func TestRunOnceDeduplicatesAcrossPasses(t *testing.T) {
	jetMarkets, comauMarkets := threeWayBooks()
	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{
		"oddsjet":   &fakeFetcher{id: "oddsjet", markets: jetMarkets},
		"oddscomau": &fakeFetcher{id: "oddscomau", markets: comauMarkets},
	}}
	pub := &capturePublisher{}
	store := newMemStore()

	svc := newTestService(reg, pub, store)
	for i := 0; i < 3; i++ {
		if err := svc.RunOnce(context.Background(), testSources()); err != nil {
			t.Fatalf("RunOnce pass %d: %v", i, err)
		}
	}

	if pub.count() != 1 {
		t.Fatalf("expected 1 published event after 3 passes, got %d", pub.count())
	}
}

func TestRunOnceDoesNotMarkWhenAllPublishersFail(t *testing.T) {
	jetMarkets, comauMarkets := threeWayBooks()
	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{
		"oddsjet":   &fakeFetcher{id: "oddsjet", markets: jetMarkets},
		"oddscomau": &fakeFetcher{id: "oddscomau", markets: comauMarkets},
	}}
	pub := &capturePublisher{err: errors.New("sink down")}
	store := newMemStore()

	svc := newTestService(reg, pub, store)
	if err := svc.RunOnce(context.Background(), testSources()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(store.seen) != 0 {
		t.Fatalf("opportunity should not be marked when no publisher succeeded")
	}
}

func TestRunOnceReportsFetchErrors(t *testing.T) {
	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{
		"oddsjet": &fakeFetcher{id: "oddsjet", err: errors.New("boom")},
	}}
	pub := &capturePublisher{}

	svc := newTestService(reg, pub, newMemStore())
	err := svc.RunOnce(context.Background(), []sources.Source{{ID: "oddsjet", Type: "oddsjet"}})
	if err == nil {
		t.Fatalf("expected fetch error")
	}
	if pub.count() != 0 {
		t.Fatalf("nothing should be published on fetch failure")
	}
}

func TestRunOnceSizesStakesWhenPositionsAvailable(t *testing.T) {
	jetMarkets, comauMarkets := threeWayBooks()
	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{
		"oddsjet":   &fakeFetcher{id: "oddsjet", markets: jetMarkets},
		"oddscomau": &fakeFetcher{id: "oddscomau", markets: comauMarkets},
	}}
	pub := &capturePublisher{}

	sizer, err := analysis.NewSizer(analysis.SizerOptions{Bankroll: 10000})
	if err != nil {
		t.Fatalf("NewSizer: %v", err)
	}
	positions := map[string]domain.BookPosition{
		"oddsjet":   {Bookmaker: "oddsjet", AvailableLiquidity: 5000, MaxBetSize: 2000, ReliabilityScore: 0.9},
		"oddscomau": {Bookmaker: "oddscomau", AvailableLiquidity: 5000, MaxBetSize: 2000, ReliabilityScore: 0.9},
	}

	svc := NewService(reg, testDetector(), sizer, newMemStore(),
		publishers.NewFanout([]publishers.Publisher{pub}), positions, nil)
	if err := svc.RunOnce(context.Background(), testSources()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if pub.count() != 1 {
		t.Fatalf("expected 1 published event, got %d", pub.count())
	}
	stakes := pub.events[0].Stakes
	if len(stakes) != 3 {
		t.Fatalf("expected stakes for 3 outcomes, got %#v", stakes)
	}
	for outcome, stake := range stakes {
		if stake <= 0 {
			t.Fatalf("stake for %s should be positive, got %f", outcome, stake)
		}
	}
}

func TestRunRequiresSources(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &capturePublisher{}, newMemStore())
	if err := svc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error when sources list empty")
	}
}
