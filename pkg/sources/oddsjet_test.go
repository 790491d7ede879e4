package sources

import (
	"context"
	"testing"
)

const oddsjetBoard = `
<html><body>
  <div class="market-row">
    <span class="event-name">Liverpool vs Chelsea</span>
    <span class="start-time">2026-08-29T15:00:00Z</span>
    <div class="outcome"><span class="outcome-name">Liverpool</span><span class="odds-value">2.10</span></div>
    <div class="outcome"><span class="outcome-name">Draw</span><span class="odds-value">3.40</span></div>
    <div class="outcome"><span class="outcome-name">Chelsea</span><span class="odds-value">3.60</span></div>
  </div>
  <div class="market-row">
    <span class="event-name">Incomplete Row</span>
    <div class="outcome"><span class="outcome-name">Only One</span><span class="odds-value">1.80</span></div>
  </div>
  <div class="market-row">
    <div class="outcome"><span class="outcome-name">No Event</span><span class="odds-value">2.00</span></div>
  </div>
</body></html>`

func TestOddsjetFetcherParsesBoard(t *testing.T) {
	client := &mockHTTPClient{
		t: t,
		expect: map[string]string{
			"User-Agent": "UA",
		},
		body: oddsjetBoard,
	}

	fetcher := NewOddsjetFetcher(client)
	markets, err := fetcher.Fetch(context.Background(), Source{
		ID:        "oddsjet",
		Type:      SourceTypeOddsjet,
		SourceURL: "https://www.oddsjet.com/sports/soccer/match_odds",
		Config: map[string]any{
			ConfigUserAgentKey: "UA",
		},
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("expected 1 market (rows without 2+ priced outcomes skipped), got %d", len(markets))
	}

	m := markets[0]
	if m.EventName != "Liverpool vs Chelsea" {
		t.Errorf("event name = %q", m.EventName)
	}
	if m.SourceID != "oddsjet" || m.MarketType != "match_odds" {
		t.Errorf("market identity wrong: %q %q", m.SourceID, m.MarketType)
	}
	if len(m.Odds) != 3 || m.Odds[1].Outcome != "Draw" || m.Odds[1].Price != 3.40 {
		t.Errorf("unexpected odds: %#v", m.Odds)
	}
	if m.StartTime.IsZero() {
		t.Errorf("start time not parsed")
	}
}

func TestOddsjetFetcherRejectsWrongSourceType(t *testing.T) {
	fetcher := NewOddsjetFetcher(nil)
	_, err := fetcher.Fetch(context.Background(), Source{
		ID:        "other",
		Type:      SourceTypeOddsComAu,
		SourceURL: "https://example.com",
	})
	if err == nil {
		t.Fatal("expected error for mismatched source type")
	}
}

func TestOddsjetFetcherErrorsOnEmptyBoard(t *testing.T) {
	client := &mockHTTPClient{t: t, body: "<html><body></body></html>"}
	fetcher := NewOddsjetFetcher(client)

	_, err := fetcher.Fetch(context.Background(), Source{
		ID:        "oddsjet",
		Type:      SourceTypeOddsjet,
		SourceURL: "https://www.oddsjet.com/sports/soccer/match_odds",
	})
	if err == nil {
		t.Fatal("expected error for board without markets")
	}
}

func TestOddsjetFetcherSurfacesNonOKStatus(t *testing.T) {
	client := &mockHTTPClient{t: t, status: 503, body: "maintenance"}
	fetcher := NewOddsjetFetcher(client)

	_, err := fetcher.Fetch(context.Background(), Source{
		ID:        "oddsjet",
		Type:      SourceTypeOddsjet,
		SourceURL: "https://www.oddsjet.com/sports/soccer/match_odds",
	})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}
