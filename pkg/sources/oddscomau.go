package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/arbiscope/odds-tracker/internal/domain"
)

// oddsComAuFetcher implements Fetcher for the odds.com.au JSON market feed.
type oddsComAuFetcher struct {
	client HTTPClient
}

func NewOddsComAuFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &oddsComAuFetcher{client: client}
}

func (f *oddsComAuFetcher) ID() string {
	return SourceTypeOddsComAu
}

type oddsComAuOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type oddsComAuMarket struct {
	EventName  string             `json:"event_name"`
	MarketType string             `json:"market_type"`
	Category   string             `json:"category"`
	StartTime  string             `json:"start_time"`
	Outcomes   []oddsComAuOutcome `json:"outcomes"`
}

type oddsComAuFeed struct {
	Markets []oddsComAuMarket `json:"markets"`
}

func (f *oddsComAuFetcher) Fetch(ctx context.Context, cfg Source) ([]domain.Market, error) {
	if !strings.EqualFold(cfg.Type, SourceTypeOddsComAu) {
		return nil, fmt.Errorf("oddscomau fetcher received incompatible source type %q", cfg.Type)
	}

	feedURL, err := buildFeedURL(cfg)
	if err != nil {
		return nil, err
	}

	body, err := fetchBody(ctx, f.client, feedURL, cfg.ID, Headers(cfg))
	if err != nil {
		return nil, err
	}

	var feed oddsComAuFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode %s feed: %w", cfg.ID, err)
	}

	markets := normalizeFeed(feed, cfg)
	if len(markets) == 0 {
		return nil, fmt.Errorf("%s feed contained no priced markets", cfg.ID)
	}
	return markets, nil
}

// buildFeedURL appends the market type and AU region the API expects.
func buildFeedURL(cfg Source) (string, error) {
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return "", fmt.Errorf("source %q source_url is empty", cfg.ID)
	}

	parsed, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return "", fmt.Errorf("source %q source_url invalid: %w", cfg.ID, err)
	}

	query := parsed.Query()
	query.Set("type", MarketType(cfg))
	query.Set("region", "AU")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func normalizeFeed(feed oddsComAuFeed, cfg Source) []domain.Market {
	collectedAt := time.Now().UTC()

	markets := make([]domain.Market, 0, len(feed.Markets))
	for _, m := range feed.Markets {
		eventName := strings.TrimSpace(m.EventName)
		if eventName == "" {
			continue
		}

		odds := make([]domain.OutcomeOdds, 0, len(m.Outcomes))
		for _, o := range m.Outcomes {
			name := strings.TrimSpace(o.Name)
			if name == "" || o.Price <= 1.0 {
				continue
			}
			odds = append(odds, domain.OutcomeOdds{Outcome: name, Price: o.Price})
		}
		if len(odds) < 2 {
			continue
		}

		marketType := strings.TrimSpace(m.MarketType)
		if marketType == "" {
			marketType = MarketType(cfg)
		}
		category := strings.TrimSpace(m.Category)
		if category == "" {
			category = Sport(cfg)
		}

		markets = append(markets, domain.Market{
			ID:          marketID(cfg.ID, eventName, marketType),
			SourceID:    cfg.ID,
			EventName:   eventName,
			MarketType:  marketType,
			Category:    category,
			StartTime:   parseStartTime(m.StartTime),
			Odds:        odds,
			CollectedAt: collectedAt,
		})
	}
	return markets
}
