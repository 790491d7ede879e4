package sources

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/arbiscope/odds-tracker/internal/domain"
)

// oddsjetFetcher implements Fetcher for OddsJet HTML odds boards.
type oddsjetFetcher struct {
	client HTTPClient
}

func NewOddsjetFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &oddsjetFetcher{client: client}
}

func (f *oddsjetFetcher) ID() string {
	return SourceTypeOddsjet
}

func (f *oddsjetFetcher) Fetch(ctx context.Context, cfg Source) ([]domain.Market, error) {
	if !strings.EqualFold(cfg.Type, SourceTypeOddsjet) {
		return nil, fmt.Errorf("oddsjet fetcher received incompatible source type %q", cfg.Type)
	}
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("source %q source_url is empty", cfg.ID)
	}

	body, err := fetchBody(ctx, f.client, cfg.SourceURL, cfg.ID, Headers(cfg))
	if err != nil {
		return nil, err
	}

	markets, err := parseOddsBoard(body, cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s odds board: %w", cfg.ID, err)
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("%s odds board contained no priced markets", cfg.ID)
	}
	return markets, nil
}

// parseOddsBoard extracts one market per .market-row element. Rows without an
// event name or without at least two priced outcomes are skipped.
func parseOddsBoard(body []byte, cfg Source) ([]domain.Market, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	marketType := MarketType(cfg)
	collectedAt := time.Now().UTC()

	var markets []domain.Market
	doc.Find(".market-row").Each(func(_ int, row *goquery.Selection) {
		eventName := strings.TrimSpace(row.Find(".event-name").First().Text())
		if eventName == "" {
			return
		}

		var odds []domain.OutcomeOdds
		row.Find(".outcome").Each(func(_ int, sel *goquery.Selection) {
			name := strings.TrimSpace(sel.Find(".outcome-name").First().Text())
			price, ok := parsePrice(sel.Find(".odds-value").First().Text())
			if name == "" || !ok {
				return
			}
			odds = append(odds, domain.OutcomeOdds{Outcome: name, Price: price})
		})
		if len(odds) < 2 {
			return
		}

		markets = append(markets, domain.Market{
			ID:          marketID(cfg.ID, eventName, marketType),
			SourceID:    cfg.ID,
			EventName:   eventName,
			MarketType:  marketType,
			Category:    Sport(cfg),
			StartTime:   parseStartTime(row.Find(".start-time").First().Text()),
			Odds:        odds,
			CollectedAt: collectedAt,
		})
	})

	return markets, nil
}
