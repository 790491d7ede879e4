package sources

import (
	"context"

	"github.com/arbiscope/odds-tracker/internal/domain"
	"github.com/arbiscope/odds-tracker/pkg/httpclient"
)

// Fetcher retrieves and normalizes markets for one source type.
// Concrete implementations live in source-specific files (e.g., oddsjet.go).
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Source) ([]domain.Market, error)
}

// FetcherRegistry resolves the fetcher implementation for a given source config.
type FetcherRegistry interface {
	FetcherFor(cfg Source) (Fetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client
