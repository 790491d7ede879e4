package publishers

import (
	"time"

	"github.com/arbiscope/odds-tracker/internal/domain"
)

// Event represents the payload published downstream when an arbitrage
// opportunity is detected and sized.
type Event struct {
	EventName   string             `json:"event_name"`
	MarketType  string             `json:"market_type"`
	Opportunity domain.Opportunity `json:"opportunity"`
	// Stakes holds the sized per-outcome stakes, when sizing succeeded.
	Stakes      map[string]float64 `json:"stakes,omitempty"`
	PublishedAt time.Time          `json:"published_at"`
}

// NewEvent constructs an Event for the given opportunity.
func NewEvent(opp domain.Opportunity, stakes map[string]float64) Event {
	return Event{
		EventName:   opp.EventName,
		MarketType:  opp.MarketType,
		Opportunity: opp,
		Stakes:      stakes,
		PublishedAt: time.Now().UTC(),
	}
}
