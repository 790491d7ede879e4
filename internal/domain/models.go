package domain

import "time"

// Domain contains core models shared across collection, analysis, and publishing.

// OutcomeOdds is one priced selection inside a market.
type OutcomeOdds struct {
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// Market is a normalized snapshot of one betting market at one bookmaker.
type Market struct {
	ID          string        `json:"id"`
	SourceID    string        `json:"source_id"`
	EventName   string        `json:"event_name"`
	MarketType  string        `json:"market_type"`
	Category    string        `json:"category"`
	StartTime   time.Time     `json:"start_time"`
	Odds        []OutcomeOdds `json:"odds"`
	CollectedAt time.Time     `json:"collected_at"`
}

// Bet is one leg of an arbitrage opportunity: the outcome to back, where, and for how much.
type Bet struct {
	Outcome  string  `json:"outcome"`
	Price    float64 `json:"price"`
	Stake    float64 `json:"stake"`
	SourceID string  `json:"source_id"`
}

// Opportunity is a detected cross-bookmaker arbitrage.
type Opportunity struct {
	EventName        string    `json:"event_name"`
	MarketType       string    `json:"market_type"`
	DetectedAt       time.Time `json:"detected_at"`
	ProfitPercentage float64   `json:"profit_percentage"`
	TotalStake       float64   `json:"total_stake"`
	Bets             []Bet     `json:"bets"`
	RiskScore        float64   `json:"risk_score"`
	SourceIDs        []string  `json:"source_ids"`
}

// Key identifies the event+market pair for dedup purposes.
func (o Opportunity) Key() string {
	return o.EventName + "|" + o.MarketType
}

// BookPosition captures current exposure and constraints at one bookmaker.
type BookPosition struct {
	Bookmaker          string
	AvailableLiquidity float64
	CurrentExposure    float64
	MaxBetSize         float64
	MinBetSize         float64
	ReliabilityScore   float64
}
