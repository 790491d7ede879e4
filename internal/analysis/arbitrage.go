package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/arbiscope/odds-tracker/internal/domain"
	"gonum.org/v1/gonum/floats"
)

const (
	defaultMinProfitPercentage = 1.0
	defaultMaxStake            = 1000.0
	defaultMinLiquidityRatio   = 2.0
	defaultSourceReliability   = 0.85

	// minRiskScore rejects opportunities whose combined bookmaker
	// reliability falls below 70% confidence.
	minRiskScore = 0.7
)

// DetectorOptions tunes opportunity detection and validation.
type DetectorOptions struct {
	MinProfitPercentage float64
	MaxStake            float64
	MinLiquidityRatio   float64
	// Reliability maps source id to a 0-1 bookmaker reliability score.
	Reliability map[string]float64
}

// Detector finds cross-bookmaker arbitrage in collected market snapshots.
// An arbitrage exists when the sum of inverse best odds over all outcomes
// of one market is below 1.
type Detector struct {
	opts DetectorOptions
}

// NewDetector constructs a detector, applying defaults for unset options.
func NewDetector(opts DetectorOptions) *Detector {
	if opts.MinProfitPercentage <= 0 {
		opts.MinProfitPercentage = defaultMinProfitPercentage
	}
	if opts.MaxStake <= 0 {
		opts.MaxStake = defaultMaxStake
	}
	if opts.MinLiquidityRatio <= 0 {
		opts.MinLiquidityRatio = defaultMinLiquidityRatio
	}
	if opts.Reliability == nil {
		opts.Reliability = map[string]float64{}
	}
	return &Detector{opts: opts}
}

// bestPrice tracks the highest offered price for one outcome and where it came from.
type bestPrice struct {
	price    float64
	sourceID string
}

// Analyze groups markets by event and market type, then checks each group
// for an arbitrage across sources. Returned opportunities pass all
// validation (profit threshold, risk score, liquidity).
func (d *Detector) Analyze(markets []domain.Market) []domain.Opportunity {
	grouped := groupMarkets(markets)

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var opportunities []domain.Opportunity
	for _, key := range keys {
		opp, ok := d.findArbitrage(grouped[key])
		if !ok {
			continue
		}
		if err := d.validate(opp); err != nil {
			continue
		}
		opportunities = append(opportunities, opp)
	}
	return opportunities
}

func groupMarkets(markets []domain.Market) map[string][]domain.Market {
	grouped := make(map[string][]domain.Market)
	for _, m := range markets {
		if m.EventName == "" || len(m.Odds) == 0 {
			continue
		}
		key := m.EventName + "|" + m.MarketType
		grouped[key] = append(grouped[key], m)
	}
	return grouped
}

// findArbitrage picks the best price per outcome across all sources quoting
// the event and checks whether the inverse prices sum below 1.
func (d *Detector) findArbitrage(group []domain.Market) (domain.Opportunity, bool) {
	best := make(map[string]bestPrice)
	for _, m := range group {
		for _, o := range m.Odds {
			if o.Price <= 1.0 {
				continue
			}
			if cur, ok := best[o.Outcome]; !ok || o.Price > cur.price {
				best[o.Outcome] = bestPrice{price: o.Price, sourceID: m.SourceID}
			}
		}
	}
	if len(best) < 2 {
		return domain.Opportunity{}, false
	}

	outcomes := make([]string, 0, len(best))
	for outcome := range best {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	inverses := make([]float64, len(outcomes))
	for i, outcome := range outcomes {
		inverses[i] = 1 / best[outcome].price
	}
	inverseSum := floats.Sum(inverses)
	if inverseSum >= 1 {
		return domain.Opportunity{}, false
	}

	profitPercentage := (1/inverseSum - 1) * 100
	if profitPercentage < d.opts.MinProfitPercentage {
		return domain.Opportunity{}, false
	}

	// Stake each outcome so every winner returns the same amount.
	totalStake := d.opts.MaxStake
	unitStake := totalStake / inverseSum

	bets := make([]domain.Bet, len(outcomes))
	sourceSet := make(map[string]struct{})
	for i, outcome := range outcomes {
		b := best[outcome]
		bets[i] = domain.Bet{
			Outcome:  outcome,
			Price:    b.price,
			Stake:    unitStake / b.price,
			SourceID: b.sourceID,
		}
		sourceSet[b.sourceID] = struct{}{}
	}

	sourceIDs := make([]string, 0, len(sourceSet))
	for id := range sourceSet {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	return domain.Opportunity{
		EventName:        group[0].EventName,
		MarketType:       group[0].MarketType,
		DetectedAt:       time.Now().UTC(),
		ProfitPercentage: profitPercentage,
		TotalStake:       totalStake,
		Bets:             bets,
		RiskScore:        d.riskScore(sourceIDs),
		SourceIDs:        sourceIDs,
	}, true
}

// riskScore averages the reliability of the involved bookmakers and
// discounts 10% for every additional bookmaker in play.
func (d *Detector) riskScore(sourceIDs []string) float64 {
	if len(sourceIDs) == 0 {
		return 0
	}

	scores := make([]float64, len(sourceIDs))
	for i, id := range sourceIDs {
		score, ok := d.opts.Reliability[id]
		if !ok {
			score = defaultSourceReliability
		}
		scores[i] = score
	}
	avg := floats.Sum(scores) / float64(len(scores))

	bookmakerFactor := 1 - 0.1*float64(len(sourceIDs)-1)
	if bookmakerFactor < 0 {
		bookmakerFactor = 0
	}
	return avg * bookmakerFactor
}

func (d *Detector) validate(opp domain.Opportunity) error {
	if opp.ProfitPercentage < d.opts.MinProfitPercentage {
		return fmt.Errorf("profit %.2f%% below threshold", opp.ProfitPercentage)
	}
	if opp.RiskScore < minRiskScore {
		return fmt.Errorf("risk score %.2f below %.2f", opp.RiskScore, minRiskScore)
	}
	for _, bet := range opp.Bets {
		if bet.Stake*d.opts.MinLiquidityRatio > d.opts.MaxStake {
			return fmt.Errorf("insufficient liquidity headroom for %q at %s", bet.Outcome, bet.SourceID)
		}
	}
	return nil
}
