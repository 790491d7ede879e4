package analysis

import (
	"fmt"
	"math"

	"github.com/arbiscope/odds-tracker/internal/domain"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultMaxExposureRatio caps a single opportunity at 25% of bankroll.
	DefaultMaxExposureRatio = 0.25
	// DefaultKellyFraction applies half Kelly for conservative sizing.
	DefaultKellyFraction = 0.5
	// DefaultMinReliability is the minimum acceptable book reliability score.
	DefaultMinReliability = 0.7
	// DefaultMinProfitRate is the minimum acceptable worst-case profit rate (0.2%).
	DefaultMinProfitRate = 0.002
)

// SizerOptions tunes bet sizing risk parameters.
type SizerOptions struct {
	Bankroll         float64
	MaxExposureRatio float64
	KellyFraction    float64
	MinReliability   float64
	MinProfitRate    float64
}

// Sizer turns a detected opportunity into per-outcome stakes using fractional
// Kelly sizing, balanced against current per-book exposure and constrained by
// each book's limits and liquidity.
type Sizer struct {
	opts SizerOptions
}

// NewSizer validates the risk parameters and constructs a Sizer.
func NewSizer(opts SizerOptions) (*Sizer, error) {
	if opts.Bankroll <= 0 {
		return nil, fmt.Errorf("bankroll must be positive")
	}
	if opts.MaxExposureRatio == 0 {
		opts.MaxExposureRatio = DefaultMaxExposureRatio
	}
	if opts.KellyFraction == 0 {
		opts.KellyFraction = DefaultKellyFraction
	}
	if opts.MinReliability == 0 {
		opts.MinReliability = DefaultMinReliability
	}
	if opts.MinProfitRate == 0 {
		opts.MinProfitRate = DefaultMinProfitRate
	}

	if opts.MaxExposureRatio < 0 || opts.MaxExposureRatio > 1 {
		return nil, fmt.Errorf("max exposure ratio must be between 0 and 1")
	}
	if opts.KellyFraction < 0 || opts.KellyFraction > 1 {
		return nil, fmt.Errorf("kelly fraction must be between 0 and 1")
	}
	if opts.MinReliability < 0 || opts.MinReliability > 1 {
		return nil, fmt.Errorf("min reliability must be between 0 and 1")
	}
	if opts.MinProfitRate < 0 {
		return nil, fmt.Errorf("min profit rate cannot be negative")
	}

	return &Sizer{opts: opts}, nil
}

// OptimalStakes returns per-outcome stakes, or an error when the opportunity
// should be skipped (unreliable book, constraints squeeze out the profit).
func (s *Sizer) OptimalStakes(opp domain.Opportunity, positions map[string]domain.BookPosition) (map[string]float64, error) {
	if err := s.validateBooks(opp, positions); err != nil {
		return nil, err
	}

	stakes := s.kellyStakes(opp)
	s.balancePositions(stakes, opp, positions)
	s.applyConstraints(stakes, opp, positions)

	if err := s.validateProfit(stakes, opp); err != nil {
		return nil, err
	}
	return stakes, nil
}

func (s *Sizer) validateBooks(opp domain.Opportunity, positions map[string]domain.BookPosition) error {
	for _, bet := range opp.Bets {
		pos, ok := positions[bet.SourceID]
		if !ok {
			return fmt.Errorf("no position data for book %q", bet.SourceID)
		}
		if pos.ReliabilityScore < s.opts.MinReliability {
			return fmt.Errorf("book %q reliability %.2f below %.2f", bet.SourceID, pos.ReliabilityScore, s.opts.MinReliability)
		}
		if pos.MaxBetSize <= pos.MinBetSize {
			return fmt.Errorf("book %q has no usable bet size range", bet.SourceID)
		}
	}
	return nil
}

// kellyStakes allocates the fractional-Kelly budget so that every outcome
// returns the same amount if it wins.
func (s *Sizer) kellyStakes(opp domain.Opportunity) map[string]float64 {
	budget := s.opts.Bankroll * s.opts.MaxExposureRatio * s.opts.KellyFraction

	inverses := make([]float64, len(opp.Bets))
	for i, bet := range opp.Bets {
		inverses[i] = 1 / bet.Price
	}
	totalProb := floats.Sum(inverses)

	stakes := make(map[string]float64, len(opp.Bets))
	for i, bet := range opp.Bets {
		fairProb := inverses[i] / totalProb
		stakes[bet.Outcome] = budget * fairProb
	}
	return stakes
}

// balancePositions shrinks stakes routed to books already carrying a large
// share of total exposure.
func (s *Sizer) balancePositions(stakes map[string]float64, opp domain.Opportunity, positions map[string]domain.BookPosition) {
	var totalExposure float64
	for _, pos := range positions {
		totalExposure += pos.CurrentExposure
	}
	if totalExposure <= 0 {
		return
	}

	for _, bet := range opp.Bets {
		pos := positions[bet.SourceID]
		ratio := pos.CurrentExposure / totalExposure
		stakes[bet.Outcome] *= 1 - ratio*0.5
	}
}

// applyConstraints clamps each stake to the book's liquidity and bet-size
// limits; stakes below the book minimum are zeroed rather than bumped up.
func (s *Sizer) applyConstraints(stakes map[string]float64, opp domain.Opportunity, positions map[string]domain.BookPosition) {
	for _, bet := range opp.Bets {
		pos := positions[bet.SourceID]
		stake := stakes[bet.Outcome]

		maxAllowed := math.Min(pos.AvailableLiquidity, pos.MaxBetSize)
		maxAllowed = math.Min(maxAllowed, s.opts.Bankroll*s.opts.MaxExposureRatio)

		if stake < pos.MinBetSize {
			stakes[bet.Outcome] = 0
		} else {
			stakes[bet.Outcome] = math.Min(stake, maxAllowed)
		}
	}
}

// validateProfit rejects the sizing when the worst-case profit rate across
// active positions falls below the configured minimum.
func (s *Sizer) validateProfit(stakes map[string]float64, opp domain.Opportunity) error {
	var totalStake float64
	for _, stake := range stakes {
		totalStake += stake
	}
	if totalStake == 0 {
		return fmt.Errorf("all stakes eliminated by constraints")
	}

	minProfitRate := math.Inf(1)
	for _, bet := range opp.Bets {
		stake := stakes[bet.Outcome]
		if stake <= 0 {
			continue
		}
		profit := stake*bet.Price - totalStake
		if rate := profit / totalStake; rate < minProfitRate {
			minProfitRate = rate
		}
	}

	if minProfitRate < s.opts.MinProfitRate {
		return fmt.Errorf("worst-case profit rate %.4f below %.4f", minProfitRate, s.opts.MinProfitRate)
	}
	return nil
}
