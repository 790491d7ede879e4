package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arbiscope/odds-tracker/internal/analysis"
	"github.com/arbiscope/odds-tracker/internal/domain"
	"github.com/arbiscope/odds-tracker/internal/logger"
	"github.com/arbiscope/odds-tracker/internal/storage"
	"github.com/arbiscope/odds-tracker/pkg/publishers"
	"github.com/arbiscope/odds-tracker/pkg/sources"
)

// Service coordinates odds collection across multiple sources. Each source
// runs its own refresh loop at its configured interval; every refresh updates
// that source's market snapshot and re-runs arbitrage analysis over the
// combined snapshot.
type Service struct {
	registry  sources.FetcherRegistry
	detector  *analysis.Detector
	sizer     *analysis.Sizer
	store     storage.Store
	fanout    *publishers.Fanout
	positions map[string]domain.BookPosition
	log       logger.Logger

	mu      sync.Mutex
	markets map[string][]domain.Market
}

// NewService wires a collector with the source fetcher registry and the
// analysis pipeline.
func NewService(
	reg sources.FetcherRegistry,
	detector *analysis.Detector,
	sizer *analysis.Sizer,
	store storage.Store,
	fanout *publishers.Fanout,
	positions map[string]domain.BookPosition,
	log logger.Logger,
) *Service {
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		registry:  reg,
		detector:  detector,
		sizer:     sizer,
		store:     store,
		fanout:    fanout,
		positions: positions,
		log:       log,
		markets:   make(map[string][]domain.Market),
	}
}

// Run starts a collection loop per source and blocks until the context is
// cancelled.
func (s *Service) Run(ctx context.Context, cfgs []sources.Source) error {
	if s == nil || s.registry == nil {
		return fmt.Errorf("collector service is not initialized")
	}
	if s.detector == nil {
		return fmt.Errorf("collector service has no detector")
	}
	if len(cfgs) == 0 {
		return fmt.Errorf("no sources configured for collection")
	}

	var wg sync.WaitGroup
	for _, cfg := range cfgs {
		wg.Add(1)
		go func(cfg sources.Source) {
			defer wg.Done()
			s.runSource(ctx, cfg)
		}(cfg)
	}
	wg.Wait()
	return ctx.Err()
}

// RunOnce collects every source a single time and returns the joined errors.
// Used for one-shot invocations and tests.
func (s *Service) RunOnce(ctx context.Context, cfgs []sources.Source) error {
	if len(cfgs) == 0 {
		return fmt.Errorf("no sources configured for collection")
	}
	var firstErr error
	for _, cfg := range cfgs {
		if err := s.collectSource(ctx, cfg); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.log.ErrorObj("source collection failed", "source_error", map[string]any{
				"source_id": cfg.ID,
				"error":     err.Error(),
			})
		}
	}
	return firstErr
}

func (s *Service) runSource(ctx context.Context, cfg sources.Source) {
	interval := cfg.UpdateInterval()

	if err := s.collectSource(ctx, cfg); err != nil {
		s.log.ErrorObj("initial source collection failed", "source_error", map[string]any{
			"source_id": cfg.ID,
			"error":     err.Error(),
		})
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("source loop exiting", "source_id", cfg.ID)
			return
		case <-ticker.C:
			if err := s.collectSource(ctx, cfg); err != nil {
				s.log.ErrorObj("source collection failed", "source_error", map[string]any{
					"source_id": cfg.ID,
					"error":     err.Error(),
				})
			}
		}
	}
}

// collectSource fetches the latest markets for one source, refreshes the
// shared snapshot, and re-analyzes it.
func (s *Service) collectSource(ctx context.Context, cfg sources.Source) error {
	fetcher, err := s.registry.FetcherFor(cfg)
	if err != nil {
		return fmt.Errorf("resolve fetcher for source %s: %w", cfg.ID, err)
	}

	markets, err := fetcher.Fetch(ctx, cfg)
	if err != nil {
		return fmt.Errorf("fetch source %s: %w", cfg.ID, err)
	}

	s.mu.Lock()
	s.markets[cfg.ID] = markets
	snapshot := make([]domain.Market, 0, len(markets))
	for _, ms := range s.markets {
		snapshot = append(snapshot, ms...)
	}
	s.mu.Unlock()

	s.log.DebugObj("source collection completed", "source_result", map[string]any{
		"source_id":         cfg.ID,
		"markets_collected": len(markets),
	})

	s.analyze(ctx, snapshot)
	return nil
}

// analyze runs arbitrage detection over the market snapshot and publishes any
// opportunity not seen within the dedup window.
func (s *Service) analyze(ctx context.Context, snapshot []domain.Market) {
	opps := s.detector.Analyze(snapshot)
	for _, opp := range opps {
		seen, err := s.store.SeenOpportunity(opp.Key())
		if err != nil {
			s.log.WarnObj("opportunity dedup lookup failed", "storage_error", map[string]any{
				"key":   opp.Key(),
				"error": err.Error(),
			})
		}
		if seen {
			continue
		}

		stakes := s.sizeOpportunity(opp)
		evt := publishers.NewEvent(opp, stakes)

		published, err := s.fanout.Publish(ctx, evt)
		if err != nil {
			s.log.ErrorObj("opportunity publish failed", "publish_error", map[string]any{
				"event_name": opp.EventName,
				"published":  published,
				"error":      err.Error(),
			})
		}
		if published == 0 {
			continue
		}

		if err := s.store.MarkOpportunity(opp.Key()); err != nil {
			s.log.WarnObj("opportunity mark failed", "storage_error", map[string]any{
				"key":   opp.Key(),
				"error": err.Error(),
			})
		}
		s.log.InfoObj("arbitrage opportunity published", "opportunity", map[string]any{
			"event_name":         opp.EventName,
			"market_type":        opp.MarketType,
			"profit_percentage":  opp.ProfitPercentage,
			"risk_score":         opp.RiskScore,
			"source_ids":         opp.SourceIDs,
			"publishers_reached": published,
		})
	}
}

// sizeOpportunity computes optimal stakes when a sizer and positions are
// available. Sizing failures degrade to an unsized event rather than dropping
// the opportunity.
func (s *Service) sizeOpportunity(opp domain.Opportunity) map[string]float64 {
	if s.sizer == nil || len(s.positions) == 0 {
		return nil
	}
	stakes, err := s.sizer.OptimalStakes(opp, s.positions)
	if err != nil {
		s.log.WarnObj("stake sizing failed", "sizing_error", map[string]any{
			"event_name": opp.EventName,
			"error":      err.Error(),
		})
		return nil
	}
	return stakes
}
