package app

import (
	"context"
	"fmt"

	"github.com/arbiscope/odds-tracker/internal/analysis"
	"github.com/arbiscope/odds-tracker/internal/bridge"
	"github.com/arbiscope/odds-tracker/internal/collector"
	"github.com/arbiscope/odds-tracker/internal/config"
	"github.com/arbiscope/odds-tracker/internal/domain"
	"github.com/arbiscope/odds-tracker/internal/logger"
	"github.com/arbiscope/odds-tracker/internal/storage"
	"github.com/arbiscope/odds-tracker/pkg/publishers"
	"github.com/arbiscope/odds-tracker/pkg/sources"
)

// Tracker represents the odds tracker runtime. It manages the per-source
// collection loops, coordinating between sources, the analysis pipeline, and
// publishers. It also handles storage initialization and cleanup, and exposes
// the host-shell command registry.
type Tracker struct {
	cfg       *config.Config
	sourceReg *sources.Registry
	fanout    *publishers.Fanout
	service   *collector.Service
	commands  *bridge.Registry
	log       logger.Logger
	store     storage.Store
}

// New builds a tracker runtime from config files.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Tracker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sourceReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	sourceList := sourceReg.All()
	sourceIDs := make([]string, 0, len(sourceList))
	for _, src := range sourceList {
		sourceIDs = append(sourceIDs, src.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	fetcherRegistry := sources.DefaultFetcherRegistry(nil)

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubRegistry := publishers.DefaultRegistry()
	pubClients, err := publishers.BuildAll(ctx, pubRegistry, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		OpportunityTTL:  cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"opportunity_ttl_seconds":  int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	reliability := make(map[string]float64, len(sourceList))
	positions := make(map[string]domain.BookPosition, len(sourceList))
	for _, src := range sourceList {
		score := sources.Reliability(src)
		reliability[src.ID] = score
		positions[src.ID] = domain.BookPosition{
			Bookmaker:          src.ID,
			AvailableLiquidity: cfg.MaxStake * cfg.MinLiquidityRatio,
			MaxBetSize:         cfg.MaxStake,
			ReliabilityScore:   score,
		}
	}

	detector := analysis.NewDetector(analysis.DetectorOptions{
		MinProfitPercentage: cfg.MinProfitPercentage,
		MaxStake:            cfg.MaxStake,
		MinLiquidityRatio:   cfg.MinLiquidityRatio,
		Reliability:         reliability,
	})
	sizer, err := analysis.NewSizer(analysis.SizerOptions{
		Bankroll:         cfg.Bankroll,
		MaxExposureRatio: cfg.MaxExposureRatio,
		KellyFraction:    cfg.KellyFraction,
		MinProfitRate:    cfg.MinProfitRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init bet sizer: %w", err)
	}

	service := collector.NewService(fetcherRegistry, detector, sizer, store, fanout, positions, log)

	commands := bridge.NewRegistry()
	if err := bridge.RegisterFetchOdds(commands, bridge.New(nil)); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}

	return &Tracker{
		cfg:       cfg,
		sourceReg: sourceReg,
		fanout:    fanout,
		service:   service,
		commands:  commands,
		log:       log,
		store:     store,
	}, nil
}

// Commands exposes the host-shell command registry.
func (t *Tracker) Commands() *bridge.Registry {
	return t.commands
}

// Run starts the per-source collection loops until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	if t == nil || t.service == nil {
		return fmt.Errorf("tracker is not initialized")
	}
	defer t.closeStore()

	srcs := t.sourceReg.All()
	if len(srcs) == 0 {
		t.log.WarnObj("no sources configured; tracker idle", "sources_file", t.cfg.SourcesFile)
		<-ctx.Done()
		return ctx.Err()
	}

	t.log.InfoObj("tracker loops starting", "tracker_state", map[string]any{
		"sources_count":    len(srcs),
		"publishers_count": t.fanout.Size(),
		"commands":         t.commands.Commands(),
	})

	return t.service.Run(ctx, srcs)
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (t *Tracker) closeStore() {
	if t == nil || t.store == nil {
		return
	}
	if err := t.store.Close(); err != nil {
		t.log.ErrorObj("storage close failed", "error", err)
	}
}
