package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides local DB/cache abstraction.

// Store tracks recently published opportunity keys so the same arbitrage is
// not re-announced while its odds stay up.
type Store interface {
	Close() error
	SeenOpportunity(key string) (bool, error)
	MarkOpportunity(key string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	OpportunityTTL  time.Duration
	CleanupInterval time.Duration
}

const (
	defaultOpportunityTTL  = 30 * time.Minute
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.OpportunityTTL <= 0 {
		opts.OpportunityTTL = defaultOpportunityTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                         { return nil }
func (noopStore) SeenOpportunity(string) (bool, error) { return false, nil }
func (noopStore) MarkOpportunity(string) error         { return nil }
