package bridge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CommandFetchOdds is the command name the host shell invokes to fetch a page.
const CommandFetchOdds = "fetch_odds"

// Handler is a command implementation invocable by the host shell. The error,
// when non-nil, carries the human-readable failure description the shell
// displays; no structured error types cross this boundary.
type Handler func(ctx context.Context, arg string) (string, error)

// Registry maps command names to handlers. It abstracts the host runtime's
// command-invocation surface without binding to any particular shell.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register associates a handler with a command name.
func (r *Registry) Register(name string, h Handler) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("command name is empty")
	}
	if h == nil {
		return fmt.Errorf("command %q has nil handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Invoke dispatches the named command with the given argument.
func (r *Registry) Invoke(ctx context.Context, name, arg string) (string, error) {
	r.mu.RLock()
	h, ok := r.handlers[strings.TrimSpace(name)]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("unknown command %q", name)
	}
	return h(ctx, arg)
}

// Commands lists registered command names in sorted order.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterFetchOdds binds the bridge's Fetch to its host-shell command name.
func RegisterFetchOdds(r *Registry, b *Bridge) error {
	return r.Register(CommandFetchOdds, func(ctx context.Context, url string) (string, error) {
		return b.Fetch(ctx, url)
	})
}
