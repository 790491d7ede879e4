package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package sources contains pluggable odds source configs (YAML/JSON) and their fetchers.

// Source describes one bookmaker feed: where to fetch it, how often, and
// source-specific settings (headers, sport, market type, reliability).
type Source struct {
	ID                    string         `json:"id" yaml:"id"`
	Name                  string         `json:"name" yaml:"name"`
	Type                  string         `json:"type" yaml:"type"`
	SourceURL             string         `json:"source_url" yaml:"source_url"`
	ResponseFormat        string         `json:"response_format" yaml:"response_format"`
	UpdateIntervalSeconds int            `json:"update_interval_seconds" yaml:"update_interval_seconds"`
	RequestDelayMs        int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config                map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

const (
	defaultRequestDelayMs        = 500
	defaultUpdateIntervalSeconds = 30
)

// Registry materializes source definitions loaded from config files.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	idx     map[string]Source
}

// LoadRegistry loads the source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	reg := &Registry{
		sources: make([]Source, len(fileReg.Sources)),
		idx:     make(map[string]Source, len(fileReg.Sources)),
	}

	for i := range fileReg.Sources {
		src := sanitizeSource(fileReg.Sources[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := reg.idx[src.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		reg.sources[i] = src
		reg.idx[src.ID] = src
	}

	return reg, nil
}

// All returns a copy of the loaded sources.
func (r *Registry) All() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByID returns the source entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Source, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Source{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.idx[id]
	return src, ok
}

type unmarshalFn func([]byte, any) error

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err != nil {
			return registryFile{}, fmt.Errorf("decode %s sources: %w", d.name, err)
		}
		return reg, nil
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Type = strings.TrimSpace(s.Type)
	s.SourceURL = strings.TrimSpace(s.SourceURL)
	s.ResponseFormat = strings.TrimSpace(s.ResponseFormat)

	if s.Config == nil {
		s.Config = map[string]any{}
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}
	if s.UpdateIntervalSeconds <= 0 {
		s.UpdateIntervalSeconds = defaultUpdateIntervalSeconds
	}

	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required for source %q", s.ID)
	}
	if s.Type == "" {
		return fmt.Errorf("type is required for source %q", s.ID)
	}
	if s.SourceURL == "" {
		return fmt.Errorf("source_url is required for source %q", s.ID)
	}
	if s.ResponseFormat == "" {
		return fmt.Errorf("response_format is required for source %q", s.ID)
	}
	return nil
}

// RequestDelay returns the per-request throttle duration for the source.
func (s Source) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// UpdateInterval returns how often the collector refreshes the source.
func (s Source) UpdateInterval() time.Duration {
	if s.UpdateIntervalSeconds <= 0 {
		return time.Duration(defaultUpdateIntervalSeconds) * time.Second
	}
	return time.Duration(s.UpdateIntervalSeconds) * time.Second
}
