// Package secretsource adapts a secret fetch into a configuration source.
// A failed fetch never fails the load: the provider stays empty and the
// other layers keep working.
package secretsource

import (
	"context"
	"sort"
	"sync"

	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/metrics"
	"github.com/systmms/vaultconf/pkg/configuration"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// DefaultName is the source name recorded on merged entries.
const DefaultName = "secretstore"

// Fetcher returns one secret bundle.
type Fetcher interface {
	FetchSecrets(ctx context.Context) (secretstore.Bundle, error)
}

// Source is a configuration.Source backed by a Fetcher.
type Source struct {
	name     string
	fetcher  Fetcher
	expected []string
	logger   *logging.Logger
	metrics  *metrics.SecretMetrics
}

// Option configures a Source.
type Option func(*Source)

// WithName overrides the source name.
func WithName(name string) Option {
	return func(s *Source) {
		s.name = name
	}
}

// WithExpectedSecrets lists keys whose absence is logged after a load.
func WithExpectedSecrets(names []string) Option {
	return func(s *Source) {
		s.expected = names
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// WithMetrics counts loads on m.
func WithMetrics(m *metrics.SecretMetrics) Option {
	return func(s *Source) {
		s.metrics = m
	}
}

// New creates a source over fetcher.
func New(fetcher Fetcher, opts ...Option) *Source {
	s := &Source{
		name:    DefaultName,
		fetcher: fetcher,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string {
	return s.name
}

// Build returns a new, unloaded provider. The base path is unused.
func (s *Source) Build(string) (configuration.Provider, error) {
	return s.NewProvider(), nil
}

// NewProvider is Build with the concrete type, for callers that inspect
// the load outcome.
func (s *Source) NewProvider() *Provider {
	return &Provider{source: s, data: configuration.NewMap()}
}

// Provider holds the normalized secrets of one load.
type Provider struct {
	source *Source

	mu   sync.RWMutex
	data *configuration.Map
	err  error
}

// Load fetches the bundle and copies it into the provider map. It returns
// nil even when the fetch fails; see Degraded.
func (p *Provider) Load(ctx context.Context) error {
	s := p.source
	data := configuration.NewMap()

	bundle, err := s.fetcher.FetchSecrets(ctx)
	if err != nil {
		s.logger.Error("secret store unavailable, continuing without remote secrets",
			"source", s.name,
			"error", err)
		s.metrics.RecordProviderLoad(metrics.OutcomeDegraded)

		p.mu.Lock()
		p.data = data
		p.err = err
		p.mu.Unlock()
		return nil
	}

	keys := bundle.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		value, ok := secretstore.StringValue(bundle[key])
		if !ok {
			s.logger.Warn("skipping secret with null value", "key", key)
			continue
		}
		data.Set(configuration.NormalizeKey(key), value)
	}

	for _, name := range s.expected {
		if _, ok := data.Get(name); !ok {
			s.logger.Warn("expected secret missing from bundle", "key", name)
		}
	}

	s.logger.Info("remote secrets loaded", "source", s.name, "keys", data.Len())
	s.metrics.RecordProviderLoad(metrics.OutcomeSuccess)

	p.mu.Lock()
	p.data = data
	p.err = nil
	p.mu.Unlock()
	return nil
}

func (p *Provider) Data() *configuration.Map {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data
}

// Degraded reports whether the last load fell back to an empty map.
func (p *Provider) Degraded() bool {
	return p.Err() != nil
}

// Err returns the fetch error of the last load, if any.
func (p *Provider) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}
