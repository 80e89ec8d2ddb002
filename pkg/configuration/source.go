package configuration

import (
	"context"
	"fmt"
)

// Source describes where configuration comes from.
type Source interface {
	// Name identifies the source in diagnostics, e.g. "json:appsettings.json".
	Name() string

	// Build creates the provider. Relative file paths resolve against basePath.
	Build(basePath string) (Provider, error)
}

// Provider holds the data of one built source.
type Provider interface {
	// Load fills Data. It blocks until the data is available.
	Load(ctx context.Context) error

	// Data returns the loaded map.
	Data() *Map
}

// MapProvider is a Provider backed by a Map filled by a load function.
type MapProvider struct {
	data *Map
	load func(ctx context.Context, data *Map) error
}

// NewMapProvider returns a provider whose Load resets the map and calls load.
func NewMapProvider(load func(ctx context.Context, data *Map) error) *MapProvider {
	return &MapProvider{data: NewMap(), load: load}
}

func (p *MapProvider) Load(ctx context.Context) error {
	p.data.Clear()
	if p.load == nil {
		return nil
	}
	return p.load(ctx, p.data)
}

func (p *MapProvider) Data() *Map {
	return p.data
}

// Builder assembles sources in registration order.
type Builder struct {
	basePath string
	sources  []Source
}

// NewBuilder returns a builder resolving relative paths against basePath.
func NewBuilder(basePath string) *Builder {
	return &Builder{basePath: basePath}
}

// Add registers a source. Later sources override earlier ones.
func (b *Builder) Add(source Source) *Builder {
	b.sources = append(b.sources, source)
	return b
}

// Sources returns the registered sources in order.
func (b *Builder) Sources() []Source {
	return append([]Source(nil), b.sources...)
}

// BasePath returns the directory relative paths resolve against.
func (b *Builder) BasePath() string {
	return b.basePath
}

// Build builds and loads every source and merges them into a new Store.
func (b *Builder) Build(ctx context.Context) (*Store, error) {
	store := NewStore()
	if err := b.BuildInto(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// BuildInto builds and loads every source and merges them into store.
func (b *Builder) BuildInto(ctx context.Context, store *Store) error {
	for _, source := range b.sources {
		if err := LoadSource(ctx, store, source, b.basePath); err != nil {
			return err
		}
	}
	return nil
}

// LoadSource builds one source, loads it and merges it into store.
func LoadSource(ctx context.Context, store *Store, source Source, basePath string) error {
	provider, err := source.Build(basePath)
	if err != nil {
		return fmt.Errorf("build %s: %w", source.Name(), err)
	}
	if err := provider.Load(ctx); err != nil {
		return fmt.Errorf("load %s: %w", source.Name(), err)
	}
	store.Merge(source.Name(), provider.Data())
	return nil
}
