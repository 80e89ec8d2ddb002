// Package bootstrap assembles the layered configuration once at startup:
// settings files, then the environment, then (in remote mode) the secret
// store. The result is an explicit Context handed to consumers.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/metrics"
	"github.com/systmms/vaultconf/internal/providers"
	"github.com/systmms/vaultconf/internal/resolve"
	"github.com/systmms/vaultconf/internal/secretclient"
	"github.com/systmms/vaultconf/internal/secretsource"
	"github.com/systmms/vaultconf/pkg/configuration"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// Options controls a bootstrap run. The zero value reads ./appsettings*.json,
// ./.env and the process environment.
type Options struct {
	BasePath string

	// EnvironmentName selects the environment-suffixed files. Empty means
	// APP_ENVIRONMENT.
	EnvironmentName string

	// DotEnvPath is the .env file; empty means ".env". SkipDotEnv disables it.
	DotEnvPath string
	SkipDotEnv bool

	Env      configuration.Environment
	Logger   *logging.Logger
	Registry *providers.Registry
	Metrics  *metrics.SecretMetrics

	// Backend replaces the registry lookup.
	Backend secretstore.Backend
}

// Context is the outcome of a bootstrap run.
type Context struct {
	Store           *configuration.Store
	Resolver        *resolve.Resolver
	Config          *config.SecretStoreConfig
	EnvironmentName string
	State           State
	History         []Transition

	// SecretErr is the fetch error when remote secrets were skipped after
	// a failed load.
	SecretErr error
}

// Mode is shorthand for Config.Mode.
func (c *Context) Mode() config.Mode {
	return c.Config.Mode
}

// FileSources returns the settings files in load order. Missing files are
// skipped.
func FileSources(environment string) []configuration.Source {
	sources := []configuration.Source{
		configuration.JSONFile{Path: "sharedsettings.json", Optional: true},
	}
	if environment != "" {
		sources = append(sources, configuration.JSONFile{Path: "sharedsettings." + environment + ".json", Optional: true})
	}
	sources = append(sources, configuration.JSONFile{Path: "appsettings.json", Optional: true, Schema: VaultSettingsSchema})
	if environment != "" {
		sources = append(sources, configuration.JSONFile{Path: "appsettings." + environment + ".json", Optional: true})
	}
	return sources
}

// Run performs the bootstrap. Setup defects (unreadable settings, invalid
// remote configuration) are returned as errors; an unreachable secret store
// is not, it only ends in RemoteSecretsSkipped.
func Run(ctx context.Context, opts Options) (*Context, error) {
	if opts.Env == nil {
		opts.Env = configuration.OSEnvironment{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Registry == nil {
		opts.Registry = providers.NewRegistry()
	}
	if opts.BasePath == "" {
		opts.BasePath = "."
	}
	environment := opts.EnvironmentName
	if environment == "" {
		environment = strings.TrimSpace(configuration.Getenv(opts.Env, config.EnvEnvironment))
	}

	logger := opts.Logger
	m := &machine{now: time.Now}
	store := configuration.NewStore()

	files := configuration.NewBuilder(opts.BasePath)
	for _, src := range FileSources(environment) {
		files.Add(src)
	}
	if err := files.BuildInto(ctx, store); err != nil {
		return nil, dserrors.SimplifyError(err)
	}
	if err := m.advance(FilesLoaded, fmt.Sprintf("%d settings loaded from files", store.Len())); err != nil {
		return nil, err
	}

	envLayer := configuration.NewBuilder(opts.BasePath)
	if !opts.SkipDotEnv {
		envLayer.Add(configuration.DotEnv{Path: opts.DotEnvPath, Optional: true})
	}
	envLayer.Add(configuration.EnvironmentVariables{Env: opts.Env})
	if err := envLayer.BuildInto(ctx, store); err != nil {
		return nil, dserrors.SimplifyError(err)
	}
	if err := m.advance(EnvironmentMerged, "environment variables merged"); err != nil {
		return nil, err
	}

	cfg, err := config.LoadSecretStoreConfig(store, opts.Env)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("secret store mode selected",
		"mode", cfg.Mode.String(),
		"backend", cfg.Backend,
		"environment", environment)

	var secretErr error
	if cfg.Mode == config.ModeRemote {
		provider, err := mergeRemoteSecrets(ctx, store, cfg, opts)
		if err != nil {
			return nil, err
		}
		if secretErr = provider.Err(); secretErr != nil {
			err = m.advance(RemoteSecretsSkipped, "secret store load degraded: "+secretErr.Error())
		} else {
			err = m.advance(RemoteSecretsMerged, fmt.Sprintf("%d secrets merged from %s", provider.Data().Len(), cfg.Backend))
		}
		if err != nil {
			return nil, err
		}
	} else if err := m.advance(RemoteSecretsSkipped, "traditional mode"); err != nil {
		return nil, err
	}
	secretsState := m.state

	if err := m.advance(Ready, ""); err != nil {
		return nil, err
	}
	logger.Info("configuration ready",
		"mode", cfg.Mode.String(),
		"secrets", secretsState.String(),
		"settings", store.Len())

	resolver := resolve.New(store, opts.Env,
		resolve.WithEnvironmentName(environment),
		resolve.WithLogger(logger))

	return &Context{
		Store:           store,
		Resolver:        resolver,
		Config:          cfg,
		EnvironmentName: environment,
		State:           m.state,
		History:         m.history,
		SecretErr:       secretErr,
	}, nil
}

// mergeRemoteSecrets loads the secret source into store. Any fetch failure
// leaves the provider degraded and its empty map merged; only a backend
// that cannot be built is returned as an error.
func mergeRemoteSecrets(ctx context.Context, store *configuration.Store, cfg *config.SecretStoreConfig, opts Options) (*secretsource.Provider, error) {
	backend := opts.Backend
	if backend == nil {
		var err error
		backend, err = opts.Registry.CreateBackend(cfg, opts.Logger)
		if err != nil {
			return nil, err
		}
	}
	if closer, ok := backend.(secretstore.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				opts.Logger.Warn("failed to close secret store backend", "error", err)
			}
		}()
	}

	client := secretclient.New(backend, cfg,
		secretclient.WithLogger(opts.Logger),
		secretclient.WithMetrics(opts.Metrics))
	source := secretsource.New(client,
		secretsource.WithName(secretsource.DefaultName+":"+backend.Name()),
		secretsource.WithExpectedSecrets(cfg.ExpectedSecrets),
		secretsource.WithLogger(opts.Logger),
		secretsource.WithMetrics(opts.Metrics))

	provider := source.NewProvider()
	if err := provider.Load(ctx); err != nil {
		return nil, err
	}
	store.Merge(source.Name(), provider.Data())
	return provider, nil
}
