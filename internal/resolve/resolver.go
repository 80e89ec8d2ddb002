// Package resolve answers "what is the value of this setting" over the
// merged configuration, choosing between secret store and local sources.
package resolve

import (
	"strings"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/pkg/configuration"
)

// ConnectionStringsPrefix prefixes named connection strings.
const ConnectionStringsPrefix = "ConnectionStrings"

// DevelopmentEnvironments are the environment names that may fall back to
// locally named connection strings.
var DevelopmentEnvironments = []string{"Development", "Local", "Dev"}

// Resolver looks settings up in the merged store and the raw environment.
type Resolver struct {
	store       *configuration.Store
	env         configuration.Environment
	environment string
	logger      *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEnvironmentName sets the deployment environment, e.g. "Development".
func WithEnvironmentName(name string) Option {
	return func(r *Resolver) {
		r.environment = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a resolver over store. A nil env means the process
// environment.
func New(store *configuration.Store, env configuration.Environment, opts ...Option) *Resolver {
	if env == nil {
		env = configuration.OSEnvironment{}
	}
	r := &Resolver{
		store:  store,
		env:    env,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode reports whether the secret store is in use. VAULT_MODE wins over
// Vault:Mode when set; only "Vault" selects the secret store.
func (r *Resolver) Mode() config.Mode {
	if v := configuration.Getenv(r.env, config.EnvMode); strings.TrimSpace(v) != "" {
		return config.ParseMode(v)
	}
	if v, ok := r.store.Get(config.EnvMode); ok && strings.TrimSpace(v) != "" {
		return config.ParseMode(v)
	}
	return config.ParseMode(r.store.Value(config.ModeKey))
}

// EnvironmentName returns the deployment environment name.
func (r *Resolver) EnvironmentName() string {
	return r.environment
}

// IsDevelopment reports whether the environment allows local fallbacks.
func (r *Resolver) IsDevelopment() bool {
	for _, name := range DevelopmentEnvironments {
		if strings.EqualFold(r.environment, name) {
			return true
		}
	}
	return false
}

// NamedSetting returns the merged value of name. Absent, empty and
// whitespace-only values are all reported as *errors.NotFoundError.
func (r *Resolver) NamedSetting(name string) (string, error) {
	if v, ok := r.lookupStore(name); ok {
		return v, nil
	}
	return "", &dserrors.NotFoundError{Name: name, Consulted: []string{"config:" + name}}
}

// Resolution is a resolved value and where it came from.
type Resolution struct {
	Key    string
	Value  string
	Source string
}

// RequiredVariable returns name from the merged configuration, then from
// the raw environment.
func (r *Resolver) RequiredVariable(name string) (string, error) {
	res, err := r.ResolveVariable(name)
	return res.Value, err
}

// ResolveVariable is RequiredVariable with the value's source.
func (r *Resolver) ResolveVariable(name string) (Resolution, error) {
	if v, ok := r.lookupStore(name); ok {
		return Resolution{Key: name, Value: v, Source: r.store.Source(name)}, nil
	}
	if v, ok := r.lookupEnv(name); ok {
		return Resolution{Key: name, Value: v, Source: "env"}, nil
	}
	return Resolution{}, &dserrors.NotFoundError{Name: name, Consulted: []string{"config:" + name, "env:" + name}}
}

// ConnectionString resolves ConnectionStrings{name}. In remote mode the
// merged value wins. Otherwise, or when it is absent, a development-like
// environment may use the local ConnectionStrings:{name} before the
// environment variable ConnectionStrings{name}; other environments use
// the variable only. Values for known drivers are shape-checked.
func (r *Resolver) ConnectionString(name string) (string, error) {
	res, err := r.ResolveConnectionString(name)
	return res.Value, err
}

// ResolveConnectionString is ConnectionString with the value's source.
func (r *Resolver) ResolveConnectionString(name string) (Resolution, error) {
	flatKey := ConnectionStringsPrefix + name
	localKey := ConnectionStringsPrefix + ":" + name

	var consulted []string
	try := func(key string, fromStore bool) (Resolution, bool) {
		if fromStore {
			consulted = append(consulted, "config:"+key)
			if v, ok := r.lookupStore(key); ok {
				return Resolution{Key: key, Value: v, Source: r.store.Source(key)}, true
			}
			return Resolution{}, false
		}
		consulted = append(consulted, "env:"+key)
		if v, ok := r.lookupEnv(key); ok {
			return Resolution{Key: key, Value: v, Source: "env"}, true
		}
		return Resolution{}, false
	}

	res, ok := Resolution{}, false
	if r.Mode() == config.ModeRemote {
		res, ok = try(flatKey, true)
	}
	if !ok && r.IsDevelopment() {
		res, ok = try(localKey, true)
	}
	if !ok {
		res, ok = try(flatKey, false)
	}
	if !ok {
		return Resolution{}, &dserrors.NotFoundError{Name: flatKey, Consulted: consulted}
	}

	r.logger.Debug("connection string resolved", "name", name, "key", res.Key, "source", res.Source)

	if err := CheckConnectionString(name, res.Value); err != nil {
		return Resolution{}, err
	}
	return res, nil
}

func (r *Resolver) lookupStore(key string) (string, bool) {
	if r.store == nil {
		return "", false
	}
	v, ok := r.store.Get(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (r *Resolver) lookupEnv(key string) (string, bool) {
	v, ok := r.env.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
