package providers

import (
	"fmt"
	"sort"

	"github.com/systmms/vaultconf/internal/config"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/providers/vault"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// BackendFactory creates a backend from the secret store configuration
type BackendFactory func(cfg *config.SecretStoreConfig, logger *logging.Logger) (secretstore.Backend, error)

// Registry manages backend creation and registration
type Registry struct {
	factories map[string]BackendFactory
}

// NewRegistry creates a new registry with the built-in backends
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]BackendFactory),
	}

	registry.RegisterFactory(vault.BackendName, NewVaultBackendFactory)
	registry.RegisterFactory(AWSSecretsManagerName, NewAWSSecretsManagerBackendFactory)
	registry.RegisterFactory(AWSSSMName, NewAWSSSMBackendFactory)
	registry.RegisterFactory(GCPSecretManagerName, NewGCPSecretManagerBackendFactory)
	registry.RegisterFactory(AzureKeyVaultName, NewAzureKeyVaultBackendFactory)
	registry.RegisterFactory(AkeylessName, NewAkeylessBackendFactory)

	return registry
}

// RegisterFactory registers a backend factory for a given type
func (r *Registry) RegisterFactory(backendType string, factory BackendFactory) {
	r.factories[backendType] = factory
}

// CreateBackend creates the backend named by cfg.Backend
func (r *Registry) CreateBackend(cfg *config.SecretStoreConfig, logger *logging.Logger) (secretstore.Backend, error) {
	factory, exists := r.factories[cfg.Backend]
	if !exists {
		return nil, fmt.Errorf("unknown secret store backend: %s", cfg.Backend)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return factory(cfg, logger)
}

// GetSupportedTypes returns the supported backend types, sorted
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for backendType := range r.factories {
		types = append(types, backendType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a backend type is supported
func (r *Registry) IsSupported(backendType string) bool {
	_, exists := r.factories[backendType]
	return exists
}

// NewVaultBackendFactory creates the HashiCorp Vault backend
func NewVaultBackendFactory(cfg *config.SecretStoreConfig, logger *logging.Logger) (secretstore.Backend, error) {
	return vault.New(vault.Config{
		Address:   cfg.URL,
		Namespace: cfg.Namespace,
		RoleID:    cfg.RoleID,
		SecretID:  cfg.SecretID,
	}, vault.WithLogger(logger))
}
