package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"

	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/secure"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// BackendName is the registry identifier of this backend.
const BackendName = "vault"

// Config holds Vault-specific configuration
type Config struct {
	Address   string // Vault server address
	Namespace string // Vault namespace (Vault Enterprise)
	RoleID    string // AppRole role_id
	SecretID  string // AppRole secret_id, sealed in memory once the backend is built
}

// VaultClient interface for testability
type VaultClient interface {
	// Login performs an AppRole login and keeps the client token.
	Login(ctx context.Context, roleID, secretID string) error
	// ReadKVv2 reads the latest version of a KV v2 secret.
	ReadKVv2(ctx context.Context, mount, path string) (map[string]interface{}, error)
	Close() error
}

// Backend reads secret bundles from a KV v2 engine after an AppRole login
type Backend struct {
	config   Config
	client   VaultClient
	secretID *secure.Credential
	logger   *logging.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithClient sets a custom Vault client (for testing)
func WithClient(client VaultClient) Option {
	return func(b *Backend) {
		b.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New creates a Vault backend. The secret id is moved into a protected
// enclave and cleared from the returned Backend's config.
func New(cfg Config, opts ...Option) (*Backend, error) {
	b := &Backend{
		config:   cfg,
		secretID: secure.NewCredential(cfg.SecretID),
		logger:   logging.Discard(),
	}
	b.config.SecretID = ""

	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		client, err := NewAPIClient(cfg.Address, cfg.Namespace)
		if err != nil {
			b.secretID.Destroy()
			return nil, fmt.Errorf("%w: %w", dserrors.ErrInvalidSetup, err)
		}
		b.client = client
	}

	return b, nil
}

// Name returns the backend name
func (b *Backend) Name() string {
	return BackendName
}

// Authenticate performs the AppRole login
func (b *Backend) Authenticate(ctx context.Context) error {
	b.logger.Debug("vault approle login", "address", b.config.Address, "role_id", b.config.RoleID)

	err := b.secretID.Use(func(secretID string) error {
		return b.client.Login(ctx, b.config.RoleID, secretID)
	})
	if err != nil {
		return classify("login", err)
	}
	return nil
}

// Read fetches the latest version of the secret at loc
func (b *Backend) Read(ctx context.Context, loc secretstore.Location) (secretstore.Bundle, error) {
	mount := strings.Trim(loc.Mount, "/")
	path := strings.Trim(loc.Path, "/")

	data, err := b.client.ReadKVv2(ctx, mount, path)
	if err != nil {
		return nil, classify("read "+mount+"/data/"+path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("vault read %s/data/%s: %w", mount, path, dserrors.ErrPathNotFound)
	}

	return secretstore.Bundle(data), nil
}

// Close releases the client and wipes the sealed secret id
func (b *Backend) Close() error {
	b.secretID.Destroy()
	return b.client.Close()
}

// classify maps Vault failures onto the error kinds the secret client
// understands.
func classify(op string, err error) error {
	if errors.Is(err, dserrors.ErrAuthenticationFailed) ||
		errors.Is(err, dserrors.ErrPathNotFound) ||
		errors.Is(err, dserrors.ErrTransport) {
		return fmt.Errorf("vault %s: %w", op, err)
	}

	if errors.Is(err, api.ErrSecretNotFound) {
		return fmt.Errorf("vault %s: %w: %w", op, dserrors.ErrPathNotFound, err)
	}

	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 400, 401, 403:
			return fmt.Errorf("vault %s: %w: %w", op, dserrors.ErrAuthenticationFailed, err)
		case 404:
			return fmt.Errorf("vault %s: %w: %w", op, dserrors.ErrPathNotFound, err)
		}
	}

	return fmt.Errorf("vault %s: %w: %w", op, dserrors.ErrTransport, err)
}
