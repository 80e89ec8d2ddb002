package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/providers/contracts"
	"github.com/systmms/vaultconf/internal/secure"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

const (
	// AkeylessName is the registry identifier of the Akeyless backend.
	AkeylessName = "akeyless"

	// DefaultAkeylessGateway is the public Akeyless API
	DefaultAkeylessGateway = "https://api.akeyless.io"
)

// ErrAkeylessSecretNotFound is returned when the gateway has no value for a path
var ErrAkeylessSecretNotFound = errors.New("akeyless secret not found")

// AkeylessConfig holds Akeyless-specific configuration
type AkeylessConfig struct {
	GatewayURL string
	AccessID   string
	AccessKey  string
}

// AkeylessBackend reads a JSON secret stored at /{mount}/{path}
type AkeylessBackend struct {
	config    AkeylessConfig
	accessKey *secure.Credential
	client    contracts.AkeylessClient
	logger    *logging.Logger

	mu    sync.Mutex
	token string
}

// NewAkeylessBackend creates a backend talking to the configured gateway
func NewAkeylessBackend(cfg AkeylessConfig, logger *logging.Logger) *AkeylessBackend {
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultAkeylessGateway
	}
	return NewAkeylessBackendWithClient(cfg, logger, newAkeylessSDKClient(cfg.GatewayURL))
}

// NewAkeylessBackendWithClient creates a backend with an injected client (for testing)
func NewAkeylessBackendWithClient(cfg AkeylessConfig, logger *logging.Logger, client contracts.AkeylessClient) *AkeylessBackend {
	key := secure.NewCredential(cfg.AccessKey)
	cfg.AccessKey = ""
	return &AkeylessBackend{
		config:    cfg,
		accessKey: key,
		client:    client,
		logger:    logger,
	}
}

// NewAkeylessBackendFactory adapts the secret store configuration
func NewAkeylessBackendFactory(cfg *config.SecretStoreConfig, logger *logging.Logger) (secretstore.Backend, error) {
	return NewAkeylessBackend(AkeylessConfig{
		GatewayURL: cfg.URL,
		AccessID:   cfg.RoleID,
		AccessKey:  cfg.SecretID,
	}, logger), nil
}

// Name returns the backend name
func (b *AkeylessBackend) Name() string {
	return AkeylessName
}

// Authenticate obtains a session token
func (b *AkeylessBackend) Authenticate(ctx context.Context) error {
	var token string
	err := b.accessKey.Use(func(key string) error {
		var err error
		token, err = b.client.Authenticate(ctx, b.config.AccessID, key)
		return err
	})
	if err != nil {
		return classifyAkeylessError("auth", err, true)
	}
	if token == "" {
		return backendError(AkeylessName, "auth", dserrors.ErrAuthenticationFailed, errors.New("empty token"))
	}

	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
	return nil
}

// Read fetches the value and decodes its JSON object
func (b *AkeylessBackend) Read(ctx context.Context, loc secretstore.Location) (secretstore.Bundle, error) {
	b.mu.Lock()
	token := b.token
	b.mu.Unlock()
	if token == "" {
		return nil, backendError(AkeylessName, "read", dserrors.ErrAuthenticationFailed, nil)
	}

	path := "/" + loc.String()
	value, err := b.client.GetSecretValue(ctx, token, path)
	if err != nil {
		return nil, classifyAkeylessError("read "+path, err, false)
	}
	if strings.TrimSpace(value) == "" {
		return nil, backendError(AkeylessName, "read "+path, dserrors.ErrPathNotFound, nil)
	}

	bundle, err := secretstore.DecodeJSON([]byte(value))
	if err != nil {
		return nil, backendError(AkeylessName, "decode "+path, dserrors.ErrMalformedSecret, err)
	}
	if len(bundle) == 0 {
		return nil, backendError(AkeylessName, "read "+path, dserrors.ErrPathNotFound, nil)
	}
	return bundle, nil
}

// Close forgets the token and the sealed access key
func (b *AkeylessBackend) Close() error {
	b.mu.Lock()
	b.token = ""
	b.mu.Unlock()
	b.accessKey.Destroy()
	return nil
}

// classifyAkeylessError maps gateway status codes. During auth any
// rejection is an authentication failure.
func classifyAkeylessError(op string, err error, authenticating bool) error {
	if alreadyClassified(err) {
		return fmt.Errorf("%s %s: %w", AkeylessName, op, err)
	}

	var statusErr *contracts.AkeylessStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden:
			return backendError(AkeylessName, op, dserrors.ErrAuthenticationFailed, err)
		case authenticating && statusErr.StatusCode < http.StatusInternalServerError:
			return backendError(AkeylessName, op, dserrors.ErrAuthenticationFailed, err)
		case statusErr.StatusCode == http.StatusNotFound:
			return backendError(AkeylessName, op, dserrors.ErrPathNotFound, err)
		}
	}

	if errors.Is(err, ErrAkeylessSecretNotFound) || strings.Contains(err.Error(), "itemNotFound") {
		return backendError(AkeylessName, op, dserrors.ErrPathNotFound, err)
	}
	if isAuthMessage(err) {
		return backendError(AkeylessName, op, dserrors.ErrAuthenticationFailed, err)
	}
	return backendError(AkeylessName, op, dserrors.ErrTransport, err)
}
