package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/secure"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// AzureKeyVaultName is the registry identifier of the Key Vault backend.
const AzureKeyVaultName = "azure-keyvault"

// KeyVaultClientAPI is the subset of azsecrets.Client we use
type KeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVaultConfig holds Azure Key Vault-specific configuration
type AzureKeyVaultConfig struct {
	VaultURL     string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// AzureKeyVaultBackend reads the secret named {mount}-{path}
type AzureKeyVaultBackend struct {
	config       AzureKeyVaultConfig
	clientSecret *secure.Credential
	logger       *logging.Logger

	mu     sync.Mutex
	client KeyVaultClientAPI
}

// AzureOption is a functional option for the Key Vault backend
type AzureOption func(*AzureKeyVaultBackend)

// WithKeyVaultClient sets a custom Key Vault client (for testing)
func WithKeyVaultClient(client KeyVaultClientAPI) AzureOption {
	return func(b *AzureKeyVaultBackend) {
		b.client = client
	}
}

// NewAzureKeyVaultBackend creates a new Azure Key Vault backend
func NewAzureKeyVaultBackend(cfg AzureKeyVaultConfig, logger *logging.Logger, opts ...AzureOption) (*AzureKeyVaultBackend, error) {
	if cfg.VaultURL == "" {
		return nil, dserrors.ConfigError{
			Field:      "Vault:Url",
			Message:    "vault URL is required for Azure Key Vault",
			Suggestion: "Set Vault:Url to https://<name>.vault.azure.net/",
			Err:        dserrors.ErrInvalidSetup,
		}
	}

	secret := secure.NewCredential(cfg.ClientSecret)
	cfg.ClientSecret = ""

	b := &AzureKeyVaultBackend{config: cfg, clientSecret: secret, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewAzureKeyVaultBackendFactory adapts the secret store configuration
func NewAzureKeyVaultBackendFactory(cfg *config.SecretStoreConfig, logger *logging.Logger) (secretstore.Backend, error) {
	return NewAzureKeyVaultBackend(AzureKeyVaultConfig{
		VaultURL:     cfg.URL,
		TenantID:     cfg.Namespace,
		ClientID:     cfg.RoleID,
		ClientSecret: cfg.SecretID,
	}, logger)
}

// Name returns the backend name
func (b *AzureKeyVaultBackend) Name() string {
	return AzureKeyVaultName
}

// Authenticate picks a credential and creates the client. Client id and
// secret select a service principal, a client id alone a user-assigned
// managed identity, and nothing the default credential chain.
func (b *AzureKeyVaultBackend) Authenticate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return nil
	}

	cred, err := b.credential()
	if err != nil {
		return backendError(AzureKeyVaultName, "credential", dserrors.ErrAuthenticationFailed, err)
	}

	client, err := azsecrets.NewClient(b.config.VaultURL, cred, &azsecrets.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return backendError(AzureKeyVaultName, "create client", dserrors.ErrInvalidSetup, err)
	}
	b.client = client
	return nil
}

func (b *AzureKeyVaultBackend) credential() (azcore.TokenCredential, error) {
	switch {
	case b.config.ClientID != "" && !b.clientSecret.IsEmpty():
		var cred azcore.TokenCredential
		err := b.clientSecret.Use(func(secret string) error {
			var err error
			cred, err = azidentity.NewClientSecretCredential(b.config.TenantID, b.config.ClientID, secret, nil)
			return err
		})
		return cred, err
	case b.config.ClientID != "":
		return azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(b.config.ClientID),
		})
	default:
		return azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
			TenantID: b.config.TenantID,
		})
	}
}

// Read fetches the latest version and decodes its JSON object
func (b *AzureKeyVaultBackend) Read(ctx context.Context, loc secretstore.Location) (secretstore.Bundle, error) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return nil, backendError(AzureKeyVaultName, "read", dserrors.ErrAuthenticationFailed, nil)
	}

	name := keyVaultSecretName(loc)
	resp, err := client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return nil, classifyAzureError("get "+name, err)
	}

	if resp.Value == nil || *resp.Value == "" {
		return nil, backendError(AzureKeyVaultName, "get "+name, dserrors.ErrPathNotFound, nil)
	}

	bundle, err := secretstore.DecodeJSON([]byte(*resp.Value))
	if err != nil {
		return nil, backendError(AzureKeyVaultName, "decode "+name, dserrors.ErrMalformedSecret, err)
	}
	if len(bundle) == 0 {
		return nil, backendError(AzureKeyVaultName, "get "+name, dserrors.ErrPathNotFound, nil)
	}
	return bundle, nil
}

// Close drops the sealed client secret
func (b *AzureKeyVaultBackend) Close() error {
	b.clientSecret.Destroy()
	return nil
}

// keyVaultSecretName flattens the location; Key Vault names only allow
// alphanumerics and dashes.
func keyVaultSecretName(loc secretstore.Location) string {
	return strings.ReplaceAll(loc.Joined("-"), "/", "-")
}

func classifyAzureError(op string, err error) error {
	if alreadyClassified(err) {
		return fmt.Errorf("%s %s: %w", AzureKeyVaultName, op, err)
	}

	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return backendError(AzureKeyVaultName, op, dserrors.ErrAuthenticationFailed, err)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return backendError(AzureKeyVaultName, op, dserrors.ErrPathNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return backendError(AzureKeyVaultName, op, dserrors.ErrAuthenticationFailed, err)
		}
	}

	if isAuthMessage(err) {
		return backendError(AzureKeyVaultName, op, dserrors.ErrAuthenticationFailed, err)
	}
	return backendError(AzureKeyVaultName, op, dserrors.ErrTransport, err)
}
