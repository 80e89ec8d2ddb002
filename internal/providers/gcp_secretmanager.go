package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// GCPSecretManagerName is the registry identifier of the Secret Manager backend.
const GCPSecretManagerName = "gcp-secretmanager"

const gcpCloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GCPSecretManagerClientAPI is the subset of the Secret Manager client we use
type GCPSecretManagerClientAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// GCPSecretManagerConfig holds GCP Secret Manager-specific configuration
type GCPSecretManagerConfig struct {
	ProjectID          string
	ImpersonateAccount string
	Endpoint           string
}

// GCPSecretManagerBackend reads the latest version of projects/{project}/secrets/{mount}_{path}
type GCPSecretManagerBackend struct {
	config GCPSecretManagerConfig
	logger *logging.Logger

	mu     sync.Mutex
	client GCPSecretManagerClientAPI
}

// GCPOption is a functional option for the Secret Manager backend
type GCPOption func(*GCPSecretManagerBackend)

// WithGCPClient sets a custom Secret Manager client (for testing)
func WithGCPClient(client GCPSecretManagerClientAPI) GCPOption {
	return func(b *GCPSecretManagerBackend) {
		b.client = client
	}
}

// NewGCPSecretManagerBackend creates a new GCP Secret Manager backend
func NewGCPSecretManagerBackend(cfg GCPSecretManagerConfig, logger *logging.Logger, opts ...GCPOption) (*GCPSecretManagerBackend, error) {
	if cfg.ProjectID == "" {
		return nil, dserrors.ConfigError{
			Field:      "Vault:Namespace",
			Message:    "project id is required for GCP Secret Manager",
			Suggestion: "Set Vault:Namespace (or VAULT_NAMESPACE) to the GCP project id",
			Err:        dserrors.ErrInvalidSetup,
		}
	}

	b := &GCPSecretManagerBackend{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewGCPSecretManagerBackendFactory adapts the secret store configuration.
// A role identifier that looks like a service account email is impersonated.
func NewGCPSecretManagerBackendFactory(cfg *config.SecretStoreConfig, logger *logging.Logger) (secretstore.Backend, error) {
	gcpCfg := GCPSecretManagerConfig{
		ProjectID: cfg.Namespace,
		Endpoint:  cfg.URL,
	}
	if strings.Contains(cfg.RoleID, "@") {
		gcpCfg.ImpersonateAccount = cfg.RoleID
	}
	return NewGCPSecretManagerBackend(gcpCfg, logger)
}

// Name returns the backend name
func (b *GCPSecretManagerBackend) Name() string {
	return GCPSecretManagerName
}

// Authenticate creates the client from application default credentials
func (b *GCPSecretManagerBackend) Authenticate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return nil
	}

	var opts []option.ClientOption
	if b.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(b.config.Endpoint))
	}
	if b.config.ImpersonateAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: b.config.ImpersonateAccount,
			Scopes:          []string{gcpCloudPlatformScope},
		})
		if err != nil {
			return backendError(GCPSecretManagerName, "impersonate "+b.config.ImpersonateAccount, dserrors.ErrAuthenticationFailed, err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return classifyGCPError("create client", err)
	}
	b.client = client
	return nil
}

// Read accesses the latest version and decodes its JSON object
func (b *GCPSecretManagerBackend) Read(ctx context.Context, loc secretstore.Location) (secretstore.Bundle, error) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return nil, backendError(GCPSecretManagerName, "read", dserrors.ErrAuthenticationFailed, nil)
	}

	name := b.secretVersionName(loc)
	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, classifyGCPError("access "+name, err)
	}

	data := result.GetPayload().GetData()
	if len(data) == 0 {
		return nil, backendError(GCPSecretManagerName, "access "+name, dserrors.ErrPathNotFound, nil)
	}

	bundle, err := secretstore.DecodeJSON(data)
	if err != nil {
		return nil, backendError(GCPSecretManagerName, "decode "+name, dserrors.ErrMalformedSecret, err)
	}
	if len(bundle) == 0 {
		return nil, backendError(GCPSecretManagerName, "access "+name, dserrors.ErrPathNotFound, nil)
	}
	return bundle, nil
}

// Close releases the gRPC connection
func (b *GCPSecretManagerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

// secretVersionName builds the resource name. Secret ids cannot contain
// slashes, so nested paths are joined with underscores.
func (b *GCPSecretManagerBackend) secretVersionName(loc secretstore.Location) string {
	secretID := strings.ReplaceAll(loc.Joined("_"), "/", "_")
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", b.config.ProjectID, secretID)
}

func classifyGCPError(op string, err error) error {
	if alreadyClassified(err) {
		return fmt.Errorf("%s %s: %w", GCPSecretManagerName, op, err)
	}

	switch status.Code(err) {
	case codes.NotFound:
		return backendError(GCPSecretManagerName, op, dserrors.ErrPathNotFound, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return backendError(GCPSecretManagerName, op, dserrors.ErrAuthenticationFailed, err)
	case codes.InvalidArgument:
		return backendError(GCPSecretManagerName, op, dserrors.ErrMalformedSecret, err)
	}

	if isAuthMessage(err) || strings.Contains(err.Error(), "could not find default credentials") {
		return backendError(GCPSecretManagerName, op, dserrors.ErrAuthenticationFailed, err)
	}
	return backendError(GCPSecretManagerName, op, dserrors.ErrTransport, err)
}
