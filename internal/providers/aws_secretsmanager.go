package providers

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// AWSSecretsManagerName is the registry identifier of the Secrets Manager backend.
const AWSSecretsManagerName = "aws-secretsmanager"

// SecretsManagerClientAPI defines the interface for AWS Secrets Manager operations
// This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManagerBackend reads a JSON secret named {mount}/{path}
type AWSSecretsManagerBackend struct {
	config AWSConfig
	logger *logging.Logger

	mu     sync.Mutex
	client SecretsManagerClientAPI
}

// SecretsManagerOption is a functional option for the Secrets Manager backend
type SecretsManagerOption func(*AWSSecretsManagerBackend)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) SecretsManagerOption {
	return func(b *AWSSecretsManagerBackend) {
		b.client = client
	}
}

// NewAWSSecretsManagerBackend creates a new AWS Secrets Manager backend
func NewAWSSecretsManagerBackend(cfg AWSConfig, logger *logging.Logger, opts ...SecretsManagerOption) *AWSSecretsManagerBackend {
	b := &AWSSecretsManagerBackend{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewAWSSecretsManagerBackendFactory adapts the secret store configuration
func NewAWSSecretsManagerBackendFactory(cfg *config.SecretStoreConfig, logger *logging.Logger) (secretstore.Backend, error) {
	awsCfg := awsConfigFromIdentity(cfg.Region, cfg.URL, cfg.RoleID, cfg.SecretID)
	return NewAWSSecretsManagerBackend(awsCfg, logger), nil
}

// Name returns the backend name
func (b *AWSSecretsManagerBackend) Name() string {
	return AWSSecretsManagerName
}

// Authenticate builds the client from the AWS credential chain
func (b *AWSSecretsManagerBackend) Authenticate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return nil
	}

	awsCfg, err := loadAWSConfig(ctx, b.config)
	if err != nil {
		return backendError(AWSSecretsManagerName, "load config", dserrors.ErrAuthenticationFailed, err)
	}

	var clientOpts []func(*secretsmanager.Options)
	if b.config.Endpoint != "" {
		endpoint := b.config.Endpoint
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	b.client = secretsmanager.NewFromConfig(awsCfg, clientOpts...)
	b.logger.Debug("aws secrets manager client ready", "region", b.config.Region, "assume_role", b.config.RoleARN != "")
	return nil
}

// Read retrieves the secret and decodes its JSON object
func (b *AWSSecretsManagerBackend) Read(ctx context.Context, loc secretstore.Location) (secretstore.Bundle, error) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return nil, backendError(AWSSecretsManagerName, "read", dserrors.ErrAuthenticationFailed, nil)
	}

	secretName := loc.String()
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return nil, classifyAWSError(AWSSecretsManagerName, "read "+secretName, err)
	}

	var payload []byte
	switch {
	case result.SecretString != nil:
		payload = []byte(*result.SecretString)
	case result.SecretBinary != nil:
		payload = result.SecretBinary
	}
	if len(payload) == 0 {
		return nil, backendError(AWSSecretsManagerName, "read "+secretName, dserrors.ErrPathNotFound, nil)
	}

	bundle, err := secretstore.DecodeJSON(payload)
	if err != nil {
		return nil, backendError(AWSSecretsManagerName, "decode "+secretName, dserrors.ErrMalformedSecret, err)
	}
	if len(bundle) == 0 {
		return nil, backendError(AWSSecretsManagerName, "read "+secretName, dserrors.ErrPathNotFound, nil)
	}
	return bundle, nil
}
