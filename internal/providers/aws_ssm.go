package providers

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// AWSSSMName is the registry identifier of the Parameter Store backend.
const AWSSSMName = "aws-ssm"

// SSMClientAPI defines the interface for AWS SSM operations
type SSMClientAPI interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// AWSSSMBackend reads every parameter below /{mount}/{path}
type AWSSSMBackend struct {
	config AWSConfig
	logger *logging.Logger

	mu     sync.Mutex
	client SSMClientAPI
}

// SSMOption is a functional option for the SSM backend
type SSMOption func(*AWSSSMBackend)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) SSMOption {
	return func(b *AWSSSMBackend) {
		b.client = client
	}
}

// NewAWSSSMBackend creates a new AWS SSM Parameter Store backend
func NewAWSSSMBackend(cfg AWSConfig, logger *logging.Logger, opts ...SSMOption) *AWSSSMBackend {
	b := &AWSSSMBackend{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewAWSSSMBackendFactory adapts the secret store configuration
func NewAWSSSMBackendFactory(cfg *config.SecretStoreConfig, logger *logging.Logger) (secretstore.Backend, error) {
	awsCfg := awsConfigFromIdentity(cfg.Region, cfg.URL, cfg.RoleID, cfg.SecretID)
	return NewAWSSSMBackend(awsCfg, logger), nil
}

// Name returns the backend name
func (b *AWSSSMBackend) Name() string {
	return AWSSSMName
}

// Authenticate builds the client from the AWS credential chain
func (b *AWSSSMBackend) Authenticate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return nil
	}

	awsCfg, err := loadAWSConfig(ctx, b.config)
	if err != nil {
		return backendError(AWSSSMName, "load config", dserrors.ErrAuthenticationFailed, err)
	}

	var clientOpts []func(*ssm.Options)
	if b.config.Endpoint != "" {
		endpoint := b.config.Endpoint
		clientOpts = append(clientOpts, func(o *ssm.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	b.client = ssm.NewFromConfig(awsCfg, clientOpts...)
	return nil
}

// Read collects the parameters under the location prefix. Keys are the
// parameter names relative to the prefix.
func (b *AWSSSMBackend) Read(ctx context.Context, loc secretstore.Location) (secretstore.Bundle, error) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return nil, backendError(AWSSSMName, "read", dserrors.ErrAuthenticationFailed, nil)
	}

	prefix := "/" + loc.String()
	bundle := make(secretstore.Bundle)

	var nextToken *string
	for {
		out, err := client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			Recursive:      aws.Bool(true),
			WithDecryption: aws.Bool(true),
			NextToken:      nextToken,
		})
		if err != nil {
			return nil, classifyAWSError(AWSSSMName, "read "+prefix, err)
		}

		for _, param := range out.Parameters {
			name := strings.TrimPrefix(aws.ToString(param.Name), prefix+"/")
			if name == "" {
				continue
			}
			bundle[name] = aws.ToString(param.Value)
		}

		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		nextToken = out.NextToken
	}

	if len(bundle) == 0 {
		return nil, backendError(AWSSSMName, "read "+prefix, dserrors.ErrPathNotFound, nil)
	}
	b.logger.Debug("ssm parameters read", "prefix", prefix, "count", len(bundle))
	return bundle, nil
}
