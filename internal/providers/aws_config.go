package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	dserrors "github.com/systmms/vaultconf/internal/errors"
)

// AWSConfig holds the settings shared by the AWS backends
type AWSConfig struct {
	Region   string
	Endpoint string // Optional custom endpoint for LocalStack or testing

	// RoleARN is assumed through STS when set. ExternalID accompanies it.
	RoleARN    string
	ExternalID string

	// Static credentials, for LocalStack and tests.
	AccessKeyID     string
	SecretAccessKey string
}

// awsConfigFromIdentity interprets the role/secret pair. A role identifier
// that is an ARN is assumed with the secret identifier as external id;
// otherwise the pair is a static access key.
func awsConfigFromIdentity(region, endpoint, roleID, secretID string) AWSConfig {
	cfg := AWSConfig{Region: region, Endpoint: endpoint}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	switch {
	case strings.HasPrefix(roleID, "arn:"):
		cfg.RoleARN = roleID
		cfg.ExternalID = secretID
	case roleID != "" && secretID != "":
		cfg.AccessKeyID = roleID
		cfg.SecretAccessKey = secretID
	}
	return cfg
}

// loadAWSConfig builds an aws.Config with SDK retries disabled.
func loadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	configOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(1),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.RoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		provider := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = fmt.Sprintf("vaultconf-%d", time.Now().Unix())
			if cfg.ExternalID != "" {
				o.ExternalID = aws.String(cfg.ExternalID)
			}
		})
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	return awsCfg, nil
}

// classifyAWSError converts AWS errors to fetch error kinds
func classifyAWSError(backend, op string, err error) error {
	if alreadyClassified(err) {
		return fmt.Errorf("%s %s: %w", backend, op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException", "ParameterNotFound":
			return backendError(backend, op, dserrors.ErrPathNotFound, err)
		case "AccessDeniedException", "AccessDenied", "UnrecognizedClientException",
			"ExpiredTokenException", "InvalidClientTokenId", "InvalidSignatureException":
			return backendError(backend, op, dserrors.ErrAuthenticationFailed, err)
		}
	}

	if isAuthMessage(err) {
		return backendError(backend, op, dserrors.ErrAuthenticationFailed, err)
	}

	return backendError(backend, op, dserrors.ErrTransport, err)
}
