package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"

	dserrors "github.com/systmms/vaultconf/internal/errors"
)

// APIClient implements VaultClient on top of the official Vault API client
type APIClient struct {
	client *api.Client
}

// NewAPIClient creates a client for address. The SDK's own retries are
// disabled; the caller owns the retry policy. A VAULT_TOKEN from the
// process environment is ignored so that only the AppRole token is used.
func NewAPIClient(address, namespace string) (*APIClient, error) {
	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, fmt.Errorf("failed to build vault config: %w", config.Error)
	}
	config.Address = address
	config.MaxRetries = 0

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.ClearToken()

	if namespace != "" {
		client.SetNamespace(namespace)
	}

	return &APIClient{client: client}, nil
}

// Login authenticates with auth/approle/login
func (c *APIClient) Login(ctx context.Context, roleID, secretID string) error {
	resp, err := c.client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return err
	}

	if resp == nil || resp.Auth == nil || resp.Auth.ClientToken == "" {
		return fmt.Errorf("%w: approle login returned no client token", dserrors.ErrAuthenticationFailed)
	}

	c.client.SetToken(resp.Auth.ClientToken)
	return nil
}

// ReadKVv2 reads mount/data/path
func (c *APIClient) ReadKVv2(ctx context.Context, mount, path string) (map[string]interface{}, error) {
	secret, err := c.client.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return secret.Data, nil
}

// Close cleans up the client
func (c *APIClient) Close() error {
	c.client.ClearToken()
	return nil
}
