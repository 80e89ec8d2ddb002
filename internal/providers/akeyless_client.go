package providers

import (
	"context"
	"net/http"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	"github.com/systmms/vaultconf/internal/providers/contracts"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// akeylessSDKClient implements AkeylessClient using the official SDK
type akeylessSDKClient struct {
	apiClient *akeyless.APIClient
}

// newAkeylessSDKClient creates a new SDK client for the gateway
func newAkeylessSDKClient(gatewayURL string) *akeylessSDKClient {
	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{
		{URL: gatewayURL},
	}

	return &akeylessSDKClient{apiClient: akeyless.NewAPIClient(configuration)}
}

// Authenticate uses API key auth (access id + access key)
func (c *akeylessSDKClient) Authenticate(ctx context.Context, accessID, accessKey string) (string, error) {
	authBody := akeyless.NewAuthWithDefaults()
	authBody.SetAccessId(accessID)
	authBody.SetAccessKey(accessKey)

	authRes, httpRes, err := c.apiClient.V2Api.Auth(ctx).Body(*authBody).Execute()
	if err != nil {
		return "", withStatus(httpRes, err)
	}
	return authRes.GetToken(), nil
}

// GetSecretValue retrieves the value stored at path
func (c *akeylessSDKClient) GetSecretValue(ctx context.Context, token, path string) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)

	res, httpRes, err := c.apiClient.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return "", withStatus(httpRes, err)
	}

	raw, ok := res[path]
	if !ok {
		return "", &contracts.AkeylessStatusError{StatusCode: http.StatusNotFound, Err: ErrAkeylessSecretNotFound}
	}
	value, _ := secretstore.StringValue(raw)
	return value, nil
}

func withStatus(res *http.Response, err error) error {
	if res == nil {
		return err
	}
	return &contracts.AkeylessStatusError{StatusCode: res.StatusCode, Err: err}
}

var _ contracts.AkeylessClient = (*akeylessSDKClient)(nil)
