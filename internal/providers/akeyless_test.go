package providers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/providers/contracts"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

type mockAkeylessClient struct {
	gotAccessID  string
	gotAccessKey string
	gotPath      string
	token        string
	authErr      error
	value        string
	readErr      error
}

func (m *mockAkeylessClient) Authenticate(_ context.Context, accessID, accessKey string) (string, error) {
	m.gotAccessID = accessID
	m.gotAccessKey = accessKey
	return m.token, m.authErr
}

func (m *mockAkeylessClient) GetSecretValue(_ context.Context, token, path string) (string, error) {
	m.gotPath = path
	if token != m.token {
		return "", &contracts.AkeylessStatusError{StatusCode: http.StatusUnauthorized, Err: errors.New("bad token")}
	}
	return m.value, m.readErr
}

func TestAkeylessRead(t *testing.T) {
	t.Parallel()

	client := &mockAkeylessClient{token: "t-1", value: `{"Smtp":{"Password":"hunter22"}}`}
	b := NewAkeylessBackendWithClient(AkeylessConfig{AccessID: "p-abc", AccessKey: "key=="}, logging.Discard(), client)

	require.NoError(t, b.Authenticate(context.Background()))
	assert.Equal(t, "p-abc", client.gotAccessID)
	assert.Equal(t, "key==", client.gotAccessKey)

	bundle, err := b.Read(context.Background(), secretstore.Location{Mount: "secret", Path: "myapp"})
	require.NoError(t, err)
	assert.Equal(t, "/secret/myapp", client.gotPath)
	assert.Contains(t, bundle, "Smtp")
}

func TestAkeylessErrors(t *testing.T) {
	t.Parallel()

	t.Run("rejected credentials", func(t *testing.T) {
		t.Parallel()

		client := &mockAkeylessClient{authErr: &contracts.AkeylessStatusError{StatusCode: http.StatusBadRequest, Err: errors.New("invalid access key")}}
		b := NewAkeylessBackendWithClient(AkeylessConfig{AccessID: "p-abc", AccessKey: "wrong"}, logging.Discard(), client)

		assert.ErrorIs(t, b.Authenticate(context.Background()), dserrors.ErrAuthenticationFailed)
	})

	t.Run("missing item", func(t *testing.T) {
		t.Parallel()

		client := &mockAkeylessClient{token: "t-1", readErr: &contracts.AkeylessStatusError{StatusCode: http.StatusNotFound, Err: errors.New("itemNotFound")}}
		b := NewAkeylessBackendWithClient(AkeylessConfig{AccessID: "p-abc", AccessKey: "k"}, logging.Discard(), client)
		require.NoError(t, b.Authenticate(context.Background()))

		_, err := b.Read(context.Background(), secretstore.Location{Mount: "secret", Path: "gone"})
		assert.ErrorIs(t, err, dserrors.ErrPathNotFound)
	})

	t.Run("gateway unreachable", func(t *testing.T) {
		t.Parallel()

		client := &mockAkeylessClient{authErr: errors.New("dial tcp: connection refused")}
		b := NewAkeylessBackendWithClient(AkeylessConfig{AccessID: "p-abc", AccessKey: "k"}, logging.Discard(), client)

		assert.ErrorIs(t, b.Authenticate(context.Background()), dserrors.ErrTransport)
	})

	t.Run("read before authenticate", func(t *testing.T) {
		t.Parallel()

		b := NewAkeylessBackendWithClient(AkeylessConfig{}, logging.Discard(), &mockAkeylessClient{})
		_, err := b.Read(context.Background(), secretstore.Location{Mount: "secret", Path: "app"})
		assert.ErrorIs(t, err, dserrors.ErrAuthenticationFailed)
	})
}
