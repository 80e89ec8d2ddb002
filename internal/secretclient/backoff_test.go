package secretclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/pkg/secretstore"
	"github.com/systmms/vaultconf/pkg/secretstore/secretstoretest"
)

func defaultConfig() *config.SecretStoreConfig {
	return &config.SecretStoreConfig{
		Mode:           config.ModeRemote,
		Path:           "myapp",
		MountPoint:     "secret",
		MaxAttempts:    config.DefaultMaxAttempts,
		InitialBackoff: config.DefaultInitialBackoff,
		AttemptTimeout: config.DefaultAttemptTimeout,
	}
}

func TestBackoffDoubles(t *testing.T) {
	t.Parallel()

	c := New(secretstoretest.NewBackend(), defaultConfig())

	assert.Equal(t, 2*time.Second, c.backoff(1))
	assert.Equal(t, 4*time.Second, c.backoff(2))
	assert.Equal(t, 8*time.Second, c.backoff(3))
}

func TestFetchSecretsWaitsBetweenAttempts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		steps     []secretstoretest.Step
		wantWaits []time.Duration
		wantErr   error
	}{
		{
			name: "success on third attempt",
			steps: []secretstoretest.Step{
				{ReadErr: errors.New("connection refused")},
				{ReadErr: errors.New("connection refused")},
				{Bundle: secretstore.Bundle{"ApiKey": "k-1"}},
			},
			wantWaits: []time.Duration{2 * time.Second, 4 * time.Second},
		},
		{
			name:      "no wait after the last attempt",
			steps:     []secretstoretest.Step{{ReadErr: errors.New("connection refused")}},
			wantWaits: []time.Duration{2 * time.Second, 4 * time.Second},
			wantErr:   dserrors.ErrTransport,
		},
		{
			name:      "no wait for a missing path",
			steps:     []secretstoretest.Step{{ReadErr: dserrors.ErrPathNotFound}},
			wantWaits: nil,
			wantErr:   dserrors.ErrPathNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(secretstoretest.NewBackend(tt.steps...), defaultConfig())
			var waits []time.Duration
			c.sleep = func(_ context.Context, d time.Duration) error {
				waits = append(waits, d)
				return nil
			}

			_, err := c.FetchSecrets(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantWaits, waits)
		})
	}
}
