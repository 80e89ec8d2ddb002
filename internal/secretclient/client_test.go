package secretclient_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/metrics"
	"github.com/systmms/vaultconf/internal/secretclient"
	"github.com/systmms/vaultconf/pkg/secretstore"
	"github.com/systmms/vaultconf/pkg/secretstore/secretstoretest"
)

func testConfig() *config.SecretStoreConfig {
	return &config.SecretStoreConfig{
		Mode:           config.ModeRemote,
		Backend:        "fake",
		Path:           "myapp",
		MountPoint:     "secret",
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

var errConnRefused = errors.New("dial tcp 10.0.0.1:8200: connection refused")

func TestFetchSecretsSuccess(t *testing.T) {
	t.Parallel()

	backend := secretstoretest.Succeed(secretstore.Bundle{"DbPassword": "p@ss"})
	client := secretclient.New(backend, testConfig())

	bundle, err := client.FetchSecrets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, secretstore.Bundle{"DbPassword": "p@ss"}, bundle)
	assert.Equal(t, 1, backend.Attempts())
	assert.Equal(t, []secretstore.Location{{Mount: "secret", Path: "myapp"}}, backend.Reads())
}

func TestFetchSecretsSucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()

	backend := secretstoretest.NewBackend(
		secretstoretest.Step{ReadErr: errConnRefused},
		secretstoretest.Step{AuthErr: fmt.Errorf("login: %w", dserrors.ErrAuthenticationFailed)},
		secretstoretest.Step{Bundle: secretstore.Bundle{"ApiKey": "k-1"}},
	)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client := secretclient.New(backend, testConfig(), secretclient.WithMetrics(m))

	bundle, err := client.FetchSecrets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "k-1", bundle["ApiKey"])
	assert.Equal(t, 3, backend.Attempts())

	count, err := testutil.GatherAndCount(reg, "vaultconf_secret_fetch_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count) // retry and success series

	count, err = testutil.GatherAndCount(reg, "vaultconf_secret_fetch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFetchSecretsExhaustsRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		steps    []secretstoretest.Step
		wantKind error
	}{
		{
			name:     "transport",
			steps:    []secretstoretest.Step{{ReadErr: errConnRefused}},
			wantKind: dserrors.ErrTransport,
		},
		{
			name:     "authentication rejected last",
			steps:    []secretstoretest.Step{{ReadErr: errConnRefused}, {AuthErr: fmt.Errorf("login: %w", dserrors.ErrAuthenticationFailed)}},
			wantKind: dserrors.ErrAuthenticationFailed,
		},
		{
			name:     "transport after auth failure",
			steps:    []secretstoretest.Step{{AuthErr: fmt.Errorf("login: %w", dserrors.ErrAuthenticationFailed)}, {ReadErr: errConnRefused}},
			wantKind: dserrors.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			backend := secretstoretest.NewBackend(tt.steps...)
			client := secretclient.New(backend, testConfig())

			_, err := client.FetchSecrets(context.Background())
			require.Error(t, err)

			var fetchErr *dserrors.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.wantKind, fetchErr.Kind)
			assert.Equal(t, 3, fetchErr.Attempts)
			assert.Equal(t, "secret/myapp", fetchErr.Location)
			assert.Equal(t, 3, backend.Attempts())
		})
	}
}

func TestFetchSecretsPathNotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	backend := secretstoretest.NewBackend(secretstoretest.Step{ReadErr: fmt.Errorf("read: %w", dserrors.ErrPathNotFound)})
	client := secretclient.New(backend, testConfig())

	_, err := client.FetchSecrets(context.Background())

	assert.ErrorIs(t, err, dserrors.ErrPathNotFound)
	assert.Equal(t, 1, backend.Attempts())
}

func TestFetchSecretsEmptyBundle(t *testing.T) {
	t.Parallel()

	t.Run("is path not found", func(t *testing.T) {
		t.Parallel()

		backend := secretstoretest.Succeed(secretstore.Bundle{})
		_, err := secretclient.New(backend, testConfig()).FetchSecrets(context.Background())

		assert.ErrorIs(t, err, dserrors.ErrPathNotFound)
		assert.Equal(t, 1, backend.Attempts())
	})

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.AllowEmpty = true
		bundle, err := secretclient.New(secretstoretest.Succeed(nil), cfg).FetchSecrets(context.Background())

		require.NoError(t, err)
		assert.Empty(t, bundle)
	})
}

func TestFetchSecretsInvalidSetup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		path  string
		mount string
	}{
		{"missing path", "", "secret"},
		{"missing mount", "myapp", ""},
		{"blank path", "   ", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			cfg.Path = tt.path
			cfg.MountPoint = tt.mount
			backend := secretstoretest.Succeed(secretstore.Bundle{"k": "v"})

			_, err := secretclient.New(backend, cfg).FetchSecrets(context.Background())

			assert.ErrorIs(t, err, dserrors.ErrInvalidSetup)
			assert.True(t, dserrors.IsFatal(err))
			assert.Zero(t, backend.Attempts())
		})
	}
}

func TestFetchSecretsAttemptTimeout(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AttemptTimeout = 20 * time.Millisecond
	backend := secretstoretest.NewBackend(
		secretstoretest.Step{Block: true},
		secretstoretest.Step{Bundle: secretstore.Bundle{"k": "v"}},
	)

	bundle, err := secretclient.New(backend, cfg).FetchSecrets(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "v", bundle["k"])
	assert.Equal(t, 2, backend.Attempts())
}

func TestFetchSecretsStopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.InitialBackoff = time.Hour
	backend := secretstoretest.NewBackend(secretstoretest.Step{ReadErr: errConnRefused})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := secretclient.New(backend, cfg).FetchSecrets(ctx)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, dserrors.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, backend.Attempts())
}
