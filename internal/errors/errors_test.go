package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/vaultconf/internal/errors"
)

// TestUserErrorFormatting verifies UserError displays properly
func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Operation failed",
		Details:    "Connection timeout",
		Suggestion: "Check network connectivity",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Operation failed")
	assert.Contains(t, errMsg, "Connection timeout")
	assert.Contains(t, errMsg, "Check network connectivity")
	assert.Contains(t, errMsg, "💡")
}

// TestConfigErrorFormatting verifies ConfigError displays with context
func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "Vault:Url",
		Value:      "invalid-url",
		Message:    "Invalid URL format",
		Suggestion: "Use format: https://vault.example.com:8200",
		Err:        errors.ErrInvalidSetup,
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Vault:Url")
	assert.Contains(t, errMsg, "invalid-url")
	assert.Contains(t, errMsg, "Invalid URL format")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidSetup))
}

func TestFetchErrorMatchesKindAndCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection refused")
	err := &errors.FetchError{
		Kind:     errors.ErrTransport,
		Backend:  "vault",
		Location: "secret/myapp",
		Attempts: 3,
		Err:      cause,
	}

	assert.True(t, stderrors.Is(err, errors.ErrTransport))
	assert.True(t, stderrors.Is(err, cause))
	assert.False(t, stderrors.Is(err, errors.ErrAuthenticationFailed))
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "secret/myapp")

	var fetchErr *errors.FetchError
	require.True(t, stderrors.As(fmt.Errorf("wrapped: %w", err), &fetchErr))
	assert.Equal(t, 3, fetchErr.Attempts)
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	err := &errors.NotFoundError{Name: "DefaultConnection", Consulted: []string{"ConnectionStrings:DefaultConnection"}}

	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	assert.Contains(t, err.Error(), "DefaultConnection")
	assert.Contains(t, err.Error(), "consulted")
}

func TestConversionError(t *testing.T) {
	t.Parallel()

	err := &errors.ConversionError{Property: "Port", RawValue: "abc", TargetType: "int"}

	assert.True(t, stderrors.Is(err, errors.ErrConversion))
	assert.Equal(t, `cannot convert "abc" to int for property Port`, err.Error())
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid setup", &errors.FetchError{Kind: errors.ErrInvalidSetup, Backend: "vault"}, true},
		{"config error", errors.ConfigError{Message: "missing", Err: errors.ErrInvalidSetup}, true},
		{"conversion", &errors.ConversionError{Property: "Port"}, true},
		{"transport", &errors.FetchError{Kind: errors.ErrTransport, Backend: "vault"}, false},
		{"auth", &errors.FetchError{Kind: errors.ErrAuthenticationFailed, Backend: "vault"}, false},
		{"not found", &errors.NotFoundError{Name: "x"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errors.IsFatal(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.False(t, errors.IsRetryable(nil))
	assert.False(t, errors.IsRetryable(fmt.Errorf("read: %w", errors.ErrPathNotFound)))
	assert.False(t, errors.IsRetryable(fmt.Errorf("setup: %w", errors.ErrInvalidSetup)))
	assert.True(t, errors.IsRetryable(fmt.Errorf("login: %w", errors.ErrAuthenticationFailed)))
	assert.True(t, errors.IsRetryable(fmt.Errorf("dial tcp: connection refused")))
}

func TestProviderErrorSuggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		backend            string
		err                error
		expectedSuggestion string
	}{
		{"vault auth", "vault", fmt.Errorf("login: %w", errors.ErrAuthenticationFailed), "VAULT_ROLE_ID"},
		{"vault path", "vault", fmt.Errorf("read: %w", errors.ErrPathNotFound), "vault kv get"},
		{"aws access", "aws-secretsmanager", fmt.Errorf("AccessDeniedException: nope"), "IAM permissions"},
		{"gcp auth", "gcp-secretmanager", errors.ErrAuthenticationFailed, "gcloud auth"},
		{"generic timeout", "akeyless", fmt.Errorf("context deadline exceeded"), "timed out"},
		{"generic network", "azure-keyvault", fmt.Errorf("dial tcp: connection refused"), "Unable to connect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := errors.ProviderError(tt.backend, "fetch", tt.err)

			assert.Contains(t, err.Error(), tt.backend+" backend error during fetch")
			assert.Contains(t, err.Error(), tt.expectedSuggestion)
			assert.True(t, stderrors.Is(err, tt.err))
		})
	}
}

func TestSimplifyError(t *testing.T) {
	t.Parallel()

	t.Run("json syntax", func(t *testing.T) {
		t.Parallel()
		err := errors.SimplifyError(fmt.Errorf("parse appsettings.json: %w", fmt.Errorf("invalid character '}' looking for beginning of value")))
		var cfgErr errors.ConfigError
		require.True(t, stderrors.As(err, &cfgErr))
		assert.Equal(t, "Invalid JSON format", cfgErr.Message)
	})

	t.Run("user error untouched", func(t *testing.T) {
		t.Parallel()
		in := errors.UserError{Message: "already friendly"}
		assert.Equal(t, error(in), errors.SimplifyError(in))
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, errors.SimplifyError(nil))
	})
}
