package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the resolution pipeline wraps exactly
// one of these so callers can branch with errors.Is.
var (
	ErrInvalidSetup         = errors.New("invalid secret store setup")
	ErrAuthenticationFailed = errors.New("secret store authentication failed")
	ErrPathNotFound         = errors.New("no secrets found at path")
	ErrTransport            = errors.New("secret store transport error")
	ErrMalformedSecret      = errors.New("malformed secret")
	ErrNotFound             = errors.New("setting not found")
	ErrConversion           = errors.New("setting conversion failed")
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
	Err        error
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

func (e ConfigError) Unwrap() error {
	return e.Err
}

// FetchError is returned by the secret client when a bundle could not be
// obtained. Kind is one of ErrInvalidSetup, ErrAuthenticationFailed,
// ErrPathNotFound, ErrMalformedSecret or ErrTransport.
type FetchError struct {
	Kind     error
	Backend  string
	Location string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Backend, e.Kind)
	if e.Location != "" {
		msg += fmt.Sprintf(" (%s)", e.Location)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFoundError reports a named setting that resolved to nothing usable.
// Blank values are reported the same way as absent ones.
type NotFoundError struct {
	Name      string
	Consulted []string
}

func (e *NotFoundError) Error() string {
	if len(e.Consulted) == 0 {
		return fmt.Sprintf("setting %q not found or empty", e.Name)
	}
	return fmt.Sprintf("setting %q not found or empty (consulted: %s)", e.Name, strings.Join(e.Consulted, ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConversionError reports a remote override that could not be converted to
// the type of the property it targets.
type ConversionError struct {
	Property   string
	RawValue   string
	TargetType string
	Err        error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("cannot convert %q to %s for property %s", e.RawValue, e.TargetType, e.Property)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must stop startup. Setup and conversion
// defects are fatal; fetch failures are absorbed by the secret provider.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidSetup) || errors.Is(err, ErrConversion)
}

// ProviderError enhances backend-specific errors with context
func ProviderError(backend string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s backend error during %s", backend, operation),
		Suggestion: getProviderSuggestion(backend, err),
		Err:        err,
	}
}

// getProviderSuggestion returns helpful suggestions based on backend and error
func getProviderSuggestion(backend string, err error) string {
	errStr := err.Error()

	switch backend {
	case "vault":
		if errors.Is(err, ErrAuthenticationFailed) {
			return "Check VAULT_ROLE_ID and VAULT_SECRET_ID, and that the AppRole is enabled at auth/approle"
		}
		if errors.Is(err, ErrPathNotFound) {
			return "Verify the KV v2 mount and path with: 'vault kv get -mount=<mount> <path>'"
		}
		if strings.Contains(errStr, "permission denied") {
			return "The AppRole policy must grant read on <mount>/data/<path>"
		}

	case "aws-secretsmanager", "aws-ssm":
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for secretsmanager:GetSecretValue or ssm:GetParametersByPath"
		}
		if strings.Contains(errStr, "ResourceNotFoundException") {
			return "Verify the secret name and region"
		}

	case "gcp-secretmanager":
		if errors.Is(err, ErrAuthenticationFailed) {
			return "Run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS"
		}

	case "azure-keyvault":
		if errors.Is(err, ErrAuthenticationFailed) {
			return "Check the client credentials and the Key Vault access policy for 'get' on secrets"
		}

	case "akeyless":
		if errors.Is(err, ErrAuthenticationFailed) {
			return "Check the access id and access key configured for the gateway"
		}
	}

	// Generic suggestions
	if errors.Is(err, ErrMalformedSecret) {
		return "Store the secret as a JSON object of key/value pairs"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The operation timed out. Check your network connection or raise AttemptTimeout"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check the secret store URL and your network"
	}

	return ""
}

// IsRetryable checks if an error is worth another attempt. Setup defects, an
// empty path and a malformed secret are deterministic; everything else may
// be transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidSetup) || errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrMalformedSecret) {
		return false
	}
	return true
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	if errors.As(err, &userErr) {
		return err
	}
	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()
	fullStr := err.Error()

	if strings.Contains(errStr, "yaml:") || strings.Contains(fullStr, "parse YAML") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "invalid character") || strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(fullStr, "parse JSON") {
		return ConfigError{
			Message:    "Invalid JSON format",
			Suggestion: "Validate your settings file with a JSON linter",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	return err
}
