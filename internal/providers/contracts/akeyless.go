// Package contracts defines the client seams backends are tested through.
package contracts

import (
	"context"
	"fmt"
)

// AkeylessClient abstracts Akeyless SDK operations for testing
type AkeylessClient interface {
	// Authenticate exchanges an access id and key for a session token
	Authenticate(ctx context.Context, accessID, accessKey string) (token string, err error)

	// GetSecretValue returns the raw value stored at path
	GetSecretValue(ctx context.Context, token, path string) (string, error)
}

// AkeylessStatusError carries the HTTP status of a failed gateway call
type AkeylessStatusError struct {
	StatusCode int
	Err        error
}

func (e *AkeylessStatusError) Error() string {
	return fmt.Sprintf("akeyless gateway returned %d: %v", e.StatusCode, e.Err)
}

func (e *AkeylessStatusError) Unwrap() error {
	return e.Err
}
