package providers

import (
	"errors"
	"fmt"
	"strings"

	dserrors "github.com/systmms/vaultconf/internal/errors"
)

// backendError tags err with the kind the secret client classifies on.
func backendError(backend, op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s %s: %w", backend, op, kind)
	}
	return fmt.Errorf("%s %s: %w: %w", backend, op, kind, err)
}

// alreadyClassified reports whether err carries one of the fetch kinds.
func alreadyClassified(err error) bool {
	return errors.Is(err, dserrors.ErrAuthenticationFailed) ||
		errors.Is(err, dserrors.ErrPathNotFound) ||
		errors.Is(err, dserrors.ErrTransport) ||
		errors.Is(err, dserrors.ErrMalformedSecret) ||
		errors.Is(err, dserrors.ErrInvalidSetup)
}

// isAuthMessage matches credential problems SDKs only report as text.
func isAuthMessage(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "UnauthorizedOperation") ||
		strings.Contains(errStr, "InvalidUserID") ||
		strings.Contains(errStr, "Forbidden") ||
		strings.Contains(errStr, "failed to retrieve credentials") ||
		strings.Contains(errStr, "no valid credential")
}
