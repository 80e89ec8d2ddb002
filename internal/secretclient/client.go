// Package secretclient fetches one secret bundle from the configured store
// with bounded retries and error classification.
package secretclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/metrics"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// RetryConfig bounds the fetch retry loop.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (default: 3).
	MaxAttempts int

	// InitialWait is the wait after the first failure; it doubles after
	// each further failure (default: 2s).
	InitialWait time.Duration

	// AttemptTimeout caps a single attempt. Zero disables it.
	AttemptTimeout time.Duration
}

// Client fetches the secret bundle at one location.
type Client struct {
	backend    secretstore.Backend
	location   secretstore.Location
	retry      RetryConfig
	allowEmpty bool
	logger     *logging.Logger
	metrics    *metrics.SecretMetrics

	// sleep waits d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records attempts and durations on m.
func WithMetrics(m *metrics.SecretMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client reading cfg.MountPoint/cfg.Path from backend.
func New(backend secretstore.Backend, cfg *config.SecretStoreConfig, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		location: secretstore.Location{
			Mount: cfg.MountPoint,
			Path:  cfg.Path,
		},
		retry: RetryConfig{
			MaxAttempts:    cfg.MaxAttempts,
			InitialWait:    cfg.InitialBackoff,
			AttemptTimeout: cfg.AttemptTimeout,
		},
		allowEmpty: cfg.AllowEmpty,
		logger:     logging.Discard(),
		sleep:      sleepContext,
	}
	if c.retry.MaxAttempts <= 0 {
		c.retry.MaxAttempts = config.DefaultMaxAttempts
	}
	if c.retry.InitialWait < 0 {
		c.retry.InitialWait = 0
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the location the client reads.
func (c *Client) Location() secretstore.Location {
	return c.location
}

// FetchSecrets authenticates and reads the bundle. A failure is returned
// as *errors.FetchError once the retry budget is spent; setup defects,
// missing paths and malformed secrets fail on the first attempt.
func (c *Client) FetchSecrets(ctx context.Context) (secretstore.Bundle, error) {
	backend := c.backend.Name()

	if strings.TrimSpace(c.location.Path) == "" || strings.TrimSpace(c.location.Mount) == "" {
		c.metrics.RecordAttempt(backend, metrics.OutcomeFailure)
		return nil, &dserrors.FetchError{
			Kind:    dserrors.ErrInvalidSetup,
			Backend: backend,
			Err:     errors.New("secret path and mount point are required"),
		}
	}

	start := time.Now()
	defer func() {
		c.metrics.ObserveFetch(backend, time.Since(start))
	}()

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, c.fail(backend, attempt-1, lastErrOr(lastErr, err))
		}

		bundle, err := c.attempt(ctx)
		if err == nil {
			c.metrics.RecordAttempt(backend, metrics.OutcomeSuccess)
			c.logger.Debug("secret bundle fetched",
				"backend", backend,
				"location", c.location.String(),
				"attempt", attempt,
				"keys", len(bundle))
			return bundle, nil
		}
		lastErr = err

		if !dserrors.IsRetryable(err) || attempt == c.retry.MaxAttempts {
			c.metrics.RecordAttempt(backend, metrics.OutcomeFailure)
			return nil, c.fail(backend, attempt, err)
		}

		c.metrics.RecordAttempt(backend, metrics.OutcomeRetry)
		wait := c.backoff(attempt)
		c.logger.Warn("secret fetch attempt failed, retrying",
			"backend", backend,
			"attempt", attempt,
			"max_attempts", c.retry.MaxAttempts,
			"wait", wait,
			"error", err)

		if serr := c.sleep(ctx, wait); serr != nil {
			return nil, c.fail(backend, attempt, fmt.Errorf("%w (last error: %w)", serr, err))
		}
	}

	return nil, c.fail(backend, c.retry.MaxAttempts, lastErr)
}

// attempt runs one authenticate-and-read cycle under the attempt timeout.
func (c *Client) attempt(ctx context.Context) (secretstore.Bundle, error) {
	if c.retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.retry.AttemptTimeout)
		defer cancel()
	}

	if err := c.backend.Authenticate(ctx); err != nil {
		return nil, err
	}

	bundle, err := c.backend.Read(ctx, c.location)
	if err != nil {
		return nil, err
	}
	if len(bundle) == 0 {
		if c.allowEmpty {
			return secretstore.Bundle{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", c.location, dserrors.ErrPathNotFound)
	}
	return bundle, nil
}

// backoff returns the wait after the given failed attempt: InitialWait,
// then doubled each time.
func (c *Client) backoff(attempt int) time.Duration {
	return c.retry.InitialWait << (attempt - 1)
}

// fail classifies err. Authentication rejections keep their kind; anything
// unclassified is a transport failure.
func (c *Client) fail(backend string, attempts int, err error) error {
	kind := dserrors.ErrTransport
	switch {
	case errors.Is(err, dserrors.ErrInvalidSetup):
		kind = dserrors.ErrInvalidSetup
	case errors.Is(err, dserrors.ErrPathNotFound):
		kind = dserrors.ErrPathNotFound
	case errors.Is(err, dserrors.ErrMalformedSecret):
		kind = dserrors.ErrMalformedSecret
	case errors.Is(err, dserrors.ErrAuthenticationFailed):
		kind = dserrors.ErrAuthenticationFailed
	}

	return &dserrors.FetchError{
		Kind:     kind,
		Backend:  backend,
		Location: c.location.String(),
		Attempts: attempts,
		Err:      err,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func lastErrOr(last, fallback error) error {
	if last != nil {
		return fmt.Errorf("%w (last error: %w)", fallback, last)
	}
	return fallback
}
