// Package secretstoretest provides a scripted secretstore.Backend for tests.
package secretstoretest

import (
	"context"
	"sync"

	"github.com/systmms/vaultconf/pkg/secretstore"
)

// Step scripts the outcome of one attempt. A non-nil AuthErr fails
// Authenticate; otherwise Read returns Bundle and ReadErr. Block makes Read
// wait for ctx to be done.
type Step struct {
	AuthErr error
	Bundle  secretstore.Bundle
	ReadErr error
	Block   bool
}

// Backend replays Steps in order. Once the script is exhausted the last
// step repeats.
type Backend struct {
	BackendName string
	Steps       []Step

	mu        sync.Mutex
	auths     int
	reads     int
	locations []secretstore.Location
}

// NewBackend returns a backend named "fake" that replays steps.
func NewBackend(steps ...Step) *Backend {
	return &Backend{BackendName: "fake", Steps: steps}
}

// Succeed returns a backend whose every attempt yields bundle.
func Succeed(bundle secretstore.Bundle) *Backend {
	return NewBackend(Step{Bundle: bundle})
}

func (b *Backend) Name() string {
	return b.BackendName
}

func (b *Backend) Authenticate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	step := b.step(b.auths)
	b.auths++
	if step.AuthErr != nil {
		// A failed login consumes the attempt.
		b.reads++
	}
	return step.AuthErr
}

func (b *Backend) Read(ctx context.Context, loc secretstore.Location) (secretstore.Bundle, error) {
	b.mu.Lock()
	step := b.step(b.reads)
	b.reads++
	b.locations = append(b.locations, loc)
	b.mu.Unlock()

	if step.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return step.Bundle, step.ReadErr
}

// Attempts returns the number of Authenticate calls.
func (b *Backend) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.auths
}

// Reads returns the locations passed to Read.
func (b *Backend) Reads() []secretstore.Location {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]secretstore.Location(nil), b.locations...)
}

func (b *Backend) step(i int) Step {
	if len(b.Steps) == 0 {
		return Step{}
	}
	if i >= len(b.Steps) {
		return b.Steps[len(b.Steps)-1]
	}
	return b.Steps[i]
}
