package secretstoretest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// ContractCase defines a backend under test with the bundle it is expected
// to return.
type ContractCase struct {
	// Backend is the implementation to test. It must not have been
	// authenticated yet.
	Backend secretstore.Backend

	// Location holds Want.
	Location secretstore.Location
	Want     secretstore.Bundle

	// Missing, when set, is a location the backend reports as empty.
	Missing *secretstore.Location

	// SkipConcurrency skips the concurrent Read test.
	SkipConcurrency bool
}

// RunContractTests runs the behaviour every secretstore.Backend shares:
//   - Name() is stable and lowercase
//   - Authenticate then Read returns the expected bundle
//   - a missing location reports ErrPathNotFound, never an empty bundle
//   - a cancelled context fails the read
//   - concurrent reads agree
func RunContractTests(t *testing.T, tc ContractCase) {
	t.Helper()

	require.NotNil(t, tc.Backend, "Backend cannot be nil")
	require.NotEmpty(t, tc.Want, "Want must contain at least one key")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Name", func(t *testing.T) {
		name := tc.Backend.Name()
		assert.NotEmpty(t, name)
		assert.Equal(t, name, tc.Backend.Name(), "Name() must return consistent value")
		assert.Regexp(t, `^[a-z][a-z0-9._-]*$`, name)
	})

	// Later subtests depend on a token.
	require.NoError(t, tc.Backend.Authenticate(ctx), "Authenticate() should succeed")

	t.Run("Read", func(t *testing.T) {
		bundle, err := tc.Backend.Read(ctx, tc.Location)
		require.NoError(t, err)
		assert.Equal(t, tc.Want, bundle)
	})

	if tc.Missing != nil {
		t.Run("Read_NotFound", func(t *testing.T) {
			bundle, err := tc.Backend.Read(ctx, *tc.Missing)
			require.Error(t, err)
			assert.ErrorIs(t, err, dserrors.ErrPathNotFound)
			assert.Nil(t, bundle)
		})
	}

	t.Run("Context_Cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		// A backend may finish before looking at ctx; that is acceptable.
		if _, err := tc.Backend.Read(cancelled, tc.Location); err != nil {
			assert.Error(t, err)
		}
	})

	if tc.SkipConcurrency || testing.Short() {
		return
	}

	t.Run("Concurrent_Read", func(t *testing.T) {
		const concurrency = 20
		var wg sync.WaitGroup
		errs := make(chan error, concurrency)

		for i := 0; i < concurrency; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				bundle, err := tc.Backend.Read(ctx, tc.Location)
				if err != nil {
					errs <- fmt.Errorf("goroutine %d: Read failed: %w", id, err)
					return
				}
				if len(bundle) != len(tc.Want) {
					errs <- fmt.Errorf("goroutine %d: got %d keys, want %d", id, len(bundle), len(tc.Want))
				}
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Error(err)
		}
	})
}
