package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a destroyed credential is used.
var ErrDestroyed = errors.New("credential destroyed")

// Credential keeps a secret string in a memguard enclave.
type Credential struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	empty     bool
	destroyed bool
}

// NewCredential seals value. An empty value is allowed and yields an empty
// string from Use, since memguard refuses zero-length enclaves.
func NewCredential(value string) *Credential {
	if value == "" {
		return &Credential{empty: true}
	}
	// NewEnclave wipes its input, so hand it a private copy.
	return &Credential{enclave: memguard.NewEnclave([]byte(value))}
}

// IsEmpty reports whether the sealed value is empty.
func (c *Credential) IsEmpty() bool {
	if c == nil {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.empty || c.destroyed
}

// Use decrypts the credential, passes it to fn and wipes the plaintext
// buffer once fn returns.
func (c *Credential) Use(fn func(plain string) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.destroyed {
		return ErrDestroyed
	}
	if c.empty {
		return fn("")
	}

	locked, err := c.enclave.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(locked.String())
}

// Destroy drops the enclave. It is idempotent.
func (c *Credential) Destroy() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}
	c.enclave = nil
	c.destroyed = true
}

// String never reveals the value.
func (c *Credential) String() string {
	return "[REDACTED]"
}
