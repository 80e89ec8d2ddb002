package secretstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Bundle is the raw key/value map returned by a single read.
type Bundle map[string]any

// Keys returns the bundle keys in no particular order.
func (b Bundle) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	return keys
}

// Location addresses a bundle inside a store.
type Location struct {
	Mount string
	Path  string
}

// String renders the location as mount/path.
func (l Location) String() string {
	return strings.Trim(l.Mount, "/") + "/" + strings.Trim(l.Path, "/")
}

// Joined renders the location with a custom separator, for stores that
// name secrets flatly (mount_path, mount-path).
func (l Location) Joined(sep string) string {
	return strings.Trim(l.Mount, "/") + sep + strings.Trim(l.Path, "/")
}

// Backend is one secret management system.
type Backend interface {
	// Name returns the registry identifier, e.g. "vault".
	Name() string

	// Authenticate establishes a session. Backends whose identity comes
	// from the platform credential chain may build their client here.
	Authenticate(ctx context.Context) error

	// Read returns the latest version of the bundle at loc. A missing or
	// empty secret must be reported as an error, never as an empty Bundle.
	Read(ctx context.Context, loc Location) (Bundle, error)
}

// Closer is implemented by backends that hold connections.
type Closer interface {
	Close() error
}

// StringValue converts a bundle value to its configuration string form.
// The second result is false for nil values, which callers skip.
func StringValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val), true
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), true
	case float32, float64:
		return fmt.Sprintf("%g", val), true
	case json.Number:
		return val.String(), true
	case bool:
		return fmt.Sprintf("%t", val), true
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val), true
		}
		return string(encoded), true
	}
}

// DecodeJSON parses a secret payload holding a JSON object. Numbers are
// kept as json.Number so large integers survive unchanged.
func DecodeJSON(raw []byte) (Bundle, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()

	var bundle Bundle
	if err := dec.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("secret payload is not a JSON object: %w", err)
	}
	return bundle, nil
}
