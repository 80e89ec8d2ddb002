package configuration

import (
	"strings"
)

// NormalizeKey turns path separators into the ':' hierarchy separator.
// It is idempotent.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(key, "/", ":")
}

func foldKey(key string) string {
	return strings.ToLower(NormalizeKey(key))
}

// Map is an insertion-ordered, case-insensitive string map. Re-setting an
// existing key keeps its position but adopts the new casing.
type Map struct {
	keys   []string
	values map[string]string
	names  map[string]string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{
		values: make(map[string]string),
		names:  make(map[string]string),
	}
}

// Set stores value under the normalized key.
func (m *Map) Set(key, value string) {
	key = NormalizeKey(key)
	folded := strings.ToLower(key)
	if _, ok := m.values[folded]; !ok {
		m.keys = append(m.keys, folded)
	}
	m.values[folded] = value
	m.names[folded] = key
}

// Get looks key up case-insensitively.
func (m *Map) Get(key string) (string, bool) {
	v, ok := m.values[foldKey(key)]
	return v, ok
}

// Keys returns the keys in insertion order, with the casing of the last
// write.
func (m *Map) Keys() []string {
	out := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.names[k])
	}
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.keys)
}

// Clear removes every key.
func (m *Map) Clear() {
	m.keys = nil
	m.values = make(map[string]string)
	m.names = make(map[string]string)
}
