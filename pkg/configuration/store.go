package configuration

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Entry is one resolved key with the source that supplied it.
type Entry struct {
	Key    string
	Value  string
	Source string
}

// Store is the merged view of all sources.
type Store struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Entry
	sources []string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// Merge copies data over the store, recording source for each key.
func (s *Store) Merge(source string, data *Map) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sources = append(s.sources, source)
	for _, key := range data.Keys() {
		value, _ := data.Get(key)
		folded := strings.ToLower(key)
		if _, ok := s.entries[folded]; !ok {
			s.order = append(s.order, folded)
		}
		s.entries[folded] = Entry{Key: key, Value: value, Source: source}
	}
}

// Get looks up key case-insensitively.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[foldKey(key)]
	return e.Value, ok
}

// Value returns the value of key, or "" when absent.
func (s *Store) Value(key string) string {
	v, _ := s.Get(key)
	return v
}

// Source returns the name of the source that supplied key.
func (s *Store) Source(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[foldKey(key)].Source
}

// Keys returns all keys in first-seen order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.entries[k].Key)
	}
	return out
}

// Entries returns all entries in first-seen order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.entries[k])
	}
	return out
}

// SourceNames returns the merged source names in order.
func (s *Store) SourceNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.sources...)
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Section returns the keys under prefix as a nested map suitable for
// decoding into a struct. Children whose names are 0..n-1 become slices.
// An empty prefix returns the whole store.
func (s *Store) Section(prefix string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folded := foldKey(prefix)
	if folded != "" {
		folded += ":"
	}
	// Folding can change byte lengths but never the ':' count, so the
	// original key is cut by segment.
	depth := strings.Count(folded, ":")

	root := make(map[string]any)
	for _, k := range s.order {
		if !strings.HasPrefix(k, folded) {
			continue
		}
		entry := s.entries[k]
		parts := strings.Split(NormalizeKey(entry.Key), ":")[depth:]
		if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
			continue
		}
		insertPath(root, parts, entry.Value)
	}
	if out, ok := arrayify(root).(map[string]any); ok {
		return out
	}
	return root
}

func insertPath(node map[string]any, parts []string, value string) {
	for i, part := range parts {
		if i == len(parts)-1 {
			if _, isNode := node[part].(map[string]any); !isNode {
				node[part] = value
			}
			return
		}
		child, ok := node[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[part] = child
		}
		node = child
	}
}

func arrayify(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = arrayify(child)
	}
	if len(m) == 0 {
		return m
	}

	indexes := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return m
		}
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for pos, i := range indexes {
		if pos != i {
			return m
		}
	}

	out := make([]any, len(indexes))
	for _, i := range indexes {
		out[i] = m[strconv.Itoa(i)]
	}
	return out
}
