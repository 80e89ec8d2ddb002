package configuration

import (
	"context"
	"sort"
)

// Memory is a fixed set of values, used for defaults and tests.
type Memory struct {
	Label  string
	Values map[string]string
}

func (m Memory) Name() string {
	if m.Label != "" {
		return "memory:" + m.Label
	}
	return "memory"
}

func (m Memory) Build(string) (Provider, error) {
	return NewMapProvider(func(ctx context.Context, data *Map) error {
		keys := make([]string, 0, len(m.Values))
		for k := range m.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			data.Set(k, m.Values[k])
		}
		return nil
	}), nil
}
