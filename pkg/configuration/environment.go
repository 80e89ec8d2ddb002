package configuration

import (
	"context"
	"strings"
)

// EnvironmentVariables exposes the process environment. With a Prefix only
// matching variables are read and the prefix is stripped.
type EnvironmentVariables struct {
	Prefix string
	Env    Environment
}

func (e EnvironmentVariables) Name() string {
	if e.Prefix != "" {
		return "env:" + e.Prefix
	}
	return "env"
}

func (e EnvironmentVariables) Build(string) (Provider, error) {
	env := e.Env
	if env == nil {
		env = OSEnvironment{}
	}

	return NewMapProvider(func(ctx context.Context, data *Map) error {
		for _, kv := range env.Environ() {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || name == "" {
				continue
			}
			if e.Prefix != "" {
				if len(name) < len(e.Prefix) || !strings.EqualFold(name[:len(e.Prefix)], e.Prefix) {
					continue
				}
				name = name[len(e.Prefix):]
				if name == "" {
					continue
				}
			}
			data.Set(envKey(name), value)
		}
		return nil
	}), nil
}
