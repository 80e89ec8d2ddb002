package configuration

import (
	"os"
	"sort"
)

// Environment is the process environment as seen by configuration code.
type Environment interface {
	LookupEnv(key string) (string, bool)
	Environ() []string
}

// OSEnvironment reads the real process environment.
type OSEnvironment struct{}

func (OSEnvironment) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (OSEnvironment) Environ() []string {
	return os.Environ()
}

// MapEnvironment is a fixed environment, mostly for tests.
type MapEnvironment map[string]string

func (m MapEnvironment) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapEnvironment) Environ() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(m))
	for _, k := range keys {
		out = append(out, k+"="+m[k])
	}
	return out
}

// Getenv returns the value of key, or "" when unset.
func Getenv(env Environment, key string) string {
	v, _ := env.LookupEnv(key)
	return v
}
