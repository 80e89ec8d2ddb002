package binder

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Mapping routes one remote key to one property of T.
type Mapping[T any] struct {
	RemoteKey  string
	Property   string
	TargetType string

	set func(*T, string) error
}

// Custom builds a mapping with a caller-supplied setter.
func Custom[T any](remoteKey, property, targetType string, set func(*T, string) error) Mapping[T] {
	return Mapping[T]{RemoteKey: remoteKey, Property: property, TargetType: targetType, set: set}
}

// String copies the value unchanged.
func String[T any](remoteKey, property string, field func(*T) *string) Mapping[T] {
	return Custom(remoteKey, property, "string", func(t *T, raw string) error {
		*field(t) = raw
		return nil
	})
}

// Int parses a base-10 integer; leading zeros do not switch to octal.
func Int[T any](remoteKey, property string, field func(*T) *int) Mapping[T] {
	return Custom(remoteKey, property, "int", func(t *T, raw string) error {
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 0)
		if err != nil {
			return err
		}
		*field(t) = int(v)
		return nil
	})
}

// Bool accepts the strconv.ParseBool forms (true, 1, t, ...).
func Bool[T any](remoteKey, property string, field func(*T) *bool) Mapping[T] {
	return Custom(remoteKey, property, "bool", func(t *T, raw string) error {
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		*field(t) = v
		return nil
	})
}

// Float parses a float64.
func Float[T any](remoteKey, property string, field func(*T) *float64) Mapping[T] {
	return Custom(remoteKey, property, "float64", func(t *T, raw string) error {
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return err
		}
		*field(t) = v
		return nil
	})
}

// Duration parses a Go duration such as "30s"; a bare number is nanoseconds.
func Duration[T any](remoteKey, property string, field func(*T) *time.Duration) Mapping[T] {
	return Custom(remoteKey, property, "duration", func(t *T, raw string) error {
		v, err := cast.ToDurationE(raw)
		if err != nil {
			return err
		}
		*field(t) = v
		return nil
	})
}

// Strings splits a comma-separated value.
func Strings[T any](remoteKey, property string, field func(*T) *[]string) Mapping[T] {
	return Custom(remoteKey, property, "[]string", func(t *T, raw string) error {
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*field(t) = out
		return nil
	})
}
