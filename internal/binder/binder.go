// Package binder builds typed option structs from a configuration section
// and applies remote-key overrides through explicit typed setters.
package binder

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/pkg/configuration"
)

// RemoteKeyMapper is implemented by *T to declare which flat remote keys
// override which properties.
type RemoteKeyMapper[T any] interface {
	RemoteKeyMappings() []Mapping[T]
}

type options struct {
	logger *logging.Logger
}

// Option configures Bind.
type Option func(*options)

// WithLogger sets the logger used for best-effort decode warnings.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Bind decodes section into a new T, then applies T's remote key mappings.
// Decode problems in the section are logged and whatever decoded is kept;
// a mapped value that cannot be converted is a *errors.ConversionError.
func Bind[T any](store *configuration.Store, section string, opts ...Option) (T, error) {
	o := options{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToBase10IntHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(store.Section(section)); err != nil {
		o.logger.Warn("partial bind of configuration section", "section", section, "error", err)
	}

	mapper, ok := any(&out).(RemoteKeyMapper[T])
	if !ok {
		return out, nil
	}

	for _, m := range mapper.RemoteKeyMappings() {
		raw, found := store.Get(m.RemoteKey)
		if !found || strings.TrimSpace(raw) == "" {
			continue
		}
		if err := m.set(&out, raw); err != nil {
			return out, &dserrors.ConversionError{
				Property:   m.Property,
				RawValue:   raw,
				TargetType: m.TargetType,
				Err:        err,
			}
		}
		o.logger.Debug("remote override applied", "property", m.Property, "key", m.RemoteKey, "source", store.Source(m.RemoteKey))
	}
	return out, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// stringToBase10IntHookFunc parses strings bound for integer fields in base
// 10. Weak decoding alone would read "010" as octal.
func stringToBase10IntHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to == durationType {
			return data, nil
		}
		raw := strings.TrimSpace(reflect.ValueOf(data).String())
		if raw == "" {
			return data, nil
		}

		switch to.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.ParseInt(raw, 10, to.Bits())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.ParseUint(raw, 10, to.Bits())
		}
		return data, nil
	}
}
