package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
)

// Config holds the runtime configuration of the vaultconf CLI
type Config struct {
	BasePath       string `mapstructure:"base_path" validate:"required"`
	Environment    string `mapstructure:"environment"`
	DotEnv         string `mapstructure:"dotenv"`
	Debug          bool   `mapstructure:"debug"`
	NoColor        bool   `mapstructure:"no_color"`
	LogFormat      string `mapstructure:"log_format" validate:"oneof=text json"`
	NonInteractive bool   `mapstructure:"non_interactive"`

	Logger *logging.Logger `mapstructure:"-"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"base-path":       "base_path",
	"no-color":        "no_color",
	"log-format":      "log_format",
	"non-interactive": "non_interactive",
}

// bindFlags binds CLI flags to viper keys, only for flags set explicitly.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_path", ".")
	v.SetDefault("environment", "")
	v.SetDefault("dotenv", ".env")
	v.SetDefault("debug", false)
	v.SetDefault("no_color", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("non_interactive", false)
}

// Load resolves the CLI settings.
// Order of precedence (highest to lowest): flags > VAULTCONF_* env > defaults
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VAULTCONF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, dserrors.ConfigError{
				Field:   verrs[0].Field(),
				Value:   verrs[0].Value(),
				Message: fmt.Sprintf("failed '%s' validation", verrs[0].Tag()),
				Err:     err,
			}
		}
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// NewLogger builds the logger the settings ask for, writing to w.
// Non-interactive runs never emit color codes.
func (c *Config) NewLogger(w io.Writer) *logging.Logger {
	if c.LogFormat == "json" {
		return logging.NewJSON(w, c.Debug)
	}
	return logging.NewWithWriter(w, c.Debug, c.NoColor || c.NonInteractive)
}
