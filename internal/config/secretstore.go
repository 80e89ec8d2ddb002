package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/hengadev/errsx"
	"github.com/zalando/go-keyring"

	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/pkg/configuration"
)

// Settings keys and bootstrap environment variables.
const (
	SectionKey = "Vault"
	ModeKey    = "Vault:Mode"

	EnvAddr        = "VAULT_ADDR"
	EnvRoleID      = "VAULT_ROLE_ID"
	EnvSecretID    = "VAULT_SECRET_ID"
	EnvPath        = "VAULT_PATH"
	EnvMountPoint  = "VAULT_MOUNT_POINT"
	EnvMode        = "VAULT_MODE"
	EnvNamespace   = "VAULT_NAMESPACE"
	EnvBackend     = "VAULT_BACKEND"
	EnvRegion      = "VAULT_REGION"
	EnvEnvironment = "APP_ENVIRONMENT"
)

// Defaults.
const (
	DefaultBackend        = "vault"
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 2 * time.Second
	DefaultAttemptTimeout = 30 * time.Second
)

// Value origins recorded in SecretStoreConfig.Sources.
const (
	OriginDefault = "default"
	OriginFile    = "file"
	OriginEnv     = "env"
	OriginKeyring = "keyring"
)

// Mode selects where secrets come from.
type Mode int

const (
	// ModeTraditional uses only local files and environment variables.
	ModeTraditional Mode = iota
	// ModeRemote adds the secret store as the last configuration layer.
	ModeRemote
)

func (m Mode) String() string {
	if m == ModeRemote {
		return "Remote"
	}
	return "Traditional"
}

// ParseMode maps a raw mode setting. Only "Vault" (any case) selects the
// secret store; everything else, including "", is traditional.
func ParseMode(raw string) Mode {
	if strings.EqualFold(strings.TrimSpace(raw), "Vault") {
		return ModeRemote
	}
	return ModeTraditional
}

// SecretStoreConfig describes how to reach the secret store. It is built
// once by LoadSecretStoreConfig and read-only afterwards.
type SecretStoreConfig struct {
	Mode            Mode
	Backend         string `validate:"oneof=vault aws-secretsmanager aws-ssm gcp-secretmanager azure-keyvault akeyless"`
	URL             string `validate:"omitempty,url"`
	RoleID          string
	SecretID        string
	Path            string
	MountPoint      string
	Namespace       string
	Region          string
	ExpectedSecrets []string
	MaxAttempts     int           `validate:"min=1,max=10"`
	InitialBackoff  time.Duration `validate:"gte=0"`
	AttemptTimeout  time.Duration `validate:"gte=0"`
	AllowEmpty      bool
	KeyringService  string

	// Sources records where each setting came from.
	Sources map[string]string
}

// fileSettings mirrors the "Vault" section of the settings files.
type fileSettings struct {
	Mode            string        `mapstructure:"Mode"`
	Backend         string        `mapstructure:"Backend"`
	Url             string        `mapstructure:"Url"`
	Address         string        `mapstructure:"Address"`
	RoleId          string        `mapstructure:"RoleId"`
	SecretId        string        `mapstructure:"SecretId"`
	Path            string        `mapstructure:"Path"`
	MountPoint      string        `mapstructure:"MountPoint"`
	Namespace       string        `mapstructure:"Namespace"`
	Region          string        `mapstructure:"Region"`
	ExpectedSecrets []string      `mapstructure:"ExpectedSecrets"`
	MaxAttempts     int           `mapstructure:"MaxAttempts"`
	InitialBackoff  time.Duration `mapstructure:"InitialBackoff"`
	AttemptTimeout  time.Duration `mapstructure:"AttemptTimeout"`
	AllowEmpty      bool          `mapstructure:"AllowEmpty"`
	KeyringService  string        `mapstructure:"KeyringService"`
}

// LoadSecretStoreConfig reads the "Vault" section of store and applies the
// VAULT_* variables over it. A variable wins when it is non-empty. The
// process environment is consulted before store, so a real variable beats
// one from a .env file.
func LoadSecretStoreConfig(store *configuration.Store, env configuration.Environment) (*SecretStoreConfig, error) {
	var fs fileSettings
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &fs,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(store.Section(SectionKey)); err != nil {
		return nil, dserrors.ConfigError{
			Field:      SectionKey,
			Message:    err.Error(),
			Suggestion: "Check the types of the Vault settings (durations like \"2s\", integers for MaxAttempts)",
			Err:        fmt.Errorf("%w: %w", dserrors.ErrInvalidSetup, err),
		}
	}
	if fs.Url == "" {
		fs.Url = fs.Address
	}

	cfg := &SecretStoreConfig{
		Backend:         DefaultBackend,
		MaxAttempts:     DefaultMaxAttempts,
		InitialBackoff:  DefaultInitialBackoff,
		AttemptTimeout:  DefaultAttemptTimeout,
		ExpectedSecrets: fs.ExpectedSecrets,
		AllowEmpty:      fs.AllowEmpty,
		KeyringService:  fs.KeyringService,
		Sources:         make(map[string]string),
	}

	lookup := func(name string) string {
		if env != nil {
			if v, ok := env.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
		if store != nil {
			if v, ok := store.Get(name); ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
		return ""
	}

	apply := func(field string, dst *string, fileValue, envName string) {
		if _, ok := cfg.Sources[field]; !ok && *dst != "" {
			cfg.Sources[field] = OriginDefault
		}
		if strings.TrimSpace(fileValue) != "" {
			*dst = fileValue
			cfg.Sources[field] = OriginFile
		}
		if envName == "" {
			return
		}
		if v := lookup(envName); v != "" {
			*dst = v
			cfg.Sources[field] = OriginEnv
		}
	}

	var mode string
	apply("Mode", &mode, fs.Mode, EnvMode)
	cfg.Mode = ParseMode(mode)

	apply("Backend", &cfg.Backend, fs.Backend, EnvBackend)
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	apply("Url", &cfg.URL, fs.Url, EnvAddr)
	apply("RoleId", &cfg.RoleID, fs.RoleId, EnvRoleID)
	apply("SecretId", &cfg.SecretID, fs.SecretId, EnvSecretID)
	apply("Path", &cfg.Path, fs.Path, EnvPath)
	apply("MountPoint", &cfg.MountPoint, fs.MountPoint, EnvMountPoint)
	apply("Namespace", &cfg.Namespace, fs.Namespace, EnvNamespace)
	apply("Region", &cfg.Region, fs.Region, EnvRegion)

	if fs.MaxAttempts != 0 {
		cfg.MaxAttempts = fs.MaxAttempts
		cfg.Sources["MaxAttempts"] = OriginFile
	}
	if fs.InitialBackoff != 0 {
		cfg.InitialBackoff = fs.InitialBackoff
		cfg.Sources["InitialBackoff"] = OriginFile
	}
	if fs.AttemptTimeout != 0 {
		cfg.AttemptTimeout = fs.AttemptTimeout
		cfg.Sources["AttemptTimeout"] = OriginFile
	}

	if cfg.SecretID == "" && cfg.KeyringService != "" {
		if secret, ok := keyringSecret(cfg.KeyringService, cfg.RoleID); ok {
			cfg.SecretID = secret
			cfg.Sources["SecretId"] = OriginKeyring
		}
	}

	return cfg, nil
}

// keyringSecret reads the secret identifier from the OS keyring. The
// account is the role identifier, or "secret-id" when none is configured.
func keyringSecret(service, roleID string) (string, bool) {
	account := roleID
	if account == "" {
		account = "secret-id"
	}
	secret, err := keyring.Get(service, account)
	if err != nil {
		return "", false
	}
	return secret, secret != ""
}

var validate = validator.New()

// Validate checks the remote-mode invariant: every setting the backend needs
// must be non-empty. Traditional mode is always valid. The returned error
// wraps errors.ErrInvalidSetup.
func (c *SecretStoreConfig) Validate() error {
	if c.Mode != ModeRemote {
		return nil
	}

	var errs errsx.Map
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs.Set(fe.Field(), fmt.Errorf("failed '%s' validation (value: %v)", fe.Tag(), fe.Value()))
			}
		} else {
			errs.Set("Vault", err)
		}
	}

	for _, field := range c.requiredFields() {
		if strings.TrimSpace(field.value) == "" {
			errs.Set(field.name, fmt.Errorf("is required in remote mode (set %s:%s or %s)", SectionKey, field.name, field.env))
		}
	}

	if errs.IsEmpty() {
		return nil
	}

	var missing []string
	for name := range errs {
		missing = append(missing, name)
	}
	sort.Strings(missing)

	return dserrors.ConfigError{
		Field:      SectionKey + ":" + strings.Join(missing, ","),
		Message:    "invalid remote secret store setup: " + errs.Error(),
		Suggestion: "Provide the missing settings or set Vault:Mode to something other than \"Vault\"",
		Err:        fmt.Errorf("%w: %w", dserrors.ErrInvalidSetup, errs.AsError()),
	}
}

type requiredField struct {
	name  string
	env   string
	value string
}

func (c *SecretStoreConfig) requiredFields() []requiredField {
	location := []requiredField{
		{"Path", EnvPath, c.Path},
		{"MountPoint", EnvMountPoint, c.MountPoint},
	}

	switch c.Backend {
	case "vault", "akeyless":
		return append([]requiredField{
			{"Url", EnvAddr, c.URL},
			{"RoleId", EnvRoleID, c.RoleID},
			{"SecretId", EnvSecretID, c.SecretID},
		}, location...)
	case "azure-keyvault":
		return append([]requiredField{{"Url", EnvAddr, c.URL}}, location...)
	case "gcp-secretmanager":
		return append([]requiredField{{"Namespace", EnvNamespace, c.Namespace}}, location...)
	default:
		return location
	}
}

// Redacted returns the settings for display with credentials masked.
func (c *SecretStoreConfig) Redacted() map[string]string {
	secretID := ""
	if c.SecretID != "" {
		secretID = "[REDACTED]"
	}
	return map[string]string{
		"Mode":            c.Mode.String(),
		"Backend":         c.Backend,
		"Url":             c.URL,
		"RoleId":          c.RoleID,
		"SecretId":        secretID,
		"Path":            c.Path,
		"MountPoint":      c.MountPoint,
		"Namespace":       c.Namespace,
		"Region":          c.Region,
		"ExpectedSecrets": strings.Join(c.ExpectedSecrets, ","),
		"MaxAttempts":     fmt.Sprintf("%d", c.MaxAttempts),
		"InitialBackoff":  c.InitialBackoff.String(),
		"AttemptTimeout":  c.AttemptTimeout.String(),
	}
}
