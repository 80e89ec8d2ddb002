package commands_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/systmms/vaultconf/cmd/vaultconf/commands"
	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/pkg/configuration"
	"github.com/systmms/vaultconf/pkg/secretstore"
	"github.com/systmms/vaultconf/pkg/secretstore/secretstoretest"
)

const remoteSettings = `{
  "Vault": {
    "Mode":           "Vault",
    "Url":            "https://vault.example.com:8200",
    "RoleId":         "role",
    "SecretId":       "secret",
    "Path":           "myapp",
    "MountPoint":     "secret",
    "InitialBackoff": "1ms"
  },
  "Smtp": { "Host": "localhost" }
}`

func newDeps(t *testing.T, files map[string]string, env configuration.MapEnvironment, backend secretstore.Backend) *commands.Deps {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	if env == nil {
		env = configuration.MapEnvironment{}
	}

	return &commands.Deps{
		Config: &config.Config{
			BasePath: dir,
			DotEnv:   ".env",
			Logger:   logging.Discard(),
		},
		Env:     env,
		Backend: backend,
	}
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGetPrintsRawValue(t *testing.T) {
	t.Parallel()

	deps := newDeps(t, map[string]string{
		"appsettings.json": `{"Smtp":{"Host":"localhost"}}`,
	}, configuration.MapEnvironment{"Smtp__Host": "smtp.env"}, nil)

	out, err := execute(t, commands.NewGetCommand(deps), "Smtp:Host")
	require.NoError(t, err)
	assert.Equal(t, "smtp.env\n", out)
}

func TestGetJSONReportsSource(t *testing.T) {
	t.Parallel()

	deps := newDeps(t, map[string]string{"appsettings.json": remoteSettings}, nil,
		secretstoretest.Succeed(secretstore.Bundle{"ConnectionStringsPostgreSql": "postgres://app:pw@db:5432/app"}))

	out, err := execute(t, commands.NewGetCommand(deps), "PostgreSql", "--connection-string", "--json")
	require.NoError(t, err)

	var result commands.GetResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "PostgreSql", result.Name)
	assert.Equal(t, "ConnectionStringsPostgreSql", result.Key)
	assert.Equal(t, "postgres://app:pw@db:5432/app", result.Value)
	assert.Equal(t, "secretstore:fake", result.Source)
	assert.Equal(t, "Remote", result.Mode)
}

func TestGetMissingSettingFails(t *testing.T) {
	t.Parallel()

	deps := newDeps(t, nil, nil, nil)

	_, err := execute(t, commands.NewGetCommand(deps), "Missing:Key")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dserrors.ErrNotFound))
}

func TestDumpMasksValuesByDefault(t *testing.T) {
	t.Parallel()

	deps := newDeps(t, map[string]string{
		"appsettings.json": `{"Smtp":{"Password":"hunter2hunter2"}}`,
	}, nil, nil)

	out, err := execute(t, commands.NewDumpCommand(deps))
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "Smtp:Password")
	assert.Contains(t, out, "file:appsettings.json")
	assert.Contains(t, out, "hu****r2")
	assert.NotContains(t, out, "hunter2hunter2")
}

func TestDumpFormats(t *testing.T) {
	t.Parallel()

	files := map[string]string{"appsettings.json": `{"Smtp":{"Host":"localhost"}}`}

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		deps := newDeps(t, files, nil, nil)

		out, err := execute(t, commands.NewDumpCommand(deps), "--format", "json", "--show-values")
		require.NoError(t, err)

		var entries []commands.DumpEntry
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		assert.Contains(t, entries, commands.DumpEntry{Key: "Smtp:Host", Value: "localhost", Source: "file:appsettings.json"})
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		deps := newDeps(t, files, nil, nil)

		out, err := execute(t, commands.NewDumpCommand(deps), "--format", "yaml", "--show-values")
		require.NoError(t, err)

		var entries []commands.DumpEntry
		require.NoError(t, yaml.Unmarshal([]byte(out), &entries))
		assert.Contains(t, entries, commands.DumpEntry{Key: "Smtp:Host", Value: "localhost", Source: "file:appsettings.json"})
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		deps := newDeps(t, files, nil, nil)

		_, err := execute(t, commands.NewDumpCommand(deps), "--format", "xml")
		var userErr dserrors.UserError
		require.True(t, errors.As(err, &userErr))
		assert.Contains(t, userErr.Suggestion, "--format")
	})
}

func TestDoctorHealthyRemote(t *testing.T) {
	t.Parallel()

	deps := newDeps(t, map[string]string{"appsettings.json": remoteSettings}, nil,
		secretstoretest.Succeed(secretstore.Bundle{"ConnectionStringsPostgreSql": "postgres://app:pw@db:5432/app"}))

	out, err := execute(t, commands.NewDoctorCommand(deps))
	require.NoError(t, err)
	assert.Contains(t, out, "Mode:        Remote")
	assert.Contains(t, out, "Ready")
	assert.Contains(t, out, "secrets read from secret/myapp (1 attempts)")
	assert.Contains(t, out, "connection string PostgreSql")
	assert.Contains(t, out, "resolved from secretstore:fake")
}

func TestDoctorReportsDegradedSecretStore(t *testing.T) {
	t.Parallel()

	backend := secretstoretest.NewBackend(secretstoretest.Step{ReadErr: errors.New("dial tcp: connection refused")})
	deps := newDeps(t, map[string]string{"appsettings.json": remoteSettings}, nil, backend)

	out, err := execute(t, commands.NewDoctorCommand(deps))
	require.Error(t, err)
	assert.Contains(t, out, "RemoteSecretsSkipped")
	assert.Contains(t, out, "(3 attempts)")
	assert.Contains(t, out, "Unable to connect")
}

func TestDoctorNonInteractiveUsesPlainMarkers(t *testing.T) {
	t.Parallel()

	backend := secretstoretest.NewBackend(secretstoretest.Step{ReadErr: errors.New("dial tcp: connection refused")})
	deps := newDeps(t, map[string]string{"appsettings.json": remoteSettings}, nil, backend)
	deps.Config.NonInteractive = true

	out, err := execute(t, commands.NewDoctorCommand(deps))
	require.Error(t, err)
	assert.Contains(t, out, "hint secret store: Unable to connect")
	assert.NotContains(t, out, "✗")
	assert.NotContains(t, out, "💡")
}

func TestDoctorFlagsMalformedConnectionString(t *testing.T) {
	t.Parallel()

	deps := newDeps(t, map[string]string{
		"appsettings.json": `{"ConnectionStrings":{"MySql":"not a dsn","Reporting":"anything"}}`,
	}, configuration.MapEnvironment{"APP_ENVIRONMENT": "Development"}, nil)

	out, err := execute(t, commands.NewDoctorCommand(deps))
	require.Error(t, err)
	assert.Contains(t, out, "not used (traditional mode)")
	assert.Contains(t, out, "malformed MySQL connection string")
	assert.Contains(t, out, "connection string Reporting")
	assert.Contains(t, out, "Summary: 3/4 checks passed")
}

func TestDoctorReportsInvalidSetup(t *testing.T) {
	t.Parallel()

	deps := newDeps(t, map[string]string{
		"appsettings.json": `{"Vault":{"Mode":"Vault","Url":"https://vault.example.com"}}`,
	}, nil, secretstoretest.Succeed(secretstore.Bundle{"a": "b"}))

	out, err := execute(t, commands.NewDoctorCommand(deps))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dserrors.ErrInvalidSetup))
	assert.Contains(t, out, "✗ error")
}

func TestBackendsListsSupportedTypes(t *testing.T) {
	t.Parallel()

	out, err := execute(t, commands.NewBackendsCommand(&commands.Deps{}))
	require.NoError(t, err)
	assert.Equal(t, "akeyless\naws-secretsmanager\naws-ssm\nazure-keyvault\ngcp-secretmanager\nvault\n", out)
}
