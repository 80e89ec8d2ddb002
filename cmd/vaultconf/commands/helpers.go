// Package commands implements the vaultconf subcommands.
package commands

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/systmms/vaultconf/internal/bootstrap"
	"github.com/systmms/vaultconf/internal/config"
	"github.com/systmms/vaultconf/internal/logging"
	"github.com/systmms/vaultconf/internal/metrics"
	"github.com/systmms/vaultconf/internal/providers"
	"github.com/systmms/vaultconf/pkg/configuration"
	"github.com/systmms/vaultconf/pkg/secretstore"
)

// Deps is what the commands share. Config is filled in before any command
// runs; Env and Backend are left nil outside tests.
type Deps struct {
	Config   *config.Config
	Env      configuration.Environment
	Backend  secretstore.Backend
	Registry *providers.Registry
}

func (d *Deps) logger() *logging.Logger {
	if d.Config == nil || d.Config.Logger == nil {
		return logging.Discard()
	}
	return d.Config.Logger
}

// plainOutput reports whether output goes to a non-interactive consumer.
func (d *Deps) plainOutput() bool {
	return d.Config != nil && d.Config.NonInteractive
}

func (d *Deps) registry() *providers.Registry {
	if d.Registry == nil {
		d.Registry = providers.NewRegistry()
	}
	return d.Registry
}

// bootstrap runs the configuration bootstrap with the CLI settings. The
// returned registry holds the fetch metrics of this run.
func (d *Deps) bootstrap(cmd *cobra.Command) (*bootstrap.Context, *prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	opts := bootstrap.Options{
		Env:      d.Env,
		Logger:   d.logger(),
		Registry: d.registry(),
		Metrics:  metrics.New(reg),
		Backend:  d.Backend,
	}
	if d.Config != nil {
		opts.BasePath = d.Config.BasePath
		opts.EnvironmentName = d.Config.Environment
		opts.DotEnvPath = d.Config.DotEnv
	}

	bc, err := bootstrap.Run(cmd.Context(), opts)
	return bc, reg, err
}
