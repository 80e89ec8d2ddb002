package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultconf/cmd/vaultconf/commands"
	"github.com/systmms/vaultconf/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	deps := &commands.Deps{Config: &config.Config{}}

	rootCmd := &cobra.Command{
		Use:   "vaultconf",
		Short: "Layered application configuration with secret store overrides",
		Long:  `vaultconf assembles application settings from settings files, .env and
environment variables, and in remote mode overlays secrets read from the
configured secret store (Vault, AWS, GCP, Azure or Akeyless).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			cfg.Logger = cfg.NewLogger(cmd.ErrOrStderr())
			*deps.Config = *cfg
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("base-path", ".", "Directory holding the settings files")
	flags.String("environment", "", "Environment name (default: $APP_ENVIRONMENT)")
	flags.String("dotenv", ".env", "Path of the .env file, relative to --base-path")
	flags.Bool("debug", false, "Enable debug logging")
	flags.Bool("no-color", false, "Disable colored output")
	flags.String("log-format", "text", "Log format: text or json")
	flags.Bool("non-interactive", false, "Non-interactive mode")

	rootCmd.AddCommand(
		commands.NewGetCommand(deps),
		commands.NewDumpCommand(deps),
		commands.NewDoctorCommand(deps),
		commands.NewBackendsCommand(deps),
	)

	return rootCmd.Execute()
}
