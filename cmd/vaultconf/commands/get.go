package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultconf/internal/resolve"
)

// GetResult is the --json output of get.
type GetResult struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
	Mode   string `json:"mode"`
}

func NewGetCommand(deps *Deps) *cobra.Command {
	var (
		connectionString bool
		jsonOutput       bool
	)

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Resolve a single setting",
		Long:  `Resolve one setting through the same precedence rules the application uses
and print its value. Blank values are treated as missing.

Examples:
  # A flat setting or environment variable
  vaultconf get Smtp:Host

  # A named connection string (ConnectionStrings<name>)
  vaultconf get PostgreSql --connection-string

  # Use in scripts
  export DB_URL=$(vaultconf get PostgreSql --connection-string)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			bc, _, err := deps.bootstrap(cmd)
			if err != nil {
				return err
			}

			var res resolve.Resolution
			if connectionString {
				res, err = bc.Resolver.ResolveConnectionString(name)
			} else {
				res, err = bc.Resolver.ResolveVariable(name)
			}
			if err != nil {
				return err
			}

			if !jsonOutput {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Value)
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(GetResult{
				Name:   name,
				Key:    res.Key,
				Value:  res.Value,
				Source: res.Source,
				Mode:   bc.Mode().String(),
			})
		},
	}

	cmd.Flags().BoolVar(&connectionString, "connection-string", false, "Resolve ConnectionStrings<name> with the connection string fallback order")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output value with its source as JSON")

	return cmd
}
