package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewBackendsCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the supported secret store backends",
		Long:  `List the values accepted by Vault:Backend (or VAULT_BACKEND).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range deps.registry().GetSupportedTypes() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
