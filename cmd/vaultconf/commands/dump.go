package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/logging"
)

// DumpEntry is one merged setting as printed by dump.
type DumpEntry struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value" yaml:"value"`
	Source string `json:"source" yaml:"source"`
}

func NewDumpCommand(deps *Deps) *cobra.Command {
	var (
		format     string
		showValues bool
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the merged configuration with the source of each key",
		Long:  `Print every merged setting in load order together with the layer that
supplied it. Values are masked unless --show-values is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "yaml":
			default:
				return dserrors.UserError{
					Message:    fmt.Sprintf("unsupported format %q", format),
					Suggestion: "Use --format text, json or yaml",
				}
			}

			bc, _, err := deps.bootstrap(cmd)
			if err != nil {
				return err
			}

			entries := make([]DumpEntry, 0, bc.Store.Len())
			for _, e := range bc.Store.Entries() {
				value := e.Value
				if !showValues {
					value = logging.Mask(value)
				}
				entries = append(entries, DumpEntry{Key: e.Key, Value: value, Source: e.Source})
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(entries); err != nil {
					return err
				}
				return enc.Close()
			default:
				return writeDumpTable(out, entries)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&showValues, "show-values", false, "Print values unmasked")

	return cmd
}

func writeDumpTable(out io.Writer, entries []DumpEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "KEY\tSOURCE\tVALUE\n")
	_, _ = fmt.Fprintf(w, "---\t------\t-----\n")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Source, e.Value)
	}
	return w.Flush()
}
