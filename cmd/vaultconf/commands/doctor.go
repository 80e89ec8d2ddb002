package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/systmms/vaultconf/internal/bootstrap"
	"github.com/systmms/vaultconf/internal/config"
	dserrors "github.com/systmms/vaultconf/internal/errors"
	"github.com/systmms/vaultconf/internal/resolve"
)

// CheckResult is one line of the doctor report.
type CheckResult struct {
	Name       string
	Status     string // ok, warn, error
	Message    string
	Suggestion string
}

func NewDoctorCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the secret store setup and the resolved configuration",
		Long:  `Run the bootstrap and report on it.

This command checks:
- Settings files and the secret store setup (mode, backend, required fields)
- Secret store authentication and the configured path
- Connection strings for known drivers (PostgreSQL, MySQL)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			bc, reg, err := deps.bootstrap(cmd)
			if err != nil {
				results := []CheckResult{setupFailure(err)}
				displayCheckResults(out, results, deps.plainOutput())
				return fmt.Errorf("configuration is not usable: %w", err)
			}

			_, _ = fmt.Fprintf(out, "Mode:        %s\n", bc.Mode())
			_, _ = fmt.Fprintf(out, "Backend:     %s\n", bc.Config.Backend)
			_, _ = fmt.Fprintf(out, "Environment: %s\n", valueOr(bc.EnvironmentName, "(none)"))
			_, _ = fmt.Fprintf(out, "State:       %s\n\n", describeStates(bc.History))

			results := []CheckResult{{Name: "setup", Status: "ok", Message: "secret store settings are valid"}}
			results = append(results, secretStoreCheck(bc, reg))
			results = append(results, connectionStringChecks(bc)...)

			displayCheckResults(out, results, deps.plainOutput())

			failed := 0
			for _, r := range results {
				if r.Status == "error" {
					failed++
				}
			}
			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d checks passed\n", len(results)-failed, len(results))
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			return nil
		},
	}

	return cmd
}

func setupFailure(err error) CheckResult {
	result := CheckResult{Name: "setup", Status: "error", Message: err.Error()}
	var cfgErr dserrors.ConfigError
	if errors.As(err, &cfgErr) {
		result.Message = cfgErr.Message
		result.Suggestion = cfgErr.Suggestion
	}
	return result
}

func secretStoreCheck(bc *bootstrap.Context, reg *prometheus.Registry) CheckResult {
	if bc.Mode() == config.ModeTraditional {
		return CheckResult{Name: "secret store", Status: "ok", Message: "not used (traditional mode)"}
	}

	attempts := countAttempts(reg)
	if bc.SecretErr != nil {
		userErr := dserrors.ProviderError(bc.Config.Backend, "fetch", bc.SecretErr)
		var ue dserrors.UserError
		_ = errors.As(userErr, &ue)
		return CheckResult{
			Name:       "secret store",
			Status:     "error",
			Message:    fmt.Sprintf("%v (%d attempts)", bc.SecretErr, attempts),
			Suggestion: ue.Suggestion,
		}
	}
	return CheckResult{
		Name:    "secret store",
		Status:  "ok",
		Message: fmt.Sprintf("secrets read from %s/%s (%d attempts)", bc.Config.MountPoint, bc.Config.Path, attempts),
	}
}

// countAttempts sums the fetch attempt counter of this run.
func countAttempts(reg *prometheus.Registry) int {
	families, err := reg.Gather()
	if err != nil {
		return 0
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != "vaultconf_secret_fetch_attempts_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return int(total)
}

func connectionStringChecks(bc *bootstrap.Context) []CheckResult {
	prefix := strings.ToLower(resolve.ConnectionStringsPrefix)
	names := make(map[string]struct{})
	for _, key := range bc.Store.Keys() {
		lower := strings.ToLower(key)
		switch {
		case strings.HasPrefix(lower, prefix+":"):
			names[key[len(prefix)+1:]] = struct{}{}
		case strings.HasPrefix(lower, prefix) && len(key) > len(prefix):
			names[key[len(prefix):]] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var results []CheckResult
	for _, name := range sorted {
		check := CheckResult{Name: "connection string " + name}
		res, err := bc.Resolver.ResolveConnectionString(name)
		switch {
		case err == nil:
			check.Status = "ok"
			check.Message = "resolved from " + res.Source
		case errors.Is(err, dserrors.ErrNotFound):
			check.Status = "warn"
			check.Message = "not resolvable in this mode and environment"
		default:
			check.Status = "error"
			check.Message = err.Error()
			var cfgErr dserrors.ConfigError
			if errors.As(err, &cfgErr) {
				check.Message = cfgErr.Message
				check.Suggestion = cfgErr.Suggestion
			}
		}
		results = append(results, check)
	}
	return results
}

// displayCheckResults shows the checks in a formatted table. Plain output
// drops the symbols for log collectors.
func displayCheckResults(out io.Writer, results []CheckResult, plain bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t-------\n")

	for _, result := range results {
		status := result.Status
		switch {
		case plain:
		case result.Status == "ok":
			status = "✓ " + status
		case result.Status == "error":
			status = "✗ " + status
		default:
			status = "! " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, status, result.Message)
	}
	_ = w.Flush()

	for _, result := range results {
		if result.Suggestion != "" {
			marker := "💡"
			if plain {
				marker = "hint"
			}
			_, _ = fmt.Fprintf(out, "  %s %s: %s\n", marker, result.Name, result.Suggestion)
		}
	}
}

func describeStates(history []bootstrap.Transition) string {
	names := make([]string, 0, len(history)+1)
	names = append(names, bootstrap.Uninitialized.String())
	for _, tr := range history {
		names = append(names, tr.To.String())
	}
	return strings.Join(names, " → ")
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
