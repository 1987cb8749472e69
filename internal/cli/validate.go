package cli

import (
	"github.com/spf13/cobra"
)

// ValidationReport is the JSON payload of the validate command.
type ValidationReport struct {
	Valid      bool   `json:"valid"`
	Units      int    `json:"units"`
	Namespaces int    `json:"namespaces,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate manifests and build the dependency graph",
		Long: `Load every manifest, check it against the schema, and build the
dependency graph. Reports duplicate units, dangling dependency
references and cycles without touching the ledger or the database.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	g, err := loadGraph(opts)
	if err != nil {
		if formatter.Format == "json" {
			_ = formatter.JSON(ValidationReport{Valid: false, Error: err.Error()})
		} else {
			formatter.Text("[red]invalid:[reset] %v", err)
		}
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(ValidationReport{Valid: true, Units: g.Len()})
	}
	formatter.Text("[green]ok:[reset] %d units, no cycles, no dangling references", g.Len())
	return nil
}
