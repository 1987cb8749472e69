package cli

import (
	"github.com/spf13/cobra"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// statusRow is one unit's state in the status listing.
type statusRow struct {
	Unit      string `json:"unit"`
	Kind      string `json:"kind"`
	Name      string `json:"name,omitempty"`
	Applied   bool   `json:"applied"`
	Position  int64  `json:"position,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	AppliedAt string `json:"applied_at,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied units against the known graph",
		Long: `List every unit in dependency order with its applied state. Applied
units show their ledger position and the run that applied them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	g, err := loadGraph(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load migration graph", err)
	}
	led, err := openLedger(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer led.Close()

	entries, err := led.AppliedInOrder(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ledger", err)
	}
	applied := make(map[unit.ID]int, len(entries))
	for i, e := range entries {
		applied[e.ID] = i
	}

	rows := make([]statusRow, 0, g.Len())
	for _, id := range g.TopoOrder() {
		u, _ := g.Unit(id)
		row := statusRow{Unit: id.String(), Kind: string(u.Kind), Name: u.Name}
		if i, ok := applied[id]; ok {
			e := entries[i]
			row.Applied = true
			row.Position = e.Position
			row.RunID = e.RunID
			if !e.AppliedAt.IsZero() {
				row.AppliedAt = e.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		rows = append(rows, row)
	}

	if formatter.Format == "json" {
		return formatter.JSON(rows)
	}
	for _, row := range rows {
		label := row.Unit
		if row.Name != "" {
			label += " " + row.Name
		}
		if row.Applied {
			formatter.Text("[green]applied[reset]  %s (run %s)", label, row.RunID)
		} else {
			formatter.Text("[yellow]pending[reset]  %s", label)
		}
	}
	return nil
}
