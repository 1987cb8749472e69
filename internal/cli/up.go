package cli

import (
	"github.com/spf13/cobra"

	"github.com/lockstep-db/lockstep/internal/executor"
	"github.com/lockstep-db/lockstep/internal/planner"
)

// NewUpCommand creates the up command.
func NewUpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up [target]",
		Short: "Apply forward through the target (default: everything)",
		Long: `Plan and execute forward migration. With no target, applies every
unapplied unit in dependency order; with a namespace:seq target,
applies the target and its unapplied dependencies.

Execution stops at the first failure and leaves the ledger consistent
with the units that completed. Nothing is rolled back automatically:
fix the cause and re-run, or author a compensating step and run down.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runMigration(rootOpts, target, planner.Forward, cmd)
		},
	}
}

// NewDownCommand creates the down command.
func NewDownCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "down <target>",
		Short: "Revert backward through the target",
		Long: `Plan and execute backward migration through a namespace:seq target:
every applied unit that depends on the target is reverted first, then
the target itself, each via its authored reverse operation. After a
successful run the target is unapplied.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(rootOpts, args[0], planner.Backward, cmd)
		},
	}
}

// executionPayload is the JSON rendering of an execution report.
type executionPayload struct {
	RunID     string   `json:"run_id"`
	Direction string   `json:"direction"`
	State     string   `json:"state"`
	Succeeded []string `json:"succeeded"`
	FailedAt  string   `json:"failed_at,omitempty"`
	Position  int      `json:"position,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func runMigration(opts *RootOptions, target string, direction planner.Direction, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	g, err := loadGraph(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load migration graph", err)
	}
	led, err := openLedger(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer led.Close()

	var p *planner.Plan
	switch direction {
	case planner.Forward:
		if target == "" {
			p, err = planner.ForwardAll(ctx, g, led)
		} else {
			id, perr := parseTarget(target)
			if perr != nil {
				return WrapExitError(ExitCommandError, "bad target", perr)
			}
			p, err = planner.ForwardTo(ctx, g, led, id)
		}
	case planner.Backward:
		id, perr := parseTarget(target)
		if perr != nil {
			return WrapExitError(ExitCommandError, "bad target", perr)
		}
		p, err = planner.BackwardThrough(ctx, g, led, id)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "planning failed", err)
	}

	if p.Empty() {
		formatter.Text("[green]nothing to do:[reset] target already satisfied")
		if formatter.Format == "json" {
			return formatter.JSON(executionPayload{Direction: p.Direction.String(), State: string(executor.StateSucceeded), Succeeded: []string{}})
		}
		return nil
	}

	env, closeEnv, err := openEnv(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open target database", err)
	}
	defer closeEnv()

	exec := executor.New(g, led, env,
		executor.WithObserver(newProgressObserver(cmd.ErrOrStderr())))
	report := exec.Execute(ctx, p)

	if formatter.Format == "json" {
		payload := executionPayload{
			RunID:     report.RunID,
			Direction: report.Direction.String(),
			State:     string(report.State),
			Succeeded: make([]string, 0, len(report.Succeeded)),
		}
		for _, id := range report.Succeeded {
			payload.Succeeded = append(payload.Succeeded, id.String())
		}
		if report.Failed() {
			payload.FailedAt = report.FailedAt.String()
			payload.Position = report.FailedPos + 1
			payload.Error = report.Err.Error()
		}
		if err := formatter.JSON(payload); err != nil {
			return err
		}
	} else {
		for _, id := range report.Succeeded {
			formatter.Text("[green]done:[reset] %s", id)
		}
		if report.Failed() {
			formatter.Text("[red]failed:[reset] %s at plan position %d: %v",
				report.FailedAt, report.FailedPos+1, report.Err)
		}
	}

	if report.Failed() {
		return WrapExitError(ExitFailure, "execution failed", report.Err)
	}
	formatter.Text("[green]run %s complete:[reset] %d units %s", report.RunID, len(report.Succeeded), report.Direction)
	return nil
}
