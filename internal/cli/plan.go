package cli

import (
	"github.com/spf13/cobra"

	"github.com/lockstep-db/lockstep/internal/planner"
	"github.com/lockstep-db/lockstep/internal/unit"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Down bool
}

// planStep is one unit in the JSON rendering of a plan.
type planStep struct {
	Position int    `json:"position"`
	Unit     string `json:"unit"`
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
}

// planPayload is the JSON rendering of a plan.
type planPayload struct {
	Direction string     `json:"direction"`
	Target    string     `json:"target"`
	Units     []planStep `json:"units"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan [target]",
		Short: "Show the execution plan without running it",
		Long: `Compute and print the linear plan to reach a target checkpoint.

With no target, plans forward over the whole graph. Targets use the
namespace:seq form, e.g. "billing:3". Planning reads the ledger but
never mutates it; a target that is already satisfied prints an empty
plan.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runPlan(opts, target, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Down, "down", false, "plan backward through the target")

	return cmd
}

func runPlan(opts *PlanOptions, target string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	p, err := computePlan(opts, target, cmd)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		payload := planPayload{
			Direction: p.Direction.String(),
			Target:    p.Target.String(),
			Units:     make([]planStep, 0, len(p.Units)),
		}
		if p.Target.IsZero() {
			payload.Target = "all"
		}
		for i, u := range p.Units {
			payload.Units = append(payload.Units, planStep{
				Position: i + 1,
				Unit:     u.ID.String(),
				Kind:     string(u.Kind),
				Name:     u.Name,
			})
		}
		return formatter.JSON(payload)
	}

	p.Render(cmd.OutOrStdout())
	return nil
}

// computePlan is shared by plan, up and down: it loads the graph,
// opens the ledger read-only and computes the requested plan.
func computePlan(opts *PlanOptions, target string, cmd *cobra.Command) (*planner.Plan, error) {
	g, err := loadGraph(opts.RootOptions)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load migration graph", err)
	}
	led, err := openLedger(opts.RootOptions)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer led.Close()

	ctx := cmd.Context()

	if opts.Down {
		if target == "" {
			return nil, WrapExitError(ExitCommandError, "backward plans require a target", nil)
		}
		id, err := parseTarget(target)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "bad target", err)
		}
		p, err := planner.BackwardThrough(ctx, g, led, id)
		if err != nil {
			return nil, WrapExitError(ExitFailure, "planning failed", err)
		}
		return p, nil
	}

	if target == "" {
		p, err := planner.ForwardAll(ctx, g, led)
		if err != nil {
			return nil, WrapExitError(ExitFailure, "planning failed", err)
		}
		return p, nil
	}

	var id unit.ID
	if id, err = parseTarget(target); err != nil {
		return nil, WrapExitError(ExitCommandError, "bad target", err)
	}
	p, err := planner.ForwardTo(ctx, g, led, id)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "planning failed", err)
	}
	return p, nil
}
