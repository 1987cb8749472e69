package planner

import (
	"fmt"
	"io"
	"strings"
)

// Render writes a human-readable listing of the plan. The output is
// deterministic for identical inputs and is what the plan subcommand
// prints and the golden tests pin down.
func (p *Plan) Render(w io.Writer) {
	if p.Empty() {
		fmt.Fprintf(w, "%s plan -> %s (nothing to do)\n", p.Direction, p.targetLabel())
		return
	}
	fmt.Fprintf(w, "%s plan -> %s (%d units)\n", p.Direction, p.targetLabel(), len(p.Units))
	arrow := "+"
	if p.Direction == Backward {
		arrow = "-"
	}
	for i, u := range p.Units {
		line := fmt.Sprintf("%3d. %s %s [%s]", i+1, arrow, u.ID, u.Kind)
		if u.Name != "" {
			line += " " + u.Name
		}
		fmt.Fprintln(w, line)
	}
}

// String renders the plan to a string.
func (p *Plan) String() string {
	var b strings.Builder
	p.Render(&b)
	return b.String()
}

func (p *Plan) targetLabel() string {
	if p.Target.IsZero() {
		return "all"
	}
	return p.Target.String()
}
