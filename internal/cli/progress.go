package cli

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/lockstep-db/lockstep/internal/planner"
	"github.com/lockstep-db/lockstep/internal/unit"
)

// progressObserver renders executor progress as a terminal progress
// bar. The bar goes to the error writer so stdout stays clean for
// structured output.
type progressObserver struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

// UnitStarted implements executor.Observer.
func (p *progressObserver) UnitStarted(u *unit.Unit, pos, total int, d planner.Direction) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(d.String()),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.bar.Describe(u.ID.String())
}

// UnitFinished implements executor.Observer.
func (p *progressObserver) UnitFinished(u *unit.Unit, pos, total int, d planner.Direction, err error) {
	if p.bar == nil {
		return
	}
	if err != nil {
		p.bar.Exit()
		return
	}
	p.bar.Add(1)
	if pos == total-1 {
		p.bar.Finish()
	}
}
