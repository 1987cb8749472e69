package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstep-db/lockstep/internal/graph"
	"github.com/lockstep-db/lockstep/internal/ledger"
	"github.com/lockstep-db/lockstep/internal/planner"
	"github.com/lockstep-db/lockstep/internal/unit"
)

// journal records operation invocations as "direction unit" strings so
// tests can assert on exact execution order.
type journal struct {
	calls []string
}

func (j *journal) op(id string, direction string, fail error) unit.Operation {
	return func(ctx context.Context, env unit.Env) error {
		j.calls = append(j.calls, direction+" "+id)
		return fail
	}
}

// chain builds a single-namespace change set of n structural units
// whose operations record into the journal. failAt (1-based seq, 0 for
// none) makes that unit's forward operation fail.
func chain(j *journal, namespace string, n int, failAt int) *unit.ChangeSet {
	s := unit.NewChangeSet(namespace)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s:%d", namespace, i)
		var failure error
		if i == failAt {
			failure = errors.New("table is locked")
		}
		s.Add(unit.KindStructural, "", j.op(id, "forward", failure), j.op(id, "reverse", nil))
	}
	return s
}

func appliedIDs(t *testing.T, led ledger.Ledger) []string {
	t.Helper()
	entries, err := led.AppliedInOrder(context.Background())
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID.String()
	}
	return out
}

func TestExecute_ForwardMarksEachUnit(t *testing.T) {
	j := &journal{}
	g, err := graph.Build(chain(j, "app", 3, 0))
	require.NoError(t, err)
	led := ledger.NewMemory()

	p, err := planner.ForwardAll(context.Background(), g, led)
	require.NoError(t, err)

	report := New(g, led, unit.Env{}, WithRunID("run-1")).Execute(context.Background(), p)

	assert.Equal(t, StateSucceeded, report.State)
	assert.False(t, report.Failed())
	assert.Equal(t, []string{"forward app:1", "forward app:2", "forward app:3"}, j.calls)
	assert.Equal(t, []string{"app:1", "app:2", "app:3"}, appliedIDs(t, led))
	assert.Equal(t, "run-1", report.RunID)
	assert.Nil(t, report.FailedAt)
	assert.Equal(t, -1, report.FailedPos)
}

func TestExecute_EmptyPlanIsNoOp(t *testing.T) {
	j := &journal{}
	g, err := graph.Build(chain(j, "app", 2, 0))
	require.NoError(t, err)
	led := ledger.NewMemory()

	p := &planner.Plan{Direction: planner.Forward, Target: unit.NewID("app", 2)}
	report := New(g, led, unit.Env{}).Execute(context.Background(), p)

	assert.Equal(t, StateSucceeded, report.State)
	assert.Empty(t, j.calls)
	assert.Empty(t, appliedIDs(t, led))
	assert.NotEmpty(t, report.RunID, "run id is generated when not pinned")
}

func TestExecute_StopsAtFirstFailure(t *testing.T) {
	j := &journal{}
	g, err := graph.Build(chain(j, "app", 3, 2))
	require.NoError(t, err)
	led := ledger.NewMemory()

	p, err := planner.ForwardAll(context.Background(), g, led)
	require.NoError(t, err)

	report := New(g, led, unit.Env{}).Execute(context.Background(), p)

	require.True(t, report.Failed())
	assert.Equal(t, StateFailed, report.State)
	require.NotNil(t, report.FailedAt)
	assert.Equal(t, "app:2", report.FailedAt.String())
	assert.Equal(t, 1, report.FailedPos)
	assert.True(t, IsOperationFailure(report.Err))

	// The failure stopped the run: app:3 never ran, and nothing was
	// reverted automatically.
	assert.Equal(t, []string{"forward app:1", "forward app:2"}, j.calls)
	assert.Equal(t, []string{"app:1"}, appliedIDs(t, led), "ledger holds exactly the completed units")
}

func TestExecute_ResumeAfterFailure(t *testing.T) {
	j := &journal{}
	g, err := graph.Build(chain(j, "app", 3, 2))
	require.NoError(t, err)
	led := ledger.NewMemory()

	p, err := planner.ForwardAll(context.Background(), g, led)
	require.NoError(t, err)
	report := New(g, led, unit.Env{}).Execute(context.Background(), p)
	require.True(t, report.Failed())

	// Replanning after remediation yields exactly the remainder.
	resume, err := planner.ForwardAll(context.Background(), g, led)
	require.NoError(t, err)

	var resumeIDs []string
	for _, u := range resume.Units {
		resumeIDs = append(resumeIDs, u.ID.String())
	}
	assert.Equal(t, []string{"app:2", "app:3"}, resumeIDs)
}

func TestExecute_BackwardUnmarksInReverse(t *testing.T) {
	j := &journal{}
	g, err := graph.Build(chain(j, "app", 3, 0))
	require.NoError(t, err)
	led := ledger.NewMemory()
	ctx := context.Background()

	forward, err := planner.ForwardAll(ctx, g, led)
	require.NoError(t, err)
	require.False(t, New(g, led, unit.Env{}).Execute(ctx, forward).Failed())

	backward, err := planner.BackwardThrough(ctx, g, led, unit.NewID("app", 1))
	require.NoError(t, err)
	report := New(g, led, unit.Env{}).Execute(ctx, backward)

	require.False(t, report.Failed())
	assert.Equal(t, []string{
		"forward app:1", "forward app:2", "forward app:3",
		"reverse app:3", "reverse app:2", "reverse app:1",
	}, j.calls)
	assert.Empty(t, appliedIDs(t, led), "round trip restores the pre-forward ledger")
}

func TestExecute_RoundTripThroughSingleUnit(t *testing.T) {
	j := &journal{}
	g, err := graph.Build(chain(j, "app", 2, 0))
	require.NoError(t, err)
	led := ledger.NewMemory()
	ctx := context.Background()

	forward, err := planner.ForwardTo(ctx, g, led, unit.NewID("app", 2))
	require.NoError(t, err)
	require.False(t, New(g, led, unit.Env{}).Execute(ctx, forward).Failed())
	before := appliedIDs(t, led)

	down, err := planner.BackwardThrough(ctx, g, led, unit.NewID("app", 2))
	require.NoError(t, err)
	require.False(t, New(g, led, unit.Env{}).Execute(ctx, down).Failed())

	up, err := planner.ForwardTo(ctx, g, led, unit.NewID("app", 2))
	require.NoError(t, err)
	require.False(t, New(g, led, unit.Env{}).Execute(ctx, up).Failed())

	assert.Equal(t, before, appliedIDs(t, led))
}

func TestExecute_CancellationBetweenUnits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// app:1 cancels the context from inside its own operation; the
	// unit still completes and is marked, and the run stops before
	// app:2 starts.
	s := unit.NewChangeSet("app")
	s.Add(unit.KindStructural, "",
		func(context.Context, unit.Env) error { cancel(); return nil },
		func(context.Context, unit.Env) error { return nil })
	ran := false
	s.Add(unit.KindStructural, "",
		func(context.Context, unit.Env) error { ran = true; return nil },
		func(context.Context, unit.Env) error { return nil })

	g, err := graph.Build(s)
	require.NoError(t, err)
	led := ledger.NewMemory()

	p, err := planner.ForwardAll(context.Background(), g, led)
	require.NoError(t, err)
	report := New(g, led, unit.Env{}).Execute(ctx, p)

	require.True(t, report.Failed())
	assert.True(t, IsCancelled(report.Err))
	assert.False(t, ran, "no unit starts after cancellation")
	assert.Equal(t, []string{"app:1"}, appliedIDs(t, led), "in-flight unit ran to completion")
	require.NotNil(t, report.FailedAt)
	assert.Equal(t, "app:2", report.FailedAt.String())
}

// markFailLedger fails the Nth MarkApplied to exercise the ledger
// failure path.
type markFailLedger struct {
	ledger.Ledger
	failOn int
	marks  int
}

func (l *markFailLedger) MarkApplied(ctx context.Context, id unit.ID, deps []unit.ID, runID string) error {
	l.marks++
	if l.marks == l.failOn {
		return errors.New("disk full")
	}
	return l.Ledger.MarkApplied(ctx, id, deps, runID)
}

func TestExecute_LedgerWriteFailureStopsRun(t *testing.T) {
	j := &journal{}
	g, err := graph.Build(chain(j, "app", 2, 0))
	require.NoError(t, err)
	led := &markFailLedger{Ledger: ledger.NewMemory(), failOn: 2}

	p, err := planner.ForwardAll(context.Background(), g, led)
	require.NoError(t, err)
	report := New(g, led, unit.Env{}).Execute(context.Background(), p)

	require.True(t, report.Failed())
	var oe *OperationError
	require.ErrorAs(t, report.Err, &oe)
	assert.Equal(t, ErrCodeLedgerFailed, oe.Code)
	assert.Equal(t, []string{"app:1"}, appliedIDs(t, led))
}

// recordingObserver captures callback order.
type recordingObserver struct {
	events []string
}

func (r *recordingObserver) UnitStarted(u *unit.Unit, pos, total int, d planner.Direction) {
	r.events = append(r.events, fmt.Sprintf("start %s %d/%d", u.ID, pos+1, total))
}

func (r *recordingObserver) UnitFinished(u *unit.Unit, pos, total int, d planner.Direction, err error) {
	state := "ok"
	if err != nil {
		state = "err"
	}
	r.events = append(r.events, fmt.Sprintf("finish %s %s", u.ID, state))
}

func TestExecute_ObserverSeesEveryUnit(t *testing.T) {
	j := &journal{}
	g, err := graph.Build(chain(j, "app", 2, 2))
	require.NoError(t, err)
	led := ledger.NewMemory()
	obs := &recordingObserver{}

	p, err := planner.ForwardAll(context.Background(), g, led)
	require.NoError(t, err)
	New(g, led, unit.Env{}, WithObserver(obs)).Execute(context.Background(), p)

	assert.Equal(t, []string{
		"start app:1 1/2", "finish app:1 ok",
		"start app:2 2/2", "finish app:2 err",
	}, obs.events)
}
