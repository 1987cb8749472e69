package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// implementations returns a fresh instance of every Ledger under its
// name. Both must satisfy the same contract.
func implementations(t *testing.T) map[string]Ledger {
	t.Helper()

	sqlite, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Ledger{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestLedger_MarkAndQuery(t *testing.T) {
	for name, led := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := unit.NewID("app", 1)

			applied, err := led.IsApplied(ctx, a)
			require.NoError(t, err)
			assert.False(t, applied)

			require.NoError(t, led.MarkApplied(ctx, a, nil, "run-1"))

			applied, err = led.IsApplied(ctx, a)
			require.NoError(t, err)
			assert.True(t, applied)
		})
	}
}

func TestLedger_MarkRejectsUnappliedDependency(t *testing.T) {
	for name, led := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := unit.NewID("app", 1)
			b := unit.NewID("app", 2)

			err := led.MarkApplied(ctx, b, []unit.ID{a}, "run-1")
			require.Error(t, err)
			assert.True(t, IsInvariantError(err))

			var le *Error
			require.ErrorAs(t, err, &le)
			assert.Equal(t, ErrCodeDependencyNotApplied, le.Code)
			assert.Equal(t, a, le.Dep)

			// The failed mark left no trace.
			applied, err := led.IsApplied(ctx, b)
			require.NoError(t, err)
			assert.False(t, applied)
		})
	}
}

func TestLedger_MarkRejectsDoubleApply(t *testing.T) {
	for name, led := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := unit.NewID("app", 1)

			require.NoError(t, led.MarkApplied(ctx, a, nil, "run-1"))
			err := led.MarkApplied(ctx, a, nil, "run-2")
			require.Error(t, err)

			var le *Error
			require.ErrorAs(t, err, &le)
			assert.Equal(t, ErrCodeAlreadyApplied, le.Code)
		})
	}
}

func TestLedger_UnmarkRejectsAppliedDependent(t *testing.T) {
	for name, led := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := unit.NewID("app", 1)
			b := unit.NewID("app", 2)

			require.NoError(t, led.MarkApplied(ctx, a, nil, "run-1"))
			require.NoError(t, led.MarkApplied(ctx, b, []unit.ID{a}, "run-1"))

			err := led.UnmarkApplied(ctx, a, []unit.ID{b})
			require.Error(t, err)

			var le *Error
			require.ErrorAs(t, err, &le)
			assert.Equal(t, ErrCodeDependentStillApplied, le.Code)
			assert.Equal(t, b, le.Dep)

			// Unmark the dependent first, then the dependency.
			require.NoError(t, led.UnmarkApplied(ctx, b, nil))
			require.NoError(t, led.UnmarkApplied(ctx, a, []unit.ID{b}))
		})
	}
}

func TestLedger_UnmarkRejectsUnapplied(t *testing.T) {
	for name, led := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			err := led.UnmarkApplied(context.Background(), unit.NewID("app", 1), nil)
			require.Error(t, err)

			var le *Error
			require.ErrorAs(t, err, &le)
			assert.Equal(t, ErrCodeNotApplied, le.Code)
		})
	}
}

func TestLedger_AppliedInOrder(t *testing.T) {
	for name, led := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := unit.NewID("dest", 1)
			b := unit.NewID("source", 1)
			c := unit.NewID("source", 2)

			require.NoError(t, led.MarkApplied(ctx, a, nil, "run-1"))
			require.NoError(t, led.MarkApplied(ctx, b, nil, "run-1"))
			require.NoError(t, led.MarkApplied(ctx, c, []unit.ID{a, b}, "run-1"))

			entries, err := led.AppliedInOrder(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, a, entries[0].ID)
			assert.Equal(t, b, entries[1].ID)
			assert.Equal(t, c, entries[2].ID)
			assert.Less(t, entries[0].Position, entries[1].Position)
			assert.Less(t, entries[1].Position, entries[2].Position)
			assert.Equal(t, "run-1", entries[2].RunID)

			// Trim from the tail and verify the order shrinks.
			require.NoError(t, led.UnmarkApplied(ctx, c, nil))
			entries, err = led.AppliedInOrder(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, b, entries[1].ID)
		})
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	led, err := Open(path)
	require.NoError(t, err)
	a := unit.NewID("app", 1)
	require.NoError(t, led.MarkApplied(ctx, a, nil, "run-1"))
	require.NoError(t, led.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	applied, err := reopened.IsApplied(ctx, a)
	require.NoError(t, err)
	assert.True(t, applied, "applied state survives process restart")

	entries, err := reopened.AppliedInOrder(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1", entries[0].RunID)
	assert.False(t, entries[0].AppliedAt.IsZero())
}

func TestSQLite_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}
