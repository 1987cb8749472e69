package cli

import (
	"github.com/lockstep-db/lockstep/internal/graph"
	"github.com/lockstep-db/lockstep/internal/ledger"
	"github.com/lockstep-db/lockstep/internal/manifest"
	"github.com/lockstep-db/lockstep/internal/storage"
	"github.com/lockstep-db/lockstep/internal/unit"

	// Target database drivers usable via --driver.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// loadGraph reads every manifest under opts.Dir and builds the
// dependency graph. Manifest and build failures keep their own error
// types; callers wrap them with exit codes.
func loadGraph(opts *RootOptions) (*graph.Graph, error) {
	files, err := manifest.LoadDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	sets, err := manifest.ChangeSets(files...)
	if err != nil {
		return nil, err
	}
	return graph.Build(sets...)
}

// openLedger opens the durable ledger at opts.Ledger.
func openLedger(opts *RootOptions) (ledger.Ledger, error) {
	return ledger.Open(opts.Ledger)
}

// openEnv connects to the target database and returns the unit
// environment units execute against.
func openEnv(opts *RootOptions) (unit.Env, func() error, error) {
	db, err := storage.Open(opts.Driver, opts.DSN)
	if err != nil {
		return unit.Env{}, nil, err
	}
	return db.Env(), db.Close, nil
}

// parseTarget resolves a "namespace:seq" argument.
func parseTarget(arg string) (unit.ID, error) {
	return unit.ParseID(arg)
}
