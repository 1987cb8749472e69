package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lockstep-db/lockstep/internal/unit"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is the durable Ledger. Every mutation runs in its own
// immediate transaction, so a mark or unmark that returned nil has
// been committed before the executor moves on.
type SQLite struct {
	db *sql.DB
}

// Open creates or opens a ledger database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// SQLite supports one writer at a time, so the pool is pinned to a
// single connection. Open is idempotent.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to ledger database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (l *SQLite) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// IsApplied implements Ledger.
func (l *SQLite) IsApplied(ctx context.Context, id unit.ID) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applied_units WHERE namespace = ? AND seq = ?`,
		id.Namespace, id.Seq,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query applied state of %s: %w", id, err)
	}
	return n > 0, nil
}

// MarkApplied implements Ledger.
func (l *SQLite) MarkApplied(ctx context.Context, id unit.ID, deps []unit.ID, runID string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark transaction: %w", err)
	}
	defer tx.Rollback()

	applied, err := appliedInTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if applied {
		return &Error{Code: ErrCodeAlreadyApplied, Unit: id}
	}
	for _, dep := range deps {
		applied, err := appliedInTx(ctx, tx, dep)
		if err != nil {
			return err
		}
		if !applied {
			return &Error{Code: ErrCodeDependencyNotApplied, Unit: id, Dep: dep}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO applied_units (namespace, seq, position, run_id, applied_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM applied_units), ?, ?)`,
		id.Namespace, id.Seq, runID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert applied unit %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark of %s: %w", id, err)
	}
	return nil
}

// UnmarkApplied implements Ledger.
func (l *SQLite) UnmarkApplied(ctx context.Context, id unit.ID, dependents []unit.ID) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unmark transaction: %w", err)
	}
	defer tx.Rollback()

	applied, err := appliedInTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !applied {
		return &Error{Code: ErrCodeNotApplied, Unit: id}
	}
	for _, dep := range dependents {
		applied, err := appliedInTx(ctx, tx, dep)
		if err != nil {
			return err
		}
		if applied {
			return &Error{Code: ErrCodeDependentStillApplied, Unit: id, Dep: dep}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM applied_units WHERE namespace = ? AND seq = ?`,
		id.Namespace, id.Seq,
	); err != nil {
		return fmt.Errorf("delete applied unit %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unmark of %s: %w", id, err)
	}
	return nil
}

// AppliedInOrder implements Ledger.
func (l *SQLite) AppliedInOrder(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT namespace, seq, position, run_id, applied_at
		 FROM applied_units ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query applied units: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			namespace string
			seq       int
			appliedAt string
		)
		if err := rows.Scan(&namespace, &seq, &e.Position, &e.RunID, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan applied unit: %w", err)
		}
		e.ID = unit.NewID(namespace, seq)
		if t, err := time.Parse(time.RFC3339Nano, appliedAt); err == nil {
			e.AppliedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied units: %w", err)
	}
	return out, nil
}

func appliedInTx(ctx context.Context, tx *sql.Tx, id unit.ID) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applied_units WHERE namespace = ? AND seq = ?`,
		id.Namespace, id.Seq,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query applied state of %s: %w", id, err)
	}
	return n > 0, nil
}
