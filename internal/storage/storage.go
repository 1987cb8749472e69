package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// DB wraps a database/sql pool and hands out the collaborator
// interfaces units operate through.
type DB struct {
	db *sql.DB
}

// Open connects to the target database. driver is any registered
// database/sql driver name ("sqlite3", "mysql").
func Open(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}
	return &DB{db: db}, nil
}

// Wrap adapts an existing pool, e.g. an in-memory SQLite handle owned
// by a test.
func Wrap(db *sql.DB) *DB {
	return &DB{db: db}
}

// Close closes the underlying pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Env returns the unit environment backed by this database.
func (d *DB) Env() unit.Env {
	return unit.Env{Structural: d, Rows: d}
}

// Exec implements unit.Structural.
func (d *DB) Exec(ctx context.Context, stmt string, args ...any) error {
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
	}
	return nil
}

// Select implements unit.Rows. With no columns it selects every
// column of the table.
func (d *DB) Select(ctx context.Context, table string, columns ...string) (unit.RowIterator, error) {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", cols, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	names, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	return &rowIterator{rows: rows, columns: names}, nil
}

// Insert implements unit.Rows. Column order is sorted for a stable
// statement shape.
func (d *DB) Insert(ctx context.Context, table string, row unit.Row) error {
	if len(row) == 0 {
		return fmt.Errorf("insert into %s: empty row", table)
	}
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	holes := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		holes[i] = "?"
		args[i] = row[c]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(holes, ", "))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Delete implements unit.Rows. An empty where clause deletes every
// row in the table.
func (d *DB) Delete(ctx context.Context, table string, where string, args ...any) error {
	stmt := "DELETE FROM " + quoteIdent(table)
	if where != "" {
		stmt += " WHERE " + where
	}
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

type rowIterator struct {
	rows    *sql.Rows
	columns []string
}

func (it *rowIterator) Next() bool {
	return it.rows.Next()
}

func (it *rowIterator) Row() (unit.Row, error) {
	values := make([]any, len(it.columns))
	ptrs := make([]any, len(it.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	row := make(unit.Row, len(it.columns))
	for i, c := range it.columns {
		v := values[i]
		// Drivers hand back []byte for text columns; normalize so
		// unit code sees comparable values.
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[c] = v
	}
	return row, nil
}

func (it *rowIterator) Err() error {
	return it.rows.Err()
}

func (it *rowIterator) Close() error {
	return it.rows.Close()
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		stmt = stmt[:i] + " ..."
	}
	return stmt
}
