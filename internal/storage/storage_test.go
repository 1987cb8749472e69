package storage

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstep-db/lockstep/internal/unit"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite3", filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExec_RunsDDL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(ctx, "CREATE TABLE things (id INTEGER PRIMARY KEY, label TEXT)"))
	require.NoError(t, db.Exec(ctx, "DROP TABLE things"))
}

func TestExec_SurfacesStatementInError(t *testing.T) {
	db := openTestDB(t)

	err := db.Exec(context.Background(), "DROP TABLE missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DROP TABLE missing")
}

func TestInsertAndSelect_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)"))
	require.NoError(t, db.Insert(ctx, "users", unit.Row{"name": "ada", "age": 36}))
	require.NoError(t, db.Insert(ctx, "users", unit.Row{"name": "grace", "age": 45}))

	it, err := db.Select(ctx, "users", "name", "age")
	require.NoError(t, err)
	defer it.Close()

	var names []string
	for it.Next() {
		row, err := it.Row()
		require.NoError(t, err)
		name, ok := row["name"].(string)
		require.True(t, ok, "text columns come back as strings, got %T", row["name"])
		names = append(names, name)
	}
	require.NoError(t, it.Err())
	assert.ElementsMatch(t, []string{"ada", "grace"}, names)
}

func TestSelect_AllColumnsByDefault(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(ctx, "CREATE TABLE pairs (a INTEGER, b INTEGER)"))
	require.NoError(t, db.Insert(ctx, "pairs", unit.Row{"a": 1, "b": 2}))

	it, err := db.Select(ctx, "pairs")
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	row, err := it.Row()
	require.NoError(t, err)
	assert.Len(t, row, 2)
}

func TestInsert_EmptyRowRejected(t *testing.T) {
	db := openTestDB(t)
	err := db.Insert(context.Background(), "users", unit.Row{})
	assert.Error(t, err)
}

func TestDelete_WithAndWithoutWhere(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(ctx, "CREATE TABLE nums (n INTEGER)"))
	for n := 1; n <= 3; n++ {
		require.NoError(t, db.Insert(ctx, "nums", unit.Row{"n": n}))
	}

	require.NoError(t, db.Delete(ctx, "nums", "n = ?", 2))
	it, err := db.Select(ctx, "nums")
	require.NoError(t, err)
	count := 0
	for it.Next() {
		_, err := it.Row()
		require.NoError(t, err)
		count++
	}
	require.NoError(t, it.Err())
	it.Close()
	assert.Equal(t, 2, count)

	require.NoError(t, db.Delete(ctx, "nums", ""))
	it, err = db.Select(ctx, "nums")
	require.NoError(t, err)
	assert.False(t, it.Next(), "table emptied")
	it.Close()
}

func TestEnv_SharesOneHandle(t *testing.T) {
	db := openTestDB(t)
	env := db.Env()
	assert.NotNil(t, env.Structural)
	assert.NotNil(t, env.Rows)
}
