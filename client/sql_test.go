package client

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLThroughClient(t *testing.T) {
	c, err := New(WithSQL(filepath.Join(t.TempDir(), "app.db")))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ctx := context.Background()
	db := c.SQL()

	require.NoError(t, db.Ping(ctx))

	_, err = db.Exec(ctx, `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)`)
	require.NoError(t, err)

	res, err := db.Exec(ctx, `INSERT INTO notes (body) VALUES (?)`, "remember the milk")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.RowsAffected)

	row, err := db.QueryRow(ctx, `SELECT body FROM notes WHERE id = ?`, res.LastInsertID)
	require.NoError(t, err)
	var body string
	require.NoError(t, row.Scan(&body))
	assert.Equal(t, "remember the milk", body)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO notes (body) VALUES (?)`, "rolled back")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	row, err = db.QueryRow(ctx, `SELECT COUNT(*) FROM notes`)
	require.NoError(t, err)
	var count int
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
