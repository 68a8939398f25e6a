package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

func openMemory(t *testing.T) DB {
	t.Helper()
	db, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"}, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	_, err := Open(Config{Driver: "mysql"}, testLogger)
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)

	db := openMemory(t)
	assert.Equal(t, DriverSQLite, db.DriverName())
	assert.Equal(t, sqlbuilder.SQLite, db.Flavor())
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestFlavorFor(t *testing.T) {
	assert.Equal(t, sqlbuilder.PostgreSQL, FlavorFor(DriverPostgres))
	assert.Equal(t, sqlbuilder.SQLite, FlavorFor(DriverSQLite))
	assert.Equal(t, "excluded.score", Excluded("score"))
}

func TestGetTx_Nested(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)

	outerCtx, outer, err := db.GetTx(ctx, nil)
	require.NoError(t, err)

	innerCtx, inner, err := db.GetTx(outerCtx, nil)
	require.NoError(t, err)
	assert.Equal(t, outerCtx, innerCtx)

	_, err = inner.ExecContext(innerCtx, `INSERT INTO notes (body) VALUES ('nested')`)
	require.NoError(t, err)

	// the nested handle cannot end the outer transaction
	require.NoError(t, inner.Rollback(innerCtx))
	assert.True(t, outer.IsOpen())

	require.NoError(t, outer.Commit(outerCtx))
	assert.False(t, outer.IsOpen())
	require.NoError(t, outer.Rollback(outerCtx))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notes`))
	assert.Equal(t, 1, count)
}

func TestGetLatestVersion(t *testing.T) {
	source := fstest.MapFS{
		"pg/000001_init.up.sql":      {Data: []byte("CREATE TABLE a (id INT);")},
		"pg/000001_init.down.sql":    {Data: []byte("DROP TABLE a;")},
		"pg/000003_scores.up.sql":    {Data: []byte("ALTER TABLE a ADD score REAL;")},
		"pg/000002_index.up.sql":     {Data: []byte("CREATE INDEX a_id ON a (id);")},
		"pg/README.md":               {Data: []byte("notes")},
		"empty/000001_init.down.sql": {Data: []byte("")},
	}

	latest, err := getLatestVersion(source, "pg")
	require.NoError(t, err)
	assert.Equal(t, 3, latest)

	_, err = getLatestVersion(source, "empty")
	assert.ErrorContains(t, err, "no migration files found")

	_, err = getLatestVersion(source, "missing")
	assert.Error(t, err)
}

func TestMigrationService_SQLite(t *testing.T) {
	db := openMemory(t)
	source := fstest.MapFS{
		"sqlite/000001_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
		"sqlite/000001_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
	}

	svc := NewMigrationService(testLogger, &MigrationConfig{Source: source, Dir: "sqlite"})
	require.NoError(t, svc.Migrate(db))
	// no change on the second run
	require.NoError(t, svc.Migrate(db))

	var count int
	require.NoError(t, db.GetContext(context.Background(), &count, `SELECT COUNT(*) FROM notes`))
	assert.Zero(t, count)
}
