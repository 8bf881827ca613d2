package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`-- videos
CREATE TABLE a (id INT);

  ;
-- trailing comment only
CREATE INDEX i ON a (id)
`)
	require.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a (id)"}, stmts)
}

func TestListMigrationsSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_more.sql": {Data: []byte("SELECT 1")},
		"migrations/001_init.sql": {Data: []byte("SELECT 1")},
		"migrations/README.md":    {Data: []byte("notes")},
	}
	files, err := listMigrations(fsys)
	require.NoError(t, err)
	require.Equal(t, []string{"001_init.sql", "002_more.sql"}, files)
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	files, err := listMigrations(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	content, err := migrationsFS.ReadFile("migrations/" + files[0])
	require.NoError(t, err)
	stmts := splitStatements(string(content))
	require.Contains(t, stmts[0], "CREATE EXTENSION IF NOT EXISTS vector")
}
