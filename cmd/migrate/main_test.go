package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "002_b.sql", "SELECT 2;")
	writeFile(t, dir, "001_a.sql", "SELECT 1;")
	writeFile(t, dir, "003_empty.sql", "")
	writeFile(t, dir, "README.md", "notes")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.sql"), 0o755))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)

	_, err = migrationFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestPending(t *testing.T) {
	files := []string{"001_a.sql", "002_b.sql", "003_c.sql"}
	assert.Equal(t, []string{"002_b.sql", "003_c.sql"}, pending(files, map[string]bool{"001_a.sql": true}))
	assert.Empty(t, pending(files, map[string]bool{"001_a.sql": true, "002_b.sql": true, "003_c.sql": true}))
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_a.sql", "CREATE TABLE a (id INT);")

	t.Run("records version in the same transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("001_a.sql").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, apply(context.Background(), db, dir, "001_a.sql"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE a").WillReturnError(errors.New("syntax error"))
		mock.ExpectRollback()

		assert.Error(t, apply(context.Background(), db, dir, "001_a.sql"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAppliedVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001_a.sql"))

	got, err := appliedVersions(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"001_a.sql": true}, got)
}
