package sqlbase

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, migrations map[int]string) (*MigrationManager, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewMigrationManager(logger, db, migrations), mock
}

func TestMigrationManager_LatestVersion(t *testing.T) {
	manager, _ := newManager(t, map[int]string{3: "", 1: "", 2: ""})
	assert.Equal(t, 3, manager.LatestVersion())

	empty, _ := newManager(t, map[int]string{})
	assert.Equal(t, 0, empty.LatestVersion())
}

func TestMigrationManager_AppliesPendingInOrder(t *testing.T) {
	manager, mock := newManager(t, map[int]string{
		3: "CREATE TABLE three (id INT)",
		1: "CREATE TABLE one (id INT)",
		2: "CREATE TABLE two (id INT)",
	})

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))

	for _, step := range []struct {
		version int
		table   string
	}{{2, "two"}, {3, "three"}} {
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE " + step.table).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(step.version).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	require.NoError(t, manager.RunMigrations(t.Context()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationManager_UpToDate(t *testing.T) {
	manager, mock := newManager(t, map[int]string{1: "CREATE TABLE one (id INT)"})

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))

	require.NoError(t, manager.RunMigrations(t.Context()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationManager_RollsBackFailedMigration(t *testing.T) {
	manager, mock := newManager(t, map[int]string{1: "CREATE TABLE one (id INT)"})

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE one").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := manager.RunMigrations(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute migration 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationManager_MigrationsTableFailure(t *testing.T) {
	manager, mock := newManager(t, map[int]string{1: ""})

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnError(errors.New("permission denied"))

	err := manager.RunMigrations(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
