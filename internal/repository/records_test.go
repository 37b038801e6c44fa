package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/config"
	"cadernos-ingest/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "cadernos.db"),
	}
	db, err := Open(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(discardLogger()) })
	return db
}

func testRecord() entity.Record {
	return entity.Record{
		FullName:  "João Semedo Tavares",
		Parent1:   "José Tavares",
		Parent2:   "Maria Semedo",
		BirthDate: "12-03-1985",
		Concelho:  "Praia",
		Posto:     "Palmarejo",
		RollType:  "nacionais",
		FileName:  "caderno_nacionais_praia.pdf",
	}
}

func TestInsertAndCount(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewRecordRepository(db, "cidadaos", discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.EnsureTable(ctx))

	rec := testRecord()
	require.NoError(t, repo.Insert(ctx, &rec))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var name, rollType string
	row := db.SQL.QueryRowContext(ctx,
		"SELECT nome_completo, type FROM cidadaos WHERE fingerprint = ?", rec.Fingerprint())
	require.NoError(t, row.Scan(&name, &rollType))
	assert.Equal(t, rec.FullName, name)
	assert.Equal(t, rec.RollType, rollType)
}

func TestInsertDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewRecordRepository(db, "cidadaos", discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.EnsureTable(ctx))

	rec := testRecord()
	require.NoError(t, repo.Insert(ctx, &rec))

	dup := testRecord()
	err = repo.Insert(ctx, &dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateRecord)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "a rejected duplicate must not add a row")

	other := testRecord()
	other.FileName = "caderno_nacionais_praia_2.pdf"
	require.NoError(t, repo.Insert(ctx, &other), "same citizen from another file is a distinct record")

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestEnsureTableIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewRecordRepository(db, "cidadaos", discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.EnsureTable(ctx))
	require.NoError(t, repo.EnsureTable(ctx))
}

func TestNewRecordRepositoryRejectsBadTable(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"", "cidadaos; DROP TABLE x", "cidadaos--", "nome com espaço"} {
		_, err := NewRecordRepository(db, table, discardLogger())
		require.Error(t, err, "table %q must be rejected", table)
	}
}

func TestInsertPersistenceError(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewRecordRepository(db, "missing_table", discardLogger())
	require.NoError(t, err)

	rec := testRecord()
	err = repo.Insert(context.Background(), &rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrPersistence)
	assert.NotErrorIs(t, err, common.ErrDuplicateRecord)
}

func TestAlive(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewRecordRepository(db, "cidadaos", discardLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.EnsureTable(ctx))
	assert.True(t, repo.Alive(ctx))

	db.Close(discardLogger())
	assert.False(t, repo.Alive(ctx), "a closed handle is no longer alive")
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
