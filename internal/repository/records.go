package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/config"
	"cadernos-ingest/internal/entity"
)

// RecordRepository persists extracted citizen records.
type RecordRepository interface {
	// EnsureTable creates the destination table when it does not exist.
	EnsureTable(ctx context.Context) error
	// Insert stores one record. A fingerprint collision returns an error
	// wrapping common.ErrDuplicateRecord.
	Insert(ctx context.Context, rec *entity.Record) error
	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
	// Alive reports whether the backing connection still answers.
	Alive(ctx context.Context) bool
}

var recordColumns = []string{
	"nome_completo",
	"parent_1",
	"parent_2",
	"data_nascimento",
	"concelho",
	"posto",
	"type",
	"file_name",
	"fingerprint",
}

type recordRepository struct {
	db        *DB
	table     string
	logger    *slog.Logger
	insertSQL string
}

// NewRecordRepository binds a repository to its destination table. The table
// name is re-checked here since it is interpolated into SQL text.
func NewRecordRepository(db *DB, table string, logger *slog.Logger) (RecordRepository, error) {
	v := common.NewValidator()
	v.Field("table", table, common.Required, common.Identifier)
	if v.HasErrors() {
		return nil, v.Error()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &recordRepository{
		db:        db,
		table:     table,
		logger:    logger,
		insertSQL: buildInsertSQL(db.Driver, table),
	}, nil
}

func buildInsertSQL(driver, table string) string {
	placeholders := make([]string, len(recordColumns))
	for i := range recordColumns {
		if driver == config.DriverPostgres {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(recordColumns, ", "), strings.Join(placeholders, ", "))
}

func (r *recordRepository) ddl() string {
	switch r.db.Driver {
	case config.DriverMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	nome_completo VARCHAR(255) NOT NULL,
	parent_1 VARCHAR(255) NOT NULL DEFAULT '',
	parent_2 VARCHAR(255) NOT NULL DEFAULT '',
	data_nascimento VARCHAR(10) NOT NULL,
	concelho VARCHAR(255) NOT NULL DEFAULT '',
	posto VARCHAR(255) NOT NULL DEFAULT '',
	type VARCHAR(32) NOT NULL DEFAULT 'unknown',
	file_name VARCHAR(255) NOT NULL,
	fingerprint CHAR(64) NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, r.table)
	case config.DriverSQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	nome_completo TEXT NOT NULL,
	parent_1 TEXT NOT NULL DEFAULT '',
	parent_2 TEXT NOT NULL DEFAULT '',
	data_nascimento TEXT NOT NULL,
	concelho TEXT NOT NULL DEFAULT '',
	posto TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'unknown',
	file_name TEXT NOT NULL,
	fingerprint TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, r.table)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	nome_completo TEXT NOT NULL,
	parent_1 TEXT NOT NULL DEFAULT '',
	parent_2 TEXT NOT NULL DEFAULT '',
	data_nascimento TEXT NOT NULL,
	concelho TEXT NOT NULL DEFAULT '',
	posto TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'unknown',
	file_name TEXT NOT NULL,
	fingerprint CHAR(64) NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, r.table)
	}
}

func (r *recordRepository) EnsureTable(ctx context.Context) error {
	if _, err := r.db.SQL.ExecContext(ctx, r.ddl()); err != nil {
		return common.WrapError(err, fmt.Sprintf("create table %s", r.table))
	}
	r.logger.Info("store.table.ok", "table", r.table, "driver", r.db.Driver)
	return nil
}

func (r *recordRepository) Insert(ctx context.Context, rec *entity.Record) error {
	_, err := r.db.SQL.ExecContext(ctx, r.insertSQL,
		rec.FullName, rec.Parent1, rec.Parent2, rec.BirthDate,
		rec.Concelho, rec.Posto, rec.RollType, rec.FileName,
		rec.Fingerprint())
	if err == nil {
		return nil
	}

	if isDuplicateErr(err) {
		return common.NewAppError("DUPLICATE_RECORD",
			fmt.Sprintf("record already stored: %s (%s)", rec.FullName, rec.FileName),
			common.ErrDuplicateRecord)
	}
	return common.NewAppError("PERSISTENCE_ERROR",
		fmt.Sprintf("insert record %s: %v", rec.FullName, err),
		common.ErrPersistence)
}

func (r *recordRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)
	if err := r.db.SQL.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, common.WrapError(err, fmt.Sprintf("count rows in %s", r.table))
	}
	return n, nil
}

func (r *recordRepository) Alive(ctx context.Context) bool {
	return r.db.Alive(ctx)
}

// isDuplicateErr recognizes unique-constraint violations across the three
// supported drivers.
func isDuplicateErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		code := sqErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
