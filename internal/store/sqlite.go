package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/demographics-dashboard/internal/demographics"
)

// sqliteTime is fixed width so imported_at sorts as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS demographic_records (
	region       TEXT NOT NULL DEFAULT '',
	municipality TEXT NOT NULL DEFAULT '',
	date         TEXT NOT NULL,
	year         TEXT NOT NULL DEFAULT '',
	seq          INTEGER NOT NULL,
	batch_id     TEXT NOT NULL,
	payload      TEXT NOT NULL,
	UNIQUE (region, municipality, date)
);

CREATE TABLE IF NOT EXISTS import_batches (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	row_count   INTEGER NOT NULL DEFAULT 0,
	imported_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_demographic_records_batch ON demographic_records(batch_id);
CREATE INDEX IF NOT EXISTS idx_demographic_records_region ON demographic_records(region);
CREATE INDEX IF NOT EXISTS idx_demographic_records_year ON demographic_records(year);
`

// recordColumns is the insert column order shared by both stores.
var recordColumns = []string{"region", "municipality", "date", "year", "seq", "batch_id", "payload"}

const recordConflict = `ON CONFLICT (region, municipality, date) DO UPDATE SET
	year = excluded.year, seq = excluded.seq, batch_id = excluded.batch_id, payload = excluded.payload`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceRecords(ctx context.Context, batch Batch, records []demographics.Record) (int64, error) {
	rows, err := toRows(records)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	insertSQL, _, err := s.builder.Insert(recordsTable).
		Columns(recordColumns...).
		Values(make([]any, len(recordColumns))...).
		Suffix(recordConflict).
		ToSql()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: build insert")
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.region, r.municipality, r.date, r.year, r.seq, batch.ID, string(r.payload)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s/%s %s", r.region, r.municipality, r.date)
		}
	}

	delSQL, delArgs, err := s.builder.Delete(recordsTable).Where(sq.NotEq{"batch_id": batch.ID}).ToSql()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: build delete")
	}
	res, err := tx.ExecContext(ctx, delSQL, delArgs...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete stale records")
	}
	stale, _ := res.RowsAffected()

	if err := s.insertBatch(ctx, tx, batch, len(rows)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}

	zap.L().Info("store: replaced records",
		zap.String("driver", "sqlite"),
		zap.String("batch_id", batch.ID),
		zap.Int("rows", len(rows)),
		zap.Int64("stale", stale),
	)
	return int64(len(rows)), nil
}

func (s *SQLiteStore) insertBatch(ctx context.Context, tx *sql.Tx, batch Batch, n int) error {
	at := batch.ImportedAt
	if at.IsZero() {
		at = time.Now()
	}
	query, args, err := s.builder.Insert(batchesTable).
		Columns("id", "source", "row_count", "imported_at").
		Values(batch.ID, batch.Source, n, at.UTC().Format(sqliteTime)).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "sqlite: build batch insert")
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return eris.Wrap(err, "sqlite: insert batch")
	}
	return nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, f RecordFilter) ([]demographics.Record, error) {
	query, args, err := listQuery(s.builder, f)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build list")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var payloads [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate records")
	}
	return decodePayloads(payloads)
}

func (s *SQLiteStore) LatestBatch(ctx context.Context) (*Batch, error) {
	query, args, err := s.builder.Select("id", "source", "row_count", "imported_at").
		From(batchesTable).
		OrderBy("imported_at DESC", "rowid DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build latest batch")
	}

	var (
		b  Batch
		at string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.Source, &b.Rows, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest batch")
	}
	b.ImportedAt, err = time.Parse(sqliteTime, at)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: parse imported_at")
	}
	return &b, nil
}
