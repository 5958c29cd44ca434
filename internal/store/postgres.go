package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/db"
	"github.com/sells-group/demographics-dashboard/internal/demographics"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	builder sq.StatementBuilderType
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. The connect
// is retried while the server comes up.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	opts := db.ConnectOptions{MaxConns: 10, MinConns: 2}
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			opts.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			opts.MinConns = poolCfg.MinConns
		}
	}

	pool, err := db.Connect(ctx, connString, opts)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return newPostgresStore(pool), nil
}

func newPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// payload is JSON rather than JSONB so records keep their field order.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS demographic_records (
	region       TEXT NOT NULL DEFAULT '',
	municipality TEXT NOT NULL DEFAULT '',
	date         TEXT NOT NULL,
	year         TEXT NOT NULL DEFAULT '',
	seq          INTEGER NOT NULL,
	batch_id     TEXT NOT NULL,
	payload      JSON NOT NULL,
	imported_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (region, municipality, date)
);

CREATE TABLE IF NOT EXISTS import_batches (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	row_count   INTEGER NOT NULL DEFAULT 0,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_demographic_records_batch ON demographic_records(batch_id);
CREATE INDEX IF NOT EXISTS idx_demographic_records_region ON demographic_records(region);
CREATE INDEX IF NOT EXISTS idx_demographic_records_year ON demographic_records(year);
CREATE INDEX IF NOT EXISTS idx_import_batches_imported_at ON import_batches(imported_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ReplaceRecords(ctx context.Context, batch Batch, records []demographics.Record) (int64, error) {
	rows, err := toRows(records)
	if err != nil {
		return 0, err
	}

	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.region, r.municipality, r.date, r.year, r.seq, batch.ID, json.RawMessage(r.payload)}
	}
	at := batch.ImportedAt
	if at.IsZero() {
		at = time.Now()
	}
	res, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        recordsTable,
		Columns:      recordColumns,
		ConflictKeys: []string{"region", "municipality", "date"},
		After: []sq.Sqlizer{
			s.builder.Delete(recordsTable).Where(sq.NotEq{"batch_id": batch.ID}),
			s.builder.Insert(batchesTable).
				Columns("id", "source", "row_count", "imported_at").
				Values(batch.ID, batch.Source, len(rows), at.UTC()),
		},
	}, data)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert records")
	}

	zap.L().Info("store: replaced records",
		zap.String("driver", "postgres"),
		zap.String("batch_id", batch.ID),
		zap.Int64("rows", res.Rows),
		zap.Int64("stale", res.After[0]),
	)
	return res.Rows, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, f RecordFilter) ([]demographics.Record, error) {
	query, args, err := listQuery(s.builder, f)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate records")
	}
	return decodePayloads(payloads)
}

func (s *PostgresStore) LatestBatch(ctx context.Context) (*Batch, error) {
	query, args, err := s.builder.Select("id", "source", "row_count", "imported_at").
		From(batchesTable).
		OrderBy("imported_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build latest batch")
	}

	var b Batch
	err = s.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.Source, &b.Rows, &b.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest batch")
	}
	return &b, nil
}
