package db

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a bulk upsert into one table.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // columns of every row, in row order
	ConflictKeys []string // columns of the unique constraint
	UpdateCols   []string // updated on conflict; nil means every non-key column

	// After runs in the same transaction once the rows are in, in order.
	// Builders must use Dollar placeholders.
	After []sq.Sqlizer
}

// UpsertResult reports the rows written and the rows affected by each
// After statement.
type UpsertResult struct {
	Rows  int64
	After []int64
}

// BulkUpsert writes rows in one transaction: COPY into a temp table that
// drops on commit, INSERT ... SELECT ... ON CONFLICT DO UPDATE into the
// target, then the After statements. Any failure rolls everything back.
// With no rows and no After statements it does nothing.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (UpsertResult, error) {
	if len(rows) == 0 && len(cfg.After) == 0 {
		return UpsertResult{}, nil
	}
	if len(cfg.Columns) == 0 {
		return UpsertResult{}, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return UpsertResult{}, eris.New("db: upsert: no conflict keys specified")
	}

	upsertSQL, err := upsertStatement(cfg)
	if err != nil {
		return UpsertResult{}, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return UpsertResult{}, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	temp := tempTable(cfg.Table)
	createSQL := "CREATE TEMP TABLE " + pgx.Identifier{temp}.Sanitize() +
		" (LIKE " + sanitizeTable(cfg.Table) + " INCLUDING DEFAULTS) ON COMMIT DROP"
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return UpsertResult{}, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{temp}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return UpsertResult{}, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}
	res := UpsertResult{Rows: tag.RowsAffected()}

	for i, stmt := range cfg.After {
		query, args, err := stmt.ToSql()
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "db: upsert: build statement %d", i)
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "db: upsert: statement %d for %s", i, cfg.Table)
		}
		res.After = append(res.After, tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, eris.Wrap(err, "db: upsert: commit tx")
	}
	return res, nil
}

// upsertStatement builds the INSERT ... SELECT from the temp table.
func upsertStatement(cfg UpsertConfig) (string, error) {
	updateCols := cfg.UpdateCols
	if updateCols == nil {
		keys := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			keys[k] = true
		}
		for _, c := range cfg.Columns {
			if !keys[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	action := "DO NOTHING"
	if len(updateCols) > 0 {
		set := make([]string, len(updateCols))
		for i, c := range updateCols {
			col := pgx.Identifier{c}.Sanitize()
			set[i] = col + " = EXCLUDED." + col
		}
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}

	cols := quoteAll(cfg.Columns)
	query, _, err := sq.Insert(sanitizeTable(cfg.Table)).
		Columns(cols...).
		Select(sq.Select(cols...).From(pgx.Identifier{tempTable(cfg.Table)}.Sanitize())).
		Suffix("ON CONFLICT (" + strings.Join(quoteAll(cfg.ConflictKeys), ", ") + ") " + action).
		ToSql()
	if err != nil {
		return "", eris.Wrapf(err, "db: upsert: build insert for %s", cfg.Table)
	}
	return query, nil
}

// tempTable names the staging table for table. Only the last name part is
// used, since temp tables live in their own schema.
func tempTable(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	return "_tmp_upsert_" + table
}

// sanitizeTable quotes a table name that may carry a schema, such as
// "public.demographic_records".
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAll(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return quoted
}
