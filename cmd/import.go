package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/store"
)

var importSource string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import demographic records into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		batch, err := importRecords(cmd.Context(), importSource)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d records (batch %s)\n", batch.Rows, batch.ID)
		return nil
	},
}

// importRecords loads source and replaces the store's records with it
// under a new batch.
func importRecords(ctx context.Context, source string) (*store.Batch, error) {
	if source == "" {
		source = cfg.Data.Demographics
	}

	records, err := demographics.Fetch(ctx, newFetcher(cfg), source, loadOptions(cfg))
	if err != nil {
		return nil, eris.Wrap(err, "load records")
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st == nil {
		return nil, eris.New("no store configured (set store.driver)")
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return nil, eris.Wrap(err, "migrate store")
	}

	batch := store.Batch{
		ID:         uuid.NewString(),
		Source:     source,
		ImportedAt: time.Now().UTC(),
	}
	n, err := st.ReplaceRecords(ctx, batch, records)
	if err != nil {
		return nil, eris.Wrap(err, "replace records")
	}
	batch.Rows = int(n)

	zap.L().Info("import complete",
		zap.String("batch_id", batch.ID),
		zap.String("source", source),
		zap.Int("records", len(records)),
		zap.Int64("rows", n),
	)
	return &batch, nil
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "CSV, JSON or HTML source (default from config)")
	rootCmd.AddCommand(importCmd)
}
