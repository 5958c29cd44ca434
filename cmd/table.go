package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/demographics-dashboard/internal/dashboard"
	"github.com/sells-group/demographics-dashboard/internal/filter"
	"github.com/sells-group/demographics-dashboard/internal/table"
)

type tableOptions struct {
	Source    string
	Selection filter.Selection
	HTML      bool
}

var tableOpts tableOptions

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the filtered data table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printTable(cmd.Context(), tableOpts, cmd.OutOrStdout())
	},
}

// printTable loads the source, applies the selection and writes the table
// as aligned text or as an HTML fragment.
func printTable(ctx context.Context, o tableOptions, w io.Writer) error {
	source := o.Source
	if source == "" {
		source = cfg.Data.Demographics
	}
	if source == "" {
		return eris.New("no source (set --source or data.demographics)")
	}

	v := dashboard.LoadTableView(ctx, newFetcher(cfg), source, loadOptions(cfg), table.Options{Locale: cfg.Table.Locale})
	if err := v.Err(); err != nil {
		return eris.Wrapf(err, "load %s", source)
	}
	view := v.Apply(o.Selection)
	if o.HTML {
		return table.WriteHTML(w, view)
	}
	return table.WriteText(w, view)
}

func init() {
	tableCmd.Flags().StringVar(&tableOpts.Source, "source", "", "CSV, JSON or HTML source (default from config)")
	tableCmd.Flags().StringVar(&tableOpts.Selection.Region, "region", "", "filter by region")
	tableCmd.Flags().StringVar(&tableOpts.Selection.Municipality, "municipality", "", "filter by municipality")
	tableCmd.Flags().StringVar(&tableOpts.Selection.Year, "year", "", "filter by year")
	tableCmd.Flags().BoolVar(&tableOpts.HTML, "html", false, "write an HTML table instead of text")
	rootCmd.AddCommand(tableCmd)
}
