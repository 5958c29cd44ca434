package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/choropleth"
	"github.com/sells-group/demographics-dashboard/internal/dashboard"
)

type renderOptions struct {
	View     string
	Variable string
	Date     string
	Format   string
	Out      string
}

var renderOpts renderOptions

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a choropleth map to SVG, PDF or PNG",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("render"); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if renderOpts.Out != "" && renderOpts.Out != "-" {
			file, err := os.Create(renderOpts.Out)
			if err != nil {
				return eris.Wrap(err, "create output")
			}
			defer file.Close() //nolint:errcheck
			out = file
		}
		return renderMap(cmd.Context(), renderOpts, out)
	},
}

// renderMap loads one view, applies the selection and writes the map.
func renderMap(ctx context.Context, o renderOptions, w io.Writer) error {
	switch o.Format {
	case dashboard.FormatSVG, choropleth.FormatPDF, choropleth.FormatPNG:
	default:
		return eris.Errorf("unknown format %q (want svg, pdf or png)", o.Format)
	}

	catalogs, err := choropleth.LoadCatalogFile(cfg.Map.VariablesFile)
	if err != nil {
		return eris.Wrap(err, "load variable catalog")
	}
	opts, err := mapOptions(cfg, catalogs, o.View)
	if err != nil {
		return err
	}
	opts.Cache = nil

	v := dashboard.LoadMapView(ctx, newFetcher(cfg), opts)
	if err := v.Err(); err != nil {
		return eris.Wrapf(err, "load %s map", o.View)
	}
	if err := v.Select(o.Variable, o.Date); err != nil {
		return eris.Wrap(err, "select")
	}

	data, _, err := v.Render(o.Format, choropleth.Viewport{})
	if err != nil {
		return eris.Wrap(err, "render")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "write map")
	}

	st := v.State()
	zap.L().Info("map rendered",
		zap.String("view", o.View),
		zap.String("variable", st.Variable),
		zap.String("date", st.Date),
		zap.String("format", o.Format),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func init() {
	renderCmd.Flags().StringVar(&renderOpts.View, "view", "municipalities", "map view (municipalities or regions)")
	renderCmd.Flags().StringVar(&renderOpts.Variable, "variable", "", "variable key (default from config)")
	renderCmd.Flags().StringVar(&renderOpts.Date, "date", "", "snapshot date (default from config)")
	renderCmd.Flags().StringVar(&renderOpts.Format, "format", "svg", "output format (svg, pdf or png)")
	renderCmd.Flags().StringVar(&renderOpts.Out, "out", "-", "output file (- for stdout)")
	rootCmd.AddCommand(renderCmd)
}
