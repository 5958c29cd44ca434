package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/fetcher"
)

var fetchAttempts uint64

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download remote data sources into the data directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sources := []string{
			cfg.Data.Demographics,
			cfg.Data.MunicipalitiesGeoJSON,
			cfg.Data.RegionsGeoJSON,
			cfg.Data.RegionDemographics,
		}
		paths, err := fetchSources(cmd.Context(), newFetcher(cfg), cfg.Data.Dir, sources, fetchAttempts)
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return err
	},
}

// fetchSources downloads every remote source into dir, retrying each with
// exponential backoff. Local and empty sources are skipped. Returns the
// written paths.
func fetchSources(ctx context.Context, f fetcher.Fetcher, dir string, sources []string, attempts uint64) ([]string, error) {
	if attempts == 0 {
		attempts = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "create data dir")
	}

	var written []string
	for _, src := range sources {
		if !fetcher.IsRemote(src) {
			continue
		}
		dest, err := localName(dir, src)
		if err != nil {
			return written, err
		}

		var n int64
		op := func() error {
			var err error
			n, err = f.DownloadToFile(ctx, src, dest)
			if err != nil {
				zap.L().Warn("fetch: download failed", zap.String("url", src), zap.Error(err))
			}
			return err
		}
		b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), attempts-1), ctx)
		if err := backoff.Retry(op, b); err != nil {
			return written, eris.Wrapf(err, "fetch %s", src)
		}

		zap.L().Info("fetch: saved", zap.String("url", src), zap.String("path", dest), zap.Int64("bytes", n))
		written = append(written, dest)
	}
	return written, nil
}

// localName maps a source URL to a file in dir named after the URL's last
// path segment.
func localName(dir, src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", eris.Wrapf(err, "parse %s", src)
	}
	base := path.Base(u.Path)
	if base == "" || base == "/" || base == "." {
		return "", eris.Errorf("no file name in %s", src)
	}
	return filepath.Join(dir, base), nil
}

func init() {
	fetchCmd.Flags().Uint64Var(&fetchAttempts, "attempts", 3, "download attempts per source")
	rootCmd.AddCommand(fetchCmd)
}
