// Package fetcher opens demographic and boundary sources from local disk or
// over HTTP, and streams their CSV and JSON contents.
package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// IsRemote reports whether source names an http(s) resource.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Open returns a reader for source. Remote sources go through f; anything
// else is read from the local filesystem. The caller closes the reader.
func Open(ctx context.Context, f Fetcher, source string) (io.ReadCloser, error) {
	if source == "" {
		return nil, eris.New("fetcher: empty source")
	}
	if IsRemote(source) {
		if f == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", source)
		}
		body, err := f.Download(ctx, source)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", source)
		}
		return body, nil
	}

	file, err := os.Open(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", source)
	}
	return file, nil
}
