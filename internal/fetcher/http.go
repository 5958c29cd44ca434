package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// Attempts per request. The dashboard loaders use 1 so a failed source
	// surfaces on first load.
	Attempts int
	// RetryWait is the first pause between attempts. It doubles after each
	// failure.
	RetryWait time.Duration
	// RatePerSec is the per-host request rate.
	RatePerSec float64
}

// StatusError is a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// retryable reports whether another attempt may succeed.
func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// hostLimiter paces requests to one host. A 429 halves its rate, down to a
// quarter of the configured rate; each success restores a fifth of the gap.
type hostLimiter struct {
	mu    sync.Mutex
	lim   *rate.Limiter
	base  rate.Limit
	floor rate.Limit
}

func newHostLimiter(r rate.Limit) *hostLimiter {
	return &hostLimiter{
		lim:   rate.NewLimiter(r, max(int(r), 1)),
		base:  r,
		floor: r / 4,
	}
}

func (h *hostLimiter) wait(ctx context.Context) error {
	return h.lim.Wait(ctx)
}

func (h *hostLimiter) throttle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := max(h.lim.Limit()/2, h.floor)
	h.lim.SetLimit(next)
	zap.L().Warn("fetcher: throttled after 429", zap.Float64("rate", float64(next)))
}

func (h *hostLimiter) relax() {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur := h.lim.Limit()
	if cur < h.base {
		h.lim.SetLimit(min(cur+(h.base-cur)/5, h.base))
	}
}

func (h *hostLimiter) limit() rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lim.Limit()
}

// HTTPFetcher implements Fetcher over net/http, pacing each host separately
// and retrying 429 and 5xx responses with exponential backoff.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu    sync.Mutex
	hosts map[string]*hostLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "demographics-dashboard/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:  opts,
		hosts: make(map[string]*hostLimiter),
	}
}

func (f *HTTPFetcher) hostFor(rawURL string) *hostLimiter {
	var host string
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hosts[host]
	if !ok {
		h = newHostLimiter(rate.Limit(f.opts.RatePerSec))
		f.hosts[host] = h
	}
	return h
}

// get issues one GET per attempt until a 200 arrives, a non-retryable
// status comes back or the attempts run out.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	host := f.hostFor(rawURL)

	var resp *http.Response
	attempt := 0
	op := func() error {
		attempt++
		if err := host.wait(ctx); err != nil {
			return backoff.Permanent(eris.Wrap(err, "rate limiter wait"))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(eris.Wrap(err, "create request"))
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		r, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if r.StatusCode == http.StatusOK {
			host.relax()
			resp = r
			return nil
		}
		_ = r.Body.Close()

		serr := &StatusError{URL: rawURL, Code: r.StatusCode}
		if r.StatusCode == http.StatusTooManyRequests {
			host.throttle()
		}
		if !serr.retryable() {
			return backoff.Permanent(serr)
		}
		return serr
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.opts.RetryWait
	eb.MaxInterval = 10 * time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.opts.Attempts-1)), ctx)

	notify := func(err error, wait time.Duration) {
		zap.L().Warn("fetcher: retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, eris.Wrapf(err, "get %s (%d attempt(s))", rawURL, attempt)
	}
	return resp, nil
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL into path. The body lands in a temporary
// file beside path first, so a failed download never leaves a truncated
// file behind.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, eris.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, eris.Wrapf(err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, eris.Wrapf(err, "rename into %s", path)
	}
	return n, nil
}
