package refdata

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	fetchTimeout    = 30 * time.Second
	fetchMaxRetries = 3
	fetchUserAgent  = "hrsim/1.0"
	maxFetchBackoff = 30 * time.Second
)

// fetchBaseBackoff is the first retry delay; it doubles per attempt.
var fetchBaseBackoff = time.Second

// fetchLimiter paces dataset downloads across the process.
var fetchLimiter = rate.NewLimiter(5, 5)

var fetchClient = &http.Client{Timeout: fetchTimeout}

// isRemote reports whether p is an http(s) URL.
func isRemote(p string) bool {
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// remoteExt returns the lower-cased file extension of a URL path.
func remoteExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// fetchToDir downloads rawURL into dir, keeping the URL's file name so the
// format can be dispatched on its extension. It returns the local path.
func fetchToDir(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "refdata: parse url")
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "dataset"
	}

	resp, err := getWithRetry(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	dst := filepath.Join(dir, name)
	file, err := os.Create(dst)
	if err != nil {
		return "", eris.Wrap(err, "refdata: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "refdata: write file")
	}

	zap.L().Debug("refdata: dataset downloaded",
		zap.String("url", rawURL),
		zap.Int64("bytes", n),
	)
	return dst, nil
}

// getWithRetry issues a GET, retrying transport errors, 429 and 5xx responses
// with exponential backoff. Other non-200 statuses fail immediately.
func getWithRetry(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "refdata: create request")
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	var lastErr error
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt-1); err != nil {
				return nil, eris.Wrap(err, "refdata: fetch cancelled")
			}
		}
		if err := fetchLimiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "refdata: rate limiter wait")
		}

		resp, err := fetchClient.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			zap.L().Warn("refdata: fetch failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
			zap.L().Warn("refdata: server error, retrying",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
		default:
			_ = resp.Body.Close()
			return nil, eris.Errorf("refdata: unexpected status %d from %s", resp.StatusCode, rawURL)
		}
	}
	return nil, eris.Wrap(lastErr, "refdata: all retries exhausted")
}

// backoff sleeps for base*2^attempt plus up to 50% jitter, capped, or until
// ctx is done.
func backoff(ctx context.Context, attempt int) error {
	d := fetchBaseBackoff << attempt
	if d > maxFetchBackoff || d <= 0 {
		d = maxFetchBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int63n(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
