package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var maxBodyBytes int64 = 10 * 1024 * 1024

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.Code, e.URL)
}

// Fetcher wraps an HTTP client with rate-limiting, User-Agent, and gzip support.
type Fetcher struct {
	client    *http.Client
	userAgent string
	baseURL   string
	limiter   *rate.Limiter

	// backoff is the delay before the first retry; it doubles per attempt.
	backoff time.Duration
}

// New creates a Fetcher. baseURL is a page pattern containing {id}; delayMS
// is the minimum spacing between requests.
func New(baseURL, userAgent string, delayMS int, timeout time.Duration) *Fetcher {
	limit := rate.Inf
	if delayMS > 0 {
		limit = rate.Every(time.Duration(delayMS) * time.Millisecond)
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		baseURL:   baseURL,
		limiter:   rate.NewLimiter(limit, 1),
		backoff:   500 * time.Millisecond,
	}
}

// PageURL returns the achievement page URL for id.
func (f *Fetcher) PageURL(id int) string {
	return strings.ReplaceAll(f.baseURL, "{id}", strconv.Itoa(id))
}

// Fetch retrieves the body of the given URL, waiting for the rate limiter
// first. Gzip-encoded responses are decompressed.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decompressing gzip response from %s: %w", url, err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body from %s: %w", url, err)
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, fmt.Errorf("body of %s exceeds %d bytes", url, maxBodyBytes)
	}

	return body, nil
}

// FetchWithRetry calls Fetch and retries transient failures up to retries
// extra times with exponential backoff. onRetry, if set, is called before
// each retry.
func (f *Fetcher) FetchWithRetry(ctx context.Context, url string, retries int, onRetry func(attempt int, err error)) ([]byte, error) {
	delay := f.backoff
	for attempt := 0; ; attempt++ {
		body, err := f.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		if attempt >= retries || !Retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("retry of %s cancelled: %w", url, err)
		case <-timer.C:
		}
		delay *= 2
	}
}

// Retryable reports whether err is worth another attempt: transport
// failures, 5xx and 429 are; other HTTP statuses are not.
func Retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}
