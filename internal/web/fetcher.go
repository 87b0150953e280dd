package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/agenthands/equivalence/internal/config"
)

// Fetcher retrieves a page and returns its visible text. Pages are expected
// to differ slightly between fetches.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// TooLargeError reports a body longer than the configured cap. A truncated
// page is never returned.
type TooLargeError struct {
	URL   string
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("fetch %s: body exceeds %d bytes", e.URL, e.Limit)
}

type HTTPFetcher struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	UserAgent  string
	MaxBytes   int64
	KeepMarkup bool
	Log        *slog.Logger
}

func NewHTTPFetcher(cfg config.WebConfig) *HTTPFetcher {
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPFetcher{
		Client:     &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(limit, burst),
		UserAgent:  cfg.UserAgent,
		MaxBytes:   cfg.MaxBytes,
		KeepMarkup: cfg.KeepMarkupHTML,
		Log:        slog.Default(),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/json,text/plain;q=0.9,*/*;q=0.5")

	start := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, Code: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		f.Log.Warn("page exceeds size cap", "url", url, "max_bytes", f.MaxBytes)
		return "", &TooLargeError{URL: url, Limit: f.MaxBytes}
	}

	f.Log.Debug("fetched page", "url", url, "status", resp.StatusCode, "bytes", len(data), "elapsed", time.Since(start))

	if f.KeepMarkup || !isHTML(resp.Header.Get("Content-Type"), data) {
		return string(data), nil
	}
	return Text(string(data))
}

func isHTML(contentType string, data []byte) bool {
	if contentType != "" {
		return strings.Contains(contentType, "html")
	}
	return strings.Contains(strings.ToLower(http.DetectContentType(data)), "html")
}
