package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agenthands/equivalence/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flightPage = `<!doctype html>
<html><head><title>TAP457</title><script>var ads = 1;</script><style>p{}</style></head>
<body>
  <div class="ad">Buy   now!</div>
  <h1>TAP457 history</h1>
  <p>Arrival:   <b>delayed</b> by 45 minutes</p>
</body></html>`

func TestHTTPFetcher_HTML(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(flightPage))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.WebConfig{UserAgent: "test-agent"})
	text, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "Buy now!\nTAP457 history\nArrival: delayed by 45 minutes", text)
	assert.NotContains(t, text, "ads")
}

func TestHTTPFetcher_PlainAndJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"merged": true}`))
	}))
	defer srv.Close()

	text, err := NewHTTPFetcher(config.WebConfig{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `{"merged": true}`, text)
}

func TestHTTPFetcher_MaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	text, err := NewHTTPFetcher(config.WebConfig{MaxBytes: 4}).Fetch(context.Background(), srv.URL)
	assert.Empty(t, text)
	var tl *TooLargeError
	require.True(t, errors.As(err, &tl))
	assert.Equal(t, int64(4), tl.Limit)

	text, err = NewHTTPFetcher(config.WebConfig{MaxBytes: 10}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", text)
}

func TestHTTPFetcher_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(config.WebConfig{}).Fetch(context.Background(), srv.URL)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.WebConfig{Timeout: config.Duration{Duration: 50 * time.Millisecond}})
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestHTTPFetcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(config.WebConfig{RatePerSecond: 1}).Fetch(ctx, "http://127.0.0.1:1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestText_Whitespace(t *testing.T) {
	a, err := Text("<p>Flight   delayed:\n true</p>")
	require.NoError(t, err)
	b, err := Text("<div><p>Flight delayed: true</p></div>")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
