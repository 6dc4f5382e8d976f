package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFetcher builds a fetcher that can reach httptest servers, which
// listen on loopback.
func newTestFetcher(t *testing.T, opts ...Option) *HTTPFetcher {
	t.Helper()
	fetcher, err := NewHTTPFetcher(append([]Option{WithAllowPrivateTargets()}, opts...)...)
	require.NoError(t, err)
	return fetcher
}

func TestFetchHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "StashBot")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html lang="en"><head><title>Test Page</title></head><body><article>Some article text.</article></body></html>`))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t)
	parsed, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test Page", parsed.Title)
	assert.Contains(t, parsed.Content, "Some article text.")
	assert.Equal(t, 1, parsed.ReadingTime)
}

func TestFetchRejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrContentType)
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrHTTPStatus)
}

func TestFetchEnforcesBodyCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>" + strings.Repeat("x", 4096) + "</body></html>"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, WithMaxBodySize(1024))
	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>Moved</title></head><body>here</body></html>"))
	})

	fetcher := newTestFetcher(t)
	parsed, err := fetcher.Fetch(context.Background(), server.URL+"/old")
	require.NoError(t, err)

	assert.Equal(t, "Moved", parsed.Title)
}

func TestFetchBlocksPrivateTargets(t *testing.T) {
	fetcher, err := NewHTTPFetcher()
	require.NoError(t, err)

	for _, u := range []string{
		"http://127.0.0.1/",
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost:8080/admin",
	} {
		_, err := fetcher.Fetch(context.Background(), u)
		assert.ErrorIs(t, err, ErrPrivateTarget, "expected %s to be blocked", u)
	}
}

func TestFetcherOptionValidation(t *testing.T) {
	_, err := NewHTTPFetcher(WithMaxBodySize(-1))
	assert.Error(t, err)

	_, err = NewHTTPFetcher(WithUserAgent(""))
	assert.Error(t, err)

	_, err = NewHTTPFetcher(WithTimeout(0))
	assert.Error(t, err)
}
