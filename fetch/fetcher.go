package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/stashd/stash/core"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxBodySize = 10 * 1024 * 1024 // 10 MB
	defaultUserAgent   = "Mozilla/5.0 (compatible; StashBot/1.0; +https://github.com/stashd/stash)"

	maxRedirects = 5
)

// Fetcher retrieves and parses a web page.
type Fetcher interface {
	// Fetch downloads the page at rawURL and extracts its content and
	// metadata. The returned ParsedContent always carries the domain of the
	// final URL after redirects.
	Fetch(ctx context.Context, rawURL string) (*core.ParsedContent, error)
}

// HTTPFetcher fetches pages over HTTP with SSRF protection, a response size
// cap, and an overall timeout.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodySize  int64
	allowPrivate bool
	logger       *slog.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher) error

// WithTimeout sets the overall request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *HTTPFetcher) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		f.client.Timeout = timeout
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(f *HTTPFetcher) error {
		if userAgent == "" {
			return fmt.Errorf("user agent cannot be empty")
		}
		f.userAgent = userAgent
		return nil
	}
}

// WithMaxBodySize sets the response body size cap in bytes.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) error {
		if size <= 0 {
			return fmt.Errorf("max body size must be positive, got %d", size)
		}
		f.maxBodySize = size
		return nil
	}
}

// WithAllowPrivateTargets disables the private-address guard. Meant for
// self-hosted deployments that bookmark pages on their own network; leave
// it off anywhere untrusted users can submit URLs.
func WithAllowPrivateTargets() Option {
	return func(f *HTTPFetcher) error {
		f.allowPrivate = true
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		f.logger = logger
		return nil
	}
}

// NewHTTPFetcher creates a fetcher with SSRF-guarded dialing.
func NewHTTPFetcher(opts ...Option) (*HTTPFetcher, error) {
	fetcher := &HTTPFetcher{
		client:      &http.Client{Timeout: defaultTimeout},
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		logger:      slog.Default().With("component", "fetcher"),
	}

	for _, opt := range opts {
		if err := opt(fetcher); err != nil {
			return nil, err
		}
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if !fetcher.allowPrivate {
		dialer.Control = dialControl
	}

	fetcher.client.Transport = &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	fetcher.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if fetcher.allowPrivate {
			return nil
		}
		// Each redirect hop gets the same scrutiny as the original URL
		return ValidateTarget(req.URL.String())
	}

	return fetcher, nil
}

// Fetch downloads and parses the page at rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*core.ParsedContent, error) {
	if !f.allowPrivate {
		if err := ValidateTarget(rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	f.logger.Debug("fetching page", "url", rawURL)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d from %s", ErrHTTPStatus, resp.StatusCode, rawURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return nil, fmt.Errorf("%w: %q", ErrContentType, contentType)
	}

	// Read one byte past the cap to distinguish "exactly at the limit" from
	// "over the limit"
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading body from %s: %w", rawURL, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: cap is %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	parsed, err := Parse(string(body), finalURL)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched page",
		"url", finalURL,
		"bytes", len(body),
		"title", parsed.Title)

	return parsed, nil
}

// isHTMLContentType reports whether a Content-Type header denotes an HTML
// document. An absent header is accepted; many small sites omit it.
func isHTMLContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
