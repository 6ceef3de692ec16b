// Package fetch retrieves a document from a URL and extracts its plain text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ragerr"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

const (
	defaultMaxBytes  = 5 << 20
	defaultUserAgent = "kotae/1.0"
	acceptHeader     = "text/html,application/xhtml+xml,text/plain;q=0.9,application/pdf;q=0.8,*/*;q=0.5"
)

// Fetcher downloads a URL and turns the response into a Document.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	extractor *extract.Extractor
	logger    *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMaxBytes bounds the response body size. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent request header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewFetcher creates a fetcher. timeout bounds each whole request; zero means no client timeout.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: timeout},
		maxBytes:  defaultMaxBytes,
		userAgent: defaultUserAgent,
		extractor: extract.NewExtractor(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = utils.OrNop(f.logger)
	return f
}

// ValidateURL checks that locator is an absolute http or https URL with a host.
func ValidateURL(locator string) (*url.URL, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, ragerr.New(ragerr.KindInvalidInput, "fetch", "url is required")
	}
	u, err := url.Parse(locator)
	if err != nil {
		return nil, ragerr.New(ragerr.KindInvalidInput, "fetch", "invalid url %q: %v", locator, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ragerr.New(ragerr.KindInvalidInput, "fetch", "unsupported url scheme %q: only http and https are allowed", u.Scheme)
	}
	if u.Host == "" {
		return nil, ragerr.New(ragerr.KindInvalidInput, "fetch", "url %q has no host", locator)
	}
	return u, nil
}

// Fetch downloads locator and extracts its text. Failures are tagged with
// ragerr.KindInvalidInput for bad URLs, ragerr.KindTimeout for deadlines and
// ragerr.KindFetch otherwise.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*models.Document, error) {
	u, err := ValidateURL(locator)
	if err != nil {
		return nil, err
	}
	source := u.String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindFetch, "fetch", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr net.Error
		if ctx.Err() == context.DeadlineExceeded || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, &ragerr.Error{Kind: ragerr.KindTimeout, Op: "fetch", Err: fmt.Errorf("request %s: %w", source, err)}
		}
		return nil, ragerr.Wrap(ragerr.KindFetch, "fetch", fmt.Errorf("request %s: %w", source, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ragerr.New(ragerr.KindFetch, "fetch", "GET %s: unexpected status %s", source, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindFetch, "fetch", fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > f.maxBytes {
		return nil, ragerr.New(ragerr.KindFetch, "fetch", "document %s exceeds %d bytes", source, f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	res, err := f.extractor.Extract(body, contentType, source)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindFetch, "fetch", fmt.Errorf("extract %s: %w", source, err))
	}

	doc := &models.Document{
		URL:         source,
		Title:       res.Title,
		ContentType: string(res.Format),
		Content:     indexer.Preprocess(res.Text),
		FetchedAt:   time.Now().UTC(),
	}
	f.logger.Debug("document fetched",
		zap.String("url", source),
		zap.String("format", string(res.Format)),
		zap.Int("bytes", len(body)),
		zap.Int("characters", len([]rune(doc.Content))),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}
