package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/webscrape/config"
)

// ErrFetch is wrapped by every error returned from Fetch.
var ErrFetch = errors.New("fetch failed")

// ClientConfig is the fixed request configuration shared by every fetch. It
// is built once and never mutated.
type ClientConfig struct {
	Timeout   time.Duration
	UserAgent string
	// Delay is slept after every successful fetch to throttle requests.
	Delay time.Duration
}

// ClientConfigFrom extracts the request settings from a job configuration.
func ClientConfigFrom(cfg config.JobConfig) ClientConfig {
	return ClientConfig{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Delay:     cfg.Delay,
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

// Fetcher issues GET requests and parses the responses into DOM documents.
// A Fetcher is used by one job at a time; requests go out strictly one after
// another over a single reused http.Client.
type Fetcher struct {
	cfg    ClientConfig
	client *http.Client
	logger *slog.Logger
	sleep  SleepFunc
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient injects a custom http.Client. The configured timeout is
// still applied per request.
func WithHTTPClient(h *http.Client) Option {
	return func(f *Fetcher) {
		if h != nil {
			f.client = h
		}
	}
}

// WithLogger sets the logger used for fetch progress and failures.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithSleep replaces the post-fetch sleep.
func WithSleep(s SleepFunc) Option {
	return func(f *Fetcher) {
		if s != nil {
			f.sleep = s
		}
	}
}

// New creates a Fetcher for the given configuration.
func New(cfg ClientConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:    cfg,
		client: &http.Client{},
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Config returns the request configuration.
func (f *Fetcher) Config() ClientConfig {
	return f.cfg
}

// Fetch performs one GET of url and parses the body as HTML. Network errors,
// timeouts, non-2xx statuses and unparseable bodies are logged and returned
// as errors wrapping ErrFetch; the document is nil in that case. After a
// successful fetch it sleeps for the configured delay.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	f.logger.Info("fetching page", "url", url)

	doc, err := f.get(ctx, url)
	if err != nil {
		f.logger.Error("fetch failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}

	// Be polite to the target server
	if f.cfg.Delay > 0 {
		f.sleep(ctx, f.cfg.Delay)
	}

	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*goquery.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Bound the whole exchange, including reading the body
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	// Perform the request
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	// Check for HTTP errors
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	// Parse HTML with goquery
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	// Record the final URL so parsers can resolve relative links
	doc.Url = resp.Request.URL

	return doc, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	if ctx == nil {
		time.Sleep(d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
