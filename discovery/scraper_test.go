package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/webscrape/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fakeFetcher serves canned HTML by URL and records every request.
type fakeFetcher struct {
	pages map[string]string
	fail  map[string]bool
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	f.calls = append(f.calls, url)
	if f.fail[url] {
		return nil, fmt.Errorf("fetch %s: %w", url, errBoom)
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", url, errBoom)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func quotePage(texts ...string) string {
	var b strings.Builder
	for _, text := range texts {
		fmt.Fprintf(&b, `<div class="quote"><span class="text">%s</span><small class="author">Anon</small></div>`, text)
	}
	return b.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTarget() scraper.Target {
	return scraper.Target{
		Name:    "quotes",
		BaseURL: "http://test/",
		Prefix:  "quotes",
		Parser:  scraper.NewQuotesParser(),
		PageURL: scraper.QuotesPageURL,
	}
}

func texts(t *testing.T, res Result) []string {
	t.Helper()
	var out []string
	for _, r := range res.Records {
		v, ok := r.Get("text")
		require.True(t, ok)
		out = append(out, v.Text())
	}
	return out
}

// TestScrapeAll_StopsOnEmptyPage verifies pages after an empty page are never
// fetched
func TestScrapeAll_StopsOnEmptyPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"http://test/page/1/": quotePage("p1a", "p1b"),
		"http://test/page/2/": quotePage("p2a"),
		"http://test/page/3/": `<div>No quotes found!</div>`,
		"http://test/page/4/": quotePage("p4a"),
		"http://test/page/5/": quotePage("p5a"),
	}}

	res := NewDriver(fetcher, quietLogger()).ScrapeAll(context.Background(), testTarget(), "", 5)

	assert.Equal(t, []string{"p1a", "p1b", "p2a"}, texts(t, res))
	assert.Equal(t, []string{"http://test/page/1/", "http://test/page/2/", "http://test/page/3/"}, fetcher.calls)
	assert.Equal(t, StopEmptyPage, res.Stop)
	assert.Equal(t, 3, res.Pages)
	assert.NoError(t, res.Err)
}

// TestScrapeAll_ZeroPages verifies no fetch happens for maxPages=0
func TestScrapeAll_ZeroPages(t *testing.T) {
	fetcher := &fakeFetcher{}

	res := NewDriver(fetcher, quietLogger()).ScrapeAll(context.Background(), testTarget(), "", 0)

	assert.Empty(t, res.Records)
	assert.Empty(t, fetcher.calls)
	assert.Equal(t, 0, res.Pages)
	assert.Equal(t, StopMaxPages, res.Stop)
}

// TestScrapeAll_MaxPages verifies the loop stops at the page limit
func TestScrapeAll_MaxPages(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"http://test/page/1/": quotePage("a"),
		"http://test/page/2/": quotePage("b"),
		"http://test/page/3/": quotePage("c"),
	}}

	res := NewDriver(fetcher, quietLogger()).ScrapeAll(context.Background(), testTarget(), "", 2)

	assert.Equal(t, []string{"a", "b"}, texts(t, res))
	assert.Len(t, fetcher.calls, 2)
	assert.Equal(t, StopMaxPages, res.Stop)
}

// TestScrapeAll_FetchFailure verifies a failed fetch ends the loop gracefully
func TestScrapeAll_FetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]string{
			"http://test/page/1/": quotePage("a"),
			"http://test/page/3/": quotePage("c"),
		},
		fail: map[string]bool{"http://test/page/2/": true},
	}

	res := NewDriver(fetcher, quietLogger()).ScrapeAll(context.Background(), testTarget(), "", 5)

	assert.Equal(t, []string{"a"}, texts(t, res))
	assert.Len(t, fetcher.calls, 2)
	assert.Equal(t, StopFetchFailed, res.Stop)
	assert.ErrorIs(t, res.Err, errBoom)
	assert.Equal(t, 1, res.Pages)
}

// TestScrapeAll_MalformedPage verifies a fully broken page is reported as such
func TestScrapeAll_MalformedPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"http://test/page/1/": quotePage("a"),
		"http://test/page/2/": `<div class="quote"><span class="text">no author</span></div>`,
	}}

	res := NewDriver(fetcher, quietLogger()).ScrapeAll(context.Background(), testTarget(), "", 5)

	assert.Equal(t, []string{"a"}, texts(t, res))
	assert.Equal(t, StopMalformedPage, res.Stop)
	assert.Equal(t, 1, res.Skipped)
}

// TestScrapeAll_CustomBase verifies the base URL override
func TestScrapeAll_CustomBase(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"http://mirror/page/1/": quotePage("m"),
	}}

	res := NewDriver(fetcher, quietLogger()).ScrapeAll(context.Background(), testTarget(), "http://mirror", 1)

	assert.Equal(t, []string{"m"}, texts(t, res))
	assert.Equal(t, []string{"http://mirror/page/1/"}, fetcher.calls)
}

// TestScrapeAll_Cancelled verifies a done context stops before fetching
func TestScrapeAll_Cancelled(t *testing.T) {
	fetcher := &fakeFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewDriver(fetcher, quietLogger()).ScrapeAll(ctx, testTarget(), "", 3)

	assert.Empty(t, fetcher.calls)
	assert.Equal(t, StopCancelled, res.Stop)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

// TestScrapeOne verifies single-page outcomes
func TestScrapeOne(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]string{
			"http://test/":      quotePage("x", "y"),
			"http://test/empty": `<p>nothing</p>`,
		},
		fail: map[string]bool{"http://test/down": true},
	}
	driver := NewDriver(fetcher, quietLogger())
	parser := scraper.NewQuotesParser()

	res := driver.ScrapeOne(context.Background(), parser, "http://test/")
	assert.Equal(t, []string{"x", "y"}, texts(t, res))
	assert.Equal(t, StopSinglePage, res.Stop)
	assert.Equal(t, 1, res.Pages)

	res = driver.ScrapeOne(context.Background(), parser, "http://test/empty")
	assert.Empty(t, res.Records)
	assert.Equal(t, StopEmptyPage, res.Stop)

	res = driver.ScrapeOne(context.Background(), parser, "http://test/down")
	assert.Empty(t, res.Records)
	assert.Equal(t, StopFetchFailed, res.Stop)
	assert.Equal(t, 0, res.Pages)
	assert.Error(t, res.Err)
}
