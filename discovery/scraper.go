package discovery

import (
	"context"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/webscrape/record"
	"github.com/pevans/webscrape/scraper"
)

// Fetcher retrieves and parses one page. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// StopReason records why a scrape ended.
type StopReason string

const (
	// StopSinglePage: a single-page scrape fetched and parsed its page.
	StopSinglePage StopReason = "single_page"
	// StopMaxPages: the page limit was reached.
	StopMaxPages StopReason = "max_pages"
	// StopEmptyPage: a page parsed cleanly but held no records.
	StopEmptyPage StopReason = "empty_page"
	// StopMalformedPage: a page had candidate records but all were skipped.
	StopMalformedPage StopReason = "malformed_page"
	// StopFetchFailed: the fetcher could not retrieve a page.
	StopFetchFailed StopReason = "fetch_failed"
	// StopCancelled: the context was done before the next fetch.
	StopCancelled StopReason = "cancelled"
)

// Result is the outcome of one scrape: the records of every successful page
// in page order, and how the scrape ended.
type Result struct {
	Records []record.Record
	// Pages is the number of pages fetched successfully.
	Pages int
	// Skipped is the number of malformed records dropped across all pages.
	Skipped int
	Stop    StopReason
	// Err is the fetch or context error that ended the scrape, if any.
	Err error
}

// Driver runs fetch+parse loops. It is strictly sequential: one page is
// fetched at a time and the fetcher's delay applies between pages.
type Driver struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewDriver creates a driver around the given fetcher.
func NewDriver(fetcher Fetcher, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{fetcher: fetcher, logger: logger}
}

// ScrapeOne fetches and parses a single page. A fetch failure yields an empty
// result with StopFetchFailed.
func (d *Driver) ScrapeOne(ctx context.Context, parser scraper.Parser, url string) Result {
	var res Result

	doc, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		res.Stop = StopFetchFailed
		res.Err = err
		return res
	}
	res.Pages = 1

	page := parser.Parse(doc)
	d.logSkipped(1, page.Skipped)
	res.Skipped = len(page.Skipped)
	res.Records = page.Records

	switch {
	case page.Malformed():
		res.Stop = StopMalformedPage
	case page.Empty():
		res.Stop = StopEmptyPage
	default:
		res.Stop = StopSinglePage
	}
	return res
}

// ScrapeAll walks listing pages 1..maxPages of target under baseURL (empty
// means the target's own base). It stops early when a fetch fails or a page
// yields no records; no later page is fetched in that case. maxPages <= 0
// performs no fetches at all.
func (d *Driver) ScrapeAll(ctx context.Context, target scraper.Target, baseURL string, maxPages int) Result {
	var res Result

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("scrape cancelled", "page", page, "error", err)
			res.Stop = StopCancelled
			res.Err = err
			return res
		}

		url := target.URLForPage(baseURL, page)
		d.logger.Info("scraping page", "target", target.Name, "page", page)

		doc, err := d.fetcher.Fetch(ctx, url)
		if err != nil {
			res.Stop = StopFetchFailed
			res.Err = err
			return res
		}
		res.Pages++

		parsed := target.Parser.Parse(doc)
		d.logSkipped(page, parsed.Skipped)
		res.Skipped += len(parsed.Skipped)

		if parsed.Malformed() {
			d.logger.Warn("every record on page was malformed, stopping", "page", page, "skipped", len(parsed.Skipped))
			res.Stop = StopMalformedPage
			return res
		}
		if parsed.Empty() {
			d.logger.Info("no more records found", "page", page)
			res.Stop = StopEmptyPage
			return res
		}

		res.Records = append(res.Records, parsed.Records...)
	}

	res.Stop = StopMaxPages
	return res
}

func (d *Driver) logSkipped(page int, skipped []error) {
	for _, err := range skipped {
		d.logger.Warn("skipping malformed record", "page", page, "error", err)
	}
}
