package scraper

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/webscrape/record"
)

// ErrMissingField marks a candidate record that lacked a required element.
var ErrMissingField = errors.New("missing required field")

// Parser extracts records from one site's markup. Each implementation knows
// the DOM structure of exactly one site.
type Parser interface {
	Parse(doc *goquery.Document) Page
}

// Page is the outcome of parsing one document.
type Page struct {
	// Records holds the extracted records in document order.
	Records []record.Record
	// Skipped holds one error per candidate record that could not be
	// extracted. Skipping a record never aborts the page.
	Skipped []error
}

// Empty reports whether the page produced no records.
func (p Page) Empty() bool {
	return len(p.Records) == 0
}

// Malformed reports whether the page had candidates but every one of them was
// skipped. This separates a broken page from a page that simply has no data.
func (p Page) Malformed() bool {
	return len(p.Records) == 0 && len(p.Skipped) > 0
}

// cleanText trims the text content of a selection.
func cleanText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// firstWord returns the first whitespace-separated word of text, or fallback
// if there is none.
func firstWord(text, fallback string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return fallback
	}
	return fields[0]
}
