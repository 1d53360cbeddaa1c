package scraper

import (
	"fmt"
	"strings"
)

// QuotesBaseURL is the listing root of quotes.toscrape.com.
const QuotesBaseURL = "http://quotes.toscrape.com/"

// QuotesConfig extracts text, author and tags from each quote block.
var QuotesConfig = SelectorConfig{
	ItemSelector: "div.quote",
	Fields: []FieldConfig{
		{Name: "text", Selector: "span.text"},
		{Name: "author", Selector: "small.author"},
		{Name: "tags", Selector: "a.tag", Multiple: true},
	},
}

// NewQuotesParser creates the parser for quotes.toscrape.com.
func NewQuotesParser() *SelectorParser {
	return NewSelectorParser(QuotesConfig)
}

// QuotesPageURL returns the URL of a numbered listing page, e.g.
// http://quotes.toscrape.com/page/2/.
func QuotesPageURL(base string, page int) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%spage/%d/", base, page)
}
