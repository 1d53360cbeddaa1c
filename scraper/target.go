package scraper

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownTarget is returned by Lookup for names not in the registry.
var ErrUnknownTarget = errors.New("unknown target")

// Target pairs a site with the parser that understands its markup.
type Target struct {
	Name        string
	Description string
	// BaseURL is the first listing page.
	BaseURL string
	// Prefix names the output files, e.g. quotes_20240115_103000.csv.
	Prefix string
	Parser Parser
	// PageURL builds the URL of listing page n (1-based) from a base URL.
	PageURL func(base string, page int) string
}

// URLForPage returns the URL of listing page n under base. An empty base
// means the target's own BaseURL.
func (t Target) URLForPage(base string, page int) string {
	if base == "" {
		base = t.BaseURL
	}
	if t.PageURL == nil {
		return base
	}
	return t.PageURL(base, page)
}

// Targets returns every known target sorted by name.
func Targets() []Target {
	targets := []Target{
		{
			Name:        "quotes",
			Description: "Quotes, authors and tags from quotes.toscrape.com",
			BaseURL:     QuotesBaseURL,
			Prefix:      "quotes",
			Parser:      NewQuotesParser(),
			PageURL:     QuotesPageURL,
		},
		{
			Name:        "hackernews",
			Description: "Front page stories from news.ycombinator.com",
			BaseURL:     HackerNewsBaseURL,
			Prefix:      "hackernews",
			Parser:      NewHackerNewsParser(),
			PageURL:     HackerNewsPageURL,
		},
	}

	slices.SortFunc(targets, func(a, b Target) int {
		return strings.Compare(a.Name, b.Name)
	})
	return targets
}

// Lookup finds a target by name, case-insensitively.
func Lookup(name string) (Target, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Targets() {
		if t.Name == name {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
}
