package scraper

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/webscrape/record"
)

// SelectorConfig defines how to extract records from a listing page whose
// items sit in repeated containers.
type SelectorConfig struct {
	// ItemSelector matches one container per record.
	ItemSelector string
	// Fields are extracted relative to each container, in this order.
	Fields []FieldConfig
}

// FieldConfig defines how to extract one field from a record container.
type FieldConfig struct {
	Name     string
	Selector string
	// Attr reads an attribute instead of the text content.
	Attr string
	// Multiple collects every match into a list value. An empty list is
	// valid.
	Multiple bool
	// Optional fields fall back to Default instead of skipping the record.
	Optional bool
	Default  string
}

// SelectorParser is a Parser driven entirely by a SelectorConfig.
type SelectorParser struct {
	config SelectorConfig
}

// NewSelectorParser creates a parser for the given configuration.
func NewSelectorParser(config SelectorConfig) *SelectorParser {
	return &SelectorParser{config: config}
}

// Config returns the selector configuration.
func (p *SelectorParser) Config() SelectorConfig {
	return p.config
}

// Parse extracts one record per item container. A container missing a
// required field is skipped and reported in Page.Skipped.
func (p *SelectorParser) Parse(doc *goquery.Document) Page {
	var page Page
	if doc == nil {
		return page
	}

	doc.Find(p.config.ItemSelector).Each(func(i int, item *goquery.Selection) {
		rec, err := p.extract(item)
		if err != nil {
			page.Skipped = append(page.Skipped, fmt.Errorf("item %d: %w", i+1, err))
			return
		}
		page.Records = append(page.Records, rec)
	})

	return page
}

func (p *SelectorParser) extract(item *goquery.Selection) (record.Record, error) {
	fields := make([]record.Field, 0, len(p.config.Fields))

	for _, fc := range p.config.Fields {
		matches := item.Find(fc.Selector)

		if fc.Multiple {
			values := []string{}
			matches.Each(func(_ int, s *goquery.Selection) {
				if v := fc.value(s); v != "" {
					values = append(values, v)
				}
			})
			fields = append(fields, record.F(fc.Name, record.List(values...)))
			continue
		}

		if matches.Length() == 0 {
			if !fc.Optional {
				return record.Record{}, fmt.Errorf("%w: %s (%s)", ErrMissingField, fc.Name, fc.Selector)
			}
			fields = append(fields, record.F(fc.Name, record.String(fc.Default)))
			continue
		}

		fields = append(fields, record.F(fc.Name, record.String(fc.value(matches.First()))))
	}

	return record.New(fields...), nil
}

// value reads the configured attribute or the trimmed text of s.
func (fc FieldConfig) value(s *goquery.Selection) string {
	if fc.Attr != "" {
		return s.AttrOr(fc.Attr, "")
	}
	return cleanText(s)
}
