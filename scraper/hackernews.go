package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/webscrape/record"
)

// HackerNewsBaseURL is the front page of Hacker News.
const HackerNewsBaseURL = "https://news.ycombinator.com/"

// HackerNewsParser extracts stories from a Hacker News listing. Each story
// spans two table rows: the title row (tr.athing) and the row right after it
// holding the subtext (score, user, comment count).
type HackerNewsParser struct{}

// NewHackerNewsParser creates the parser for news.ycombinator.com.
func NewHackerNewsParser() *HackerNewsParser {
	return &HackerNewsParser{}
}

// Parse extracts title, link, points, author and comments for each story.
// Stories without a title link are skipped; missing subtext values fall back
// to "0" or "unknown".
func (p *HackerNewsParser) Parse(doc *goquery.Document) Page {
	var page Page
	if doc == nil {
		return page
	}

	doc.Find("tr.athing").Each(func(i int, row *goquery.Selection) {
		link := row.Find(".titleline > a, a.storylink").First()
		if link.Length() == 0 {
			page.Skipped = append(page.Skipped,
				fmt.Errorf("story %d: %w: title (.titleline > a)", i+1, ErrMissingField))
			return
		}

		subtext := row.Next().Find(".subtext")

		page.Records = append(page.Records, record.New(
			record.F("title", record.String(cleanText(link))),
			record.F("link", record.String(resolveLink(doc, link.AttrOr("href", "")))),
			record.F("points", record.String(firstWord(subtext.Find(".score").First().Text(), "0"))),
			record.F("author", record.String(authorOf(subtext))),
			record.F("comments", record.String(commentCount(subtext))),
		))
	})

	return page
}

// HackerNewsPageURL returns the URL of a numbered listing page, e.g.
// https://news.ycombinator.com/?p=2.
func HackerNewsPageURL(base string, page int) string {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Sprintf("%s?p=%d", base, page)
	}
	q := u.Query()
	q.Set("p", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func authorOf(subtext *goquery.Selection) string {
	if user := cleanText(subtext.Find(".hnuser").First()); user != "" {
		return user
	}
	return "unknown"
}

// commentCount finds the "N comments" link among the item links. A story
// with only a "discuss" link has no comments yet.
func commentCount(subtext *goquery.Selection) string {
	count := "0"
	subtext.Find(`a[href^="item?id="]`).Each(func(_ int, a *goquery.Selection) {
		text := strings.ToLower(a.Text())
		if strings.Contains(text, "comment") {
			count = firstWord(text, "0")
		}
	})
	return count
}

// resolveLink makes relative story links (Ask HN, Show HN) absolute when the
// document URL is known.
func resolveLink(doc *goquery.Document, href string) string {
	if href == "" || doc.Url == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return doc.Url.ResolveReference(ref).String()
}
