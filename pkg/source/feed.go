package source

import (
	"context"
	"fmt"
	"os"

	"github.com/mmcdole/gofeed"

	"github.com/gmcallister/regwatch/pkg/fetch"
)

// Feed collects candidates from one RSS/Atom feed. One fetch per run, no
// pagination.
type Feed struct {
	tag       string
	url       string
	fetcher   *fetch.Client
	parser    *gofeed.Parser
	fetchBody bool
}

// NewFeed creates a feed adapter. When fetchBody is set, entries without a
// usable body get their linked article fetched and stripped to text.
func NewFeed(tag, url string, fetcher *fetch.Client, fetchBody bool) *Feed {
	return &Feed{
		tag:       tag,
		url:       url,
		fetcher:   fetcher,
		parser:    gofeed.NewParser(),
		fetchBody: fetchBody,
	}
}

func (f *Feed) Tag() string { return f.tag }

func (f *Feed) Collect(ctx context.Context) ([]Candidate, error) {
	doc, err := f.fetcher.Get(ctx, f.url)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", f.tag, err)
	}

	parsed, err := f.parser.ParseString(doc)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", f.tag, err)
	}

	var candidates []Candidate
	for _, entry := range parsed.Items {
		title := entry.Title
		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		guid := entry.GUID
		if guid == "" {
			guid = link
		}
		if guid == "" {
			guid = title
		}

		published := entry.Published
		if published == "" {
			published = entry.Updated
		}

		body := htmlToText(pickEntryBody(entry))
		if body == "" && f.fetchBody && link != "" {
			page, err := f.fetcher.Get(ctx, link)
			if err != nil {
				// Keep the entry with an empty body rather than drop it.
				fmt.Fprintf(os.Stderr, "  [%s] article fetch failed for %s: %v\n", f.tag, link, err)
			} else {
				body = htmlToText(page)
			}
		}

		candidates = append(candidates, Candidate{
			Title:        title,
			Link:         link,
			ID:           guid,
			PublishedRaw: published,
			SummaryRaw:   body,
		})
	}

	return candidates, nil
}

// pickEntryBody prefers the entry summary, then description, then the first
// non-empty content block.
func pickEntryBody(entry *gofeed.Item) string {
	if entry.Description != "" {
		return entry.Description
	}
	if entry.Content != "" {
		return entry.Content
	}
	for _, ext := range entry.Extensions["content"]["encoded"] {
		if ext.Value != "" {
			return ext.Value
		}
	}
	return ""
}
