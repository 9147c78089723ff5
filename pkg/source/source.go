// Package source turns fetched documents into candidate publication records.
package source

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is the uniform raw record every adapter yields. PublishedRaw is
// whatever date string the source exposed; parsing happens downstream so a
// bad date never drops a record here.
type Candidate struct {
	Title        string
	Link         string
	ID           string
	PublishedRaw string
	SummaryRaw   string
	Label        string // publication type badge (Guidance, Decision, ...), listing pages only
}

// Source is the interface every adapter implements.
type Source interface {
	// Tag is the publisher tag items from this adapter carry (e.g. "ofgem").
	Tag() string
	Collect(ctx context.Context) ([]Candidate, error)
}

var spaceRE = regexp.MustCompile(`\s+`)

// htmlToText strips markup from an HTML fragment or page, dropping
// script/style/noscript subtrees and collapsing whitespace.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(spaceRE.ReplaceAllString(html, " "))
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(spaceRE.ReplaceAllString(doc.Text(), " "))
}
