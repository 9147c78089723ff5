package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gmcallister/regwatch/pkg/fetch"
)

// defaultCardSelectors are tried as card containers on listing pages whose
// markup exposes no structured data. The exact markup varies per publisher,
// so the adapter degrades through several patterns.
var defaultCardSelectors = []string{
	"[data-component='publication-card']",
	".publication-card",
	"article",
	"li",
}

var typeLabels = []string{"Guidance", "Consultation", "Decision", "Call for evidence", "Report"}

var nextTextRE = regexp.MustCompile(`(?i)next`)

// Listing collects candidates from an ad-hoc HTML listing page, following
// pagination until a page yields nothing, the page ceiling is hit, or the
// computed next URL repeats the current one.
type Listing struct {
	tag       string
	url       string
	fetcher   *fetch.Client
	maxPages  int
	pageDelay time.Duration
	selectors []string
}

// NewListing creates a listing adapter with the default selector strategies,
// a 50 page ceiling and a small courtesy delay between pages.
func NewListing(tag, url string, fetcher *fetch.Client) *Listing {
	return &Listing{
		tag:       tag,
		url:       url,
		fetcher:   fetcher,
		maxPages:  50,
		pageDelay: 800 * time.Millisecond,
		selectors: defaultCardSelectors,
	}
}

func (l *Listing) Tag() string { return l.tag }

func (l *Listing) Collect(ctx context.Context) ([]Candidate, error) {
	var all []Candidate
	seen := make(map[string]struct{})

	pageURL := l.url
	for page := 1; ; page++ {
		html, err := l.fetcher.Get(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("listing %s: %w", l.tag, err)
			}
			// A later page failing abandons pagination, not the harvest.
			fmt.Fprintf(os.Stderr, "  [%s] page %d fetch failed: %v\n", l.tag, page, err)
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("parse listing %s: %w", l.tag, err)
			}
			break
		}

		found := 0
		for _, c := range l.extractPage(doc, pageURL) {
			if _, dup := seen[c.Link]; dup {
				continue
			}
			seen[c.Link] = struct{}{}
			all = append(all, c)
			found++
		}
		if found == 0 {
			break
		}

		next := findNextPage(doc, pageURL, page)
		if next == "" || next == pageURL || page >= l.maxPages {
			break
		}
		pageURL = next

		select {
		case <-ctx.Done():
			return all, nil
		case <-time.After(l.pageDelay):
		}
	}

	return all, nil
}

// extractPage tries strategies in priority order: JSON-LD article blocks
// first, then card-shaped containers.
func (l *Listing) extractPage(doc *goquery.Document, pageURL string) []Candidate {
	candidates := extractJSONLD(doc)
	candidates = append(candidates, l.extractCards(doc, pageURL)...)
	return candidates
}

// jsonLDObject is the subset of schema.org metadata listing pages embed.
type jsonLDObject struct {
	Type             string `json:"@type"`
	URL              string `json:"url"`
	MainEntityOfPage string `json:"mainEntityOfPage"`
	Headline         string `json:"headline"`
	Name             string `json:"name"`
	DatePublished    string `json:"datePublished"`
	DateModified     string `json:"dateModified"`
	Description      string `json:"description"`
}

func extractJSONLD(doc *goquery.Document) []Candidate {
	var out []Candidate

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		txt := strings.TrimSpace(s.Text())
		if txt == "" {
			return
		}

		var objs []jsonLDObject
		if strings.HasPrefix(txt, "[") {
			if err := json.Unmarshal([]byte(txt), &objs); err != nil {
				return
			}
		} else {
			var obj jsonLDObject
			if err := json.Unmarshal([]byte(txt), &obj); err != nil {
				return
			}
			objs = append(objs, obj)
		}

		for _, obj := range objs {
			switch strings.ToLower(obj.Type) {
			case "newsarticle", "blogposting":
			default:
				continue
			}
			link := obj.URL
			if link == "" {
				link = obj.MainEntityOfPage
			}
			title := strings.TrimSpace(obj.Headline)
			if title == "" {
				title = strings.TrimSpace(obj.Name)
			}
			if link == "" || title == "" {
				continue
			}
			published := obj.DatePublished
			if published == "" {
				published = obj.DateModified
			}
			out = append(out, Candidate{
				Title:        title,
				Link:         link,
				ID:           link,
				PublishedRaw: published,
				SummaryRaw:   obj.Description,
			})
		}
	})

	return out
}

// extractCards walks card containers looking for a link, a nearby date and a
// publication type badge. A card missing any of those still yields whatever
// it has; a card with no link at all is skipped.
func (l *Listing) extractCards(doc *goquery.Document, pageURL string) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})

	for _, sel := range l.selectors {
		doc.Find(sel).Each(func(_ int, node *goquery.Selection) {
			a := node.Find("a[href]").First()
			href, ok := a.Attr("href")
			if !ok || strings.HasPrefix(href, "#") {
				return
			}
			title := cleanSpace(a.Text())
			if title == "" {
				return
			}

			link := resolveURL(pageURL, href)
			if _, dup := seen[link]; dup {
				return
			}
			seen[link] = struct{}{}

			out = append(out, Candidate{
				Title:        title,
				Link:         link,
				ID:           link,
				PublishedRaw: findDateText(node),
				Label:        findTypeLabel(node),
			})
		})
	}

	return out
}

// findDateText looks for a <time datetime> attribute first, then visible time
// text, then common date class names.
func findDateText(node *goquery.Selection) string {
	t := node.Find("time[datetime]").First()
	if dt, ok := t.Attr("datetime"); ok && dt != "" {
		return dt
	}
	t = node.Find("time").First()
	if txt := cleanSpace(t.Text()); txt != "" {
		return txt
	}
	dt := node.Find(".date, .c-meta__date, .c-card__meta time, .c-card time").First()
	if v, ok := dt.Attr("datetime"); ok && v != "" {
		return v
	}
	return cleanSpace(dt.Text())
}

// findTypeLabel reads a badge/pill element, falling back to scanning the
// card's text for well-known publication types.
func findTypeLabel(node *goquery.Selection) string {
	label := node.Find(".ofgem-badge, .badge, .label, .tag, [data-component='tag']").First()
	if txt := cleanSpace(label.Text()); txt != "" {
		return txt
	}

	snippet := cleanSpace(node.Text())
	for _, guess := range typeLabels {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(guess) + `\b`)
		if re.MatchString(snippet) {
			return guess
		}
	}
	return ""
}

// findNextPage locates an explicit next link, falling back to synthesizing
// ?page=N+1 on the current URL.
func findNextPage(doc *goquery.Document, currentURL string, page int) string {
	next := doc.Find("a[rel='next']").First()
	if href, ok := next.Attr("href"); ok && href != "" {
		return resolveURL(currentURL, href)
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if nextTextRE.MatchString(cleanSpace(a.Text())) {
			if href, ok := a.Attr("href"); ok && href != "" {
				found = resolveURL(currentURL, href)
				return false
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	return setQueryParam(currentURL, "page", strconv.Itoa(page+1))
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

func setQueryParam(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func cleanSpace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}
