package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/gmcallister/regwatch/pkg/fetch"
)

func newTestListing(tag, url string) *Listing {
	l := NewListing(tag, url, fetch.New(fetch.WithAttempts(1)))
	l.pageDelay = 0
	return l
}

func TestListingCollectPaginates(t *testing.T) {
	page1 := `<html><body>
	<article>
	  <a href="/publications/alpha">Alpha decision</a>
	  <time datetime="2026-01-10">10 January 2026</time>
	  <span class="badge">Decision</span>
	</article>
	<article>
	  <a href="/publications/beta">Beta consultation</a>
	  <span class="date">12 January 2026</span>
	</article>
	</body></html>`

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`<html><body><p>No more results</p></body></html>`))
			return
		}
		w.Write([]byte(page1))
	}))
	defer srv.Close()

	l := newTestListing("ofgem", srv.URL+"/publications")
	candidates, err := l.Collect(context.Background())
	require.NoError(t, err)
	// Page 1 yields two cards; the synthesized ?page=2 yields none and
	// pagination stops.
	require.EqualValues(t, 2, calls.Load())
	require.Len(t, candidates, 2)

	alpha := candidates[0]
	require.Equal(t, "Alpha decision", alpha.Title)
	require.Equal(t, srv.URL+"/publications/alpha", alpha.Link)
	require.Equal(t, alpha.Link, alpha.ID)
	require.Equal(t, "2026-01-10", alpha.PublishedRaw)
	require.Equal(t, "Decision", alpha.Label)

	beta := candidates[1]
	require.Equal(t, "12 January 2026", beta.PublishedRaw)
}

func TestListingCollectStopsOnRepeatedNext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`<html><body>
		<article><a href="/item/one">Item one</a></article>
		<a rel="next" href="/list">Older</a>
		</body></html>`))
	}))
	defer srv.Close()

	l := newTestListing("dcode", srv.URL+"/list")
	candidates, err := l.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	// The next link resolves to the current page, which ends pagination
	// instead of looping.
	require.EqualValues(t, 1, calls.Load())
}

func TestListingCollectFirstPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	l := newTestListing("ena", srv.URL)
	_, err := l.Collect(context.Background())
	require.Error(t, err)
}

func TestListingCollectLaterPageFailureKeepsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`<html><body><article><a href="/a">First page entry</a></article></body></html>`))
	}))
	defer srv.Close()

	l := newTestListing("neso", srv.URL+"/media")
	candidates, err := l.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}

func TestExtractJSONLD(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	[
	  {"@type":"NewsArticle","url":"https://example.org/news/1","headline":"Grid update","datePublished":"2026-02-01","description":"Short blurb."},
	  {"@type":"BreadcrumbList","url":"https://example.org/","name":"Home"},
	  {"@type":"BlogPosting","mainEntityOfPage":"https://example.org/blog/2","name":"Named posting","dateModified":"2026-02-03"}
	]
	</script>
	</head><body></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	out := extractJSONLD(doc)
	require.Len(t, out, 2)

	require.Equal(t, "Grid update", out[0].Title)
	require.Equal(t, "https://example.org/news/1", out[0].Link)
	require.Equal(t, "2026-02-01", out[0].PublishedRaw)
	require.Equal(t, "Short blurb.", out[0].SummaryRaw)

	// mainEntityOfPage, name and dateModified are the fallbacks.
	require.Equal(t, "Named posting", out[1].Title)
	require.Equal(t, "https://example.org/blog/2", out[1].Link)
	require.Equal(t, "2026-02-03", out[1].PublishedRaw)
}

func TestFindTypeLabelFromText(t *testing.T) {
	html := `<article><a href="/x">Charging arrangements</a>
	<p>Open consultation closing in March.</p></article>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	require.Equal(t, "Consultation", findTypeLabel(doc.Find("article").First()))
}

func TestSetQueryParam(t *testing.T) {
	require.Equal(t,
		"https://example.org/list?page=2",
		setQueryParam("https://example.org/list", "page", "2"))
	require.Equal(t,
		"https://example.org/list?page=3&q=caf",
		setQueryParam("https://example.org/list?q=caf&page=2", "page", "3"))
}

func TestResolveURL(t *testing.T) {
	require.Equal(t,
		"https://example.org/pubs/a",
		resolveURL("https://example.org/pubs/", "a"))
	require.Equal(t,
		"https://example.org/a",
		resolveURL("https://example.org/pubs/", "/a"))
	require.Equal(t,
		"https://other.org/b",
		resolveURL("https://example.org/", "https://other.org/b"))
}
