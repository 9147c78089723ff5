package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gmcallister/regwatch/pkg/fetch"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Press releases</title>
  <item>
    <title>Company fined after turbine incident</title>
    <link>https://press.example.org/fined</link>
    <guid isPermaLink="false">press-001</guid>
    <pubDate>Mon, 05 Jan 2026 09:30:00 +0000</pubDate>
    <description>&lt;p&gt;A &lt;b&gt;generator&lt;/b&gt; operator was fined.&lt;/p&gt;</description>
  </item>
  <item>
    <title>Safety alert: pressure systems</title>
    <link>https://press.example.org/alert</link>
    <pubDate>Tue, 06 Jan 2026 10:00:00 +0000</pubDate>
    <description>Inspect before use.</description>
  </item>
</channel>
</rss>`

func TestFeedCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssDoc))
	}))
	defer srv.Close()

	f := NewFeed("hse", srv.URL, fetch.New(fetch.WithAttempts(1)), false)
	require.Equal(t, "hse", f.Tag())

	candidates, err := f.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	require.Equal(t, "Company fined after turbine incident", first.Title)
	require.Equal(t, "https://press.example.org/fined", first.Link)
	require.Equal(t, "press-001", first.ID)
	require.Equal(t, "Mon, 05 Jan 2026 09:30:00 +0000", first.PublishedRaw)
	// Markup in the description is stripped to text.
	require.Equal(t, "A generator operator was fined.", first.SummaryRaw)

	// An entry without a guid falls back to its link.
	second := candidates[1]
	require.Equal(t, "https://press.example.org/alert", second.ID)
}

func TestFeedCollectFetchesBodyWhenEmpty(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><script>nope()</script><p>Full article body here.</p></body></html>`))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Bare entry</title><link>` + srv.URL + `/article</link></item>
</channel></rss>`))
	})

	f := NewFeed("rea", srv.URL+"/feed", fetch.New(fetch.WithAttempts(1), fetch.WithTimeout(5*time.Second)), true)
	candidates, err := f.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "Full article body here.", candidates[0].SummaryRaw)
}

func TestFeedCollectFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFeed("hse", srv.URL, fetch.New(fetch.WithAttempts(1)), false)
	_, err := f.Collect(context.Background())
	require.Error(t, err)
}
