package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmcallister/regwatch/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := httptest.NewServer(New(s, 0).Handler())
	t.Cleanup(srv.Close)
	return srv, s
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestItemsEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertItem(ctx, &store.Item{
		GUID: "g1", Source: "ofgem", Title: "Linked item", PublishedAt: "2026-01-02T00:00:00Z",
	}))
	require.NoError(t, s.UpsertItem(ctx, &store.Item{
		GUID: "g2", Source: "hse", Title: "Unlinked item", PublishedAt: "2026-01-01T00:00:00Z",
	}))

	c := &store.Control{Ref: "CAF-C1", Name: "Security Monitoring"}
	require.NoError(t, s.UpsertControl(ctx, c))
	require.NoError(t, s.ReplaceItemLinks(ctx, "g1", []store.ItemControlLink{
		{ItemGUID: "g1", ControlID: c.ID, Relevance: 0.7, CreatedAt: "2026-01-02T00:00:00Z"},
	}))

	var body struct {
		Data []struct {
			GUID     string   `json:"guid"`
			Controls []string `json:"controls"`
		} `json:"data"`
		Count int `json:"count"`
	}
	status := getJSON(t, srv.URL+"/api/v1/items", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 2, body.Count)

	assert.Equal(t, "g1", body.Data[0].GUID)
	assert.Equal(t, []string{"CAF-C1"}, body.Data[0].Controls)
	// Unlinked items carry an empty list, not null.
	assert.NotNil(t, body.Data[1].Controls)
	assert.Empty(t, body.Data[1].Controls)

	status = getJSON(t, srv.URL+"/api/v1/items?source=hse", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "g2", body.Data[0].GUID)
}

func TestItemLinksEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertItem(ctx, &store.Item{GUID: "g1", Source: "ncsc", Title: "x"}))
	c := &store.Control{Ref: "CAF-B2", Name: "Identity & Access Control"}
	require.NoError(t, s.UpsertControl(ctx, c))
	require.NoError(t, s.ReplaceItemLinks(ctx, "g1", []store.ItemControlLink{
		{ItemGUID: "g1", ControlID: c.ID, Relevance: 0.55, CreatedAt: "2026-01-02T00:00:00Z"},
	}))

	var body struct {
		Data []struct {
			Ref       string  `json:"ref"`
			Relevance float64 `json:"relevance"`
		} `json:"data"`
		Count int `json:"count"`
	}
	status := getJSON(t, srv.URL+"/api/v1/items/links?guid=g1", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "CAF-B2", body.Data[0].Ref)
	assert.Equal(t, 0.55, body.Data[0].Relevance)

	var errBody map[string]string
	status = getJSON(t, srv.URL+"/api/v1/items/links", &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestControlsEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertControl(ctx, &store.Control{
		Ref: "CAF-A2", Name: "Risk Management", Keywords: []string{"risk", "threat"},
	}))

	var body struct {
		Data []struct {
			Ref      string   `json:"ref"`
			Keywords []string `json:"keywords"`
		} `json:"data"`
		Count int `json:"count"`
	}
	status := getJSON(t, srv.URL+"/api/v1/controls", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "CAF-A2", body.Data[0].Ref)
	assert.Equal(t, []string{"risk", "threat"}, body.Data[0].Keywords)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/items", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
