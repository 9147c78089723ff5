// Package server exposes the canonical tables over a read-only JSON API.
// Rendering, sessions and administrative CRUD live in downstream consumers.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gmcallister/regwatch/internal/store"
)

// Server provides the HTTP API.
type Server struct {
	store store.Store
	port  int
}

// New creates a new HTTP server.
func New(s store.Store, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{store: s, port: port}
}

// Handler returns the API routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/items", s.handleItems)
	mux.HandleFunc("/api/v1/items/links", s.handleItemLinks)
	mux.HandleFunc("/api/v1/controls", s.handleControls)
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("regwatch server listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// itemView is an item plus the refs of its linked controls.
type itemView struct {
	store.Item
	Controls []string `json:"controls"`
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	opts := store.ListOpts{Limit: 100}
	if src := r.URL.Query().Get("source"); src != "" {
		opts.Source = src
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		fmt.Sscanf(limit, "%d", &opts.Limit)
	}

	items, err := s.store.ListItems(r.Context(), opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	guids := make([]string, len(items))
	for i := range items {
		guids[i] = items[i].GUID
	}
	refs, err := s.store.ControlRefsForItems(r.Context(), guids)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	views := make([]itemView, len(items))
	for i := range items {
		views[i] = itemView{Item: items[i], Controls: refs[items[i].GUID]}
		if views[i].Controls == nil {
			views[i].Controls = []string{}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"count": len(views),
	})
}

func (s *Server) handleItemLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	guid := r.URL.Query().Get("guid")
	if guid == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "guid required"})
		return
	}

	links, err := s.store.ListItemLinks(r.Context(), guid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  links,
		"count": len(links),
	})
}

func (s *Server) handleControls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	controls, err := s.store.ListControls(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  controls,
		"count": len(controls),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
