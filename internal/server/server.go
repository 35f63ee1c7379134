// Package server exposes the validated datasets over a read-only HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/laborsuche/laborsuche-cli/internal/dataset"
	"github.com/laborsuche/laborsuche-cli/internal/model"
)

// Origins of the local frontends allowed to call the API.
var allowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Server serves datasets from a Store. All endpoints are GET only; the
// server never mutates datasets on disk.
type Server struct {
	store *dataset.Store
}

func New(store *dataset.Store) *Server {
	return &Server{store: store}
}

// Router builds the HTTP handler with CORS restricted to the known
// frontend origins.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/api/datasets", s.handleDatasets)
	r.Get("/api/providers", s.handleProviders)
	r.Get("/api/providers/{city}/{category}", s.handleProvidersByKey)
	r.Get("/api/stats", s.handleStats)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Discover()
	if err != nil {
		s.internalError(w, "list datasets", err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := s.store.LoadAll(q.Get("city"), q.Get("category"))
	if err != nil {
		if errors.Is(err, model.ErrInvalidCategory) {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		s.internalError(w, "load providers", err)
		return
	}

	if status := q.Get("status"); status != "" {
		filtered := []model.Provider{}
		for _, rec := range records {
			if strings.EqualFold(string(rec.Status), status) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleProvidersByKey(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	category := chi.URLParam(r, "category")

	cat, err := model.ParseCategory(category)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	records, err := s.store.Load(city, category)
	if err != nil {
		s.internalError(w, "load dataset", err)
		return
	}

	// Stamp copies, never the cached slice the store handed back.
	stamped := make([]model.Provider, len(records))
	for i, rec := range records {
		rec.City = city
		rec.Category = cat
		stamped[i] = rec
	}
	writeJSON(w, http.StatusOK, stamped)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.internalError(w, "compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
