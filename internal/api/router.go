package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openblock-labs/hwbridge/internal/audit"
)

// routes builds the HTTP router: health, REST endpoints, and the
// WebSocket upgrade path.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get(s.cfg.WebSocket.Path, s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", s.handleAPIDevices)
		r.Get("/stats", s.handleAPIStats)
		r.Get("/events", s.handleAPIEvents)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleAPIDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.catalog.List(),
		"count":   s.catalog.Count(),
	})
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"connections":     s.registry.Count(),
		"device_sessions": s.registry.SessionCount(),
		"uptime":          int64(time.Since(s.startedAt).Seconds()),
	}
	if s.auditor != nil {
		if n, err := s.auditor.Count(r.Context()); err == nil {
			stats["recorded_events"] = n
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	if s.auditor == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "audit trail disabled"})
		return
	}

	events, err := s.auditor.List(r.Context(), audit.Filter{
		DeviceID: r.URL.Query().Get("device_id"),
		Kind:     r.URL.Query().Get("kind"),
	})
	if err != nil {
		s.logger.Error("listing audit events failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		out = append(out, map[string]any{
			"id":         e.ID,
			"clientId":   e.ClientID,
			"deviceId":   e.DeviceID,
			"kind":       e.Kind,
			"detail":     e.Detail,
			"created_at": e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out, "count": len(out)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
