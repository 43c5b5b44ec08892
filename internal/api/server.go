// Package api provides the HTTP observer API.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/castaway/internal/chronicle"
	"github.com/talgya/castaway/internal/engine"
	"github.com/talgya/castaway/internal/persistence"
	"github.com/talgya/castaway/internal/social"
)

// Server serves the island state over HTTP.
type Server struct {
	Sim     *engine.Simulation
	Eng     *engine.Engine
	Dialog  *social.DialogLog
	Chron   *chronicle.Chronicle
	Archive *persistence.Archive
	Hub     *Hub

	Port     int
	AdminKey string // bearer token for POST endpoints; empty = POST disabled

	// OnShutdown is invoked by the admin shutdown endpoint.
	OnShutdown func()

	started time.Time
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	s.started = time.Now()

	// Reflections consume oracle calls, so they are rate limited per IP.
	reflectLimiter := NewRateLimiter(10, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentRoutes(reflectLimiter))
	mux.HandleFunc("/api/v1/chronicle", s.handleChronicle)
	mux.HandleFunc("/api/v1/dialogue", s.handleDialogue)
	mux.HandleFunc("/api/v1/map", s.handleMap)

	// Live event stream (websocket).
	if s.Hub != nil {
		mux.HandleFunc("/api/v1/stream", s.Hub.handleStream)
	}

	// Admin endpoints.
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/shutdown", s.adminOnly(s.handleShutdown))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// adminOnly wraps a handler to require bearer token auth on POST
// requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.CurrentStatus()
	writeJSON(w, map[string]any{
		"name":          "Castaway Isle",
		"tick":          st.Tick,
		"clock":         st.Clock,
		"day":           st.Day,
		"season":        st.Season,
		"weather":       st.Weather,
		"alive":         st.Alive,
		"conversations": st.Conversations,
		"events":        st.Events,
		"speed":         s.Eng.Speed,
		"running":       s.Eng.Running,
		"uptime":        humanize.Time(s.started),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.AgentViews())
}

// handleAgentRoutes dispatches /api/v1/agent/{name}[/memories|/events|/reflect].
func (s *Server) handleAgentRoutes(limiter *RateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/agent/")
		name, sub, _ := strings.Cut(path, "/")
		if name == "" {
			http.Error(w, "agent name required", http.StatusBadRequest)
			return
		}

		switch sub {
		case "":
			view, err := s.Sim.AgentView(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			writeJSON(w, view)

		case "memories":
			records, err := s.Sim.AgentMemories(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			writeJSON(w, records)

		case "events":
			if s.Archive == nil {
				http.Error(w, "archive disabled", http.StatusNotFound)
				return
			}
			events, err := s.Archive.AgentEvents(name, queryLimit(r, 50))
			if err != nil {
				http.Error(w, "archive query failed", http.StatusInternalServerError)
				return
			}
			writeJSON(w, events)

		case "reflect":
			s.adminOnly(RateLimitMiddleware(limiter, func(w http.ResponseWriter, r *http.Request) {
				summary, err := s.Sim.TriggerReflection(name)
				if err != nil {
					http.Error(w, err.Error(), http.StatusNotFound)
					return
				}
				writeJSON(w, map[string]string{"agent": name, "summary": summary})
			}))(w, r)

		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) handleChronicle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Chron.Recent(queryLimit(r, 50)))
}

func (s *Server) handleDialogue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"conversations":  s.Dialog.RecentConversations(),
		"communications": s.Dialog.RecentCommunications(queryLimit(r, 50)),
	})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.CurrentMap())
}

// handleSpeed adjusts the engine speed multiplier. Zero pauses.
func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 100 {
		http.Error(w, "speed out of range", http.StatusBadRequest)
		return
	}
	s.Eng.Speed = req.Speed
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]any{"speed": req.Speed})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "shutting down"})
	if s.OnShutdown != nil {
		go s.OnShutdown()
	}
}

func queryLimit(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
