// Package server provides the HTTP surface of the InSync interpreter:
// status polling, pipeline commands, translation history, gesture mapping
// management, the camera stream and the status WebSocket.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/insync/internal/app"
	"github.com/ayusman/insync/internal/dispatch"
	"github.com/ayusman/insync/internal/server/api"
	"github.com/ayusman/insync/internal/store"
)

// Controller is the slice of the application the server drives. Implemented
// by *app.App; faked in tests.
type Controller interface {
	Start() error
	Stop() error
	ForceSentence() bool
	ClearAll()
	CancelAudio()
	SpeakText(text string) (int64, error)
	Replay(id int64) error
	Recent(n int) []dispatch.Record
	Status() app.Status
	LatestFrame() []byte
	ReloadMappings() error
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Control   Controller
}

// Server represents the HTTP server for the InSync application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Control != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/start", s.command(func(c Controller) error { return c.Start() }))
		s.mux.HandleFunc("/api/stop", s.command(func(c Controller) error { return c.Stop() }))
		s.mux.HandleFunc("/api/force_sentence", s.handleForceSentence)
		s.mux.HandleFunc("/api/clear", s.command(func(c Controller) error { c.ClearAll(); return nil }))
		s.mux.HandleFunc("/api/cancel_audio", s.command(func(c Controller) error { c.CancelAudio(); return nil }))
		s.mux.HandleFunc("/api/speak", s.handleSpeak)
		s.mux.HandleFunc("/api/translations", s.handleTranslations)
		s.mux.HandleFunc("/api/translations/", s.handleTranslationItem)

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Control))
		s.mux.Handle("/api/ws", NewStatusHandler(s.config.Control))
	}

	if s.config.Store != nil {
		var onChange func()
		if s.config.Control != nil {
			onChange = func() { s.config.Control.ReloadMappings() }
		}
		mappingHandler := api.NewMappingHandler(s.config.Store, onChange)
		s.mux.Handle("/api/mappings", mappingHandler)
		s.mux.Handle("/api/mappings/", mappingHandler)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	api.WriteJSON(w, http.StatusOK, s.config.Control.Status())
}

// command wraps a side-effect-only controller call as a POST handler.
func (s *Server) command(fn func(Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := fn(s.config.Control); err != nil {
			api.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// handleForceSentence handles POST /api/force_sentence.
func (s *Server) handleForceSentence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	finalized := s.config.Control.ForceSentence()
	api.WriteJSON(w, http.StatusOK, map[string]any{"finalized": finalized})
}

// handleSpeak handles POST /api/speak with body {"text": "..."}.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.config.Control.SpeakText(req.Text)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

// handleTranslations handles GET /api/translations.
func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"translations": s.config.Control.Recent(limit),
	})
}

// handleTranslationItem handles POST /api/translations/{id}/speak.
func (s *Server) handleTranslationItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/translations/")

	idStr, op, found := strings.Cut(path, "/")
	if !found || op != "speak" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid translation id")
		return
	}

	if err := s.config.Control.Replay(id); err != nil {
		api.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusAccepted, map[string]any{"id": id})
}
