// Package handlers wires the REST API, the websocket event stream and the
// embedded web UI.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/AutoDebrid/AutoDebrid/internal/config"
	"github.com/AutoDebrid/AutoDebrid/internal/core"
	"github.com/AutoDebrid/AutoDebrid/internal/utils"
	"github.com/AutoDebrid/AutoDebrid/web"
)

type Server struct {
	logger  *utils.Logger
	manager *core.Manager
	router  *mux.Router
	logPath string
	started time.Time
}

func NewServer(logger *utils.Logger, manager *core.Manager, logPath string) *Server {
	s := &Server{
		logger:  logger,
		manager: manager,
		router:  mux.NewRouter(),
		logPath: logPath,
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.apiKeyMiddleware)

	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleSaveSettings).Methods(http.MethodPost)
	api.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)

	api.HandleFunc("/debrid/start", s.handleDebridStart).Methods(http.MethodPost)
	api.HandleFunc("/debrid/stop", s.handleDebridStop).Methods(http.MethodPost)
	api.HandleFunc("/debrid/check", s.handleDebridCheck).Methods(http.MethodPost)

	api.HandleFunc("/organizer/movies", s.handleMovieOrganizer).Methods(http.MethodPost)
	api.HandleFunc("/organizer/tv", s.handleTVOrganizer).Methods(http.MethodPost)

	api.HandleFunc("/torrents", s.handleSubmitTorrent).Methods(http.MethodPost)
	api.HandleFunc("/test/{service}", s.handleTestService).Methods(http.MethodPost)

	api.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	// Embedded web UI at the root.
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(web.Static())))
}

// setupEndpoints are reachable before an internal API key is configured,
// so the UI can finish the initial setup.
var setupEndpoints = map[string]bool{
	"/api/v1/settings": true,
}

// apiKeyMiddleware enforces the internal API key. While no key is
// configured the app runs in setup mode: only the settings endpoints
// answer, and any non-empty key is accepted.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get("X-Api-Key")
		if provided == "" {
			// The websocket client cannot set headers.
			provided = r.URL.Query().Get("api_key")
		}

		var apiKey string
		s.manager.ReadConfig(func(cfg *config.Config) { apiKey = cfg.App.APIKey })

		if apiKey == "" {
			if !setupEndpoints[strings.TrimSuffix(r.URL.Path, "/")] {
				respondError(w, http.StatusForbidden, "setup incomplete: configure an internal API key first")
				return
			}
			if provided == "" {
				respondError(w, http.StatusUnauthorized, "missing API key")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if provided != apiKey {
			respondError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
