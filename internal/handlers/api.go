package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/AutoDebrid/AutoDebrid/internal/config"
	"github.com/AutoDebrid/AutoDebrid/internal/core"
	"github.com/AutoDebrid/AutoDebrid/internal/database/models"
)

// Settings is the JSON shape the UI reads and writes. The UI always
// round-trips the full document.
type Settings struct {
	InternalAPIKey string `json:"internal_api_key"`

	RealDebridAPIKey string `json:"real_debrid_api_key"`
	CheckInterval    string `json:"check_interval"`

	JDownloaderWatchFolder string `json:"jdownloader_watch_folder"`
	JDownloaderAutoStart   bool   `json:"jdownloader_auto_start"`

	RadarrURL      string `json:"radarr_url"`
	RadarrAPIKey   string `json:"radarr_api_key"`
	RadarrRootPath string `json:"radarr_root_path"`

	SonarrURL      string `json:"sonarr_url"`
	SonarrAPIKey   string `json:"sonarr_api_key"`
	SonarrRootPath string `json:"sonarr_root_path"`

	SourceFolder string `json:"source_folder"`
	MoviePath    string `json:"movie_path"`
	TVPath       string `json:"tv_path"`
	AutoScan     bool   `json:"auto_scan"`
	ScanInterval string `json:"scan_interval"`

	PushoverAPIToken string `json:"pushover_api_token"`
	PushoverUserKey  string `json:"pushover_user_key"`
	PushbulletAPIKey string `json:"pushbullet_api_key"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	processed, err := s.manager.ProcessedCount()
	if err != nil {
		s.logger.Error("Failed to count processed torrents:", err)
	}
	lastCheck, err := s.manager.LastDebridCheck()
	if err != nil {
		s.logger.Error("Failed to read last check timestamp:", err)
	}

	var configured bool
	var missing []string
	s.manager.ReadConfig(func(cfg *config.Config) {
		configured = cfg.IsConfigured()
		missing = cfg.MissingSettings()
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"configured":       configured,
		"missing_settings": missing,
		"debrid_running":   s.manager.DebridRunning(),
		"processed_count":  processed,
		"last_check":       lastCheck,
		"uptime_seconds":   int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	var out Settings
	s.manager.ReadConfig(func(cfg *config.Config) {
		out = Settings{
			InternalAPIKey:         cfg.App.APIKey,
			RealDebridAPIKey:       cfg.RealDebrid.APIKey,
			CheckInterval:          cfg.RealDebrid.CheckInterval,
			JDownloaderWatchFolder: cfg.JDownloader.WatchFolder,
			JDownloaderAutoStart:   cfg.JDownloader.AutoStart,
			RadarrURL:              cfg.Radarr.URL,
			RadarrAPIKey:           cfg.Radarr.APIKey,
			RadarrRootPath:         cfg.Radarr.RootPath,
			SonarrURL:              cfg.Sonarr.URL,
			SonarrAPIKey:           cfg.Sonarr.APIKey,
			SonarrRootPath:         cfg.Sonarr.RootPath,
			SourceFolder:           cfg.Organizer.SourceFolder,
			MoviePath:              cfg.Organizer.MoviePath,
			TVPath:                 cfg.Organizer.TVPath,
			AutoScan:               cfg.Organizer.AutoScan,
			ScanInterval:           cfg.Organizer.ScanInterval,
			PushoverAPIToken:       cfg.Notifications.Pushover.APIToken,
			PushoverUserKey:        cfg.Notifications.Pushover.UserKey,
			PushbulletAPIKey:       cfg.Notifications.Pushbullet.APIKey,
		}
	})
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var in Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}

	if in.CheckInterval != "" {
		if _, err := time.ParseDuration(in.CheckInterval); err != nil {
			respondError(w, http.StatusBadRequest, "invalid check_interval: "+err.Error())
			return
		}
	}
	if in.ScanInterval != "" {
		if _, err := time.ParseDuration(in.ScanInterval); err != nil {
			respondError(w, http.StatusBadRequest, "invalid scan_interval: "+err.Error())
			return
		}
	}

	// The mutation runs under the manager's settings lock, so background
	// loops never see a half-applied document.
	err := s.manager.ApplySettings(func(cfg *config.Config) {
		if in.CheckInterval != "" {
			cfg.RealDebrid.CheckInterval = in.CheckInterval
		}
		if in.ScanInterval != "" {
			cfg.Organizer.ScanInterval = in.ScanInterval
		}
		cfg.App.APIKey = in.InternalAPIKey
		cfg.RealDebrid.APIKey = in.RealDebridAPIKey
		cfg.JDownloader.WatchFolder = in.JDownloaderWatchFolder
		cfg.JDownloader.AutoStart = in.JDownloaderAutoStart
		cfg.Radarr.URL = in.RadarrURL
		cfg.Radarr.APIKey = in.RadarrAPIKey
		cfg.Radarr.RootPath = in.RadarrRootPath
		cfg.Sonarr.URL = in.SonarrURL
		cfg.Sonarr.APIKey = in.SonarrAPIKey
		cfg.Sonarr.RootPath = in.SonarrRootPath
		cfg.Organizer.SourceFolder = in.SourceFolder
		cfg.Organizer.MoviePath = in.MoviePath
		cfg.Organizer.TVPath = in.TVPath
		cfg.Organizer.AutoScan = in.AutoScan
		cfg.Notifications.Pushover.APIToken = in.PushoverAPIToken
		cfg.Notifications.Pushover.UserKey = in.PushoverUserKey
		cfg.Notifications.Pushbullet.APIKey = in.PushbulletAPIKey
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to persist settings: "+err.Error())
		return
	}

	var configured bool
	var missing []string
	s.manager.ReadConfig(func(cfg *config.Config) {
		configured = cfg.IsConfigured()
		missing = cfg.MissingSettings()
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"saved":            true,
		"configured":       configured,
		"missing_settings": missing,
	})
}

// handleLogs returns the tail of the application log file.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := 200
	if v := r.URL.Query().Get("lines"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 5000 {
			lines = n
		}
	}

	data, err := os.ReadFile(s.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			respondJSON(w, http.StatusOK, map[string]interface{}{"lines": []string{}})
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to read log file")
		return
	}

	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"lines": all})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := s.manager.History(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDebridStart(w http.ResponseWriter, r *http.Request) {
	var configured bool
	s.manager.ReadConfig(func(cfg *config.Config) { configured = cfg.IsConfigured() })
	if !configured {
		respondError(w, http.StatusConflict, "setup incomplete")
		return
	}
	s.manager.StartDebridWatcher()
	respondJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (s *Server) handleDebridStop(w http.ResponseWriter, r *http.Request) {
	s.manager.StopDebridWatcher()
	respondJSON(w, http.StatusOK, map[string]bool{"running": false})
}

func (s *Server) handleDebridCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.CheckDebridOnce(r.Context()); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"checked": true})
}

func (s *Server) handleMovieOrganizer(w http.ResponseWriter, r *http.Request) {
	summary, err := s.manager.RunMovieOrganizer(r.Context())
	s.respondOrganizer(w, summary, err)
}

func (s *Server) handleTVOrganizer(w http.ResponseWriter, r *http.Request) {
	summary, err := s.manager.RunTVOrganizer(r.Context())
	s.respondOrganizer(w, summary, err)
}

func (s *Server) respondOrganizer(w http.ResponseWriter, summary *core.RunSummary, err error) {
	if errors.Is(err, core.ErrOrganizerBusy) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleSubmitTorrent accepts either a JSON body with a magnet link or a
// multipart upload with a .torrent file.
func (s *Server) handleSubmitTorrent(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			respondError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
			return
		}
		file, _, err := r.FormFile("torrent")
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing torrent file")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, 10<<20))
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read torrent file")
			return
		}
		name, err := s.manager.SubmitTorrentFile(data)
		if err != nil {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		respondJSON(w, http.StatusCreated, map[string]string{"name": name})
		return
	}

	var in struct {
		Magnet string `json:"magnet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Magnet == "" {
		respondError(w, http.StatusBadRequest, "expected a JSON body with a magnet link")
		return
	}
	name, err := s.manager.SubmitMagnet(in.Magnet)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) handleTestService(w http.ResponseWriter, r *http.Request) {
	service := mux.Vars(r)["service"]

	var err error
	switch service {
	case "realdebrid":
		err = s.manager.TestRealDebrid()
	case "radarr":
		err = s.manager.TestRadarr()
	case "sonarr":
		err = s.manager.TestSonarr()
	case "notifications":
		err = s.manager.TestNotifiers()
	default:
		respondError(w, http.StatusNotFound, "unknown service: "+service)
		return
	}

	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
