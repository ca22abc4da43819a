package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AutoDebrid/AutoDebrid/internal/config"
	"github.com/AutoDebrid/AutoDebrid/internal/core"
	"github.com/AutoDebrid/AutoDebrid/internal/database"
	"github.com/AutoDebrid/AutoDebrid/internal/utils"
)

func testServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	cfg.App.APIKey = apiKey

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))

	logger := utils.NewLogger(false, io.Discard)
	manager := core.NewManager(cfg, logger, db)
	return NewServer(logger, manager, filepath.Join(t.TempDir(), "app.log"))
}

func request(t *testing.T, s *Server, method, path, apiKey string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestSetupModeAllowsOnlySetupEndpoints(t *testing.T) {
	s := testServer(t, "")

	// Settings answer with any non-empty key.
	rec := request(t, s, http.MethodGet, "/api/v1/settings", "anything", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Without a key even those are rejected.
	rec = request(t, s, http.MethodGet, "/api/v1/settings", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Everything else is locked until setup finishes.
	rec = request(t, s, http.MethodGet, "/api/v1/status", "anything", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = request(t, s, http.MethodPost, "/api/v1/debrid/stop", "anything", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = request(t, s, http.MethodGet, "/api/v1/history", "anything", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConfiguredModeEnforcesKey(t *testing.T) {
	s := testServer(t, "secret")

	rec := request(t, s, http.MethodGet, "/api/v1/status", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(t, s, http.MethodGet, "/api/v1/status", "secret", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Contains(t, status, "configured")
	assert.Contains(t, status, "debrid_running")
	assert.Contains(t, status, "processed_count")
}

func TestSaveSettingsPersistsAndReports(t *testing.T) {
	s := testServer(t, "secret")

	payload := `{
        "internal_api_key": "secret",
        "real_debrid_api_key": "rd-token",
        "jdownloader_watch_folder": "/watch",
        "radarr_url": "http://radarr:7878",
        "radarr_api_key": "key",
        "radarr_root_path": "/movies",
        "source_folder": "/downloads",
        "movie_path": "/movies",
        "check_interval": "30s"
    }`
	rec := request(t, s, http.MethodPost, "/api/v1/settings", "secret", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["saved"])
	assert.Equal(t, true, resp["configured"])

	rec = request(t, s, http.MethodGet, "/api/v1/settings", "secret", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var settings Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, "rd-token", settings.RealDebridAPIKey)
	assert.Equal(t, "30s", settings.CheckInterval)
}

func TestSaveSettingsRejectsBadInterval(t *testing.T) {
	s := testServer(t, "secret")

	rec := request(t, s, http.MethodPost, "/api/v1/settings", "secret", `{"check_interval":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitTorrentRequiresMagnet(t *testing.T) {
	s := testServer(t, "secret")

	rec := request(t, s, http.MethodPost, "/api/v1/torrents", "secret", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownTestService(t *testing.T) {
	s := testServer(t, "secret")

	rec := request(t, s, http.MethodPost, "/api/v1/test/nonsense", "secret", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryEmpty(t *testing.T) {
	s := testServer(t, "secret")

	rec := request(t, s, http.MethodGet, "/api/v1/history", "secret", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestLogsMissingFile(t *testing.T) {
	s := testServer(t, "secret")

	rec := request(t, s, http.MethodGet, "/api/v1/logs", "secret", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp["lines"])
}

func TestUIIsServed(t *testing.T) {
	s := testServer(t, "secret")

	rec := request(t, s, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AutoDebrid")
}
