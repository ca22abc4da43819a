package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.App.Port)
	assert.Equal(t, "https://api.real-debrid.com/rest/1.0", cfg.RealDebrid.BaseURL)
	assert.Equal(t, time.Minute, cfg.CheckInterval())
	assert.Equal(t, 15*time.Minute, cfg.ScanInterval())
	assert.True(t, cfg.JDownloader.AutoStart)
	assert.False(t, cfg.IsConfigured())
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  port: 8080
  api_key: secret
realdebrid:
  api_key: rd-token
  check_interval: 30s
organizer:
  source_folder: /downloads
  movie_path: /movies
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "secret", cfg.App.APIKey)
	assert.Equal(t, "rd-token", cfg.RealDebrid.APIKey)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval())
	assert.Equal(t, "/downloads", cfg.Organizer.SourceFolder)
	// Defaults survive a partial file.
	assert.Equal(t, "https://api.real-debrid.com/rest/1.0", cfg.RealDebrid.BaseURL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("realdebrid:\n  api_key: from-file\n"), 0600))

	t.Setenv("REAL_DEBRID_API_KEY", "from-env")
	t.Setenv("CHECK_INTERVAL_SECONDS", "120")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.RealDebrid.APIKey)
	assert.Equal(t, 2*time.Minute, cfg.CheckInterval())
	assert.Equal(t, 9090, cfg.App.Port)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.App.APIKey = "persisted"
	cfg.Organizer.MoviePath = "/movies"
	require.NoError(t, cfg.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "persisted", reloaded.App.APIKey)
	assert.Equal(t, "/movies", reloaded.Organizer.MoviePath)
}

func TestMissingSettings(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	missing := cfg.MissingSettings()
	assert.Contains(t, missing, "app.api_key")
	assert.Contains(t, missing, "realdebrid.api_key")
	assert.Contains(t, missing, "organizer.source_folder")

	cfg.App.APIKey = "k"
	cfg.RealDebrid.APIKey = "k"
	cfg.JDownloader.WatchFolder = "/watch"
	cfg.Radarr.URL = "http://radarr:7878"
	cfg.Radarr.APIKey = "k"
	cfg.Radarr.RootPath = "/movies"
	cfg.Organizer.SourceFolder = "/downloads"
	cfg.Organizer.MoviePath = "/movies"
	assert.True(t, cfg.IsConfigured())
}

func TestStabilityWindowFallbacks(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg.Organizer.Stability.PollInterval = "garbage"
	cfg.Organizer.Stability.StablePolls = 0
	cfg.Organizer.Stability.Timeout = ""

	poll, polls, timeout := cfg.StabilityWindow()
	assert.Equal(t, 5*time.Second, poll)
	assert.Equal(t, 3, polls)
	assert.Equal(t, 10*time.Minute, timeout)
}
