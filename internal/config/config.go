package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port     int    `yaml:"port"`
		DataPath string `yaml:"data_path"`
		APIKey   string `yaml:"api_key"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"app"`

	RealDebrid struct {
		APIKey        string `yaml:"api_key"`
		BaseURL       string `yaml:"base_url"`
		CheckInterval string `yaml:"check_interval"`
	} `yaml:"realdebrid"`

	JDownloader struct {
		WatchFolder string `yaml:"watch_folder"`
		AutoStart   bool   `yaml:"auto_start"`
	} `yaml:"jdownloader"`

	Radarr struct {
		URL      string `yaml:"url"`
		APIKey   string `yaml:"api_key"`
		RootPath string `yaml:"root_path"`
	} `yaml:"radarr"`

	Sonarr struct {
		URL      string `yaml:"url"`
		APIKey   string `yaml:"api_key"`
		RootPath string `yaml:"root_path"`
	} `yaml:"sonarr"`

	Organizer struct {
		SourceFolder   string `yaml:"source_folder"`
		MoviePath      string `yaml:"movie_path"`
		TVPath         string `yaml:"tv_path"`
		AutoScan       bool   `yaml:"auto_scan"`
		ScanInterval   string `yaml:"scan_interval"`
		MinFreeSpaceMB uint64 `yaml:"min_free_space_mb"`
		Stability      struct {
			PollInterval string `yaml:"poll_interval"`
			StablePolls  int    `yaml:"stable_polls"`
			Timeout      string `yaml:"timeout"`
		} `yaml:"stability"`
	} `yaml:"organizer"`

	Notifications struct {
		Pushover struct {
			APIToken string `yaml:"api_token"`
			UserKey  string `yaml:"user_key"`
		} `yaml:"pushover"`
		Pushbullet struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"pushbullet"`
	} `yaml:"notifications"`

	// path the config was loaded from, used by Save
	path string
}

func Load(path string) (*Config, error) {
	cfg := &Config{path: path}
	setDefaults(cfg)

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.App.Port = 5000
	cfg.App.DataPath = "./data"
	cfg.App.Debug = false

	cfg.RealDebrid.BaseURL = "https://api.real-debrid.com/rest/1.0"
	cfg.RealDebrid.CheckInterval = "60s"

	cfg.JDownloader.AutoStart = true

	cfg.Organizer.AutoScan = true
	cfg.Organizer.ScanInterval = "15m"
	cfg.Organizer.MinFreeSpaceMB = 512
	cfg.Organizer.Stability.PollInterval = "5s"
	cfg.Organizer.Stability.StablePolls = 3
	cfg.Organizer.Stability.Timeout = "10m"
}

// loadFromEnv overlays environment variables onto the config. A .env file in
// the working directory is honored first, so deployments migrated from the
// dotenv-based setup keep working without a YAML file.
func loadFromEnv(cfg *Config) {
	_ = godotenv.Load()

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("INTERNAL_API_KEY", &cfg.App.APIKey)
	setString("REAL_DEBRID_API_KEY", &cfg.RealDebrid.APIKey)
	setString("JDOWNLOADER_WATCH_FOLDER", &cfg.JDownloader.WatchFolder)
	setString("RADARR_URL", &cfg.Radarr.URL)
	setString("RADARR_API_KEY", &cfg.Radarr.APIKey)
	setString("RADARR_ROOT_PATH", &cfg.Radarr.RootPath)
	setString("SONARR_URL", &cfg.Sonarr.URL)
	setString("SONARR_API_KEY", &cfg.Sonarr.APIKey)
	setString("SONARR_ROOT_PATH", &cfg.Sonarr.RootPath)
	setString("SOURCE_FOLDER", &cfg.Organizer.SourceFolder)
	setString("LOCAL_MOVE_PATH", &cfg.Organizer.MoviePath)
	setString("TV_MOVE_PATH", &cfg.Organizer.TVPath)
	setString("PUSHOVER_API_TOKEN", &cfg.Notifications.Pushover.APIToken)
	setString("PUSHOVER_USER_KEY", &cfg.Notifications.Pushover.UserKey)
	setString("PUSHBULLET_API_KEY", &cfg.Notifications.Pushbullet.APIKey)

	if v := os.Getenv("CHECK_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.RealDebrid.CheckInterval = (time.Duration(secs) * time.Second).String()
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = port
		}
	}
}

// Save writes the current configuration back to the file it was loaded from.
func (cfg *Config) Save() error {
	if cfg.path == "" {
		return fmt.Errorf("config has no backing file")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(cfg.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(cfg.path, data, 0600)
}

// MissingSettings reports which core settings are still empty. The debrid
// watcher and the organizers stay disabled until this returns nothing; the
// HTTP layer uses it to decide whether the app is still in setup mode.
func (cfg *Config) MissingSettings() []string {
	type check struct {
		name  string
		value string
	}
	checks := []check{
		{"app.api_key", cfg.App.APIKey},
		{"realdebrid.api_key", cfg.RealDebrid.APIKey},
		{"jdownloader.watch_folder", cfg.JDownloader.WatchFolder},
		{"radarr.url", cfg.Radarr.URL},
		{"radarr.api_key", cfg.Radarr.APIKey},
		{"radarr.root_path", cfg.Radarr.RootPath},
		{"organizer.source_folder", cfg.Organizer.SourceFolder},
		{"organizer.movie_path", cfg.Organizer.MoviePath},
	}

	var missing []string
	for _, c := range checks {
		if c.value == "" {
			missing = append(missing, c.name)
		}
	}
	return missing
}

// IsConfigured reports whether all core settings are present.
func (cfg *Config) IsConfigured() bool {
	return len(cfg.MissingSettings()) == 0
}

// CheckInterval parses the debrid poll interval, falling back to a minute.
func (cfg *Config) CheckInterval() time.Duration {
	d, err := time.ParseDuration(cfg.RealDebrid.CheckInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// ScanInterval parses the organizer fallback scan interval.
func (cfg *Config) ScanInterval() time.Duration {
	d, err := time.ParseDuration(cfg.Organizer.ScanInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// StabilityWindow returns poll interval, required stable polls and timeout.
func (cfg *Config) StabilityWindow() (time.Duration, int, time.Duration) {
	poll, err := time.ParseDuration(cfg.Organizer.Stability.PollInterval)
	if err != nil || poll <= 0 {
		poll = 5 * time.Second
	}
	polls := cfg.Organizer.Stability.StablePolls
	if polls <= 0 {
		polls = 3
	}
	timeout, err := time.ParseDuration(cfg.Organizer.Stability.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return poll, polls, timeout
}
