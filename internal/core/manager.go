// Package core runs the background machinery: the Real-Debrid watcher that
// feeds JDownloader, and the organizers that sort completed downloads into
// the movie and TV libraries.
package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AutoDebrid/AutoDebrid/internal/clients/arr"
	"github.com/AutoDebrid/AutoDebrid/internal/clients/debrid"
	"github.com/AutoDebrid/AutoDebrid/internal/clients/notifications"
	"github.com/AutoDebrid/AutoDebrid/internal/config"
	"github.com/AutoDebrid/AutoDebrid/internal/database/models"
	"github.com/AutoDebrid/AutoDebrid/internal/jdownloader"
	"github.com/AutoDebrid/AutoDebrid/internal/utils"
)

// ErrOrganizerBusy is returned when a run is requested while the previous
// one is still moving files.
var ErrOrganizerBusy = errors.New("organizer run already in progress")

// RunSummary counts the outcome of one organizer pass.
type RunSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("processed=%d skipped=%d errors=%d", s.Processed, s.Skipped, s.Errors)
}

// organizerSettings is a point-in-time copy of the organizer configuration,
// taken under the settings lock so a concurrent save cannot change values
// mid-run.
type organizerSettings struct {
	source      string
	moviePath   string
	tvPath      string
	minFreeMB   uint64
	poll        time.Duration
	stablePolls int
	timeout     time.Duration
	radarrRoot  string
	sonarrRoot  string
}

// Manager owns the clients, the scheduler and the background loops.
type Manager struct {
	logger *utils.Logger

	processed *models.ProcessedTorrentRepository
	state     *models.StateRepository
	history   *models.HistoryRepository

	// settingsMu guards cfg and everything derived from it. Settings saves
	// take the write lock; background loops snapshot what they need under
	// the read lock.
	settingsMu sync.RWMutex
	cfg        *config.Config
	debrid     *debrid.Client
	radarr     *arr.RadarrClient
	sonarr     *arr.SonarrClient
	dropper    *jdownloader.Dropper
	notifiers  []notifications.Notifier

	events *EventBus
	cron   *cron.Cron

	mu            sync.Mutex
	debridCancel  context.CancelFunc
	watcherCancel context.CancelFunc
	movieRunning  bool
	tvRunning     bool
}

func NewManager(cfg *config.Config, logger *utils.Logger, db *sql.DB) *Manager {
	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		processed: models.NewProcessedTorrentRepository(db),
		state:     models.NewStateRepository(db),
		history:   models.NewHistoryRepository(db),
		events:    NewEventBus(),
		cron:      cron.New(),
	}
	m.settingsMu.Lock()
	m.rebuildClientsLocked()
	m.settingsMu.Unlock()
	return m
}

// rebuildClientsLocked recreates the service clients from the current
// config. Callers must hold settingsMu for writing.
func (m *Manager) rebuildClientsLocked() {
	m.debrid = debrid.NewClient(m.cfg.RealDebrid.BaseURL, m.cfg.RealDebrid.APIKey)
	m.radarr = arr.NewRadarrClient(m.cfg.Radarr.URL, m.cfg.Radarr.APIKey)
	m.sonarr = arr.NewSonarrClient(m.cfg.Sonarr.URL, m.cfg.Sonarr.APIKey)
	m.dropper = jdownloader.NewDropper(m.cfg.JDownloader.WatchFolder, m.cfg.JDownloader.AutoStart)

	m.notifiers = nil
	if p := m.cfg.Notifications.Pushover; p.APIToken != "" && p.UserKey != "" {
		m.notifiers = append(m.notifiers, notifications.NewPushoverNotifier(p.APIToken, p.UserKey))
	}
	if key := m.cfg.Notifications.Pushbullet.APIKey; key != "" {
		m.notifiers = append(m.notifiers, notifications.NewPushbulletNotifier(key))
	}
}

// ApplySettings runs a config mutation under the settings lock, persists
// the result, swaps the clients and restarts the debrid watcher when it was
// running. Background loops either finish on the clients they snapshotted
// or pick the new ones up on their next run.
func (m *Manager) ApplySettings(mutate func(*config.Config)) error {
	m.mu.Lock()
	wasRunning := m.debridCancel != nil
	m.mu.Unlock()

	if wasRunning {
		m.StopDebridWatcher()
	}

	m.settingsMu.Lock()
	mutate(m.cfg)
	saveErr := m.cfg.Save()
	m.rebuildClientsLocked()
	configured := m.cfg.IsConfigured()
	m.settingsMu.Unlock()

	if wasRunning && configured {
		m.StartDebridWatcher()
	}
	return saveErr
}

// ReadConfig runs fn with the settings read lock held, so handlers can read
// config fields without racing a concurrent save.
func (m *Manager) ReadConfig(fn func(*config.Config)) {
	m.settingsMu.RLock()
	defer m.settingsMu.RUnlock()
	fn(m.cfg)
}

func (m *Manager) checkInterval() time.Duration {
	m.settingsMu.RLock()
	defer m.settingsMu.RUnlock()
	return m.cfg.CheckInterval()
}

// debridSnapshot returns the debrid client and crawljob dropper as one
// consistent pair.
func (m *Manager) debridSnapshot() (*debrid.Client, *jdownloader.Dropper) {
	m.settingsMu.RLock()
	defer m.settingsMu.RUnlock()
	return m.debrid, m.dropper
}

// organizerSnapshot copies the organizer settings and both library clients
// under the read lock.
func (m *Manager) organizerSnapshot() (organizerSettings, *arr.RadarrClient, *arr.SonarrClient) {
	m.settingsMu.RLock()
	defer m.settingsMu.RUnlock()

	poll, polls, timeout := m.cfg.StabilityWindow()
	set := organizerSettings{
		source:      m.cfg.Organizer.SourceFolder,
		moviePath:   m.cfg.Organizer.MoviePath,
		tvPath:      m.cfg.Organizer.TVPath,
		minFreeMB:   m.cfg.Organizer.MinFreeSpaceMB,
		poll:        poll,
		stablePolls: polls,
		timeout:     timeout,
		radarrRoot:  m.cfg.Radarr.RootPath,
		sonarrRoot:  m.cfg.Sonarr.RootPath,
	}
	return set, m.radarr, m.sonarr
}

// Start brings up the scheduler, the debrid watcher and the folder watcher.
// Nothing starts while the app is still in setup mode.
func (m *Manager) Start() {
	if !m.cfg.IsConfigured() {
		m.logger.Warn("Setup incomplete, background services stay offline. Missing:", m.cfg.MissingSettings())
		return
	}

	m.StartDebridWatcher()

	if m.cfg.Organizer.AutoScan {
		m.startFolderWatcher()
		interval := m.cfg.ScanInterval()
		_, err := m.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
			m.runOrganizers(context.Background(), "scheduled scan")
		})
		if err != nil {
			m.logger.Error("Failed to schedule organizer scan:", err)
		} else {
			m.logger.Info("Organizer scan scheduled every", interval)
		}
	}

	m.cron.Start()
}

// Stop shuts the scheduler and every background loop down.
func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()

	m.StopDebridWatcher()

	m.mu.Lock()
	if m.watcherCancel != nil {
		m.watcherCancel()
		m.watcherCancel = nil
	}
	m.mu.Unlock()

	m.logger.Info("Background services stopped")
}

// Events exposes the bus for the websocket handler.
func (m *Manager) Events() *EventBus {
	return m.events
}

// ProcessedCount returns how many torrents were handed to JDownloader.
func (m *Manager) ProcessedCount() (int, error) {
	return m.processed.Count()
}

// History returns the most recent activity entries.
func (m *Manager) History(limit int) ([]models.HistoryEntry, error) {
	return m.history.Recent(limit)
}

// LastDebridCheck returns the stored timestamp of the last poll.
func (m *Manager) LastDebridCheck() (string, error) {
	return m.state.Get(models.StateDebridLastCheck)
}

// TestRealDebrid verifies the Real-Debrid token.
func (m *Manager) TestRealDebrid() error {
	client, _ := m.debridSnapshot()
	return client.Test()
}

// TestRadarr verifies Radarr connectivity.
func (m *Manager) TestRadarr() error {
	_, radarr, _ := m.organizerSnapshot()
	return radarr.Test()
}

// TestSonarr verifies Sonarr connectivity.
func (m *Manager) TestSonarr() error {
	_, _, sonarr := m.organizerSnapshot()
	return sonarr.Test()
}

// TestNotifiers sends a test message through every configured notifier.
func (m *Manager) TestNotifiers() error {
	m.settingsMu.RLock()
	notifiers := m.notifiers
	m.settingsMu.RUnlock()

	if len(notifiers) == 0 {
		return errors.New("no notification services configured")
	}
	for _, n := range notifiers {
		if err := n.Test(); err != nil {
			return fmt.Errorf("%s: %w", n.Name(), err)
		}
	}
	return nil
}

// notify fans a message out to all configured notifiers and the event bus.
func (m *Manager) notify(eventType, title, detail string) {
	m.events.Publish(eventType, title, detail)
	if err := m.history.Add(eventType, title, detail); err != nil {
		m.logger.Error("Failed to record history entry:", err)
	}

	m.settingsMu.RLock()
	notifiers := m.notifiers
	m.settingsMu.RUnlock()

	for _, n := range notifiers {
		if err := n.Send(title, detail); err != nil {
			m.logger.Warn("Notification via", n.Name(), "failed:", err)
		}
	}
}

// runOrganizers performs a movie pass followed by a TV pass, skipping
// whichever is already running.
func (m *Manager) runOrganizers(ctx context.Context, reason string) {
	m.logger.Debug("Organizer run triggered:", reason)

	if _, err := m.RunMovieOrganizer(ctx); err != nil && err != ErrOrganizerBusy {
		m.logger.Error("Movie organizer failed:", err)
	}
	if _, err := m.RunTVOrganizer(ctx); err != nil && err != ErrOrganizerBusy {
		m.logger.Error("TV organizer failed:", err)
	}
}
