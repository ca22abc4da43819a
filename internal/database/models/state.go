package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Keys used in the service_state table.
const (
	StateDebridLastCheck = "debrid_last_check"
	StateMovieLastRun    = "movie_organizer_last_run"
	StateTVLastRun       = "tv_organizer_last_run"
)

// History event types.
const (
	EventTorrentSent    = "torrent_sent"
	EventMovieImported  = "movie_imported"
	EventEpisodeSorted  = "episode_sorted"
	EventServiceStarted = "service_started"
	EventServiceStopped = "service_stopped"
	EventRunSummary     = "run_summary"
	EventError          = "error"
)

// HistoryEntry is one row of the activity feed shown in the UI.
type HistoryEntry struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// ProcessedTorrentRepository tracks Real-Debrid torrent IDs that already had
// their links handed to JDownloader, so restarts never resend them.
type ProcessedTorrentRepository struct {
	db *sql.DB
}

func NewProcessedTorrentRepository(db *sql.DB) *ProcessedTorrentRepository {
	return &ProcessedTorrentRepository{db: db}
}

func (r *ProcessedTorrentRepository) IsProcessed(id string) (bool, error) {
	var one int
	err := r.db.QueryRow("SELECT 1 FROM processed_torrents WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ProcessedTorrentRepository) MarkProcessed(id, name string) error {
	_, err := r.db.Exec(
		"INSERT OR IGNORE INTO processed_torrents (id, name) VALUES (?, ?)",
		id, name,
	)
	return err
}

func (r *ProcessedTorrentRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM processed_torrents").Scan(&n)
	return n, err
}

// StateRepository is a key/value store for last-check timestamps and other
// small bits of loop state.
type StateRepository struct {
	db *sql.DB
}

func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) Set(key, value string) error {
	_, err := r.db.Exec(`
        INSERT INTO service_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
    `, key, value)
	return err
}

func (r *StateRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM service_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// HistoryRepository records activity events for the UI feed.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Add(eventType, title, detail string) error {
	_, err := r.db.Exec(
		"INSERT INTO history (id, event_type, title, detail) VALUES (?, ?, ?, ?)",
		uuid.NewString(), eventType, title, detail,
	)
	return err
}

func (r *HistoryRepository) Recent(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
        SELECT id, event_type, title, detail, created_at
        FROM history ORDER BY created_at DESC, id LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.Title, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
