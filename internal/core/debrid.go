package core

import (
	"context"
	"fmt"
	"time"

	"github.com/AutoDebrid/AutoDebrid/internal/clients/debrid"
	"github.com/AutoDebrid/AutoDebrid/internal/database/models"
	"github.com/AutoDebrid/AutoDebrid/internal/jdownloader"
)

// StartDebridWatcher launches the Real-Debrid polling loop. Calling it
// while the loop is running is a no-op.
func (m *Manager) StartDebridWatcher() {
	m.mu.Lock()
	if m.debridCancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.debridCancel = cancel
	m.mu.Unlock()

	go m.debridLoop(ctx)

	m.logger.Info("Real-Debrid watcher started, polling every", m.checkInterval())
	m.notify(models.EventServiceStarted, "Debrid watcher started", "")
}

// StopDebridWatcher cancels the polling loop.
func (m *Manager) StopDebridWatcher() {
	m.mu.Lock()
	cancel := m.debridCancel
	m.debridCancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.logger.Info("Real-Debrid watcher stopped")
	m.notify(models.EventServiceStopped, "Debrid watcher stopped", "")
}

// DebridRunning reports whether the polling loop is active.
func (m *Manager) DebridRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debridCancel != nil
}

func (m *Manager) debridLoop(ctx context.Context) {
	// Poll once right away so a fresh start picks up waiting torrents.
	if err := m.CheckDebridOnce(ctx); err != nil {
		m.logger.Error("Real-Debrid check failed:", err)
	}

	ticker := time.NewTicker(m.checkInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.CheckDebridOnce(ctx); err != nil {
				m.logger.Error("Real-Debrid check failed:", err)
			}
		}
	}
}

// CheckDebridOnce polls Real-Debrid for finished torrents and hands the
// unrestricted links of each new one to JDownloader. The client and the
// dropper are snapshotted once so a concurrent settings save cannot swap
// them mid-pass.
func (m *Manager) CheckDebridOnce(ctx context.Context) error {
	client, dropper := m.debridSnapshot()

	torrents, err := client.ListTorrents()
	if err != nil {
		return err
	}

	for _, t := range torrents {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if t.Status != debrid.TorrentStatusDownloaded {
			continue
		}

		done, err := m.processed.IsProcessed(t.ID)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		if err := m.handOverTorrent(client, dropper, t); err != nil {
			m.logger.Error("Failed to hand over torrent", t.Filename+":", err)
		}
	}

	if err := m.state.Set(models.StateDebridLastCheck, time.Now().UTC().Format(time.RFC3339)); err != nil {
		m.logger.Error("Failed to store last check timestamp:", err)
	}
	return nil
}

// handOverTorrent unrestricts every hoster link of a finished torrent and
// drops a crawljob for them. The torrent is only marked processed after the
// crawljob file exists, so a failed write gets retried on the next poll.
func (m *Manager) handOverTorrent(client *debrid.Client, dropper *jdownloader.Dropper, t debrid.Torrent) error {
	var links []string
	for _, hosterLink := range t.Links {
		unrestricted, err := client.UnrestrictLink(hosterLink)
		if err != nil {
			m.logger.Warn("Failed to unrestrict link for", t.Filename+":", err)
			continue
		}
		links = append(links, unrestricted.Download)
	}

	// A torrent whose links all failed stays unprocessed and is retried.
	if len(links) == 0 {
		return fmt.Errorf("no links could be unrestricted for %s", t.Filename)
	}

	if _, err := dropper.Drop(t.Filename, links); err != nil {
		return err
	}

	if err := m.processed.MarkProcessed(t.ID, t.Filename); err != nil {
		return err
	}

	m.logger.Info("Sent", len(links), "links to JDownloader for", t.Filename)
	m.notify(models.EventTorrentSent, "Sent to JDownloader", fmt.Sprintf("%s (%d links)", t.Filename, len(links)))
	return nil
}
