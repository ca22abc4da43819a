package core

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcherSettle is how long the source folder has to stay quiet after the
// last filesystem event before an organizer run is triggered.
const watcherSettle = 30 * time.Second

// startFolderWatcher watches the completed downloads folder and triggers
// the organizers after activity settles. The scheduled scan remains the
// fallback for events fsnotify misses (network mounts mostly).
func (m *Manager) startFolderWatcher() {
	src := m.cfg.Organizer.SourceFolder
	if src == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Error("Failed to create folder watcher:", err)
		return
	}
	if err := watcher.Add(src); err != nil {
		m.logger.Error("Failed to watch", src+":", err)
		watcher.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.watcherCancel = cancel
	m.mu.Unlock()

	go m.folderWatchLoop(ctx, watcher)
	m.logger.Info("Watching", src, "for completed downloads")
}

func (m *Manager) folderWatchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			m.logger.Debug("Folder event:", event.String())
			if debounce == nil {
				debounce = time.NewTimer(watcherSettle)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(watcherSettle)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("Folder watcher error:", err)

		case <-debounceC:
			debounce = nil
			debounceC = nil
			m.runOrganizers(ctx, "folder activity")
		}
	}
}
