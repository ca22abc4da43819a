package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/disk"

	"github.com/AutoDebrid/AutoDebrid/internal/utils"
)

// errDuplicate marks a move whose destination already exists. The source is
// removed so it stops reappearing in every scan.
var errDuplicate = errors.New("destination already exists")

// checkFreeSpace refuses organizer runs when the destination volume is
// nearly full.
func (m *Manager) checkFreeSpace(path string, min uint64) error {
	if min == 0 {
		return nil
	}
	usage, err := disk.Usage(path)
	if err != nil {
		// A missing destination is reported by the move itself.
		m.logger.Debug("Free space check skipped for", path+":", err)
		return nil
	}
	if usage.Free < min*1024*1024 {
		return fmt.Errorf("only %d MB free on %s, need at least %d MB", usage.Free/1024/1024, path, min)
	}
	return nil
}

// mediaFiles returns the video and subtitle files under a directory,
// largest videos first so the main feature leads the list.
func mediaFiles(dir string) ([]string, error) {
	type sized struct {
		path string
		size int64
	}
	var videos []sized
	var subs []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Sample folders hold tiny decoy videos.
			if strings.EqualFold(d.Name(), "sample") {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case utils.IsVideoFile(d.Name()):
			info, err := d.Info()
			if err != nil {
				return err
			}
			videos = append(videos, sized{path: path, size: info.Size()})
		case utils.IsSubtitleFile(d.Name()):
			subs = append(subs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(videos, func(i, j int) bool { return videos[i].size > videos[j].size })

	files := make([]string, 0, len(videos)+len(subs))
	for _, v := range videos {
		files = append(files, v.path)
	}
	files = append(files, subs...)
	return files, nil
}

// moveFile relocates a file, falling back to copy-and-remove when rename
// fails across filesystems. An existing destination removes the source and
// reports errDuplicate.
func moveFile(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("failed to remove duplicate source %s: %w", src, err)
		}
		return errDuplicate
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// removeIfEmpty deletes a directory once nothing useful is left inside.
// Leftover junk (nfo, txt, images) does not keep it alive.
func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			removeIfEmpty(filepath.Join(dir, e.Name()))
			continue
		}
		if utils.IsVideoFile(e.Name()) || utils.IsSubtitleFile(e.Name()) {
			return
		}
	}
	// Re-check after pruning subdirectories.
	entries, err = os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || utils.IsVideoFile(e.Name()) || utils.IsSubtitleFile(e.Name()) {
			return
		}
	}
	os.RemoveAll(dir)
}

// libraryFolder renders "Title (Year)" for the library layout, dropping the
// year when it is unknown.
func libraryFolder(title string, year int) string {
	name := utils.SanitizeFilename(title)
	if year > 0 {
		name = fmt.Sprintf("%s (%d)", name, year)
	}
	return name
}
