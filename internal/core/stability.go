package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// pathSize returns the total byte size of a file, or the recursive size of
// a directory tree.
func pathSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			// Entries can vanish mid-walk while a download is extracting.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}

// waitForStable polls the size of a path until it stops changing for
// stablePolls consecutive polls. Downloads still being written or extracted
// keep growing, so a steady size means the path is safe to move.
func waitForStable(ctx context.Context, path string, poll time.Duration, stablePolls int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lastSize := int64(-1)
	stable := 0

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		size, err := pathSize(path)
		if err != nil {
			return fmt.Errorf("failed to measure %s: %w", path, err)
		}

		if size == lastSize {
			stable++
			if stable >= stablePolls {
				if size == 0 {
					return fmt.Errorf("%s settled at zero bytes", path)
				}
				return nil
			}
		} else {
			stable = 0
			lastSize = size
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%s did not settle within %s", path, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
