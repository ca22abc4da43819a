package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AutoDebrid/AutoDebrid/internal/clients/arr"
	"github.com/AutoDebrid/AutoDebrid/internal/database/models"
	"github.com/AutoDebrid/AutoDebrid/internal/utils"
)

// RunMovieOrganizer scans the completed downloads folder for movies, makes
// sure each one exists in Radarr, moves the files into the movie library
// and asks Radarr to re-scan. Only one run may be active at a time; the
// settings are snapshotted at the start so a concurrent save cannot change
// paths mid-run.
func (m *Manager) RunMovieOrganizer(ctx context.Context) (*RunSummary, error) {
	m.mu.Lock()
	if m.movieRunning {
		m.mu.Unlock()
		return nil, ErrOrganizerBusy
	}
	m.movieRunning = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.movieRunning = false
		m.mu.Unlock()
	}()

	set, radarr, _ := m.organizerSnapshot()
	if set.source == "" || set.moviePath == "" {
		return nil, errors.New("source folder and movie path must be configured")
	}

	if err := m.checkFreeSpace(set.moviePath, set.minFreeMB); err != nil {
		return nil, err
	}

	rootPath, profileID, err := radarrPreflight(radarr, set.radarrRoot)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(set.source)
	if err != nil {
		return nil, fmt.Errorf("failed to read source folder: %w", err)
	}

	summary := &RunSummary{}
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		rel := utils.ParseReleaseName(entry.Name())
		if rel.IsTV {
			// Left in place for the TV pass.
			continue
		}
		if !entry.IsDir() && !utils.IsVideoFile(entry.Name()) {
			summary.Skipped++
			continue
		}

		if err := m.organizeMovie(ctx, filepath.Join(set.source, entry.Name()), entry.IsDir(), rel, set, radarr, rootPath, profileID, summary); err != nil {
			summary.Errors++
			m.logger.Error("Failed to organize", entry.Name()+":", err)
			m.notify(models.EventError, "Movie organizer error", entry.Name()+": "+err.Error())
		}
	}

	if summary.Processed > 0 {
		if err := radarr.ScanDownloads(); err != nil {
			m.logger.Warn("Radarr re-scan command failed:", err)
		}
	}

	if err := m.state.Set(models.StateMovieLastRun, time.Now().UTC().Format(time.RFC3339)); err != nil {
		m.logger.Error("Failed to store movie organizer timestamp:", err)
	}

	m.logger.Info("Movie organizer finished:", summary.String())
	m.notify(models.EventRunSummary, "Movie organizer run", summary.String())
	return summary, nil
}

// radarrPreflight validates the configured root folder against Radarr and
// picks a quality profile before any file is touched.
func radarrPreflight(radarr *arr.RadarrClient, configuredRoot string) (string, int, error) {
	folders, err := radarr.RootFolders()
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch Radarr root folders: %w", err)
	}

	rootPath := configuredRoot
	found := false
	for _, f := range folders {
		if f.Path == rootPath {
			found = true
			break
		}
	}
	if !found {
		if rootPath != "" {
			return "", 0, fmt.Errorf("root path %q is not configured in Radarr", rootPath)
		}
		if len(folders) == 0 {
			return "", 0, errors.New("Radarr has no root folders configured")
		}
		rootPath = folders[0].Path
	}

	profiles, err := radarr.QualityProfiles()
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch Radarr quality profiles: %w", err)
	}
	profileID, err := arr.PickQualityProfile(profiles)
	if err != nil {
		return "", 0, err
	}
	return rootPath, profileID, nil
}

func (m *Manager) organizeMovie(ctx context.Context, srcPath string, isDir bool, rel utils.Release, set organizerSettings, radarr *arr.RadarrClient, rootPath string, profileID int, summary *RunSummary) error {
	if err := waitForStable(ctx, srcPath, set.poll, set.stablePolls, set.timeout); err != nil {
		return err
	}

	// Enumerate only after the size settled, so files that were still
	// being extracted when the scan started are included.
	var files []string
	if isDir {
		var err error
		files, err = mediaFiles(srcPath)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			summary.Skipped++
			return nil
		}
	} else {
		files = []string{srcPath}
	}

	title, year := rel.Title, rel.Year
	folder := ""
	movie, err := ensureMovieInRadarr(radarr, rel, rootPath, profileID, m.logger)
	if err != nil {
		m.logger.Warn("Radarr lookup failed for", rel.Title+":", err)
	} else if movie != nil {
		title, year = movie.Title, movie.Year
		folder = filepath.Base(movie.FolderName)
	}
	if folder == "" || folder == "." {
		folder = libraryFolder(title, year)
	}

	destDir := filepath.Join(set.moviePath, folder)

	moved := 0
	for _, file := range files {
		dst := filepath.Join(destDir, filepath.Base(file))
		switch err := moveFile(file, dst); {
		case err == nil:
			moved++
		case errors.Is(err, errDuplicate):
			m.logger.Info("Duplicate skipped, removed source:", filepath.Base(file))
		default:
			return err
		}
	}

	if isDir {
		removeIfEmpty(srcPath)
	}

	if moved == 0 {
		summary.Skipped++
		return nil
	}

	summary.Processed++
	m.logger.Info("Moved", title, "to", destDir)
	m.notify(models.EventMovieImported, "Movie imported", libraryFolder(title, year))
	return nil
}

// ensureMovieInRadarr looks the parsed release up and adds it to the
// library when missing. The add is monitored but searchForMovie stays off:
// Radarr should pick the file up from disk, not grab another copy.
func ensureMovieInRadarr(radarr *arr.RadarrClient, rel utils.Release, rootPath string, profileID int, logger *utils.Logger) (*arr.Movie, error) {
	if rel.Title == "" {
		return nil, errors.New("no title parsed from release name")
	}

	term := rel.Title
	if rel.Year > 0 {
		term = fmt.Sprintf("%s %d", rel.Title, rel.Year)
	}

	results, err := radarr.Lookup(term)
	if err != nil {
		return nil, err
	}

	var match *arr.Movie
	for i := range results {
		if results[i].TMDBID == 0 {
			continue
		}
		if rel.Year > 0 && results[i].Year != rel.Year {
			continue
		}
		match = &results[i]
		break
	}
	if match == nil && len(results) > 0 && results[0].TMDBID != 0 {
		match = &results[0]
	}
	if match == nil {
		return nil, fmt.Errorf("no lookup result for %q", term)
	}

	existing, err := radarr.GetByTMDBID(match.TMDBID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	added, err := radarr.Add(arr.AddMovieRequest{
		Title:            match.Title,
		Year:             match.Year,
		TMDBID:           match.TMDBID,
		TitleSlug:        match.TitleSlug,
		QualityProfileID: profileID,
		RootFolderPath:   rootPath,
		Monitored:        true,
		Images:           match.Images,
		AddOptions:       arr.MovieAddOptions{SearchForMovie: false},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add %q to Radarr: %w", match.Title, err)
	}
	logger.Info("Added to Radarr:", match.Title)
	return added, nil
}
