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

// RunTVOrganizer scans the completed downloads folder for episodes and
// season packs, makes sure each series exists in Sonarr, moves the files
// into Title (Year)/Season NN/ and asks Sonarr to re-scan. Settings are
// snapshotted at the start, same as the movie pass.
func (m *Manager) RunTVOrganizer(ctx context.Context) (*RunSummary, error) {
	m.mu.Lock()
	if m.tvRunning {
		m.mu.Unlock()
		return nil, ErrOrganizerBusy
	}
	m.tvRunning = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.tvRunning = false
		m.mu.Unlock()
	}()

	set, _, sonarr := m.organizerSnapshot()
	if set.source == "" || set.tvPath == "" {
		return nil, errors.New("source folder and TV path must be configured")
	}

	if err := m.checkFreeSpace(set.tvPath, set.minFreeMB); err != nil {
		return nil, err
	}

	rootPath, profileID, err := sonarrPreflight(sonarr, set.sonarrRoot)
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
		if !rel.IsTV {
			continue
		}

		if err := m.organizeSeries(ctx, filepath.Join(set.source, entry.Name()), entry.IsDir(), rel, set, sonarr, rootPath, profileID, summary); err != nil {
			summary.Errors++
			m.logger.Error("Failed to organize", entry.Name()+":", err)
			m.notify(models.EventError, "TV organizer error", entry.Name()+": "+err.Error())
		}
	}

	if summary.Processed > 0 {
		if err := sonarr.ScanDownloads(); err != nil {
			m.logger.Warn("Sonarr re-scan command failed:", err)
		}
	}

	if err := m.state.Set(models.StateTVLastRun, time.Now().UTC().Format(time.RFC3339)); err != nil {
		m.logger.Error("Failed to store TV organizer timestamp:", err)
	}

	m.logger.Info("TV organizer finished:", summary.String())
	m.notify(models.EventRunSummary, "TV organizer run", summary.String())
	return summary, nil
}

func sonarrPreflight(sonarr *arr.SonarrClient, configuredRoot string) (string, int, error) {
	folders, err := sonarr.RootFolders()
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch Sonarr root folders: %w", err)
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
			return "", 0, fmt.Errorf("root path %q is not configured in Sonarr", rootPath)
		}
		if len(folders) == 0 {
			return "", 0, errors.New("Sonarr has no root folders configured")
		}
		rootPath = folders[0].Path
	}

	profiles, err := sonarr.QualityProfiles()
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch Sonarr quality profiles: %w", err)
	}
	profileID, err := arr.PickQualityProfile(profiles)
	if err != nil {
		return "", 0, err
	}
	return rootPath, profileID, nil
}

func (m *Manager) organizeSeries(ctx context.Context, srcPath string, isDir bool, rel utils.Release, set organizerSettings, sonarr *arr.SonarrClient, rootPath string, profileID int, summary *RunSummary) error {
	if !isDir && !utils.IsVideoFile(srcPath) {
		summary.Skipped++
		return nil
	}

	if err := waitForStable(ctx, srcPath, set.poll, set.stablePolls, set.timeout); err != nil {
		return err
	}

	// Enumerate only after the size settled, so a pack still extracting
	// when the scan started is moved whole.
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
	series, err := ensureSeriesInSonarr(sonarr, rel, rootPath, profileID, m.logger)
	if err != nil {
		m.logger.Warn("Sonarr lookup failed for", rel.Title+":", err)
	} else if series != nil {
		title, year = series.Title, series.Year
	}

	season := rel.Season
	if season == 0 {
		season = 1
	}
	destDir := filepath.Join(
		set.tvPath,
		libraryFolder(title, year),
		fmt.Sprintf("Season %02d", season),
	)

	moved := 0
	for _, file := range files {
		// Episodes inside a season pack carry their own numbering; a pack
		// lands whole in one season folder.
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
	detail := fmt.Sprintf("%s Season %02d", libraryFolder(title, year), season)
	if !rel.IsSeasonPack && rel.Episode > 0 {
		detail = fmt.Sprintf("%s S%02dE%02d", libraryFolder(title, year), season, rel.Episode)
	}
	m.logger.Info("Moved", detail, "to", destDir)
	m.notify(models.EventEpisodeSorted, "Episode sorted", detail)
	return nil
}

// ensureSeriesInSonarr looks the parsed release up and adds the series to
// the library when missing, without searching for episodes.
func ensureSeriesInSonarr(sonarr *arr.SonarrClient, rel utils.Release, rootPath string, profileID int, logger *utils.Logger) (*arr.Series, error) {
	if rel.Title == "" {
		return nil, errors.New("no title parsed from release name")
	}

	results, err := sonarr.Lookup(rel.Title)
	if err != nil {
		return nil, err
	}

	var match *arr.Series
	for i := range results {
		if results[i].TVDBID == 0 {
			continue
		}
		if rel.Year > 0 && results[i].Year != rel.Year {
			continue
		}
		match = &results[i]
		break
	}
	if match == nil && len(results) > 0 && results[0].TVDBID != 0 {
		match = &results[0]
	}
	if match == nil {
		return nil, fmt.Errorf("no lookup result for %q", rel.Title)
	}

	existing, err := sonarr.GetByTVDBID(match.TVDBID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	added, err := sonarr.Add(arr.AddSeriesRequest{
		Title:            match.Title,
		Year:             match.Year,
		TVDBID:           match.TVDBID,
		TitleSlug:        match.TitleSlug,
		QualityProfileID: profileID,
		RootFolderPath:   rootPath,
		Monitored:        true,
		SeasonFolder:     true,
		Images:           match.Images,
		Seasons:          match.Seasons,
		AddOptions:       arr.SeriesAddOptions{SearchForMissingEpisodes: false},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add %q to Sonarr: %w", match.Title, err)
	}
	logger.Info("Added to Sonarr:", match.Title)
	return added, nil
}
