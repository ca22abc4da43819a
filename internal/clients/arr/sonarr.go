package arr

import (
	"fmt"
	"net/http"
	"net/url"
)

// Series is the subset of the Sonarr series resource the organizer needs.
type Series struct {
	ID               int      `json:"id,omitempty"`
	Title            string   `json:"title"`
	Year             int      `json:"year"`
	TVDBID           int      `json:"tvdbId"`
	TitleSlug        string   `json:"titleSlug"`
	Path             string   `json:"path,omitempty"`
	Monitored        bool     `json:"monitored"`
	SeasonFolder     bool     `json:"seasonFolder"`
	QualityProfileID int      `json:"qualityProfileId,omitempty"`
	RootFolderPath   string   `json:"rootFolderPath,omitempty"`
	Images           []Image  `json:"images,omitempty"`
	Seasons          []Season `json:"seasons,omitempty"`
}

type Season struct {
	SeasonNumber int  `json:"seasonNumber"`
	Monitored    bool `json:"monitored"`
}

// AddSeriesRequest is the POST /series payload.
type AddSeriesRequest struct {
	Title            string           `json:"title"`
	Year             int              `json:"year"`
	TVDBID           int              `json:"tvdbId"`
	TitleSlug        string           `json:"titleSlug"`
	QualityProfileID int              `json:"qualityProfileId"`
	RootFolderPath   string           `json:"rootFolderPath"`
	Monitored        bool             `json:"monitored"`
	SeasonFolder     bool             `json:"seasonFolder"`
	Images           []Image          `json:"images"`
	Seasons          []Season         `json:"seasons"`
	AddOptions       SeriesAddOptions `json:"addOptions"`
}

type SeriesAddOptions struct {
	SearchForMissingEpisodes bool `json:"searchForMissingEpisodes"`
}

// SonarrClient talks to a Sonarr v3 instance.
type SonarrClient struct {
	httpCore
}

func NewSonarrClient(baseURL, apiKey string) *SonarrClient {
	return &SonarrClient{httpCore: newHTTPCore(baseURL, apiKey)}
}

// Lookup searches Sonarr's metadata provider for a series title.
func (c *SonarrClient) Lookup(term string) ([]Series, error) {
	var results []Series
	endpoint := "/series/lookup?term=" + url.QueryEscape(term)
	if err := c.doJSON(http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// GetByTVDBID returns the library entry for a TVDB id, or nil when the
// series is not in the library yet.
func (c *SonarrClient) GetByTVDBID(tvdbID int) (*Series, error) {
	var results []Series
	endpoint := fmt.Sprintf("/series?tvdbId=%d", tvdbID)
	if err := c.doJSON(http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Add puts a series into the library without triggering a search.
func (c *SonarrClient) Add(req AddSeriesRequest) (*Series, error) {
	var added Series
	if err := c.doJSON(http.MethodPost, "/series", req, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

func (c *SonarrClient) RootFolders() ([]RootFolder, error) {
	return c.rootFolders()
}

func (c *SonarrClient) QualityProfiles() ([]QualityProfile, error) {
	return c.qualityProfiles()
}

// ScanDownloads asks Sonarr to import from its completed downloads folder.
func (c *SonarrClient) ScanDownloads() error {
	return c.command("DownloadedEpisodesScan")
}

// Test verifies connectivity and the API key.
func (c *SonarrClient) Test() error {
	return c.systemStatus()
}
