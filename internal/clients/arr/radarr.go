package arr

import (
	"fmt"
	"net/http"
	"net/url"
)

// Movie is the subset of the Radarr movie resource the organizer needs.
type Movie struct {
	ID               int     `json:"id,omitempty"`
	Title            string  `json:"title"`
	Year             int     `json:"year"`
	TMDBID           int     `json:"tmdbId"`
	TitleSlug        string  `json:"titleSlug"`
	FolderName       string  `json:"folderName,omitempty"`
	Path             string  `json:"path,omitempty"`
	Monitored        bool    `json:"monitored"`
	HasFile          bool    `json:"hasFile,omitempty"`
	QualityProfileID int     `json:"qualityProfileId,omitempty"`
	RootFolderPath   string  `json:"rootFolderPath,omitempty"`
	Images           []Image `json:"images,omitempty"`
}

// AddMovieRequest is the POST /movie payload.
type AddMovieRequest struct {
	Title            string          `json:"title"`
	Year             int             `json:"year"`
	TMDBID           int             `json:"tmdbId"`
	TitleSlug        string          `json:"titleSlug"`
	QualityProfileID int             `json:"qualityProfileId"`
	RootFolderPath   string          `json:"rootFolderPath"`
	Monitored        bool            `json:"monitored"`
	Images           []Image         `json:"images"`
	AddOptions       MovieAddOptions `json:"addOptions"`
}

type MovieAddOptions struct {
	SearchForMovie bool `json:"searchForMovie"`
}

// RadarrClient talks to a Radarr v3 instance.
type RadarrClient struct {
	httpCore
}

func NewRadarrClient(baseURL, apiKey string) *RadarrClient {
	return &RadarrClient{httpCore: newHTTPCore(baseURL, apiKey)}
}

// Lookup searches Radarr's metadata provider for a term like "Title 2019".
func (c *RadarrClient) Lookup(term string) ([]Movie, error) {
	var results []Movie
	endpoint := "/movie/lookup?term=" + url.QueryEscape(term)
	if err := c.doJSON(http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// GetByTMDBID returns the library entry for a TMDB id, or nil when the
// movie is not in the library yet.
func (c *RadarrClient) GetByTMDBID(tmdbID int) (*Movie, error) {
	var results []Movie
	endpoint := fmt.Sprintf("/movie?tmdbId=%d", tmdbID)
	if err := c.doJSON(http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Add puts a movie into the library without triggering a search.
func (c *RadarrClient) Add(req AddMovieRequest) (*Movie, error) {
	var added Movie
	if err := c.doJSON(http.MethodPost, "/movie", req, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

func (c *RadarrClient) RootFolders() ([]RootFolder, error) {
	return c.rootFolders()
}

func (c *RadarrClient) QualityProfiles() ([]QualityProfile, error) {
	return c.qualityProfiles()
}

// ScanDownloads asks Radarr to import from its completed downloads folder.
func (c *RadarrClient) ScanDownloads() error {
	return c.command("DownloadedMoviesScan")
}

// Test verifies connectivity and the API key.
func (c *RadarrClient) Test() error {
	return c.systemStatus()
}
