package debrid

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TorrentStatusDownloaded is the Real-Debrid status value for a torrent
// whose hoster links are ready to be unrestricted.
const TorrentStatusDownloaded = "downloaded"

// Torrent is one entry of the Real-Debrid /torrents listing.
type Torrent struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Hash     string   `json:"hash"`
	Bytes    int64    `json:"bytes"`
	Progress float64  `json:"progress"`
	Status   string   `json:"status"`
	Added    string   `json:"added"`
	Links    []string `json:"links"`
}

// UnrestrictedLink is the response of /unrestrict/link.
type UnrestrictedLink struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Download string `json:"download"`
	Host     string `json:"host"`
}

// AddedMagnet is the response of /torrents/addMagnet.
type AddedMagnet struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// Client talks to the Real-Debrid REST API with a bearer token.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(method, endpoint string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create Real-Debrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Real-Debrid request failed: %w", err)
	}
	return resp, nil
}

// ListTorrents returns the torrents on the account, newest first.
func (c *Client) ListTorrents() ([]Torrent, error) {
	resp, err := c.do(http.MethodGet, "/torrents", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// An account without torrents answers 204 with an empty body.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Real-Debrid torrent listing failed with status: %d", resp.StatusCode)
	}

	var torrents []Torrent
	if err := json.NewDecoder(resp.Body).Decode(&torrents); err != nil {
		return nil, fmt.Errorf("failed to decode Real-Debrid torrents: %w", err)
	}
	return torrents, nil
}

// UnrestrictLink converts a hoster link into a direct download link.
func (c *Client) UnrestrictLink(link string) (*UnrestrictedLink, error) {
	form := url.Values{}
	form.Set("link", link)

	resp, err := c.do(http.MethodPost, "/unrestrict/link", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Real-Debrid unrestrict failed with status: %d", resp.StatusCode)
	}

	var unrestricted UnrestrictedLink
	if err := json.NewDecoder(resp.Body).Decode(&unrestricted); err != nil {
		return nil, fmt.Errorf("failed to decode unrestricted link: %w", err)
	}
	if unrestricted.Download == "" {
		return nil, fmt.Errorf("Real-Debrid returned no download link for %s", link)
	}
	return &unrestricted, nil
}

// AddMagnet submits a magnet link to the account.
func (c *Client) AddMagnet(magnet string) (*AddedMagnet, error) {
	form := url.Values{}
	form.Set("magnet", magnet)

	resp, err := c.do(http.MethodPost, "/torrents/addMagnet", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Real-Debrid addMagnet failed with status: %d", resp.StatusCode)
	}

	var added AddedMagnet
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return nil, fmt.Errorf("failed to decode addMagnet response: %w", err)
	}
	return &added, nil
}

// SelectFiles tells Real-Debrid which files of a torrent to fetch.
// Passing "all" selects everything.
func (c *Client) SelectFiles(torrentID, files string) error {
	form := url.Values{}
	form.Set("files", files)

	resp, err := c.do(http.MethodPost, "/torrents/selectFiles/"+torrentID, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Real-Debrid selectFiles failed with status: %d", resp.StatusCode)
	}
	return nil
}

// Test verifies the API token by fetching the account info.
func (c *Client) Test() error {
	resp, err := c.do(http.MethodGet, "/user", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Real-Debrid authentication failed with status: %d", resp.StatusCode)
	}
	return nil
}
