// Package arr holds clients for the Radarr and Sonarr v3 APIs. Both expose
// the same X-Api-Key transport, root-folder/quality-profile listings and
// command endpoint; only the library resources differ.
package arr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Image is the artwork reference both APIs return from their lookup
// endpoints. It is passed back verbatim when adding a library entry.
type Image struct {
	CoverType string `json:"coverType"`
	URL       string `json:"url,omitempty"`
	RemoteURL string `json:"remoteUrl,omitempty"`
}

// RootFolder is a configured library path.
type RootFolder struct {
	ID        int    `json:"id"`
	Path      string `json:"path"`
	FreeSpace int64  `json:"freeSpace"`
}

// QualityProfile is a configured quality profile.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type httpCore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newHTTPCore(baseURL, apiKey string) httpCore {
	return httpCore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// isRetryableError checks if an error is a transient network error worth
// one more attempt.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if os.IsTimeout(err) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"eof",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// doJSON performs a request against /api/v3 and decodes the JSON response
// into out (when out is non-nil). Transient transport errors get one retry.
func (c *httpCore) doJSON(method, endpoint string, payload, out interface{}) error {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		var body io.Reader
		if bodyBytes != nil {
			body = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequest(method, c.baseURL+"/api/v3"+endpoint, body)
		if err != nil {
			return err
		}
		req.Header.Set("X-Api-Key", c.apiKey)
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}
	}
	if lastErr != nil {
		return lastErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s failed with status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *httpCore) rootFolders() ([]RootFolder, error) {
	var folders []RootFolder
	if err := c.doJSON(http.MethodGet, "/rootfolder", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

func (c *httpCore) qualityProfiles() ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := c.doJSON(http.MethodGet, "/qualityprofile", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *httpCore) command(name string) error {
	payload := map[string]string{"name": name}
	return c.doJSON(http.MethodPost, "/command", payload, nil)
}

func (c *httpCore) systemStatus() error {
	return c.doJSON(http.MethodGet, "/system/status", nil, nil)
}

// PickQualityProfile prefers a profile whose name mentions 1080p and falls
// back to the first one.
func PickQualityProfile(profiles []QualityProfile) (int, error) {
	if len(profiles) == 0 {
		return 0, fmt.Errorf("no quality profiles configured")
	}
	for _, p := range profiles {
		if strings.Contains(strings.ToLower(p.Name), "1080p") {
			return p.ID, nil
		}
	}
	return profiles[0].ID, nil
}
