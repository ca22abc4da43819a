package arr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSonarrLookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/series/lookup", r.URL.Path)
		assert.Equal(t, "Show Name", r.URL.Query().Get("term"))
		assert.Equal(t, "sonarr-key", r.Header.Get("X-Api-Key"))
		w.Write([]byte(`[{"title":"Show Name","year":2020,"tvdbId":456,"titleSlug":"show-name",
            "seasons":[{"seasonNumber":1,"monitored":true},{"seasonNumber":2,"monitored":true}]}]`))
	}))
	defer ts.Close()

	client := NewSonarrClient(ts.URL, "sonarr-key")
	results, err := client.Lookup("Show Name")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 456, results[0].TVDBID)
	assert.Len(t, results[0].Seasons, 2)
}

func TestSonarrAdd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/series", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, true, payload["monitored"])
		assert.Equal(t, true, payload["seasonFolder"])
		assert.Equal(t, float64(456), payload["tvdbId"])
		addOptions, ok := payload["addOptions"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, false, addOptions["searchForMissingEpisodes"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3,"title":"Show Name","year":2020,"tvdbId":456}`))
	}))
	defer ts.Close()

	client := NewSonarrClient(ts.URL, "sonarr-key")
	added, err := client.Add(AddSeriesRequest{
		Title:            "Show Name",
		Year:             2020,
		TVDBID:           456,
		TitleSlug:        "show-name",
		QualityProfileID: 2,
		RootFolderPath:   "/tv",
		Monitored:        true,
		SeasonFolder:     true,
		AddOptions:       SeriesAddOptions{SearchForMissingEpisodes: false},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, added.ID)
}

func TestSonarrScanDownloads(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "DownloadedEpisodesScan", payload["name"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client := NewSonarrClient(ts.URL, "sonarr-key")
	require.NoError(t, client.ScanDownloads())
}
