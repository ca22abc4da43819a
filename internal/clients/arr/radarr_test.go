package arr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRadarrLookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/movie/lookup", r.URL.Path)
		assert.Equal(t, "Movie Name 2019", r.URL.Query().Get("term"))
		assert.Equal(t, "radarr-key", r.Header.Get("X-Api-Key"))
		w.Write([]byte(`[{"title":"Movie Name","year":2019,"tmdbId":123,"titleSlug":"movie-name-123"}]`))
	}))
	defer ts.Close()

	client := NewRadarrClient(ts.URL, "radarr-key")
	results, err := client.Lookup("Movie Name 2019")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 123, results[0].TMDBID)
	assert.Equal(t, "movie-name-123", results[0].TitleSlug)
}

func TestRadarrGetByTMDBIDNotInLibrary(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/movie", r.URL.Path)
		assert.Equal(t, "123", r.URL.Query().Get("tmdbId"))
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	client := NewRadarrClient(ts.URL, "radarr-key")
	movie, err := client.GetByTMDBID(123)
	require.NoError(t, err)
	assert.Nil(t, movie)
}

func TestRadarrAdd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/movie", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, true, payload["monitored"])
		assert.Equal(t, float64(123), payload["tmdbId"])
		assert.Equal(t, "/movies", payload["rootFolderPath"])
		addOptions, ok := payload["addOptions"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, false, addOptions["searchForMovie"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"title":"Movie Name","year":2019,"tmdbId":123}`))
	}))
	defer ts.Close()

	client := NewRadarrClient(ts.URL, "radarr-key")
	added, err := client.Add(AddMovieRequest{
		Title:            "Movie Name",
		Year:             2019,
		TMDBID:           123,
		TitleSlug:        "movie-name-123",
		QualityProfileID: 1,
		RootFolderPath:   "/movies",
		Monitored:        true,
		AddOptions:       MovieAddOptions{SearchForMovie: false},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, added.ID)
}

func TestRadarrScanDownloads(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/command", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "DownloadedMoviesScan", payload["name"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"name":"DownloadedMoviesScan"}`))
	}))
	defer ts.Close()

	client := NewRadarrClient(ts.URL, "radarr-key")
	require.NoError(t, client.ScanDownloads())
}

func TestRadarrErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer ts.Close()

	client := NewRadarrClient(ts.URL, "wrong-key")
	_, err := client.RootFolders()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPickQualityProfile(t *testing.T) {
	profiles := []QualityProfile{
		{ID: 1, Name: "Any"},
		{ID: 4, Name: "HD-1080p"},
		{ID: 5, Name: "Ultra-HD"},
	}
	id, err := PickQualityProfile(profiles)
	require.NoError(t, err)
	assert.Equal(t, 4, id)

	id, err = PickQualityProfile(profiles[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = PickQualityProfile(nil)
	assert.Error(t, err)
}
