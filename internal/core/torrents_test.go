package core

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAddServer(t *testing.T, selected *bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/torrents/addMagnet":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"T5","uri":"/torrents/info/T5"}`))
		case "/torrents/selectFiles/T5":
			*selected = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestSubmitMagnet(t *testing.T) {
	selected := false
	ts := fakeAddServer(t, &selected)
	defer ts.Close()

	m := testManager(t, ts.URL, t.TempDir())

	name, err := m.SubmitMagnet("magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a&dn=Test+Name")
	require.NoError(t, err)
	assert.Equal(t, "Test Name", name)
	assert.True(t, selected)
}

func TestSubmitMagnetRejectsGarbage(t *testing.T) {
	m := testManager(t, "http://unused", t.TempDir())

	_, err := m.SubmitMagnet("not a magnet link")
	assert.Error(t, err)
}

func TestSubmitTorrentFile(t *testing.T) {
	selected := false
	ts := fakeAddServer(t, &selected)
	defer ts.Close()

	m := testManager(t, ts.URL, t.TempDir())

	info := metainfo.Info{
		Name:        "Some.Release.1080p",
		PieceLength: 16384,
		Pieces:      make([]byte, 20),
		Length:      1,
	}
	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&metainfo.MetaInfo{InfoBytes: infoBytes}).Write(&buf))

	name, err := m.SubmitTorrentFile(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Some.Release.1080p", name)
	assert.True(t, selected)
}

func TestSubmitTorrentFileRejectsGarbage(t *testing.T) {
	m := testManager(t, "http://unused", t.TempDir())

	_, err := m.SubmitTorrentFile([]byte("definitely not bencode"))
	assert.Error(t, err)
}
