package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

// SubmitMagnet validates a magnet link and adds it to the Real-Debrid
// account with all files selected. Returns the display name when the
// magnet carries one.
func (m *Manager) SubmitMagnet(magnet string) (string, error) {
	parsed, err := metainfo.ParseMagnetUri(magnet)
	if err != nil {
		return "", fmt.Errorf("invalid magnet link: %w", err)
	}

	client, _ := m.debridSnapshot()
	added, err := client.AddMagnet(magnet)
	if err != nil {
		return "", err
	}
	if err := client.SelectFiles(added.ID, "all"); err != nil {
		return "", err
	}

	name := parsed.DisplayName
	if name == "" {
		name = parsed.InfoHash.HexString()
	}
	m.logger.Info("Magnet submitted to Real-Debrid:", name)
	return name, nil
}

// SubmitTorrentFile parses an uploaded .torrent file, converts it to a
// magnet link and adds it to the Real-Debrid account.
func (m *Manager) SubmitTorrentFile(data []byte) (string, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("invalid torrent file: %w", err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return "", fmt.Errorf("invalid torrent info dictionary: %w", err)
	}

	hash := mi.HashInfoBytes()
	magnet := mi.Magnet(&hash, &info).String()

	client, _ := m.debridSnapshot()
	added, err := client.AddMagnet(magnet)
	if err != nil {
		return "", err
	}
	if err := client.SelectFiles(added.ID, "all"); err != nil {
		return "", err
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = hash.HexString()
	}
	m.logger.Info("Torrent file submitted to Real-Debrid:", name)
	return name, nil
}
