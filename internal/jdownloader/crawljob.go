// Package jdownloader hands downloads to JDownloader through its folder
// watch feature: a .crawljob file dropped into the watch folder is picked
// up and queued automatically.
package jdownloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AutoDebrid/AutoDebrid/internal/utils"
)

// Dropper writes .crawljob files into the JDownloader watch folder.
type Dropper struct {
	watchFolder string
	autoStart   bool
}

func NewDropper(watchFolder string, autoStart bool) *Dropper {
	return &Dropper{watchFolder: watchFolder, autoStart: autoStart}
}

// BuildCrawljob renders the key=value crawljob body for a package of links.
func BuildCrawljob(packageName string, links []string, autoStart bool) string {
	flag := "FALSE"
	if autoStart {
		flag = "TRUE"
	}

	var b strings.Builder
	b.WriteString("text=" + strings.Join(links, "\\n") + "\n")
	b.WriteString("packageName=" + packageName + "\n")
	b.WriteString("autoStart=" + flag + "\n")
	b.WriteString("forcedStart=" + flag + "\n")
	return b.String()
}

// Drop writes a crawljob for the given package into the watch folder.
// The package name doubles as the file name after sanitizing.
func (d *Dropper) Drop(packageName string, links []string) (string, error) {
	if d.watchFolder == "" {
		return "", fmt.Errorf("JDownloader watch folder is not configured")
	}
	if len(links) == 0 {
		return "", fmt.Errorf("no links to write for package %q", packageName)
	}

	name := utils.SanitizeFilename(packageName)
	if name == "" {
		return "", fmt.Errorf("package name %q sanitizes to nothing", packageName)
	}

	watchAbs, err := filepath.Abs(d.watchFolder)
	if err != nil {
		return "", err
	}
	target := filepath.Join(watchAbs, name+".crawljob")

	// The sanitized name must stay inside the watch folder.
	if !strings.HasPrefix(target, watchAbs+string(os.PathSeparator)) {
		return "", fmt.Errorf("crawljob path %q escapes the watch folder", target)
	}

	if err := os.MkdirAll(watchAbs, 0755); err != nil {
		return "", fmt.Errorf("failed to create watch folder: %w", err)
	}

	body := BuildCrawljob(packageName, links, d.autoStart)
	if err := os.WriteFile(target, []byte(body), 0644); err != nil {
		return "", fmt.Errorf("failed to write crawljob: %w", err)
	}
	return target, nil
}
