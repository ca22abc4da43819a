package utils

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Release holds the information extracted from a release folder or file name.
type Release struct {
	Title        string
	Year         int
	Season       int
	Episode      int
	EndEpisode   int
	Quality      string
	IsTV         bool
	IsSeasonPack bool
}

var (
	episodePattern    = regexp.MustCompile(`(?i)\bS(\d{1,2})[. _-]?E(\d{1,3})(?:[-.]?E(\d{1,3}))?\b`)
	altEpisodePattern = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2,3})\b`)
	seasonPattern     = regexp.MustCompile(`(?i)\b(?:S(\d{1,2})|Season[. _-]?(\d{1,2}))\b`)
	delimitedYear     = regexp.MustCompile(`^(.*?)[.(\[ ]\s*((?:19|20)\d{2})\s*[).\]]`)
	bareYear          = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	bracketGroup      = regexp.MustCompile(`\[.*?\]`)
	multiSpace        = regexp.MustCompile(`\s+`)

	// Common release tags scrubbed from titles before they are used as
	// lookup terms. Deliberately aggressive; the uncleaned title is kept as
	// a fallback when scrubbing eats everything.
	releaseTags = regexp.MustCompile(`(?i)\b(2160p|1440p|1080p|720p|480p|360p|4k|uhd|bluray|blu-ray|bdrip|brrip|dvdrip|webrip|web-dl|webdl|web|hdtv|remux|x264|x265|h264|h265|h\.264|h\.265|hevc|avc|av1|aac|dts|ac3|eac3|ddp|dd|truehd|atmos|5\.1|7\.1|2\.0|hdr|hdr10|hdr10\+|dv|dolbyvision|10bit|8bit|repack|proper|internal|extended|uncut|unrated|limited|imax|multi|dual|amzn|nf|hulu|dsnp|hmax|atvp|complete)\b`)

	invalidPathChars = regexp.MustCompile(`[<>:"/\\|?*]`)

	videoExtensions = map[string]bool{
		".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
		".m4v": true, ".wmv": true, ".ts": true,
	}
	subtitleExtensions = map[string]bool{
		".srt": true, ".sub": true, ".ass": true, ".ssa": true,
	}
)

// qualityOrder is checked highest first so "2160p" wins over a stray "720p"
// token further into the name.
var qualityOrder = []string{"2160p", "1440p", "1080p", "720p", "480p", "360p"}

var sourceTags = []struct {
	token string
	label string
}{
	{"remux", "Remux"},
	{"web-dl", "WEB-DL"},
	{"webdl", "WEB-DL"},
	{"webrip", "WEBRip"},
	{"bluray", "BluRay"},
	{"blu-ray", "BluRay"},
	{"bdrip", "BDRip"},
	{"brrip", "BRRip"},
	{"hdtv", "HDTV"},
	{"dvdrip", "DVDRip"},
}

// ParseReleaseName extracts title, year and (for TV) season/episode numbers
// from a scene-style release name such as
// "Show.Name.2020.S02E03.1080p.WEB-DL.x265-GROUP".
func ParseReleaseName(name string) Release {
	rel := Release{}

	base := name
	if ext := strings.ToLower(filepath.Ext(base)); videoExtensions[ext] {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	rel.Quality = ParseQuality(base)

	titlePart := base
	if m := episodePattern.FindStringSubmatchIndex(base); m != nil {
		rel.IsTV = true
		rel.Season = atoiSubmatch(base, m, 1)
		rel.Episode = atoiSubmatch(base, m, 2)
		if m[6] >= 0 {
			rel.EndEpisode = atoiSubmatch(base, m, 3)
		}
		titlePart = base[:m[0]]
	} else if m := altEpisodePattern.FindStringSubmatchIndex(base); m != nil {
		rel.IsTV = true
		rel.Season = atoiSubmatch(base, m, 1)
		rel.Episode = atoiSubmatch(base, m, 2)
		titlePart = base[:m[0]]
	} else if m := seasonPattern.FindStringSubmatchIndex(base); m != nil && hasReleaseMarkers(base) {
		// A bare season marker only counts as a pack when the name also
		// carries release markers, otherwise titles like "S1m0ne" would
		// turn into TV packs.
		rel.IsTV = true
		rel.IsSeasonPack = true
		if m[2] >= 0 {
			rel.Season = atoiSubmatch(base, m, 1)
		} else {
			rel.Season = atoiSubmatch(base, m, 2)
		}
		titlePart = base[:m[0]]
	}

	rel.Title, rel.Year = splitTitleYear(titlePart)
	return rel
}

// splitTitleYear pulls a release year out of the leading portion of a name
// and returns the cleaned-up title next to it.
func splitTitleYear(name string) (string, int) {
	title := name
	year := 0

	if m := delimitedYear.FindStringSubmatch(name); m != nil {
		title = m[1]
		year, _ = strconv.Atoi(m[2])
	} else if m := bareYear.FindStringSubmatchIndex(name); m != nil {
		year, _ = strconv.Atoi(name[m[2]:m[3]])
		title = name[:m[0]]
	}

	cleaned := CleanTitle(title)
	if cleaned == "" {
		cleaned = strings.TrimSpace(multiSpace.ReplaceAllString(strings.NewReplacer(".", " ", "_", " ").Replace(title), " "))
	}
	return cleaned, year
}

// CleanTitle normalizes a raw release title: separators become spaces,
// bracketed groups and known release tags are dropped, whitespace collapses.
func CleanTitle(title string) string {
	t := strings.NewReplacer(".", " ", "_", " ").Replace(title)
	t = bracketGroup.ReplaceAllString(t, "")
	t = releaseTags.ReplaceAllString(t, "")
	t = multiSpace.ReplaceAllString(t, " ")
	t = strings.Trim(t, " -_")
	return t
}

// ParseQuality returns a human-readable quality label for a release name,
// preferring resolution over source tags.
func ParseQuality(name string) string {
	lower := strings.ToLower(name)
	for _, res := range qualityOrder {
		if strings.Contains(lower, res) {
			return res
		}
	}
	if strings.Contains(lower, "4k") || strings.Contains(lower, "uhd") {
		return "2160p"
	}
	for _, src := range sourceTags {
		if strings.Contains(lower, src.token) {
			return src.label
		}
	}
	return ""
}

// hasReleaseMarkers reports whether a name carries scene release tokens
// (quality, codec or streaming source).
func hasReleaseMarkers(name string) bool {
	lower := strings.ToLower(name)
	markers := []string{
		"2160p", "1080p", "720p", "480p", "4k", "bluray", "blu-ray",
		"webrip", "web-dl", "webdl", "hdtv", "remux", "bdrip",
		"x264", "x265", "h.264", "h.265", "h264", "h265", "hevc",
		"amzn", "hulu", "netflix", "dsnp", "hmax", "atvp", "nf.",
	}
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsVideoFile reports whether the file name has a known video extension.
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsSubtitleFile reports whether the file name has a known subtitle extension.
func IsSubtitleFile(name string) bool {
	return subtitleExtensions[strings.ToLower(filepath.Ext(name))]
}

// SanitizeFilename removes characters that are invalid in file paths.
func SanitizeFilename(name string) string {
	sanitized := invalidPathChars.ReplaceAllString(name, "")
	// Also remove trailing spaces or periods, which can be problematic
	sanitized = strings.TrimRight(sanitized, " .")
	return sanitized
}

func atoiSubmatch(s string, idx []int, group int) int {
	start, end := idx[2*group], idx[2*group+1]
	if start < 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[start:end])
	return n
}
