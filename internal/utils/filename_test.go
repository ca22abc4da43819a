package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReleaseName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Release
	}{
		{
			name: "movie with year and quality",
			in:   "Movie.Name.2019.1080p.WEB-DL.x264-GROUP",
			want: Release{Title: "Movie Name", Year: 2019, Quality: "1080p"},
		},
		{
			name: "movie with parenthesized year and extension",
			in:   "The.Matrix.(1999).720p.BluRay.mkv",
			want: Release{Title: "The Matrix", Year: 1999, Quality: "720p"},
		},
		{
			name: "episode",
			in:   "Show.Name.S02E03.1080p.WEB.x265.mkv",
			want: Release{Title: "Show Name", Season: 2, Episode: 3, Quality: "1080p", IsTV: true},
		},
		{
			name: "double episode",
			in:   "Show.Name.S01E01-E02.720p.HDTV.x264",
			want: Release{Title: "Show Name", Season: 1, Episode: 1, EndEpisode: 2, Quality: "720p", IsTV: true},
		},
		{
			name: "alternate episode numbering",
			in:   "Show.Name.4x08.HDTV.x264",
			want: Release{Title: "Show Name", Season: 4, Episode: 8, Quality: "HDTV", IsTV: true},
		},
		{
			name: "season pack",
			in:   "Show.Name.2020.S01.COMPLETE.1080p.WEB.H264-GROUP",
			want: Release{Title: "Show Name", Year: 2020, Season: 1, Quality: "1080p", IsTV: true, IsSeasonPack: true},
		},
		{
			name: "season word marker",
			in:   "Show.Name.Season.03.1080p.WEBRip",
			want: Release{Title: "Show Name", Season: 3, Quality: "1080p", IsTV: true, IsSeasonPack: true},
		},
		{
			name: "digits in title do not become episodes",
			in:   "S1m0ne.2002.1080p.WEBRip.x264",
			want: Release{Title: "S1m0ne", Year: 2002, Quality: "1080p"},
		},
		{
			name: "bare season marker without release tags stays a movie",
			in:   "Summer of S4m",
			want: Release{Title: "Summer of S4m"},
		},
		{
			name: "year inside title",
			in:   "2012.2009.1080p.BluRay.x264",
			want: Release{Title: "2012", Year: 2009, Quality: "1080p"},
		},
		{
			name: "no year no quality",
			in:   "Some Home Video",
			want: Release{Title: "Some Home Video"},
		},
		{
			name: "uhd without resolution token",
			in:   "Movie.Name.2021.UHD.BluRay.REMUX",
			want: Release{Title: "Movie Name", Year: 2021, Quality: "2160p"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReleaseName(tt.in))
		})
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Movie.Name", "Movie Name"},
		{"Movie_Name_", "Movie Name"},
		{"[Group] Movie Name", "Movie Name"},
		{"Movie Name 1080p BluRay x264", "Movie Name"},
		{"  spaced   out  ", "spaced out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanTitle(tt.in), "input %q", tt.in)
	}
}

func TestParseQuality(t *testing.T) {
	assert.Equal(t, "2160p", ParseQuality("Movie.2160p.WEB"))
	assert.Equal(t, "2160p", ParseQuality("Movie.4K.HDR.BluRay"))
	assert.Equal(t, "1080p", ParseQuality("Movie.1080p.720p"))
	assert.Equal(t, "WEB-DL", ParseQuality("Movie.WEBDL.x264"))
	assert.Equal(t, "BluRay", ParseQuality("Movie.BluRay"))
	assert.Equal(t, "", ParseQuality("Movie.Name"))
}

func TestFileTypeChecks(t *testing.T) {
	assert.True(t, IsVideoFile("movie.MKV"))
	assert.True(t, IsVideoFile("movie.mp4"))
	assert.False(t, IsVideoFile("movie.nfo"))
	assert.True(t, IsSubtitleFile("movie.srt"))
	assert.False(t, IsSubtitleFile("movie.mkv"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Movie Name", SanitizeFilename("Movie: Name?"))
	assert.Equal(t, "....evil", SanitizeFilename("../../evil"))
	assert.Equal(t, "trailing", SanitizeFilename("trailing. "))
}
