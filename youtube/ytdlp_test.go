package youtube

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"captext/internal/retry"
)

// noRetry keeps failure tests fast.
var noRetry = retry.Config{
	MaxRetries:     0,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     time.Millisecond,
	Multiplier:     2.0,
}

func TestCheckInstalledMissing(t *testing.T) {
	err := CheckInstalled(context.Background(), "/nonexistent/path/to/yt-dlp")
	if !errors.Is(err, ErrYtdlpNotInstalled) {
		t.Errorf("CheckInstalled() error = %v, want ErrYtdlpNotInstalled", err)
	}
}

func TestParseFlatPlaylist(t *testing.T) {
	entries, err := parseFlatPlaylist([]byte(samplePlaylistJSON))
	if err != nil {
		t.Fatalf("parseFlatPlaylist() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("parseFlatPlaylist() len = %d, want 2", len(entries))
	}

	e := entries[0]
	if e.Index != 1 {
		t.Errorf("entry.Index = %d, want 1", e.Index)
	}
	if e.ID != "dQw4w9WgXcQ" {
		t.Errorf("entry.ID = %q, want %q", e.ID, "dQw4w9WgXcQ")
	}
	if e.Title != "Test Video 1" {
		t.Errorf("entry.Title = %q, want %q", e.Title, "Test Video 1")
	}
	if e.URL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("entry.URL = %q", e.URL)
	}

	if entries[1].Index != 2 {
		t.Errorf("entries[1].Index = %d, want 2", entries[1].Index)
	}
}

func TestParseFlatPlaylistSingleVideo(t *testing.T) {
	data := []byte(`{
	  "id": "abc123xyz00",
	  "title": "A Lone Video",
	  "webpage_url": "https://www.youtube.com/watch?v=abc123xyz00"
	}`)

	entries, err := parseFlatPlaylist(data)
	if err != nil {
		t.Fatalf("parseFlatPlaylist() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("parseFlatPlaylist() len = %d, want 1", len(entries))
	}
	if entries[0].Title != "A Lone Video" {
		t.Errorf("entry.Title = %q", entries[0].Title)
	}
	if entries[0].URL != "https://www.youtube.com/watch?v=abc123xyz00" {
		t.Errorf("entry.URL = %q", entries[0].URL)
	}
}

func TestParseFlatPlaylistBadJSON(t *testing.T) {
	if _, err := parseFlatPlaylist([]byte("not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestClassifyYtdlpError(t *testing.T) {
	base := errors.New("exit status 1")
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"not found", "ERROR: This channel does not exist.", ErrChannelNotFound},
		{"rate limited", "HTTP Error 429: Too Many Requests", ErrRateLimited},
		{"no subtitles", "There are no subtitles for the requested languages", ErrNoSubtitles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyYtdlpError(context.Background(), base, tt.stderr)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyYtdlpError(%q) = %v, want %v", tt.stderr, got, tt.want)
			}
		})
	}
}

func TestYtdlpListerWithMockBinary(t *testing.T) {
	mockPath := writeMockYtdlp(t, `#!/bin/sh
if [ "$1" = "--version" ]; then
    echo "2025.01.01"
    exit 0
fi
cat << 'EOF'
`+samplePlaylistJSON+`
EOF
`)

	lister := NewYtdlpLister()
	lister.Options.Path = mockPath

	entries, err := lister.ListVideos(context.Background(), "https://www.youtube.com/@test", nil)
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("ListVideos() len = %d, want 2", len(entries))
	}
}

func TestYtdlpListerMaxResults(t *testing.T) {
	mockPath := writeMockYtdlp(t, `#!/bin/sh
if [ "$1" = "--version" ]; then exit 0; fi
cat << 'EOF'
`+samplePlaylistJSON+`
EOF
`)

	lister := NewYtdlpLister()
	lister.Options.Path = mockPath

	entries, err := lister.ListVideos(context.Background(), "https://www.youtube.com/@test", &ListOptions{MaxResults: 1})
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ListVideos() with MaxResults=1 len = %d, want 1", len(entries))
	}
}

func TestSubtitleDownloaderWithMockBinary(t *testing.T) {
	dir := t.TempDir()

	// The mock writes the subtitle file the way yt-dlp would, then
	// prints the id/title/upload_date line.
	mockPath := writeMockYtdlp(t, `#!/bin/sh
if [ "$1" = "--version" ]; then exit 0; fi
cat > `+dir+`/dQw4w9WgXcQ.en.vtt << 'EOF'
WEBVTT

00:00:00.000 --> 00:00:01.000
never gonna give you up.
EOF
printf 'dQw4w9WgXcQ\tTest Video 1\t20250110\n'
`)

	d := NewSubtitleDownloader(dir)
	d.Options.Path = mockPath

	res, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if res.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("res.VideoID = %q", res.VideoID)
	}
	if res.Title != "Test Video 1" {
		t.Errorf("res.Title = %q", res.Title)
	}
	if res.UploadDate != "20250110" {
		t.Errorf("res.UploadDate = %q", res.UploadDate)
	}
	if filepath.Base(res.VTTPath) != "dQw4w9WgXcQ.en.vtt" {
		t.Errorf("res.VTTPath = %q", res.VTTPath)
	}
}

func TestSubtitleDownloaderNoSubtitles(t *testing.T) {
	dir := t.TempDir()

	// Succeeds but writes no VTT file: the video has no captions.
	mockPath := writeMockYtdlp(t, `#!/bin/sh
if [ "$1" = "--version" ]; then exit 0; fi
printf 'dQw4w9WgXcQ\tTest Video 1\tNA\n'
`)

	d := NewSubtitleDownloader(dir)
	d.Options.Path = mockPath
	d.RetryConfig = &noRetry

	_, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if !errors.Is(err, ErrNoSubtitles) {
		t.Errorf("Download() error = %v, want ErrNoSubtitles", err)
	}

	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Errorf("Download() error should be a *DownloadError, got %T", err)
	}
}

func TestParsePrintLine(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantID     string
		wantTitle  string
		wantUpload string
	}{
		{
			name:       "full line",
			output:     "dQw4w9WgXcQ\tSome Title\t20240101\n",
			wantID:     "dQw4w9WgXcQ",
			wantTitle:  "Some Title",
			wantUpload: "20240101",
		},
		{
			name:       "missing upload date",
			output:     "dQw4w9WgXcQ\tSome Title\tNA\n",
			wantID:     "dQw4w9WgXcQ",
			wantTitle:  "Some Title",
			wantUpload: "",
		},
		{
			name:       "noise before print line",
			output:     "[youtube] extracting\ndQw4w9WgXcQ\tSome Title\t20240101\n",
			wantID:     "dQw4w9WgXcQ",
			wantTitle:  "Some Title",
			wantUpload: "20240101",
		},
		{
			name:   "no usable line",
			output: "something went sideways\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, title, upload := parsePrintLine(tt.output)
			if id != tt.wantID || title != tt.wantTitle || upload != tt.wantUpload {
				t.Errorf("parsePrintLine(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.output, id, title, upload, tt.wantID, tt.wantTitle, tt.wantUpload)
			}
		})
	}
}

func TestYtdlpErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no subtitles", &DownloadError{VideoURL: "u", Err: ErrNoSubtitles}, false},
		{"channel not found", &ListerError{Source: "ytdlp", StartURL: "u", Err: ErrChannelNotFound}, false},
		{"rate limited", &DownloadError{VideoURL: "u", Err: ErrRateLimited}, true},
		{"timeout", ErrNetworkTimeout, true},
		{"unknown", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ytdlpErrorClassifier(tt.err); got != tt.want {
				t.Errorf("ytdlpErrorClassifier(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// writeMockYtdlp creates an executable shell script standing in for yt-dlp.
func writeMockYtdlp(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write mock yt-dlp: %v", err)
	}
	return path
}

const samplePlaylistJSON = `{
  "id": "UCuAXFkgsw1L7xaCfnd5JJOw",
  "title": "Test Channel - Videos",
  "webpage_url": "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw",
  "entries": [
    {
      "id": "dQw4w9WgXcQ",
      "title": "Test Video 1",
      "url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
    },
    {
      "id": "test123abc0",
      "title": "Test Video 2",
      "url": "https://www.youtube.com/watch?v=test123abc0"
    }
  ]
}`
