package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"captext/internal/retry"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 10 * time.Minute
)

// YtdlpOptions configures how yt-dlp is invoked.
type YtdlpOptions struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// Timeout is the maximum time to wait for one invocation.
	// Defaults to 10 minutes.
	Timeout time.Duration

	// CookieFile is a cookies.txt path passed via --cookies.
	CookieFile string

	// CookiesFromBrowser is a browser name passed via --cookies-from-browser.
	CookiesFromBrowser string

	// RateLimit is a download rate cap like "500K" or "1M",
	// passed via --limit-rate.
	RateLimit string

	// ExtraArgs are additional arguments appended to every invocation.
	ExtraArgs []string
}

func (o *YtdlpOptions) path() string {
	if o.Path != "" {
		return o.Path
	}
	return defaultYtdlpPath
}

func (o *YtdlpOptions) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultYtdlpTimeout
}

// commonArgs returns the flags shared by all yt-dlp invocations.
func (o *YtdlpOptions) commonArgs() []string {
	var args []string
	if o.CookieFile != "" {
		args = append(args, "--cookies", o.CookieFile)
	}
	if o.CookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", o.CookiesFromBrowser)
	}
	if o.RateLimit != "" {
		args = append(args, "--limit-rate", o.RateLimit)
	}
	return append(args, o.ExtraArgs...)
}

// CheckInstalled verifies that yt-dlp is runnable at the given path.
// An empty path checks the default location.
func CheckInstalled(ctx context.Context, path string) error {
	if path == "" {
		path = defaultYtdlpPath
	}
	cmd := exec.CommandContext(ctx, path, "--version")
	if err := cmd.Run(); err != nil {
		return ErrYtdlpNotInstalled
	}
	return nil
}

// YtdlpLister implements VideoLister using yt-dlp as a subprocess.
// It handles channels, playlists, and single video URLs.
type YtdlpLister struct {
	Options YtdlpOptions

	// RetryConfig holds retry behavior configuration.
	RetryConfig *retry.Config
}

// NewYtdlpLister creates a yt-dlp based video lister with default retry behavior.
func NewYtdlpLister() *YtdlpLister {
	cfg := retry.DefaultConfig()
	return &YtdlpLister{RetryConfig: &cfg}
}

// ListVideos fetches the flat video list for the start URL.
func (y *YtdlpLister) ListVideos(ctx context.Context, startURL string, opts *ListOptions) ([]VideoEntry, error) {
	if err := CheckInstalled(ctx, y.Options.Path); err != nil {
		return nil, &ListerError{Source: "ytdlp", StartURL: startURL, Err: err}
	}

	cfg := y.RetryConfig
	if cfg == nil {
		defaultCfg := retry.DefaultConfig()
		cfg = &defaultCfg
	}

	var entries []VideoEntry
	err := retry.Do(ctx, *cfg, ytdlpErrorClassifier, func(ctx context.Context) error {
		args := []string{
			"--flat-playlist",
			"-J", // single JSON document
			"--no-warnings",
		}
		args = append(args, y.Options.commonArgs()...)
		args = append(args, startURL)

		cmdCtx, cancel := context.WithTimeout(ctx, y.Options.timeout())
		defer cancel()

		cmd := exec.CommandContext(cmdCtx, y.Options.path(), args...)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return &ListerError{Source: "ytdlp", StartURL: startURL,
				Err: classifyYtdlpError(cmdCtx, err, stderr.String())}
		}

		parsed, err := parseFlatPlaylist(stdout.Bytes())
		if err != nil {
			return &ListerError{Source: "ytdlp", StartURL: startURL, Err: err}
		}
		entries = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opts != nil && opts.MaxResults > 0 && len(entries) > opts.MaxResults {
		entries = entries[:opts.MaxResults]
	}
	return entries, nil
}

// classifyYtdlpError maps a failed yt-dlp run to a sentinel error where
// a known pattern appears in stderr.
func classifyYtdlpError(ctx context.Context, err error, stderr string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return ErrNetworkTimeout
	}
	if ctx.Err() == context.Canceled {
		return context.Canceled
	}

	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "no subtitles") || strings.Contains(lower, "no closed captions"):
		return ErrNoSubtitles
	case strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist"):
		return ErrChannelNotFound
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate"):
		return ErrRateLimited
	}
	return fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr))
}

// flatPlaylist represents yt-dlp's -J output for a channel/playlist.
// A single video URL produces the same shape without entries.
type flatPlaylist struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	WebpageURL string      `json:"webpage_url"`
	Entries    []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

// parseFlatPlaylist converts yt-dlp's JSON into ordered VideoEntry values.
func parseFlatPlaylist(data []byte) ([]VideoEntry, error) {
	var playlist flatPlaylist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	raw := playlist.Entries
	if len(raw) == 0 {
		// A bare video URL yields a single top-level object.
		raw = []flatEntry{{
			ID:         playlist.ID,
			Title:      playlist.Title,
			URL:        playlist.WebpageURL,
			WebpageURL: playlist.WebpageURL,
		}}
	}

	entries := make([]VideoEntry, 0, len(raw))
	for i, e := range raw {
		url := e.URL
		if url == "" {
			url = e.WebpageURL
		}
		if url == "" && e.ID != "" {
			url = "https://www.youtube.com/watch?v=" + e.ID
		}
		if url == "" {
			continue
		}
		entries = append(entries, VideoEntry{
			Index: i + 1,
			ID:    e.ID,
			Title: e.Title,
			URL:   url,
		})
	}
	return entries, nil
}

// SubtitleResult describes a successfully downloaded caption track.
type SubtitleResult struct {
	// VTTPath is the path to the downloaded .vtt file.
	VTTPath string
	// VideoID is the YouTube video ID.
	VideoID string
	// Title is the video title as reported by yt-dlp.
	Title string
	// UploadDate is the upload date in YYYYMMDD form, or "" if unknown.
	UploadDate string
}

// SubtitleDownloader fetches the best-available caption track for a
// video, preferring manually authored subtitles and falling back to
// auto-generated ones.
type SubtitleDownloader struct {
	Options YtdlpOptions

	// DestDir is where subtitle files are written.
	DestDir string

	// Languages is the caption language preference order.
	// Defaults to ["en", "en-*"].
	Languages []string

	// RetryConfig holds retry behavior configuration.
	RetryConfig *retry.Config
}

// NewSubtitleDownloader creates a downloader writing into destDir.
func NewSubtitleDownloader(destDir string) *SubtitleDownloader {
	cfg := retry.DefaultConfig()
	return &SubtitleDownloader{
		DestDir:     destDir,
		Languages:   []string{"en", "en-*"},
		RetryConfig: &cfg,
	}
}

func (d *SubtitleDownloader) languages() []string {
	if len(d.Languages) > 0 {
		return d.Languages
	}
	return []string{"en", "en-*"}
}

// Download fetches the caption track for one video. The returned result
// points at the VTT file written under DestDir. ErrNoSubtitles (wrapped
// in a DownloadError) is returned when the video has no captions.
func (d *SubtitleDownloader) Download(ctx context.Context, videoURL string) (*SubtitleResult, error) {
	if err := os.MkdirAll(d.DestDir, 0755); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}

	cfg := d.RetryConfig
	if cfg == nil {
		defaultCfg := retry.DefaultConfig()
		cfg = &defaultCfg
	}

	var result *SubtitleResult
	err := retry.Do(ctx, *cfg, ytdlpErrorClassifier, func(ctx context.Context) error {
		args := []string{
			"--skip-download",
			"--write-subs",
			"--write-auto-subs",
			"--sub-format", "vtt",
			"--sub-langs", strings.Join(d.languages(), ","),
			"-o", filepath.Join(d.DestDir, "%(id)s.%(ext)s"),
			"--no-warnings",
			"--no-simulate",
			"--print", "%(id)s\t%(title)s\t%(upload_date)s",
		}
		args = append(args, d.Options.commonArgs()...)
		args = append(args, videoURL)

		cmdCtx, cancel := context.WithTimeout(ctx, d.Options.timeout())
		defer cancel()

		cmd := exec.CommandContext(cmdCtx, d.Options.path(), args...)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return &DownloadError{VideoURL: videoURL,
				Err: classifyYtdlpError(cmdCtx, err, stderr.String())}
		}

		videoID, title, uploadDate := parsePrintLine(stdout.String())
		vttPath := d.findVTT(videoID)
		if vttPath == "" {
			return &DownloadError{VideoURL: videoURL, Err: ErrNoSubtitles}
		}

		result = &SubtitleResult{
			VTTPath:    vttPath,
			VideoID:    videoID,
			Title:      title,
			UploadDate: uploadDate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// parsePrintLine parses the "--print %(id)s\t%(title)s\t%(upload_date)s"
// output. yt-dlp prints "NA" for missing fields.
func parsePrintLine(output string) (videoID, title, uploadDate string) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		fields := strings.SplitN(strings.TrimSpace(line), "\t", 3)
		if len(fields) != 3 {
			continue
		}
		videoID = naToEmpty(fields[0])
		title = naToEmpty(fields[1])
		uploadDate = naToEmpty(fields[2])
	}
	return videoID, title, uploadDate
}

func naToEmpty(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}

// findVTT locates the downloaded subtitle file for a video ID, checking
// the preferred languages first and then any matching VTT file
// (yt-dlp may normalize language codes).
func (d *SubtitleDownloader) findVTT(videoID string) string {
	if videoID == "" {
		return ""
	}
	for _, lang := range d.languages() {
		if strings.Contains(lang, "*") {
			continue
		}
		path := filepath.Join(d.DestDir, videoID+"."+lang+".vtt")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	matches, err := filepath.Glob(filepath.Join(d.DestDir, videoID+"*.vtt"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// ytdlpErrorClassifier determines if a yt-dlp error is retryable.
// Missing captions and bad URLs are permanent; rate limits, timeouts,
// and unknown failures are retried.
func ytdlpErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNoSubtitles),
		errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrYtdlpNotInstalled),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
