// Package youtube provides video listing and subtitle downloading,
// delegating extraction to yt-dlp with an optional Data API lister.
package youtube

import (
	"context"
	"errors"
)

// Sentinel errors for listing and download operations.
var (
	ErrYtdlpNotInstalled = errors.New("youtube: yt-dlp not installed")
	ErrChannelNotFound   = errors.New("youtube: channel not found")
	ErrNoSubtitles       = errors.New("youtube: no subtitles available")
	ErrRateLimited       = errors.New("youtube: rate limited")
	ErrNetworkTimeout    = errors.New("youtube: network timeout")
	ErrInvalidURL        = errors.New("youtube: invalid URL")
)

// VideoEntry is one video in a listing, in playlist order.
type VideoEntry struct {
	// Index is the 1-based position in the listing.
	Index int `json:"index"`

	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`

	// Title is the video title.
	Title string `json:"title"`

	// URL is the full watch URL.
	URL string `json:"url"`
}

// VideoLister fetches the ordered video list for a channel, playlist,
// or single video URL. Different implementations use different
// strategies (yt-dlp subprocess, Data API).
type VideoLister interface {
	ListVideos(ctx context.Context, startURL string, opts *ListOptions) ([]VideoEntry, error)
}

// ListOptions configures listing behavior.
type ListOptions struct {
	// MaxResults limits the number of entries returned. 0 means no limit.
	MaxResults int
}

// ListerError wraps listing errors with context about what failed.
// Use errors.As() to extract it:
//
//	var listerErr *youtube.ListerError
//	if errors.As(err, &listerErr) {
//		fmt.Printf("Listing %s failed: %v\n", listerErr.StartURL, listerErr.Err)
//	}
type ListerError struct {
	// Source indicates which lister produced the error ("ytdlp", "api").
	Source string
	// StartURL is the URL that was being listed.
	StartURL string
	// Err is the underlying error.
	Err error
}

func (e *ListerError) Error() string {
	return "youtube: " + e.Source + " listing " + e.StartURL + ": " + e.Err.Error()
}

func (e *ListerError) Unwrap() error { return e.Err }

// DownloadError wraps a per-video subtitle download failure.
type DownloadError struct {
	// VideoURL is the video whose subtitles could not be fetched.
	VideoURL string
	// Err is the underlying error.
	Err error
}

func (e *DownloadError) Error() string {
	return "youtube: download subtitles for " + e.VideoURL + ": " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error { return e.Err }
