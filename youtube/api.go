package youtube

import (
	"context"
	"log"
	"regexp"
	"strings"

	"captext/internal/retry"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

var channelIDRegex = regexp.MustCompile(`UC[0-9A-Za-z_-]{22}`)

// APILister implements VideoLister using the YouTube Data API v3.
// It only handles channel URLs; playlist and single-video URLs, and any
// API failure, are delegated to the fallback lister (typically yt-dlp).
type APILister struct {
	service  *ytapi.Service
	fallback VideoLister

	// RetryConfig holds retry behavior configuration.
	RetryConfig *retry.Config
}

// NewAPILister creates a Data API-based video lister.
func NewAPILister(ctx context.Context, apiKey string) (*APILister, error) {
	if apiKey == "" {
		return nil, ErrInvalidURL
	}
	service, err := ytapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	cfg := retry.DefaultConfig()
	return &APILister{service: service, RetryConfig: &cfg}, nil
}

// SetFallback sets the lister used for non-channel URLs and API failures.
func (a *APILister) SetFallback(l VideoLister) {
	a.fallback = l
}

// ListVideos lists a channel's uploads via the Data API, newest first.
func (a *APILister) ListVideos(ctx context.Context, startURL string, opts *ListOptions) ([]VideoEntry, error) {
	if !isChannelURL(startURL) {
		return a.delegate(ctx, startURL, opts, nil)
	}

	channelID, err := a.resolveChannelID(ctx, startURL)
	if err != nil {
		return a.delegate(ctx, startURL, opts, &ListerError{Source: "api", StartURL: startURL, Err: err})
	}

	uploadsID, err := a.uploadsPlaylistID(ctx, channelID)
	if err != nil {
		return a.delegate(ctx, startURL, opts, &ListerError{Source: "api", StartURL: startURL, Err: err})
	}

	entries, err := a.listPlaylist(ctx, uploadsID, opts)
	if err != nil {
		return a.delegate(ctx, startURL, opts, &ListerError{Source: "api", StartURL: startURL, Err: err})
	}
	return entries, nil
}

// delegate hands the request to the fallback lister, or returns the
// API error when no fallback is configured.
func (a *APILister) delegate(ctx context.Context, startURL string, opts *ListOptions, apiErr error) ([]VideoEntry, error) {
	if a.fallback == nil {
		if apiErr != nil {
			return nil, apiErr
		}
		return nil, &ListerError{Source: "api", StartURL: startURL, Err: ErrInvalidURL}
	}
	if apiErr != nil {
		log.Printf("youtube: data api failed (%v), falling back to yt-dlp", apiErr)
	}
	return a.fallback.ListVideos(ctx, startURL, opts)
}

// isChannelURL reports whether the URL addresses a channel rather than
// a playlist or a single video.
func isChannelURL(url string) bool {
	switch {
	case strings.Contains(url, "watch?v="), strings.Contains(url, "youtu.be/"),
		strings.Contains(url, "playlist?"):
		return false
	case strings.Contains(url, "/channel/"), strings.Contains(url, "/@"),
		strings.Contains(url, "/c/"), strings.Contains(url, "/user/"):
		return true
	case strings.HasPrefix(url, "@"):
		return true
	}
	return channelIDRegex.MatchString(url) && !strings.Contains(url, "youtube.com")
}

// resolveChannelID converts a channel URL, handle, or bare ID into a
// channel ID.
func (a *APILister) resolveChannelID(ctx context.Context, input string) (string, error) {
	if id := channelIDRegex.FindString(input); id != "" {
		return id, nil
	}

	handle := ""
	if i := strings.Index(input, "/@"); i >= 0 {
		handle = strings.SplitN(input[i+2:], "/", 2)[0]
	} else if strings.HasPrefix(input, "@") {
		handle = strings.TrimPrefix(input, "@")
	}
	if handle == "" {
		return "", ErrInvalidURL
	}

	var channelID string
	err := a.retryDo(ctx, func(ctx context.Context) error {
		resp, err := a.service.Channels.List([]string{"id"}).
			ForHandle(handle).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return ErrChannelNotFound
		}
		channelID = resp.Items[0].Id
		return nil
	})
	return channelID, err
}

// uploadsPlaylistID fetches the uploads playlist for a channel.
func (a *APILister) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	var playlistID string
	err := a.retryDo(ctx, func(ctx context.Context) error {
		resp, err := a.service.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return ErrChannelNotFound
		}
		playlistID = resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
		return nil
	})
	return playlistID, err
}

// listPlaylist pages through a playlist, 50 items at a time.
func (a *APILister) listPlaylist(ctx context.Context, playlistID string, opts *ListOptions) ([]VideoEntry, error) {
	var entries []VideoEntry
	pageToken := ""

	for {
		if opts != nil && opts.MaxResults > 0 && len(entries) >= opts.MaxResults {
			entries = entries[:opts.MaxResults]
			break
		}

		err := a.retryDo(ctx, func(ctx context.Context) error {
			resp, err := a.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(50).
				PageToken(pageToken).
				Context(ctx).
				Do()
			if err != nil {
				return err
			}
			for _, item := range resp.Items {
				id := item.ContentDetails.VideoId
				title := ""
				if item.Snippet != nil {
					title = item.Snippet.Title
				}
				entries = append(entries, VideoEntry{
					Index: len(entries) + 1,
					ID:    id,
					Title: title,
					URL:   "https://www.youtube.com/watch?v=" + id,
				})
			}
			pageToken = resp.NextPageToken
			return nil
		})
		if err != nil {
			return nil, err
		}

		if pageToken == "" {
			break
		}
	}
	return entries, nil
}

func (a *APILister) retryDo(ctx context.Context, fn func(context.Context) error) error {
	cfg := a.RetryConfig
	if cfg == nil {
		defaultCfg := retry.DefaultConfig()
		cfg = &defaultCfg
	}
	return retry.Do(ctx, *cfg, apiErrorClassifier, fn)
}

// apiErrorClassifier determines if a Data API error is retryable.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	switch err {
	case ErrChannelNotFound, ErrInvalidURL:
		return false
	}
	if strings.Contains(err.Error(), "quotaExceeded") {
		return false // quota will not recover within a retry window
	}
	return true
}
