package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"captext/config"
	"captext/internal/pace"
	"captext/internal/retry"
	"captext/internal/storage"
	"captext/subtitle"
	"captext/youtube"
)

// Runner executes the batch: list videos, then per video download,
// convert, clean, and write. Processing is sequential; a single video's
// failure is logged and skipped, never fatal to the batch.
type Runner struct {
	Config     *config.Config
	Lister     youtube.VideoLister
	Downloader *youtube.SubtitleDownloader
	Cleaner    *subtitle.Cleaner
	Writer     *Writer
	Pacer      *pace.Pacer
	Store      *storage.Store
}

// NewRunner wires a Runner from configuration.
func NewRunner(ctx context.Context, cfg *config.Config) (*Runner, error) {
	retryCfg := retry.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Multiplier:     cfg.BackoffMultiplier,
		JitterFraction: 0.2,
	}

	ytOpts := youtube.YtdlpOptions{
		Path:               cfg.YtdlpPath,
		Timeout:            cfg.YtdlpTimeout,
		CookieFile:         cfg.CookieFile,
		CookiesFromBrowser: cfg.CookiesFromBrowser,
		RateLimit:          cfg.RateLimit,
	}

	ytdlp := youtube.NewYtdlpLister()
	ytdlp.Options = ytOpts
	ytdlp.RetryConfig = &retryCfg

	var lister youtube.VideoLister = ytdlp
	if cfg.APIKey != "" {
		api, err := youtube.NewAPILister(ctx, cfg.APIKey)
		if err != nil {
			log.Printf("pipeline: data api unavailable (%v), using yt-dlp only", err)
		} else {
			api.RetryConfig = &retryCfg
			api.SetFallback(ytdlp)
			lister = api
		}
	}

	downloader := youtube.NewSubtitleDownloader(cfg.DestDir)
	downloader.Options = ytOpts
	downloader.RetryConfig = &retryCfg
	if len(cfg.SubLangs) > 0 {
		downloader.Languages = cfg.SubLangs
	}

	fillers, err := subtitle.LoadFillers(cfg.Fillers, cfg.FillersFile)
	if err != nil {
		log.Printf("pipeline: reading fillers file: %v", err)
	}

	return &Runner{
		Config:     cfg,
		Lister:     lister,
		Downloader: downloader,
		Cleaner:    &subtitle.Cleaner{Fillers: fillers, RemoveInline: cfg.RemoveInlineFillers},
		Writer:     &Writer{DestDir: cfg.DestDir, WriteMetadataJSON: cfg.WriteMetadataJSON},
		Pacer:      pace.New(cfg.RequestsPerSecond),
		Store:      storage.NewStore(cfg.StateFile),
	}, nil
}

// Run executes the full pipeline for the start URL.
func (r *Runner) Run(ctx context.Context, startURL string) error {
	if err := youtube.CheckInstalled(ctx, r.Config.YtdlpPath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Fetching video list from %s...\n", startURL)
	entries, err := r.Lister.ListVideos(ctx, startURL, nil)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	if err := youtube.WriteListFile(r.Config.InputList, entries); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved video list: %s\n", r.Config.InputList)

	// Re-parse the persisted file so manual edits to it are honored.
	entries, err = youtube.ParseListFile(r.Config.InputList)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries parsed from %s", r.Config.InputList)
	}

	topN, err := r.Config.TopNLimit()
	if err != nil {
		return err
	}
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	state, err := r.Store.Load()
	if err != nil {
		return err
	}
	r.Store.BeginRun(state, startURL)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(os.Stderr, "Processing %d: %s\n", entry.Index, entry.Title)
		if err := r.processOne(ctx, entry, state); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("pipeline: skipping %s: %v", entry.URL, err)
			state.MarkFailed(entry.URL, err)
			continue
		}
	}

	r.convertLeftovers(state)

	if err := r.Store.Save(state); err != nil {
		log.Printf("pipeline: saving state: %v", err)
	}
	if len(state.Failures) > 0 {
		fmt.Fprintf(os.Stderr, "Done with %d skipped video(s); see %s\n",
			len(state.Failures), r.Config.StateFile)
	}
	return ctx.Err()
}

// processOne runs download -> convert -> clean -> write for one entry.
func (r *Runner) processOne(ctx context.Context, entry youtube.VideoEntry, state *storage.BatchState) error {
	if entry.ID != "" && state.IsProcessed(entry.ID) {
		fmt.Fprintf(os.Stderr, "  Already processed, skipping\n")
		return nil
	}

	if err := r.Pacer.Wait(ctx); err != nil {
		return err
	}

	res, err := r.Downloader.Download(ctx, entry.URL)
	if err != nil {
		return err
	}

	title := res.Title
	if title == "" {
		title = entry.Title
	}

	txtPath, err := r.convertFile(r.Writer, res.VTTPath, title, res.UploadDate, entry.URL)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "  Saved -> %s\n", txtPath)

	state.MarkProcessed(storage.ProcessedVideo{
		VideoID:    res.VideoID,
		Title:      title,
		VideoURL:   entry.URL,
		UploadDate: res.UploadDate,
		OutputTxt:  txtPath,
	})
	return nil
}

// convertFile converts one VTT file into a cleaned document on disk and
// deletes the source VTT afterwards.
func (r *Runner) convertFile(w *Writer, vttPath, title, uploadDate, videoURL string) (string, error) {
	f, err := os.Open(vttPath)
	if err != nil {
		return "", fmt.Errorf("open subtitle file: %w", err)
	}
	text := subtitle.VTTToText(f)
	f.Close()

	doc := &CleanedDocument{
		Text:       r.Cleaner.Clean(text),
		Title:      title,
		UploadDate: uploadDate,
		VideoURL:   videoURL,
		SourceVTT:  vttPath,
	}
	txtPath, err := w.Write(doc)
	if err != nil {
		return "", err
	}

	if err := os.Remove(vttPath); err != nil {
		log.Printf("pipeline: could not delete %s: %v", vttPath, err)
	}
	return txtPath, nil
}

// convertLeftovers converts VTT files that were downloaded but never
// processed, e.g. extra language tracks or remnants of aborted runs.
// Metadata comes from the batch state when the video is known there.
func (r *Runner) convertLeftovers(state *storage.BatchState) {
	matches, err := filepath.Glob(filepath.Join(r.Config.DestDir, "*.vtt"))
	if err != nil || len(matches) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "Converting %d leftover VTT file(s)\n", len(matches))

	for _, vttPath := range matches {
		stem := filepath.Base(vttPath)
		videoID := strings.SplitN(stem, ".", 2)[0]

		title, uploadDate, videoURL := videoID, "", ""
		if state != nil {
			if rec, ok := state.Processed[videoID]; ok {
				title, uploadDate, videoURL = rec.Title, rec.UploadDate, rec.VideoURL
			}
		}

		if _, err := os.Stat(r.Writer.OutputPath(title, uploadDate)); err == nil {
			continue
		}
		if _, err := r.convertFile(r.Writer, vttPath, title, uploadDate, videoURL); err != nil {
			log.Printf("pipeline: leftover %s: %v", vttPath, err)
		}
	}
}

// ConvertDir converts every VTT file found in dir using the configured
// cleaner and writer. Used by the convert subcommand.
func (r *Runner) ConvertDir(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no VTT files in %s", dir)
	}

	writer := &Writer{DestDir: dir, WriteMetadataJSON: r.Config.WriteMetadataJSON}
	for _, vttPath := range matches {
		stem := filepath.Base(vttPath)
		videoID := strings.SplitN(stem, ".", 2)[0]

		txtPath, err := r.convertFile(writer, vttPath, videoID, "", "")
		if err != nil {
			log.Printf("pipeline: convert %s: %v", vttPath, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s -> %s\n", vttPath, txtPath)
	}
	return nil
}
