// Package storage persists batch-run state between invocations so
// already-processed videos can be skipped on re-runs.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// ProcessedVideo records one successfully converted video.
type ProcessedVideo struct {
	// VideoID is the YouTube video ID.
	VideoID string `json:"video_id"`
	// Title is the video title at processing time.
	Title string `json:"title"`
	// VideoURL is the full watch URL.
	VideoURL string `json:"video_url"`
	// UploadDate is the upload date in YYYYMMDD form, if known.
	UploadDate string `json:"upload_date,omitempty"`
	// OutputTxt is the path of the cleaned text file.
	OutputTxt string `json:"output_txt"`
	// ProcessedAt is when the video finished processing.
	ProcessedAt time.Time `json:"processed_at"`
}

// FailedVideo records one skipped video and why.
type FailedVideo struct {
	// VideoURL is the full watch URL.
	VideoURL string `json:"video_url"`
	// Reason is the error text that caused the skip.
	Reason string `json:"reason"`
	// FailedAt is when the failure happened.
	FailedAt time.Time `json:"failed_at"`
}

// BatchState is the persisted state of caption batch runs.
// Processed entries accumulate across runs; Failures belong to the
// current run only.
type BatchState struct {
	// RunID is a unique identifier for the current run (UUID).
	RunID string `json:"run_id"`
	// StartedAt is when the current run began.
	StartedAt time.Time `json:"started_at"`
	// StartURL is the channel/playlist/video URL the run started from.
	StartURL string `json:"start_url"`
	// Processed maps video ID to its processing record.
	Processed map[string]ProcessedVideo `json:"processed"`
	// Failures lists videos skipped during the current run.
	Failures []FailedVideo `json:"failures,omitempty"`
}

// Store loads and saves BatchState as a JSON file with atomic writes.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the state file. A missing file yields a fresh empty state.
func (s *Store) Load() (*BatchState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &BatchState{Processed: make(map[string]ProcessedVideo)}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state BatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	if state.Processed == nil {
		state.Processed = make(map[string]ProcessedVideo)
	}
	return &state, nil
}

// BeginRun stamps the state with a new run ID and start time and clears
// failures from the previous run. Processed history is preserved.
func (s *Store) BeginRun(state *BatchState, startURL string) {
	state.RunID = uuid.NewString()
	state.StartedAt = time.Now().UTC()
	state.StartURL = startURL
	state.Failures = nil
}

// Save writes the state file atomically.
func (s *Store) Save(state *BatchState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return WriteFileAtomic(s.path, append(data, '\n'), 0644)
}

// IsProcessed reports whether the video was already converted and its
// output file still exists on disk.
func (state *BatchState) IsProcessed(videoID string) bool {
	rec, ok := state.Processed[videoID]
	if !ok {
		return false
	}
	if rec.OutputTxt == "" {
		return false
	}
	_, err := os.Stat(rec.OutputTxt)
	return err == nil
}

// MarkProcessed records a successful conversion.
func (state *BatchState) MarkProcessed(rec ProcessedVideo) {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	state.Processed[rec.VideoID] = rec
}

// MarkFailed records a skipped video for the current run.
func (state *BatchState) MarkFailed(videoURL string, err error) {
	state.Failures = append(state.Failures, FailedVideo{
		VideoURL: videoURL,
		Reason:   err.Error(),
		FailedAt: time.Now().UTC(),
	})
}
