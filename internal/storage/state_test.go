package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsFreshState(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if state.Processed == nil {
		t.Fatal("fresh state should have a non-nil Processed map")
	}
	if len(state.Processed) != 0 || len(state.Failures) != 0 {
		t.Errorf("fresh state not empty: %+v", state)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"))

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	store.BeginRun(state, "https://www.youtube.com/@test")

	if state.RunID == "" {
		t.Error("BeginRun should assign a run ID")
	}
	if state.StartedAt.IsZero() {
		t.Error("BeginRun should stamp the start time")
	}

	txtPath := filepath.Join(dir, "out.txt")
	state.MarkProcessed(ProcessedVideo{
		VideoID:   "dQw4w9WgXcQ",
		Title:     "A Video",
		VideoURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		OutputTxt: txtPath,
	})
	state.MarkFailed("https://www.youtube.com/watch?v=bad", os.ErrNotExist)

	if err := store.Save(state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after Save error = %v", err)
	}
	if loaded.RunID != state.RunID {
		t.Errorf("RunID = %q, want %q", loaded.RunID, state.RunID)
	}
	if loaded.StartURL != "https://www.youtube.com/@test" {
		t.Errorf("StartURL = %q", loaded.StartURL)
	}
	rec, ok := loaded.Processed["dQw4w9WgXcQ"]
	if !ok {
		t.Fatal("processed record lost in round trip")
	}
	if rec.Title != "A Video" || rec.ProcessedAt.IsZero() {
		t.Errorf("record = %+v", rec)
	}
	if len(loaded.Failures) != 1 || loaded.Failures[0].Reason == "" {
		t.Errorf("Failures = %+v", loaded.Failures)
	}
}

func TestBeginRunClearsFailuresKeepsProcessed(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	state, _ := store.Load()

	state.MarkProcessed(ProcessedVideo{VideoID: "a", OutputTxt: "a.txt"})
	state.MarkFailed("https://example.com/b", os.ErrClosed)

	first := state.RunID
	store.BeginRun(state, "https://www.youtube.com/@again")

	if state.RunID == first {
		t.Error("BeginRun should assign a new run ID")
	}
	if len(state.Failures) != 0 {
		t.Errorf("Failures = %+v, want cleared", state.Failures)
	}
	if len(state.Processed) != 1 {
		t.Errorf("Processed = %+v, want preserved", state.Processed)
	}
}

func TestIsProcessedRequiresOutputOnDisk(t *testing.T) {
	dir := t.TempDir()
	state := &BatchState{Processed: make(map[string]ProcessedVideo)}

	if state.IsProcessed("unknown") {
		t.Error("unknown video reported as processed")
	}

	missing := filepath.Join(dir, "gone.txt")
	state.MarkProcessed(ProcessedVideo{VideoID: "v1", OutputTxt: missing})
	if state.IsProcessed("v1") {
		t.Error("video with missing output should not count as processed")
	}

	present := filepath.Join(dir, "here.txt")
	if err := os.WriteFile(present, []byte("text"), 0644); err != nil {
		t.Fatal(err)
	}
	state.MarkProcessed(ProcessedVideo{VideoID: "v2", OutputTxt: present})
	if !state.IsProcessed("v2") {
		t.Error("video with existing output should count as processed")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Error("expected error for corrupt state file")
	}
}
