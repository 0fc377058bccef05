package youtube

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WriteListFile persists entries as a numbered text file, one
// "{index}. {title} -> {url}" line per video.
func WriteListFile(path string, entries []VideoEntry) error {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. %s -> %s\n", e.Index, e.Title, e.URL)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write list file: %w", err)
	}
	return nil
}

// ParseListFile reads a list file written by WriteListFile.
// Malformed lines are skipped rather than failing the parse.
func ParseListFile(path string) ([]VideoEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read list file: %w", err)
	}

	var entries []VideoEntry
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "->") {
			continue
		}
		parts := strings.SplitN(line, "->", 2)
		url := strings.TrimSpace(parts[1])

		// Left side looks like "1. Title"; split on the first dot.
		left := strings.SplitN(parts[0], ".", 2)
		if len(left) != 2 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(left[0]))
		if err != nil {
			continue
		}
		title := strings.TrimSpace(left[1])
		if url == "" {
			continue
		}
		entries = append(entries, VideoEntry{
			Index: idx,
			ID:    videoIDFromURL(url),
			Title: title,
			URL:   url,
		})
	}
	return entries, nil
}

// videoIDFromURL extracts the video ID from a watch or shortlink URL.
// Returns "" when no ID can be determined.
func videoIDFromURL(url string) string {
	if i := strings.Index(url, "watch?v="); i >= 0 {
		id := url[i+len("watch?v="):]
		if j := strings.IndexAny(id, "&#"); j >= 0 {
			id = id[:j]
		}
		return id
	}
	if i := strings.Index(url, "youtu.be/"); i >= 0 {
		id := url[i+len("youtu.be/"):]
		if j := strings.IndexAny(id, "?&#/"); j >= 0 {
			id = id[:j]
		}
		return id
	}
	return ""
}
