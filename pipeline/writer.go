// Package pipeline orchestrates the per-video flow:
// list -> download -> convert -> clean -> write.
package pipeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"captext/internal/storage"
)

// CleanedDocument is the final artifact for one video. The Text body is
// written to the .txt file; the remaining fields form the JSON sidecar.
type CleanedDocument struct {
	Text       string `json:"-"`
	Title      string `json:"title"`
	UploadDate string `json:"upload_date"`
	VideoURL   string `json:"video_url"`
	SourceVTT  string `json:"source_vtt,omitempty"`
	OutputTxt  string `json:"output_txt,omitempty"`
}

// Writer persists cleaned documents as text files with optional JSON
// metadata sidecars. Files are written atomically.
type Writer struct {
	// DestDir is the output directory.
	DestDir string

	// WriteMetadataJSON toggles the sidecar.
	WriteMetadataJSON bool
}

// OutputPath returns the text file path for a title/upload-date pair:
// DestDir/{slug(title)}_{digits(date)|unknown}.txt.
func (w *Writer) OutputPath(title, uploadDate string) string {
	return filepath.Join(w.DestDir, Slugify(title)+"_"+datePart(uploadDate)+".txt")
}

// Write persists the document and returns the text file path.
// The sidecar shares the stem with a .json extension.
func (w *Writer) Write(doc *CleanedDocument) (string, error) {
	txtPath := w.OutputPath(doc.Title, doc.UploadDate)
	doc.OutputTxt = txtPath

	if err := storage.WriteFileAtomic(txtPath, []byte(doc.Text), 0644); err != nil {
		return "", fmt.Errorf("write text file: %w", err)
	}

	if w.WriteMetadataJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal metadata: %w", err)
		}
		jsonPath := strings.TrimSuffix(txtPath, ".txt") + ".json"
		if err := storage.WriteFileAtomic(jsonPath, append(data, '\n'), 0644); err != nil {
			return "", fmt.Errorf("write metadata file: %w", err)
		}
	}
	return txtPath, nil
}

var (
	invalidFilenameRe = regexp.MustCompile(`[\\/:*?"<>|]`)
	slugSpaceRe       = regexp.MustCompile(`\s+`)
	nonDigitRe        = regexp.MustCompile(`[^0-9]`)
)

// maxSlugLen caps output filename stems so long titles stay portable.
const maxSlugLen = 80

// Slugify makes a title safe for use as a filename.
func Slugify(name string) string {
	name = invalidFilenameRe.ReplaceAllString(name, "_")
	name = strings.TrimSpace(slugSpaceRe.ReplaceAllString(name, " "))
	if runes := []rune(name); len(runes) > maxSlugLen {
		name = string(runes[:maxSlugLen])
	}
	if name == "" {
		return "untitled"
	}
	return name
}

// datePart reduces an upload date to its digits, or "unknown".
func datePart(uploadDate string) string {
	digits := nonDigitRe.ReplaceAllString(uploadDate, "")
	if digits == "" {
		return "unknown"
	}
	return digits
}
