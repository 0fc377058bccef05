// Package subtitle converts WebVTT caption tracks into cleaned plain text.
package subtitle

import (
	"bufio"
	"html"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	cueIndexRe  = regexp.MustCompile(`^\d+$`)
	inlineTagRe = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe  = regexp.MustCompile(`\s+`)
)

// VTTToText extracts the spoken text from a WebVTT stream.
//
// Header, cue-index, and timing lines are dropped, inline tags such as
// <c> and <00:00:01.000> are stripped, and consecutive duplicate lines
// (the roll-up artifact of auto-generated captions) are collapsed.
// Surviving lines are reflowed into paragraphs: lines accumulate until
// one ends with a sentence terminator.
func VTTToText(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cleaned []string
	prev := ""
	inBlock := false
	first := true
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())

		// The WEBVTT header block (Kind:, Language:, ...) runs until the
		// first blank line, as do NOTE/STYLE/REGION blocks.
		if first && trimmed != "" {
			first = false
			if strings.HasPrefix(strings.ToUpper(strings.TrimPrefix(trimmed, "\ufeff")), "WEBVTT") {
				inBlock = true
				continue
			}
		}
		if inBlock {
			if trimmed == "" {
				inBlock = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "NOTE") || trimmed == "STYLE" || strings.HasPrefix(trimmed, "REGION") {
			inBlock = true
			continue
		}

		line := normalizeCueLine(trimmed)
		if line == "" {
			continue
		}
		if line == prev {
			continue
		}
		cleaned = append(cleaned, line)
		prev = line
	}

	var paragraphs []string
	var buf []string
	for _, line := range cleaned {
		buf = append(buf, line)
		if endsSentence(line) {
			paragraphs = append(paragraphs, strings.Join(buf, " "))
			buf = nil
		}
	}
	if len(buf) > 0 {
		paragraphs = append(paragraphs, strings.Join(buf, " "))
	}

	return strings.Join(paragraphs, "\n")
}

// normalizeCueLine strips timestamps and tags from a single VTT line and
// collapses whitespace. Returns "" for lines carrying no spoken text.
func normalizeCueLine(line string) string {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if line == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToUpper(line), "WEBVTT") {
		return ""
	}
	if cueIndexRe.MatchString(line) {
		return ""
	}
	if strings.Contains(line, "-->") {
		return ""
	}

	line = inlineTagRe.ReplaceAllString(line, " ")
	line = html.UnescapeString(line)
	line = spaceRunRe.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// endsSentence reports whether the line ends with a sentence terminator.
func endsSentence(line string) bool {
	r, _ := utf8.DecodeLastRuneInString(line)
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}
