package subtitle

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	headerLineRe   = regexp.MustCompile(`(?i)^(Title|Date|Link):\s*`)
	kindLanguageRe = regexp.MustCompile(`(?i)^\s*Kind:\s*captions\s+Language:\s*[-\w]+\s*`)
	lettersOnlyRe  = regexp.MustCompile(`[^A-Za-z ]+`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
	comparePunctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// maxFillerLineLen bounds the simplified length of a line that may be
// dropped as a standalone filler. Longer lines are never dropped whole.
const maxFillerLineLen = 20

// Cleaner applies the ordered text-normalization rules to converted
// caption text. The zero value uses the default filler set and
// conservative (line-level only) filler removal.
type Cleaner struct {
	// Fillers is the phrase set considered noise. Nil means DefaultFillers.
	Fillers FillerSet

	// RemoveInline also strips filler phrases embedded inside otherwise
	// meaningful lines, using word-boundary matching.
	RemoveInline bool
}

// Clean normalizes the text: header metadata lines are stripped, filler
// lines removed, whitespace and blank runs collapsed, and adjacent
// duplicate lines and sentences dropped. Malformed input degrades to
// best-effort output; Clean never fails.
func (c *Cleaner) Clean(text string) string {
	fillers := c.Fillers
	if fillers == nil {
		fillers = DefaultFillers()
	}

	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = stripHeaderLines(text)
	text = removeFillerLines(text, fillers)
	if c.RemoveInline {
		text = removeInlineFillers(text, fillers)
	}

	// Normalize spaces per line, then collapse excessive blank lines.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = strings.TrimSpace(blankRunRe.ReplaceAllString(text, "\n\n"))
	text = dropRepeatedLines(text)

	// Sentence-level adjacent dedupe, kept within paragraph boundaries.
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = dedupAdjacentSentences(strings.TrimSpace(p))
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// stripHeaderLines removes metadata lines (Title:/Date:/Link:, filepath
// markers) and embedded "Kind: captions Language: xx" prefixes. The
// metadata belongs in the JSON sidecar, not the text body.
func stripHeaderLines(text string) string {
	var kept []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if line == "" {
			kept = append(kept, "")
			continue
		}
		if strings.HasPrefix(line, "// filepath:") {
			continue
		}
		if headerLineRe.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(kindLanguageRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// removeFillerLines drops lines that consist solely of a filler phrase.
// Matching is case-insensitive and ignores punctuation; only short
// standalone lines are dropped.
func removeFillerLines(text string, fillers FillerSet) string {
	var kept []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			kept = append(kept, "")
			continue
		}
		simplified := strings.ToLower(strings.TrimSpace(lettersOnlyRe.ReplaceAllString(line, "")))
		if len(simplified) <= maxFillerLineLen && fillers.Contains(simplified) {
			continue
		}
		kept = append(kept, raw)
	}
	return strings.Join(kept, "\n")
}

// removeInlineFillers strips filler phrases that appear as whole words
// inside lines, longest phrase first. Single-letter one-word phrases are
// skipped to avoid mangling real text.
func removeInlineFillers(text string, fillers FillerSet) string {
	phrases := make([]string, 0, len(fillers))
	for p := range fillers {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) != len(phrases[j]) {
			return len(phrases[i]) > len(phrases[j])
		}
		return phrases[i] < phrases[j]
	})

	out := text
	for _, phrase := range phrases {
		if phrase == "" || (!strings.Contains(phrase, " ") && len(phrase) <= 1) {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
		if err != nil {
			continue
		}
		out = re.ReplaceAllString(out, "")
	}
	return out
}

// dropRepeatedLines removes a line that exactly equals the immediately
// preceding non-blank line.
func dropRepeatedLines(text string) string {
	var kept []string
	prev := ""
	for _, line := range strings.Split(text, "\n") {
		if line != "" && line == prev {
			continue
		}
		kept = append(kept, line)
		if line != "" {
			prev = line
		}
	}
	return strings.Join(kept, "\n")
}

// dedupAdjacentSentences removes consecutive duplicate sentences, a
// common artifact of overlapping caption cues. The paragraph is reflowed
// into a single line.
func dedupAdjacentSentences(text string) string {
	var out []string
	prevNorm := ""
	for _, s := range splitSentences(text) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		curNorm := normalizeForCompare(s)
		if curNorm != "" && curNorm == prevNorm {
			continue
		}
		out = append(out, s)
		prevNorm = curNorm
	}
	return strings.Join(out, " ")
}

// splitSentences splits on whitespace that follows a sentence terminator.
func splitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var sentences []string
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if !endsSentence(string(runes[i])) {
			continue
		}
		if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, b.String())
			b.Reset()
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// normalizeForCompare produces a canonical form for duplicate detection:
// NFKC, lowercased, punctuation removed, whitespace collapsed.
func normalizeForCompare(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = comparePunctRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
