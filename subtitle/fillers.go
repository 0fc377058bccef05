package subtitle

import (
	"os"
	"strings"
)

// FillerSet holds lowercased filler words/phrases eligible for removal.
type FillerSet map[string]struct{}

// DefaultFillers returns the built-in filler phrase set.
func DefaultFillers() FillerSet {
	return FillerSet{
		"aha":      {},
		"mmhm":     {},
		"mhm":      {},
		"yep":      {},
		"uh":       {},
		"um":       {},
		"you know": {},
		"like":     {},
	}
}

// Add inserts a phrase, lowercased and trimmed. Empty phrases are ignored.
func (f FillerSet) Add(phrase string) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return
	}
	f[phrase] = struct{}{}
}

// Contains reports whether the simplified phrase is in the set.
func (f FillerSet) Contains(phrase string) bool {
	_, ok := f[strings.ToLower(strings.TrimSpace(phrase))]
	return ok
}

// LoadFillers builds the union of the default set, a comma-separated inline
// list, and a newline-separated file (lines starting with # are comments).
// A missing file is not an error; any other read failure is reported but the
// set built so far is still returned.
func LoadFillers(inline, file string) (FillerSet, error) {
	fillers := DefaultFillers()

	for _, item := range strings.Split(inline, ",") {
		fillers.Add(item)
	}

	if file == "" {
		return fillers, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return fillers, nil
		}
		return fillers, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fillers.Add(line)
	}
	return fillers, nil
}
