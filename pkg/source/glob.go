package source

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Stdin is the path that names standard input.
const Stdin = "-"

// ExpandGlobs expands file paths and glob patterns, such as the dated files
// an IRLogger prefix produces (prefix_*.log), into a deduplicated, sorted list.
//
// Patterns that match nothing are returned as-is so that opening them reports
// a useful error. Stdin is kept, in first position if present.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var (
		result   []string
		useStdin bool
	)

	for _, pattern := range patterns {
		if pattern == Stdin {
			useStdin = true
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}

		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				result = append(result, match)
			}
		}
	}

	sort.Strings(result)

	if useStdin {
		result = append([]string{Stdin}, result...)
	}
	return result, nil
}
