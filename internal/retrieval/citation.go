package retrieval

import (
	"regexp"
	"strconv"
)

// citationPattern matches explicit context-position markers like [3] in
// generated answer text.
var citationPattern = regexp.MustCompile(`\[(\d{1,3})\]`)

// ExtractCitations scans answer text for citation markers referencing
// 1-based context positions and returns the cited positions in first-seen
// order. Markers outside [1, contextSize] are ignored. If no valid marker
// is found, every position is returned (fail-open): an answer generated
// from context should never come back with empty sources.
func ExtractCitations(answer string, contextSize int) []int {
	if contextSize <= 0 {
		return nil
	}

	seen := make(map[int]bool)
	var cited []int
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > contextSize {
			continue
		}
		if !seen[n] {
			seen[n] = true
			cited = append(cited, n)
		}
	}

	if len(cited) == 0 {
		cited = make([]int, contextSize)
		for i := range cited {
			cited[i] = i + 1
		}
	}
	return cited
}
