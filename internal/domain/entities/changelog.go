package entities

import (
	"fmt"
	"strings"
)

const (
	unreleasedHeading = "## [Unreleased]"
	h2Prefix          = "## ["
)

// PromoteUnreleased turns the "## [Unreleased]" section of a Keep-a-Changelog
// formatted string into a "## [version] - date" section and opens a new, empty
// Unreleased section above it.
//
// Behaviour:
//   - If "## [Unreleased]" is missing, the content is returned unchanged and ok is false.
//   - If the Unreleased section has no content, the content is returned unchanged
//     and ok is false, so empty releases do not produce empty sections.
//   - If the version already has a section, the content is returned unchanged and ok is false.
func PromoteUnreleased(content, version, date string) (string, bool) {
	lines := strings.Split(content, "\n")

	unreleasedIdx := findUnreleasedIndex(lines)
	if unreleasedIdx < 0 {
		return content, false
	}
	if hasVersionSection(lines, version) {
		return content, false
	}

	nextH2Idx := findNextH2Index(lines, unreleasedIdx)
	if !hasContent(lines, unreleasedIdx+1, nextH2Idx) {
		return content, false
	}

	heading := fmt.Sprintf("## [%s] - %s", version, date)
	block := []string{unreleasedHeading, "", heading}
	lines = append(lines[:unreleasedIdx], append(block, lines[unreleasedIdx+1:]...)...)
	return strings.Join(lines, "\n"), true
}

// findUnreleasedIndex returns the line index of the "## [Unreleased]"
// heading, or -1 if not found.
func findUnreleasedIndex(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) == unreleasedHeading {
			return i
		}
	}
	return -1
}

// findNextH2Index returns the line index of the next "## [" heading after
// startIdx, or len(lines) if there is none.
func findNextH2Index(lines []string, startIdx int) int {
	for i := startIdx + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), h2Prefix) {
			return i
		}
	}
	return len(lines)
}

func hasVersionSection(lines []string, version string) bool {
	prefix := h2Prefix + version + "]"
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			return true
		}
	}
	return false
}

func hasContent(lines []string, from, to int) bool {
	for i := from; i < to; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return true
		}
	}
	return false
}
