package docs

import (
	"fmt"
	"os"
	"strings"
)

// DefaultHeaderLines is the size of the license preamble stripped from
// reference sources.
const DefaultHeaderLines = 21

// LoadReference returns the content of the file at path without its first
// headerLines lines. Line endings are preserved. A file with no more than
// headerLines lines yields an empty string.
func LoadReference(path string, headerLines int) (string, error) {
	if headerLines < 0 {
		return "", fmt.Errorf("header lines must not be negative, got %d", headerLines)
	}
	data, err := os.ReadFile(path) // #nosec G304 - reference path supplied by the caller
	if err != nil {
		return "", err
	}
	return StripHeader(string(data), headerLines), nil
}

// StripHeader drops the first n lines of s.
func StripHeader(s string, n int) string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if n >= len(lines) {
		return ""
	}
	return strings.Join(lines[n:], "")
}
