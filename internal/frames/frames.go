// Package frames provides helpers for printf-style frame sequence patterns
// as published by the tracking service (for example shot_0010.%04d.exr).
package frames

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var frameTokenRe = regexp.MustCompile(`%(0\d+)?d`)

// tokenCandidates returns the frame tokens in pattern with %% escapes removed
// so a literal percent cannot masquerade as a token prefix.
func tokenCandidates(pattern string) (tokens []string, stray bool) {
	unescaped := strings.ReplaceAll(pattern, "%%", "")
	tokens = frameTokenRe.FindAllString(unescaped, -1)
	rest := frameTokenRe.ReplaceAllString(unescaped, "")
	return tokens, strings.Contains(rest, "%")
}

// HasToken reports whether pattern contains exactly one frame number token
// and no other format directives.
func HasToken(pattern string) bool {
	tokens, stray := tokenCandidates(pattern)
	return len(tokens) == 1 && !stray
}

// Format substitutes the frame number into the pattern. Patterns without a
// single frame token, or carrying any other format directive, are rejected so
// a malformed publish cannot resolve to a garbage path.
func Format(pattern string, frame int) (string, error) {
	tokens, stray := tokenCandidates(pattern)
	if len(tokens) == 0 {
		return "", fmt.Errorf("pattern %q has no frame token", pattern)
	}
	if len(tokens) > 1 {
		return "", fmt.Errorf("pattern %q has %d frame tokens, want 1", pattern, len(tokens))
	}
	if stray {
		return "", fmt.Errorf("pattern %q contains format directives other than the frame token", pattern)
	}
	return fmt.Sprintf(pattern, frame), nil
}

// Count returns the number of frames in the inclusive range.
func Count(first, last int) int {
	if last < first {
		return 0
	}
	return last - first + 1
}

// Missing scans disk for frames of the pattern inside the inclusive range and
// returns the frame numbers that do not exist as regular files.
func Missing(pattern string, first, last int) ([]int, error) {
	if !HasToken(pattern) {
		return nil, fmt.Errorf("pattern %q has no frame token", pattern)
	}
	var missing []int
	for frame := first; frame <= last; frame++ {
		path, err := Format(pattern, frame)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			missing = append(missing, frame)
		}
	}
	return missing, nil
}
