// Package formatting provides parsing and truncation utilities for text
// exchanged with language models: JSON extraction from raw model output and
// rune-aware truncation for prompt and snippet budgets.
package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when content cannot be parsed as JSON,
// either directly or from a markdown code fence.
var ErrParseFailed = errors.New("failed to parse response")

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// Parse attempts to unmarshal content as JSON into T.
// If direct parsing fails, it extracts JSON from a markdown code fence
// and retries. Returns ErrParseFailed if both attempts fail.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return result, nil
	}

	matches := jsonBlockRegex.FindStringSubmatch(content)
	if len(matches) >= 2 {
		cleaned := strings.TrimSpace(matches[1])
		if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
			return result, nil
		}
	}

	return result, fmt.Errorf("%w: %s", ErrParseFailed, content)
}

// ExtractJSON returns the JSON payload of content as raw bytes, stripping a
// markdown code fence when present. It does not validate that the payload is
// well-formed JSON; callers that need validation should unmarshal or run the
// bytes through a schema validator.
func ExtractJSON(content string) []byte {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return []byte(content)
	}

	matches := jsonBlockRegex.FindStringSubmatch(content)
	if len(matches) >= 2 {
		return []byte(strings.TrimSpace(matches[1]))
	}

	return []byte(content)
}

// Truncate shortens s to at most limit runes. Byte-based slicing would split
// multi-byte characters, which matters for predominantly CJK document text.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}

// Snippet collapses whitespace in s and truncates it to limit runes,
// producing a single-line excerpt suitable for diagnostics.
func Snippet(s string, limit int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), limit)
}

// RuneLen returns the rune count of s.
func RuneLen(s string) int {
	return len([]rune(s))
}
