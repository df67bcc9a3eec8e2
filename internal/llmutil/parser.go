// internal/llmutil/parser.go
package llmutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Regex uses \x60 for backticks because Go raw strings cannot contain them.
// markdownJSONRegex extracts a JSON object wrapped in a markdown code fence.
var markdownJSONRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")

// ParseJSONResponse parses an LLM response into the target type. Models that
// were asked for a bare JSON object still occasionally wrap it in a markdown
// fence or pad it with conversational text; both are stripped before
// unmarshaling. The first decoded value is returned, never a silent zero
// value: any shape the target type cannot hold is an error for the caller to
// branch on.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, fmt.Errorf("empty response")
	}

	candidate := response
	if strings.HasPrefix(response, "```") {
		if matches := markdownJSONRegex.FindStringSubmatch(response); len(matches) > 1 {
			candidate = matches[1]
		}
	} else if !strings.HasPrefix(response, "{") {
		// Conversational padding around the object.
		first := strings.Index(response, "{")
		last := strings.LastIndex(response, "}")
		if first != -1 && last > first {
			candidate = response[first : last+1]
		}
	}

	var result T
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s",
			err, Truncate(candidate, 500))
	}
	return &result, nil
}

// Truncate shortens a string for log and error output.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
