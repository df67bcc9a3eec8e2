package tools

import (
	"fmt"
	"strings"
)

// stringArg extracts a required string argument from a tool call's args map.
// Planner output is model-generated, so presence and type are both checked.
func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("argument %q must not be empty", key)
	}
	return s, nil
}

// optionalStringArg extracts an optional string argument, returning the
// fallback when absent or empty. A present value of the wrong type is still
// an error.
func optionalStringArg(args map[string]any, key, fallback string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	return s, nil
}
