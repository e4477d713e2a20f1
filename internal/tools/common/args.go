package common

import (
	"strings"

	"github.com/teemow/todoist-mcp/internal/tools/batch"
)

// StringArg returns the trimmed string argument key, or "" when it is
// missing or not a string.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// BoolArg returns the boolean argument key, or def when it is missing or
// not a boolean.
func BoolArg(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}

// StringSliceArg accepts a single string, a JSON array string or an array
// and returns the non-empty entries. A missing argument yields an error.
func StringSliceArg(args map[string]any, key string) ([]string, error) {
	return batch.ParseStringOrArray(args[key], key)
}
