package matchers

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidateValue checks the shape of a known predicate's value so malformed
// rules fail when they are loaded rather than silently never matching.
// Unknown keys are accepted.
func ValidateValue(key string, value interface{}) error {
	if strings.HasPrefix(key, ExifPrefix) {
		if key == ExifPrefix {
			return fmt.Errorf("predicate %q names no metadata field", key)
		}
		if value == nil {
			return fmt.Errorf("predicate %q has no value", key)
		}
		return nil
	}

	switch key {
	case "mimetype", "language":
		if s, ok := value.(string); !ok || s == "" {
			return fmt.Errorf("predicate %q expects a non-empty string", key)
		}
	case "ext", "text.contains_any", "text.contains_all", "filename.contains":
		if _, ok := toStringList(value); !ok {
			return fmt.Errorf("predicate %q expects a string or a list of strings", key)
		}
	case "filename.matches", "path.matches":
		patterns, ok := toStringList(value)
		if !ok {
			return fmt.Errorf("predicate %q expects a glob or a list of globs", key)
		}
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("predicate %q has invalid glob %q", key, p)
			}
		}
	case "size.gt", "size.lt":
		if _, ok := toFloat(value); !ok {
			return fmt.Errorf("predicate %q expects a number of bytes", key)
		}
	case "created_after", "created_before":
		if _, ok := parseDate(value); !ok {
			return fmt.Errorf("predicate %q expects a date formatted %s", key, DateLayout)
		}
	}
	return nil
}
