package matchers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/bmatcuk/doublestar/v4"
)

// DateLayout is the layout of created_after / created_before values
const DateLayout = "2006-01-02"

// ExifPrefix introduces predicates over extracted metadata fields
const ExifPrefix = "exif."

// PredicateFunc tests one predicate value against a file context
type PredicateFunc func(value interface{}, fc *types.FileContext) bool

// predicates stores the evaluators for exact predicate keys
var predicates = map[string]PredicateFunc{
	"mimetype":          matchMimeType,
	"ext":               matchExt,
	"language":          matchLanguage,
	"text.contains_any": matchTextAny,
	"text.contains_all": matchTextAll,
	"filename.contains": matchFilenameContains,
	"filename.matches":  matchFilenameGlob,
	"path.matches":      matchPathGlob,
	"size.gt":           matchSizeGT,
	"size.lt":           matchSizeLT,
	"created_after":     matchCreatedAfter,
	"created_before":    matchCreatedBefore,
}

// Lookup returns the evaluator for key, including exif.<field> keys
func Lookup(key string) (PredicateFunc, bool) {
	if field, ok := strings.CutPrefix(key, ExifPrefix); ok {
		if field == "" {
			return nil, false
		}
		return func(value interface{}, fc *types.FileContext) bool {
			return matchExif(field, value, fc)
		}, true
	}
	fn, ok := predicates[key]
	return fn, ok
}

// Known reports whether key names a supported predicate
func Known(key string) bool {
	_, ok := Lookup(key)
	return ok
}

// Keys returns the supported exact predicate keys, sorted
func Keys() []string {
	keys := make([]string, 0, len(predicates))
	for k := range predicates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Matches reports whether every predicate of cond holds for fc
func Matches(cond types.Condition, fc *types.FileContext) bool {
	if fc == nil {
		return false
	}
	for _, p := range cond {
		if !Evaluate(p.Key, p.Value, fc) {
			return false
		}
	}
	return true
}

// Evaluate tests a single predicate. Unknown keys hold.
func Evaluate(key string, value interface{}, fc *types.FileContext) bool {
	if fc == nil {
		return false
	}
	fn, ok := Lookup(key)
	if !ok {
		return true
	}
	return fn(value, fc)
}

func matchMimeType(value interface{}, fc *types.FileContext) bool {
	want, ok := value.(string)
	if !ok || fc.MimeType == "" {
		return false
	}
	if prefix, wildcard := strings.CutSuffix(want, "/*"); wildcard {
		return strings.HasPrefix(fc.MimeType, prefix+"/")
	}
	return fc.MimeType == want
}

func matchExt(value interface{}, fc *types.FileContext) bool {
	alts, ok := toStringList(value)
	if !ok {
		return false
	}
	ext := normalizeExt(fc.Ext)
	if ext == "" {
		return false
	}
	for _, alt := range alts {
		if normalizeExt(alt) == ext {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func matchExif(field string, value interface{}, fc *types.FileContext) bool {
	got, ok := fc.Meta(field)
	if !ok {
		return false
	}
	if list, isList := asList(value); isList {
		for _, candidate := range list {
			if valuesEqual(got, candidate) {
				return true
			}
		}
		return false
	}
	return valuesEqual(got, value)
}

func matchLanguage(value interface{}, fc *types.FileContext) bool {
	want, ok := value.(string)
	return ok && fc.Language != "" && fc.Language == want
}

func matchTextAny(value interface{}, fc *types.FileContext) bool {
	return containsAny(fc.Text, value)
}

func matchTextAll(value interface{}, fc *types.FileContext) bool {
	needles, ok := toStringList(value)
	if !ok || fc.Text == "" {
		return false
	}
	haystack := strings.ToLower(fc.Text)
	for _, needle := range needles {
		if !strings.Contains(haystack, strings.ToLower(needle)) {
			return false
		}
	}
	return true
}

func matchFilenameContains(value interface{}, fc *types.FileContext) bool {
	return containsAny(fc.Filename, value)
}

func containsAny(text string, value interface{}) bool {
	needles, ok := toStringList(value)
	if !ok || text == "" {
		return false
	}
	haystack := strings.ToLower(text)
	for _, needle := range needles {
		if strings.Contains(haystack, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

func matchFilenameGlob(value interface{}, fc *types.FileContext) bool {
	return globAny(value, fc.Filename)
}

func matchPathGlob(value interface{}, fc *types.FileContext) bool {
	return globAny(value, filepath.ToSlash(fc.Path))
}

func globAny(value interface{}, name string) bool {
	patterns, ok := toStringList(value)
	if !ok || name == "" {
		return false
	}
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, name)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func matchSizeGT(value interface{}, fc *types.FileContext) bool {
	limit, ok := toFloat(value)
	return ok && float64(fc.Size) > limit
}

func matchSizeLT(value interface{}, fc *types.FileContext) bool {
	limit, ok := toFloat(value)
	return ok && float64(fc.Size) < limit
}

func matchCreatedAfter(value interface{}, fc *types.FileContext) bool {
	date, ok := parseDate(value)
	if !ok || fc.Created.IsZero() {
		return false
	}
	return !fc.Created.Before(date)
}

func matchCreatedBefore(value interface{}, fc *types.FileContext) bool {
	date, ok := parseDate(value)
	if !ok || fc.Created.IsZero() {
		return false
	}
	return !fc.Created.After(date)
}

func parseDate(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		date, err := time.ParseInLocation(DateLayout, v, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return date, true
	case time.Time:
		// YAML decoders turn unquoted dates into timestamps
		return v, !v.IsZero()
	}
	return time.Time{}, false
}

// toStringList accepts a string or a list of strings
func toStringList(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, len(v) > 0
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, len(out) > 0
	}
	return nil, false
}

func asList(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// valuesEqual compares metadata values, treating all numbers alike
func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
