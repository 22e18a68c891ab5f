// Package template renders destination paths and filenames from rule
// templates such as "Photos/{year}/{month}" or "{datetime}_{hash8}.{ext}".
//
// Unknown placeholders are left untouched; callers own template correctness.
package template

import (
	"regexp"
	"strings"
	"time"

	"github.com/arthur-debert/dosort/pkg/types"
)

const (
	// DatetimeLayout renders {datetime} as YYYYMMDD_HHMMSS
	DatetimeLayout = "20060102_150405"

	unknownCamera = "unknown"
	untitled      = "untitled"
	maxSlugRunes  = 50
)

var (
	placeholderPattern = regexp.MustCompile(`\{([a-z0-9_]+)\}`)
	nonSlugChars       = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s-]`)
	whitespaceRuns     = regexp.MustCompile(`\s+`)
)

// Formatter renders templates. Now supplies the timestamp used when a file
// has neither a creation nor a modification time.
type Formatter struct {
	Now func() time.Time
}

// New returns a Formatter using the wall clock
func New() *Formatter {
	return &Formatter{Now: time.Now}
}

// Format renders tmpl against fc using the wall clock fallback
func Format(tmpl string, fc *types.FileContext) string {
	return New().Format(tmpl, fc)
}

// Format replaces every known {placeholder} in tmpl with its value for fc
func (f *Formatter) Format(tmpl string, fc *types.FileContext) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	values := f.placeholders(fc)
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := values[name]; ok {
			return value
		}
		return match
	})
}

func (f *Formatter) placeholders(fc *types.FileContext) map[string]string {
	if fc == nil {
		fc = &types.FileContext{}
	}
	ts := f.timestamp(fc)
	datetime := ts.Format(DatetimeLayout)

	hash8 := fc.Hash
	if len(hash8) > 8 {
		hash8 = hash8[:8]
	}

	camera, ok := fc.MetaString("camera_model")
	if !ok {
		camera = unknownCamera
	}

	title, ok := fc.MetaString("title")
	if !ok {
		title = fc.Filename
	}

	return map[string]string{
		"year":         ts.Format("2006"),
		"month":        ts.Format("01"),
		"day":          ts.Format("02"),
		"datetime":     datetime,
		"created_ts":   datetime,
		"ext":          fc.Ext,
		"hash8":        hash8,
		"camera_model": camera,
		"title":        Slugify(title),
	}
}

func (f *Formatter) timestamp(fc *types.FileContext) time.Time {
	switch {
	case !fc.Created.IsZero():
		return fc.Created
	case !fc.Modified.IsZero():
		return fc.Modified
	case f.Now != nil:
		return f.Now()
	}
	return time.Now()
}

// Slugify lowercases s, drops characters other than word characters,
// whitespace and hyphens, joins whitespace runs with "_" and truncates to
// 50 characters. An empty result becomes "untitled".
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "")
	slug = whitespaceRuns.ReplaceAllString(slug, "_")
	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = string(runes[:maxSlugRunes])
	}
	if slug == "" {
		return untitled
	}
	return slug
}
