package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/dosort/pkg/types"
)

// StatusSuccess is the status recorded for executed actions
const StatusSuccess = "success"

// Store is a catalog backend
type Store interface {
	types.CatalogStore

	// AddFile registers a file and returns its id
	AddFile(ctx context.Context, rec types.FileRecord) (int64, error)
	// SetAttributes records extracted metadata, language and text for a file
	SetAttributes(ctx context.Context, fileID int64, attrs Attributes) error
	// Attributes returns what SetAttributes recorded, or empty attributes
	Attributes(ctx context.Context, fileID int64) (*Attributes, error)
	// ListFiles returns files in id order. An empty scope lists everything;
	// otherwise scope is a file path or a directory prefix.
	ListFiles(ctx context.Context, scope string) ([]types.FileRecord, error)
	// Actions returns the action log of a file, oldest first
	Actions(ctx context.Context, fileID int64) ([]types.ActionLogEntry, error)
	// FileTags returns the sorted tag names of a file
	FileTags(ctx context.Context, fileID int64) ([]string, error)
	// FilesByTag returns the files carrying a tag, in id order
	FilesByTag(ctx context.Context, tag string) ([]types.FileRecord, error)
	// UnlinkTag detaches a tag from a file and deletes the tag once unused
	UnlinkTag(ctx context.Context, fileID int64, tag string) error
	Close() error
}

// Attributes is the extracted information about a file that is not part of
// its files row.
type Attributes struct {
	// Metadata holds media and document fields such as camera_model,
	// gps_lat, title or author
	Metadata map[string]interface{}
	Language string
	Text     string
}

// inScope reports whether path is scope itself or lies below it
func inScope(path, scope string) bool {
	if scope == "" {
		return true
	}
	scope = filepath.Clean(scope)
	if path == scope {
		return true
	}
	prefix := scope
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// timestamps are stored the way Python's sqlite3 adapter writes datetimes
const timestampLayout = "2006-01-02 15:04:05.999999"

var timestampLayouts = []string{
	timestampLayout,
	"2006-01-02T15:04:05.999999",
	time.RFC3339Nano,
	"2006-01-02",
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
