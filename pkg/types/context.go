package types

import (
	"time"
)

// FileContext is a read-only snapshot of one file's attributes and
// extracted metadata, used for one rule evaluation and plan execution.
type FileContext struct {
	ID       int64
	Path     string // absolute path
	Filename string
	Ext      string // without leading dot
	MimeType string
	Size     int64
	Hash     string // hex sha256
	Created  time.Time
	Modified time.Time

	// Metadata holds extracted fields such as camera_model, gps_lat,
	// datetime, title or author.
	Metadata map[string]interface{}
	Language string
	Text     string
	Tags     []string
}

// Meta returns an extracted metadata field. Nil values count as absent.
func (fc *FileContext) Meta(key string) (interface{}, bool) {
	if fc == nil || fc.Metadata == nil {
		return nil, false
	}
	v, ok := fc.Metadata[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// MetaString returns a metadata field rendered as a non-empty string.
func (fc *FileContext) MetaString(key string) (string, bool) {
	v, ok := fc.Meta(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// FileRecord is a row of the catalog's files table.
type FileRecord struct {
	ID       int64
	Path     string
	Filename string
	Ext      string
	MimeType string
	Size     int64
	Hash     string
	Created  time.Time
	Modified time.Time
}

// ActionLogEntry is one immutable entry of the catalog's action log.
type ActionLogEntry struct {
	ID        int64
	FileID    int64
	Kind      ActionKind
	Source    string
	Target    string
	Timestamp time.Time
	Status    string
}
