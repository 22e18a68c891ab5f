package types

import (
	"context"
	"io"
	"io/fs"
	"time"
)

// FS is the filesystem interface required for dosort operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	Open(name string) (io.ReadCloser, error)
	// CreateExclusive creates name for writing and fails if it already exists
	CreateExclusive(name string, perm fs.FileMode) (io.WriteCloser, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Chtimes(name string, atime, mtime time.Time) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error

	// Link operations
	Link(oldname, newname string) error
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Other operations
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// CatalogStore is the persistent index of known files, their locations,
// tags and action history. Every write is committed before it returns.
type CatalogStore interface {
	// GetByPath returns the record at absPath, or nil when none exists.
	GetByPath(ctx context.Context, absPath string) (*FileRecord, error)

	// UpdatePath moves a record to newAbsPath. An empty newFilename keeps
	// the recorded filename.
	UpdatePath(ctx context.Context, fileID int64, newAbsPath, newFilename string) error

	// LogAction appends an immutable entry to the action log.
	LogAction(ctx context.Context, fileID int64, kind ActionKind, source, target string) (int64, error)

	// EnsureTag returns the id of the named tag, creating it if absent.
	EnsureTag(ctx context.Context, name string) (int64, error)

	// LinkTag attaches a tag to a file. Linking twice is a no-op.
	LinkTag(ctx context.Context, fileID, tagID int64) error
}

// MetadataProvider assembles the evaluation context of one file.
type MetadataProvider interface {
	GetContext(ctx context.Context, absPath string) (*FileContext, error)
}
