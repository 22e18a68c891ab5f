package catalog

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/types"
)

// MemoryStore is an in-process Store. It keeps nothing on disk.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	files   map[int64]*types.FileRecord
	byPath  map[string]int64
	attrs   map[int64]Attributes
	tags    map[string]int64
	links   map[int64]map[int64]bool // file id -> tag ids
	actions []types.ActionLogEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory catalog
func NewMemory() *MemoryStore {
	return &MemoryStore{
		files:  make(map[int64]*types.FileRecord),
		byPath: make(map[string]int64),
		attrs:  make(map[int64]Attributes),
		tags:   make(map[string]int64),
		links:  make(map[int64]map[int64]bool),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// GetByPath implements types.CatalogStore
func (m *MemoryStore) GetByPath(ctx context.Context, absPath string) (*types.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byPath[absPath]
	if !ok {
		return nil, nil
	}
	rec := *m.files[id]
	return &rec, nil
}

// AddFile registers a file. Registering a known path updates its record.
func (m *MemoryStore) AddFile(ctx context.Context, rec types.FileRecord) (int64, error) {
	if rec.Path == "" {
		return 0, errors.New(errors.ErrInvalidInput, "file record has no path")
	}
	if rec.Filename == "" {
		rec.Filename = filepath.Base(rec.Path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byPath[rec.Path]; ok {
		rec.ID = id
	} else {
		rec.ID = m.id()
		m.byPath[rec.Path] = rec.ID
	}
	m.files[rec.ID] = &rec
	return rec.ID, nil
}

// UpdatePath implements types.CatalogStore
func (m *MemoryStore) UpdatePath(ctx context.Context, fileID int64, newAbsPath, newFilename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.files[fileID]
	if !ok {
		return errors.Newf(errors.ErrNotFound, "no file with id %d", fileID)
	}
	if other, taken := m.byPath[newAbsPath]; taken && other != fileID {
		return errors.New(errors.ErrCatalog, "another file is already recorded at this path").
			WithDetail("file_id", fileID).
			WithDetail("path", newAbsPath)
	}

	delete(m.byPath, rec.Path)
	rec.Path = newAbsPath
	if newFilename != "" {
		rec.Filename = newFilename
	}
	m.byPath[newAbsPath] = fileID
	return nil
}

// LogAction implements types.CatalogStore
func (m *MemoryStore) LogAction(ctx context.Context, fileID int64, kind types.ActionKind, source, target string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := types.ActionLogEntry{
		ID:        int64(len(m.actions) + 1),
		FileID:    fileID,
		Kind:      kind,
		Source:    source,
		Target:    target,
		Timestamp: time.Now(),
		Status:    StatusSuccess,
	}
	m.actions = append(m.actions, entry)
	return entry.ID, nil
}

// Actions returns the action log of a file, oldest first
func (m *MemoryStore) Actions(ctx context.Context, fileID int64) ([]types.ActionLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.ActionLogEntry
	for _, entry := range m.actions {
		if entry.FileID == fileID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// AllActions returns the whole action log, oldest first
func (m *MemoryStore) AllActions() []types.ActionLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.ActionLogEntry(nil), m.actions...)
}

// EnsureTag implements types.CatalogStore
func (m *MemoryStore) EnsureTag(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New(errors.ErrInvalidInput, "tag name is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.tags[name]; ok {
		return id, nil
	}
	id := m.id()
	m.tags[name] = id
	return id, nil
}

// LinkTag implements types.CatalogStore
func (m *MemoryStore) LinkTag(ctx context.Context, fileID, tagID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.links[fileID] == nil {
		m.links[fileID] = make(map[int64]bool)
	}
	m.links[fileID][tagID] = true
	return nil
}

// UnlinkTag detaches a tag from a file and forgets the tag once unused
func (m *MemoryStore) UnlinkTag(ctx context.Context, fileID int64, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tagID, ok := m.tags[tag]
	if !ok {
		return errors.Newf(errors.ErrNotFound, "tag %q does not exist", tag)
	}
	if !m.links[fileID][tagID] {
		return errors.Newf(errors.ErrNotFound, "file has no tag %q", tag)
	}
	delete(m.links[fileID], tagID)

	for _, linked := range m.links {
		if linked[tagID] {
			return nil
		}
	}
	delete(m.tags, tag)
	return nil
}

// FileTags returns the sorted tag names of a file
func (m *MemoryStore) FileTags(ctx context.Context, fileID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name, id := range m.tags {
		if m.links[fileID][id] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// FilesByTag returns the files carrying tag, in id order
func (m *MemoryStore) FilesByTag(ctx context.Context, tag string) ([]types.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tagID, ok := m.tags[tag]
	if !ok {
		return nil, nil
	}
	var out []types.FileRecord
	for _, rec := range m.sortedFiles() {
		if m.links[rec.ID][tagID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListFiles returns files in id order, limited to scope when it is set
func (m *MemoryStore) ListFiles(ctx context.Context, scope string) ([]types.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.FileRecord
	for _, rec := range m.sortedFiles() {
		if inScope(rec.Path, scope) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) sortedFiles() []types.FileRecord {
	out := make([]types.FileRecord, 0, len(m.files))
	for _, rec := range m.files {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetAttributes records extracted metadata, language and text for a file
func (m *MemoryStore) SetAttributes(ctx context.Context, fileID int64, attrs Attributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	metadata := make(map[string]interface{}, len(attrs.Metadata))
	for k, v := range attrs.Metadata {
		metadata[k] = v
	}
	attrs.Metadata = metadata
	m.attrs[fileID] = attrs
	return nil
}

// Attributes returns what SetAttributes recorded for a file
func (m *MemoryStore) Attributes(ctx context.Context, fileID int64) (*Attributes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	attrs := m.attrs[fileID]
	metadata := make(map[string]interface{}, len(attrs.Metadata))
	for k, v := range attrs.Metadata {
		metadata[k] = v
	}
	attrs.Metadata = metadata
	return &attrs, nil
}

// Close implements Store
func (m *MemoryStore) Close() error { return nil }
