package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/rs/zerolog"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed embedded/schema.sql
var schemaSQL string

const (
	defaultPoolSize = 4
	busyTimeout     = 5 * time.Second
)

var (
	mediaColumns = []string{"width", "height", "camera_model", "datetime", "gps_lat", "gps_lon",
		"duration", "codec", "fps", "resolution", "bitrate", "samplerate"}
	docColumns = []string{"pages", "title", "author", "keywords", "has_ocr"}
)

// SQLiteStore is a Store backed by a SQLite database file. Reads run on a
// connection pool; writes are serialised and committed before returning.
type SQLiteStore struct {
	pool   *sqlitex.Pool
	path   string
	writes sync.Mutex
	logger zerolog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the catalog database at path and
// applies the schema
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	logger := logging.GetLogger("catalog.sqlite")
	if path == "" {
		return nil, errors.New(errors.ErrCatalog, "catalog path is empty")
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: defaultPoolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			conn.SetBusyTimeout(busyTimeout)
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCatalog, "cannot open catalog %s", path).
			WithDetail("path", path)
	}

	s := &SQLiteStore{pool: pool, path: path, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	logger.Debug().Str("path", path).Msg("Catalog opened")
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	s.writes.Lock()
	defer s.writes.Unlock()

	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schemaSQL, nil); err != nil {
		return errors.Wrap(err, errors.ErrCatalog, "cannot apply catalog schema").
			WithDetail("path", s.path)
	}
	return nil
}

// Close releases every pooled connection
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

func (s *SQLiteStore) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCatalog, "cannot get catalog connection")
	}
	return conn, nil
}

// read runs fn on a pooled connection
func (s *SQLiteStore) read(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

// write runs fn inside a savepoint while holding the write lock
func (s *SQLiteStore) write(ctx context.Context, fn func(conn *sqlite.Conn) error) (err error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	defer sqlitex.Save(conn)(&err)
	return fn(conn)
}

const fileColumns = `id, abs_path, filename, ext, mimetype, size, hash_sha256, created_ts, modified_ts`

func scanFile(stmt *sqlite.Stmt) types.FileRecord {
	return types.FileRecord{
		ID:       stmt.GetInt64("id"),
		Path:     stmt.GetText("abs_path"),
		Filename: stmt.GetText("filename"),
		Ext:      stmt.GetText("ext"),
		MimeType: stmt.GetText("mimetype"),
		Size:     stmt.GetInt64("size"),
		Hash:     stmt.GetText("hash_sha256"),
		Created:  parseTimestamp(stmt.GetText("created_ts")),
		Modified: parseTimestamp(stmt.GetText("modified_ts")),
	}
}

// GetByPath implements types.CatalogStore
func (s *SQLiteStore) GetByPath(ctx context.Context, absPath string) (*types.FileRecord, error) {
	var rec *types.FileRecord
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+fileColumns+` FROM files WHERE abs_path = ?`, &sqlitex.ExecOptions{
			Args: []any{absPath},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				r := scanFile(stmt)
				rec = &r
				return nil
			},
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCatalog, "cannot look up file").WithDetail("path", absPath)
	}
	return rec, nil
}

// AddFile registers a file. Registering a known path updates its row.
func (s *SQLiteStore) AddFile(ctx context.Context, rec types.FileRecord) (int64, error) {
	if rec.Path == "" {
		return 0, errors.New(errors.ErrInvalidInput, "file record has no path")
	}
	if rec.Filename == "" {
		rec.Filename = filepath.Base(rec.Path)
	}

	var id int64
	err := s.write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO files (abs_path, filename, ext, mimetype, size, hash_sha256, created_ts, modified_ts, ingested_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(abs_path) DO UPDATE SET
				filename = excluded.filename, ext = excluded.ext, mimetype = excluded.mimetype,
				size = excluded.size, hash_sha256 = excluded.hash_sha256,
				created_ts = excluded.created_ts, modified_ts = excluded.modified_ts`,
			&sqlitex.ExecOptions{Args: []any{
				rec.Path, rec.Filename, rec.Ext, rec.MimeType, rec.Size, rec.Hash,
				formatTimestamp(rec.Created), formatTimestamp(rec.Modified), formatTimestamp(time.Now()),
			}})
		if err != nil {
			return err
		}
		return sqlitex.Execute(conn, `SELECT id FROM files WHERE abs_path = ?`, &sqlitex.ExecOptions{
			Args: []any{rec.Path},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCatalog, "cannot add file").WithDetail("path", rec.Path)
	}
	return id, nil
}

// UpdatePath implements types.CatalogStore
func (s *SQLiteStore) UpdatePath(ctx context.Context, fileID int64, newAbsPath, newFilename string) error {
	err := s.write(ctx, func(conn *sqlite.Conn) error {
		query := `UPDATE files SET abs_path = ? WHERE id = ?`
		args := []any{newAbsPath, fileID}
		if newFilename != "" {
			query = `UPDATE files SET abs_path = ?, filename = ? WHERE id = ?`
			args = []any{newAbsPath, newFilename, fileID}
		}
		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return errors.Newf(errors.ErrNotFound, "no file with id %d", fileID)
		}
		return nil
	})
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrNotFound) {
			return err
		}
		msg := "cannot update file path"
		if sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
			msg = "another file is already recorded at this path"
		}
		return errors.Wrap(err, errors.ErrCatalog, msg).
			WithDetail("file_id", fileID).
			WithDetail("path", newAbsPath)
	}
	return nil
}

// LogAction implements types.CatalogStore
func (s *SQLiteStore) LogAction(ctx context.Context, fileID int64, kind types.ActionKind, source, target string) (int64, error) {
	var id int64
	err := s.write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO actions_log (file_id, action_type, source_path, target_path, timestamp, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				fileID, string(kind), source, target, formatTimestamp(time.Now()), StatusSuccess,
			}})
		id = conn.LastInsertRowID()
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCatalog, "cannot log action").
			WithDetail("file_id", fileID).
			WithDetail("kind", string(kind))
	}
	return id, nil
}

// Actions returns the action log of a file, oldest first
func (s *SQLiteStore) Actions(ctx context.Context, fileID int64) ([]types.ActionLogEntry, error) {
	var entries []types.ActionLogEntry
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT id, file_id, action_type, source_path, target_path, timestamp, status
			FROM actions_log WHERE file_id = ? ORDER BY id`,
			&sqlitex.ExecOptions{
				Args: []any{fileID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					entries = append(entries, types.ActionLogEntry{
						ID:        stmt.GetInt64("id"),
						FileID:    stmt.GetInt64("file_id"),
						Kind:      types.ActionKind(stmt.GetText("action_type")),
						Source:    stmt.GetText("source_path"),
						Target:    stmt.GetText("target_path"),
						Timestamp: parseTimestamp(stmt.GetText("timestamp")),
						Status:    stmt.GetText("status"),
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCatalog, "cannot read action log").WithDetail("file_id", fileID)
	}
	return entries, nil
}

// EnsureTag implements types.CatalogStore
func (s *SQLiteStore) EnsureTag(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New(errors.ErrInvalidInput, "tag name is empty")
	}

	var id int64
	err := s.write(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `INSERT OR IGNORE INTO tags (name) VALUES (?)`,
			&sqlitex.ExecOptions{Args: []any{name}}); err != nil {
			return err
		}
		return sqlitex.Execute(conn, `SELECT id FROM tags WHERE name = ?`, &sqlitex.ExecOptions{
			Args: []any{name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCatalog, "cannot create tag").WithDetail("tag", name)
	}
	return id, nil
}

// LinkTag implements types.CatalogStore
func (s *SQLiteStore) LinkTag(ctx context.Context, fileID, tagID int64) error {
	err := s.write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{fileID, tagID}})
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCatalog, "cannot tag file").
			WithDetail("file_id", fileID).
			WithDetail("tag_id", tagID)
	}
	return nil
}

// UnlinkTag detaches a tag from a file and deletes the tag once no file
// carries it
func (s *SQLiteStore) UnlinkTag(ctx context.Context, fileID int64, tag string) error {
	err := s.write(ctx, func(conn *sqlite.Conn) error {
		var tagID int64
		if err := sqlitex.Execute(conn, `SELECT id FROM tags WHERE name = ?`, &sqlitex.ExecOptions{
			Args: []any{tag},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tagID = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
			return err
		}
		if tagID == 0 {
			return errors.Newf(errors.ErrNotFound, "tag %q does not exist", tag)
		}

		if err := sqlitex.Execute(conn, `DELETE FROM file_tags WHERE file_id = ? AND tag_id = ?`,
			&sqlitex.ExecOptions{Args: []any{fileID, tagID}}); err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return errors.Newf(errors.ErrNotFound, "file has no tag %q", tag)
		}

		return sqlitex.Execute(conn, `
			DELETE FROM tags WHERE id = ? AND NOT EXISTS (SELECT 1 FROM file_tags WHERE tag_id = ?)`,
			&sqlitex.ExecOptions{Args: []any{tagID, tagID}})
	})
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrNotFound) {
			return err
		}
		return errors.Wrap(err, errors.ErrCatalog, "cannot remove tag").
			WithDetail("file_id", fileID).
			WithDetail("tag", tag)
	}
	return nil
}

// FileTags returns the sorted tag names of a file
func (s *SQLiteStore) FileTags(ctx context.Context, fileID int64) ([]string, error) {
	var tags []string
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT t.name FROM tags t JOIN file_tags ft ON t.id = ft.tag_id
			WHERE ft.file_id = ? ORDER BY t.name`,
			&sqlitex.ExecOptions{
				Args: []any{fileID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					tags = append(tags, stmt.ColumnText(0))
					return nil
				},
			})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCatalog, "cannot read tags").WithDetail("file_id", fileID)
	}
	return tags, nil
}

// FilesByTag returns the files carrying tag, in id order
func (s *SQLiteStore) FilesByTag(ctx context.Context, tag string) ([]types.FileRecord, error) {
	var files []types.FileRecord
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT f.id, f.abs_path, f.filename, f.ext, f.mimetype, f.size, f.hash_sha256, f.created_ts, f.modified_ts
			FROM files f
			JOIN file_tags ft ON f.id = ft.file_id
			JOIN tags t ON t.id = ft.tag_id
			WHERE t.name = ? ORDER BY f.id`,
			&sqlitex.ExecOptions{
				Args: []any{tag},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					files = append(files, scanFile(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCatalog, "cannot list tagged files").WithDetail("tag", tag)
	}
	return files, nil
}

// ListFiles returns files in id order, limited to scope when it is set
func (s *SQLiteStore) ListFiles(ctx context.Context, scope string) ([]types.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files ORDER BY id`
	var args []any
	if scope != "" {
		scope = filepath.Clean(scope)
		prefix := scope
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		query = `SELECT ` + fileColumns + ` FROM files
			WHERE abs_path = ? OR substr(abs_path, 1, length(?)) = ? ORDER BY id`
		args = []any{scope, prefix, prefix}
	}

	var files []types.FileRecord
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				files = append(files, scanFile(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCatalog, "cannot list files").WithDetail("scope", scope)
	}
	return files, nil
}

// SetAttributes replaces the media, document and content rows of a file
func (s *SQLiteStore) SetAttributes(ctx context.Context, fileID int64, attrs Attributes) error {
	media := pickColumns(attrs.Metadata, mediaColumns)
	doc := pickColumns(attrs.Metadata, docColumns)
	if attrs.Language != "" {
		doc["language"] = attrs.Language
	}

	err := s.write(ctx, func(conn *sqlite.Conn) error {
		for _, table := range []string{"metadata_media", "metadata_doc", "content_index"} {
			if err := sqlitex.Execute(conn, `DELETE FROM `+table+` WHERE file_id = ?`,
				&sqlitex.ExecOptions{Args: []any{fileID}}); err != nil {
				return err
			}
		}
		if err := insertRow(conn, "metadata_media", fileID, media); err != nil {
			return err
		}
		if err := insertRow(conn, "metadata_doc", fileID, doc); err != nil {
			return err
		}
		if attrs.Text != "" {
			return sqlitex.Execute(conn, `INSERT INTO content_index (file_id, plain_text) VALUES (?, ?)`,
				&sqlitex.ExecOptions{Args: []any{fileID, attrs.Text}})
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCatalog, "cannot store file attributes").WithDetail("file_id", fileID)
	}
	return nil
}

func pickColumns(metadata map[string]interface{}, columns []string) map[string]any {
	out := make(map[string]any)
	for _, col := range columns {
		v, ok := metadata[col]
		if !ok || v == nil {
			continue
		}
		out[col] = bindable(v)
	}
	return out
}

// bindable narrows metadata values to the types sqlitex can bind
func bindable(v interface{}) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int64, float64, string, bool:
		return val
	case float32:
		return float64(val)
	case time.Time:
		return formatTimestamp(val)
	}
	return fmt.Sprint(v)
}

func insertRow(conn *sqlite.Conn, table string, fileID int64, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := []any{fileID}
	for _, col := range cols {
		args = append(args, values[col])
	}
	query := `INSERT INTO ` + table + ` (file_id, ` + strings.Join(cols, ", ") + `) VALUES (?` +
		strings.Repeat(", ?", len(cols)) + `)`
	return sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{Args: args})
}

// Attributes reads back the media, document and content rows of a file
func (s *SQLiteStore) Attributes(ctx context.Context, fileID int64) (*Attributes, error) {
	attrs := &Attributes{Metadata: make(map[string]interface{})}
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		collect := func(stmt *sqlite.Stmt) error {
			for i := 0; i < stmt.ColumnCount(); i++ {
				name := stmt.ColumnName(i)
				if name == "id" || name == "file_id" {
					continue
				}
				switch stmt.ColumnType(i) {
				case sqlite.TypeInteger:
					attrs.Metadata[name] = stmt.ColumnInt64(i)
				case sqlite.TypeFloat:
					attrs.Metadata[name] = stmt.ColumnFloat(i)
				case sqlite.TypeText:
					attrs.Metadata[name] = stmt.ColumnText(i)
				}
			}
			return nil
		}
		if err := sqlitex.Execute(conn, `SELECT * FROM metadata_media WHERE file_id = ? ORDER BY id`,
			&sqlitex.ExecOptions{Args: []any{fileID}, ResultFunc: collect}); err != nil {
			return err
		}
		if err := sqlitex.Execute(conn, `SELECT * FROM metadata_doc WHERE file_id = ? ORDER BY id`,
			&sqlitex.ExecOptions{Args: []any{fileID}, ResultFunc: collect}); err != nil {
			return err
		}
		return sqlitex.Execute(conn, `SELECT plain_text FROM content_index WHERE file_id = ? ORDER BY id`,
			&sqlitex.ExecOptions{
				Args: []any{fileID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					if attrs.Text != "" {
						attrs.Text += "\n"
					}
					attrs.Text += stmt.ColumnText(0)
					return nil
				},
			})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCatalog, "cannot read file attributes").WithDetail("file_id", fileID)
	}

	if lang, ok := attrs.Metadata["language"].(string); ok {
		attrs.Language = lang
		delete(attrs.Metadata, "language")
	}
	return attrs, nil
}
