package catalog

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/internal/hashutil"
	"github.com/arthur-debert/dosort/pkg/types"
)

// Register adds the regular file at path to store, or refreshes its record
// when the path is already known. Size, times and the content hash come
// from the filesystem.
func Register(ctx context.Context, store Store, fsys types.FS, path string) (types.FileRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.FileRecord{}, errors.Wrap(err, errors.ErrInvalidInput, "invalid path").WithDetail("path", path)
	}

	info, err := fsys.Stat(abs)
	if err != nil {
		return types.FileRecord{}, errors.Wrapf(err, errors.ErrSourceNotFound, "cannot stat %s", abs).
			WithDetail("path", abs)
	}
	if !info.Mode().IsRegular() {
		return types.FileRecord{}, errors.Newf(errors.ErrInvalidInput, "%s is not a regular file", abs).
			WithDetail("path", abs)
	}

	hash, err := hashutil.FileSHA256(ctx, fsys, abs)
	if err != nil {
		return types.FileRecord{}, errors.Wrapf(err, errors.ErrExecutionFailure, "cannot hash %s", abs).
			WithDetail("path", abs)
	}

	name := filepath.Base(abs)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	rec := types.FileRecord{
		Path:     abs,
		Filename: name,
		Ext:      ext,
		MimeType: mimeFor(ext),
		Size:     info.Size(),
		Hash:     hash,
		// birth time is not portable; mtime stands in for it
		Created:  info.ModTime(),
		Modified: info.ModTime(),
	}

	id, err := store.AddFile(ctx, rec)
	if err != nil {
		return types.FileRecord{}, err
	}
	rec.ID = id
	return rec, nil
}
