package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dosort/pkg/catalog"
	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/types"
)

// openCatalog opens the configured SQLite catalog, creating its directory
func (a *app) openCatalog(ctx context.Context) (*catalog.SQLiteStore, error) {
	path := a.cfg.Catalog.Path
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCatalog, "cannot create catalog directory for %s", path).
			WithDetail("path", path)
	}
	return catalog.OpenSQLite(ctx, path)
}

// lookup returns the catalog record of path, which must exist
func lookup(ctx context.Context, store catalog.Store, path string) (*types.FileRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid path")
	}
	rec, err := store.GetByPath(ctx, abs)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.Newf(errors.ErrNotFound, MsgErrNotCatalogued, abs).WithDetail("path", abs)
	}
	return rec, nil
}
