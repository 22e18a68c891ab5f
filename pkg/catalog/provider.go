package catalog

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/rs/zerolog"
)

// Provider assembles evaluation contexts from catalog records, their
// stored attributes and tags, filling gaps from the filesystem.
type Provider struct {
	store  Store
	fs     types.FS
	logger zerolog.Logger
}

var _ types.MetadataProvider = (*Provider)(nil)

// NewProvider creates a provider reading from store. fsys may be nil, in
// which case records are used as stored.
func NewProvider(store Store, fsys types.FS) *Provider {
	return &Provider{
		store:  store,
		fs:     fsys,
		logger: logging.GetLogger("catalog.provider"),
	}
}

// GetContext implements types.MetadataProvider
func (p *Provider) GetContext(ctx context.Context, absPath string) (*types.FileContext, error) {
	rec, err := p.store.GetByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.Newf(errors.ErrNotFound, "file is not in the catalog: %s", absPath).
			WithDetail("path", absPath)
	}
	return p.ContextFor(ctx, *rec)
}

// ContextFor builds the context of an already loaded record
func (p *Provider) ContextFor(ctx context.Context, rec types.FileRecord) (*types.FileContext, error) {
	attrs, err := p.store.Attributes(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	tags, err := p.store.FileTags(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	fc := &types.FileContext{
		ID:       rec.ID,
		Path:     rec.Path,
		Filename: rec.Filename,
		Ext:      rec.Ext,
		MimeType: rec.MimeType,
		Size:     rec.Size,
		Hash:     rec.Hash,
		Created:  rec.Created,
		Modified: rec.Modified,
		Metadata: attrs.Metadata,
		Language: attrs.Language,
		Text:     attrs.Text,
		Tags:     tags,
	}
	p.fillGaps(fc)
	return fc, nil
}

func (p *Provider) fillGaps(fc *types.FileContext) {
	if fc.Filename == "" {
		fc.Filename = filepath.Base(fc.Path)
	}
	if fc.Ext == "" {
		fc.Ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(fc.Filename), "."))
	}
	if fc.MimeType == "" {
		fc.MimeType = mimeFor(fc.Ext)
	}

	if p.fs == nil || (fc.Size != 0 && !fc.Modified.IsZero()) {
		return
	}
	info, err := p.fs.Stat(fc.Path)
	if err != nil {
		p.logger.Debug().Err(err).Str("path", fc.Path).Msg("Cannot stat catalogued file")
		return
	}
	if fc.Size == 0 {
		fc.Size = info.Size()
	}
	if fc.Modified.IsZero() {
		fc.Modified = info.ModTime()
	}
}

// mimeFor guesses the media type of an extension, without parameters
func mimeFor(ext string) string {
	if ext == "" {
		return ""
	}
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		return ""
	}
	base, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return ""
	}
	return base
}
