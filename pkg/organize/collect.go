package organize

import (
	"context"
	"time"

	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/types"
)

// Lister enumerates catalogued files
type Lister interface {
	ListFiles(ctx context.Context, scope string) ([]types.FileRecord, error)
}

// Collect loads the evaluation context of every catalogued file within
// scope, in catalog order. Files whose context cannot be built are
// reported and left out; only a failure to list aborts.
func Collect(ctx context.Context, lister Lister, provider types.MetadataProvider, scope string) ([]*types.FileContext, []FileError, error) {
	logger := logging.GetLogger("organize.collect")
	defer logging.LogDuration(logger, time.Now(), "collect")

	records, err := lister.ListFiles(ctx, scope)
	if err != nil {
		return nil, nil, err
	}

	files := make([]*types.FileContext, 0, len(records))
	var problems []FileError
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		fc, err := provider.GetContext(ctx, rec.Path)
		if err != nil {
			logger.Warn().Err(err).Str("file", rec.Path).Msg("Cannot load file context")
			problems = append(problems, FileError{Path: rec.Path, Err: err})
			continue
		}
		files = append(files, fc)
	}
	return files, problems, nil
}
