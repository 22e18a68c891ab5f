package executor

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/filesystem"
	"github.com/arthur-debert/dosort/pkg/internal/hashutil"
	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/rs/zerolog"
)

const dirPerm = 0755

// Config wires an executor to its collaborators
type Config struct {
	// Catalog receives path updates, action log entries and tags. When nil
	// only the filesystem is touched.
	Catalog types.CatalogStore
	// Logger defaults to the "executor" component logger
	Logger *zerolog.Logger
	// Filesystem operations interface for testing
	FS types.FS
}

// Options control one Execute call
type Options struct {
	// Verify re-hashes the result and rolls back on mismatch
	Verify bool
	// DryRun checks preconditions and reports without changing anything
	DryRun bool
}

// DefaultOptions verifies and executes for real
func DefaultOptions() Options {
	return Options{Verify: true}
}

// Executor runs action plans
type Executor struct {
	catalog types.CatalogStore
	logger  zerolog.Logger
	fs      types.FS

	mu    sync.Mutex
	locks map[string]*targetLock
}

type targetLock struct {
	sync.Mutex
	refs int
}

// New creates a new executor instance
func New(cfg Config) *Executor {
	logger := logging.GetLogger("executor")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	fsys := cfg.FS
	if fsys == nil {
		fsys = filesystem.NewOS()
	}

	return &Executor{
		catalog: cfg.Catalog,
		logger:  logger,
		fs:      fsys,
		locks:   make(map[string]*targetLock),
	}
}

// Execute applies plan and reports the outcome. It never panics and never
// returns a partially applied filesystem change on failure, except when the
// catalog update after a successful operation fails.
func (e *Executor) Execute(ctx context.Context, plan types.ActionPlan, opts Options) (result types.ActionResult) {
	start := time.Now()
	result = types.ActionResult{
		Source: plan.Source,
		Target: plan.Target,
		Kind:   plan.Kind,
		DryRun: opts.DryRun,
	}
	defer func() {
		result.Duration = time.Since(start)
	}()

	logger := logging.WithFields(e.logger, map[string]interface{}{
		"kind":   string(plan.Kind),
		"source": plan.Source,
		"target": plan.Target,
		"rule":   plan.RuleName,
	})

	if err := e.precheck(ctx, plan); err != nil {
		return e.fail(logger, result, err)
	}

	source := filepath.Clean(plan.Source)
	target := filepath.Clean(plan.Target)
	if source == target {
		logger.Debug().Msg("File already in place")
		result.Success = true
		result.Skipped = true
		return result
	}

	info, err := e.fs.Stat(source)
	if err != nil || !info.Mode().IsRegular() {
		if err == nil {
			err = stderrors.New("not a regular file")
		}
		return e.fail(logger, result, errors.Wrapf(err, errors.ErrSourceNotFound, "source %s is not an existing file", source).
			WithDetail("source", source))
	}

	unlock := e.lock(target)
	defer unlock()

	if _, err := e.fs.Lstat(target); err == nil {
		return e.fail(logger, result, errors.Newf(errors.ErrDestinationExists, "destination %s already exists", target).
			WithDetail("target", target))
	} else if !stderrors.Is(err, fs.ErrNotExist) {
		return e.fail(logger, result, errors.Wrapf(err, errors.ErrExecutionFailure, "cannot inspect destination %s", target).
			WithDetail("target", target))
	}

	if opts.DryRun {
		logger.Info().Msg("Dry run - no changes made")
		result.Success = true
		return result
	}

	if err := e.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return e.fail(logger, result, errors.Wrapf(err, errors.ErrExecutionFailure, "cannot create directory %s", filepath.Dir(target)).
			WithDetail("target", target))
	}

	verify := opts.Verify && !plan.Kind.IsLink()
	var sourceHash string
	if verify {
		if sourceHash, err = hashutil.FileSHA256(ctx, e.fs, source); err != nil {
			return e.fail(logger, result, errors.Wrapf(err, errors.ErrExecutionFailure, "cannot hash %s", source).
				WithDetail("source", source))
		}
	}

	if err := e.apply(ctx, plan.Kind, source, target, info, verify); err != nil {
		return e.fail(logger, result, errors.Wrapf(err, errors.ErrExecutionFailure, "%s failed", plan.Kind).
			WithDetail("source", source).
			WithDetail("target", target))
	}

	if plan.Kind.IsLink() {
		if _, err := e.fs.Lstat(target); err != nil {
			return e.fail(logger, result, errors.Wrapf(err, errors.ErrExecutionFailure, "link %s missing after creation", target).
				WithDetail("target", target))
		}
	} else if verify {
		if err := e.verify(ctx, plan.Kind, source, target, sourceHash); err != nil {
			return e.fail(logger, result, err)
		}
		if plan.Kind.Relocates() {
			if err := e.release(source, target); err != nil {
				return e.fail(logger, result, err)
			}
		}
	}

	// The filesystem now holds the change; keep the catalog in step with it
	// even if the caller gives up.
	ctx = context.WithoutCancel(ctx)
	if err := e.record(ctx, plan, source, target, &result); err != nil {
		logger.Error().Err(err).Msg("Catalog update failed after filesystem change")
		result.Error = err
		return result
	}
	result.TagErrors = e.ApplyTags(ctx, plan.FileID, plan.Tags)

	logger.Info().
		Dur("duration", time.Since(start)).
		Msg("Action executed successfully")
	result.Success = true
	return result
}

func (e *Executor) precheck(ctx context.Context, plan types.ActionPlan) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrExecutionFailure, "execution cancelled")
	}
	if !plan.Kind.IsValid() {
		if strings.HasPrefix(string(plan.Kind), "link") {
			return errors.Newf(errors.ErrInvalidLinkType, "unknown link type %q", plan.Kind).
				WithDetail("kind", string(plan.Kind))
		}
		return errors.Newf(errors.ErrInvalidActionType, "unknown action type %q", plan.Kind).
			WithDetail("kind", string(plan.Kind))
	}
	if plan.Source == "" || plan.Target == "" {
		return errors.New(errors.ErrInvalidInput, "plan needs a source and a target")
	}
	return nil
}

func (e *Executor) fail(logger zerolog.Logger, result types.ActionResult, err error) types.ActionResult {
	logger.Warn().
		Err(err).
		Str("code", string(errors.GetErrorCode(err))).
		Msg("Action failed")
	result.Success = false
	result.Error = err
	return result
}

// lock serialises plans that write to the same destination. Entries are
// dropped once no plan holds or waits for them.
func (e *Executor) lock(target string) func() {
	e.mu.Lock()
	l, ok := e.locks[target]
	if !ok {
		l = &targetLock{}
		e.locks[target] = l
	}
	l.refs++
	e.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, target)
		}
		e.mu.Unlock()
	}
}

// LockCount returns the number of destinations currently locked
func (e *Executor) LockCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.locks)
}

// apply performs the operation. A verified move or rename only copies here;
// the source is released after the copy checks out.
func (e *Executor) apply(ctx context.Context, kind types.ActionKind, source, target string, info fs.FileInfo, verify bool) error {
	switch kind {
	case types.ActionMove, types.ActionRename:
		if verify {
			return e.copy(ctx, source, target, info)
		}
		return e.move(ctx, source, target, info)
	case types.ActionCopy:
		return e.copy(ctx, source, target, info)
	case types.ActionLinkHard:
		return e.fs.Link(source, target)
	case types.ActionLinkSymbolic:
		abs, err := filepath.Abs(source)
		if err != nil {
			return err
		}
		return e.fs.Symlink(abs, target)
	}
	return errors.Newf(errors.ErrInvalidActionType, "unknown action type %q", kind)
}

// move renames source to target, copying across filesystems when needed
func (e *Executor) move(ctx context.Context, source, target string, info fs.FileInfo) error {
	err := e.fs.Rename(source, target)
	if err == nil || !isCrossDevice(err) {
		return err
	}

	e.logger.Debug().
		Str("source", source).
		Str("target", target).
		Msg("Cross-device move, copying instead")
	if err := e.copy(ctx, source, target, info); err != nil {
		return err
	}
	if err := e.fs.Remove(source); err != nil {
		_ = e.fs.Remove(target)
		return err
	}
	return nil
}

func isCrossDevice(err error) bool {
	return stderrors.Is(err, syscall.EXDEV)
}

// copy streams source into a new target file, keeping mode and mtime. A
// failed copy leaves no target behind.
func (e *Executor) copy(ctx context.Context, source, target string, info fs.FileInfo) (err error) {
	in, err := e.fs.Open(source)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := e.fs.CreateExclusive(target, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = e.fs.Remove(target)
		}
	}()

	buf := make([]byte, hashutil.ChunkSize)
	if _, err = io.CopyBuffer(out, &ctxReader{ctx: ctx, r: in}, buf); err != nil {
		_ = out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	if err = e.fs.Chtimes(target, info.ModTime(), info.ModTime()); err != nil {
		return err
	}

	if notifier, ok := e.fs.(filesystem.CopyNotifier); ok {
		return notifier.NotifyCopy(target)
	}
	return nil
}

// ctxReader stops a copy between reads once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// verify compares the target against the source hash. On mismatch, or when
// the check cannot finish, the target is removed and the source is left
// as it was.
func (e *Executor) verify(ctx context.Context, kind types.ActionKind, source, target, expected string) error {
	actual, hashErr := hashutil.FileSHA256(ctx, e.fs, target)
	if hashErr == nil && actual == expected {
		return nil
	}

	var verr *errors.DosortError
	switch {
	case isContextErr(hashErr):
		verr = errors.Wrapf(hashErr, errors.ErrExecutionFailure, "verification of %s interrupted", target)
	case hashErr != nil:
		verr = errors.Newf(errors.ErrIntegrityVerify, "%s of %s did not verify", kind, source).
			WithDetail("hash_error", hashErr.Error())
	default:
		verr = errors.Newf(errors.ErrIntegrityVerify, "%s of %s did not verify", kind, source).
			WithDetail("actual", actual)
	}
	verr.WithDetail("source", source).
		WithDetail("target", target).
		WithDetail("expected", expected)

	if rollbackErr := e.rollback(target); rollbackErr != nil {
		e.logger.Error().
			Err(rollbackErr).
			Str("source", source).
			Str("target", target).
			Msg("Rollback failed")
		verr.WithDetail("rollback_error", rollbackErr.Error())
	}
	return verr
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// rollback discards an unverified target
func (e *Executor) rollback(target string) error {
	return e.fs.Remove(target)
}

// release removes the source of a verified move. If that fails the target
// is discarded so the file is never left in both places.
func (e *Executor) release(source, target string) error {
	err := e.fs.Remove(source)
	if err == nil {
		return nil
	}

	rerr := errors.Wrapf(err, errors.ErrExecutionFailure, "cannot remove %s after copy", source).
		WithDetail("source", source).
		WithDetail("target", target)
	if rollbackErr := e.rollback(target); rollbackErr != nil {
		e.logger.Error().
			Err(rollbackErr).
			Str("target", target).
			Msg("Rollback failed")
		rerr.WithDetail("rollback_error", rollbackErr.Error())
	}
	return rerr
}

// record writes the path change and the action log entry
func (e *Executor) record(ctx context.Context, plan types.ActionPlan, source, target string, result *types.ActionResult) error {
	if e.catalog == nil {
		return nil
	}

	wrap := func(err error, msg string) error {
		return errors.Wrap(err, errors.ErrExecutionFailure, msg).
			WithDetail("stage", "catalog").
			WithDetail("file_id", plan.FileID).
			WithDetail("target", target)
	}

	if plan.Kind.Relocates() {
		filename := ""
		if filepath.Base(target) != filepath.Base(source) {
			filename = filepath.Base(target)
		}
		if err := e.catalog.UpdatePath(ctx, plan.FileID, target, filename); err != nil {
			return wrap(err, "cannot update catalog path")
		}
	}

	id, err := e.catalog.LogAction(ctx, plan.FileID, plan.Kind, source, target)
	if err != nil {
		return wrap(err, "cannot log action")
	}
	result.ActionID = id
	return nil
}

// ApplyTags attaches tags to a file. Each tag is applied independently and
// failures are returned, one per failed tag.
func (e *Executor) ApplyTags(ctx context.Context, fileID int64, tags []string) []error {
	if e.catalog == nil || len(tags) == 0 {
		return nil
	}

	var errs []error
	for _, tag := range tags {
		tagID, err := e.catalog.EnsureTag(ctx, tag)
		if err == nil {
			err = e.catalog.LinkTag(ctx, fileID, tagID)
		}
		if err != nil {
			e.logger.Warn().
				Err(err).
				Int64("file_id", fileID).
				Str("tag", tag).
				Msg("Cannot apply tag")
			errs = append(errs, errors.Wrapf(err, errors.ErrTagApply, "cannot apply tag %q", tag).
				WithDetail("tag", tag).
				WithDetail("file_id", fileID))
		}
	}
	return errs
}
