package executor_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/dosort/pkg/catalog"
	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/executor"
	"github.com/arthur-debert/dosort/pkg/filesystem"
	"github.com/arthur-debert/dosort/pkg/testutil"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCatalog implements types.CatalogStore for testing
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetByPath(ctx context.Context, absPath string) (*types.FileRecord, error) {
	args := m.Called(ctx, absPath)
	rec, _ := args.Get(0).(*types.FileRecord)
	return rec, args.Error(1)
}

func (m *MockCatalog) UpdatePath(ctx context.Context, fileID int64, newAbsPath, newFilename string) error {
	args := m.Called(ctx, fileID, newAbsPath, newFilename)
	return args.Error(0)
}

func (m *MockCatalog) LogAction(ctx context.Context, fileID int64, kind types.ActionKind, source, target string) (int64, error) {
	args := m.Called(ctx, fileID, kind, source, target)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalog) EnsureTag(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalog) LinkTag(ctx context.Context, fileID, tagID int64) error {
	args := m.Called(ctx, fileID, tagID)
	return args.Error(0)
}

type fixture struct {
	dir     string
	source  string
	catalog *catalog.MemoryStore
	fileID  int64
}

func newFixture(t *testing.T, content string) *fixture {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "in", "photo.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(source), 0755))
	require.NoError(t, os.WriteFile(source, []byte(content), 0640))

	store := catalog.NewMemory()
	id, err := store.AddFile(context.Background(), types.FileRecord{Path: source})
	require.NoError(t, err)

	return &fixture{dir: dir, source: source, catalog: store, fileID: id}
}

func (f *fixture) plan(kind types.ActionKind, target string, tags ...string) types.ActionPlan {
	return types.ActionPlan{
		FileID:   f.fileID,
		Source:   f.source,
		Target:   filepath.Join(f.dir, target),
		Kind:     kind,
		RuleName: "test",
		Tags:     tags,
	}
}

func (f *fixture) actions(t *testing.T) []types.ActionLogEntry {
	t.Helper()
	entries, err := f.catalog.Actions(context.Background(), f.fileID)
	require.NoError(t, err)
	return entries
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestExecute_Move(t *testing.T) {
	f := newFixture(t, "pixels")
	exec := executor.New(executor.Config{Catalog: f.catalog})

	plan := f.plan(types.ActionMove, "Photos/2023/06/photo.jpg", "photo", "2023")
	result := exec.Execute(context.Background(), plan, executor.DefaultOptions())

	require.True(t, result.Success, "error: %v", result.Error)
	assert.False(t, result.DryRun)
	assert.NotZero(t, result.ActionID)
	assert.Empty(t, result.TagErrors)

	assert.NoFileExists(t, f.source)
	assert.Equal(t, "pixels", readFile(t, plan.Target))

	rec, err := f.catalog.GetByPath(context.Background(), plan.Target)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, f.fileID, rec.ID)

	entries := f.actions(t)
	require.Len(t, entries, 1)
	assert.Equal(t, types.ActionMove, entries[0].Kind)
	assert.Equal(t, f.source, entries[0].Source)
	assert.Equal(t, plan.Target, entries[0].Target)

	tags, err := f.catalog.FileTags(context.Background(), f.fileID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023", "photo"}, tags)
}

func TestExecute_Copy(t *testing.T) {
	f := newFixture(t, "pixels")
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(f.source, mtime, mtime))

	exec := executor.New(executor.Config{Catalog: f.catalog})
	plan := f.plan(types.ActionCopy, "backup/photo.jpg")
	result := exec.Execute(context.Background(), plan, executor.DefaultOptions())
	require.True(t, result.Success, "error: %v", result.Error)

	assert.Equal(t, "pixels", readFile(t, f.source))
	assert.Equal(t, "pixels", readFile(t, plan.Target))

	info, err := os.Stat(plan.Target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))

	rec, err := f.catalog.GetByPath(context.Background(), f.source)
	require.NoError(t, err)
	assert.NotNil(t, rec, "a copy keeps the catalog path")
	assert.Len(t, f.actions(t), 1)
}

func TestExecute_Rename(t *testing.T) {
	f := newFixture(t, "pixels")
	exec := executor.New(executor.Config{Catalog: f.catalog})

	plan := f.plan(types.ActionRename, "in/20230604_100000.jpg")
	result := exec.Execute(context.Background(), plan, executor.DefaultOptions())
	require.True(t, result.Success, "error: %v", result.Error)

	rec, err := f.catalog.GetByPath(context.Background(), plan.Target)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "20230604_100000.jpg", rec.Filename)
}

func TestExecute_Links(t *testing.T) {
	t.Run("hard", func(t *testing.T) {
		f := newFixture(t, "pixels")
		exec := executor.New(executor.Config{Catalog: f.catalog})

		plan := f.plan(types.ActionLinkHard, "links/photo.jpg")
		result := exec.Execute(context.Background(), plan, executor.DefaultOptions())
		require.True(t, result.Success, "error: %v", result.Error)

		src, err := os.Stat(f.source)
		require.NoError(t, err)
		dst, err := os.Stat(plan.Target)
		require.NoError(t, err)
		assert.True(t, os.SameFile(src, dst))

		entries := f.actions(t)
		require.Len(t, entries, 1)
		assert.Equal(t, types.ActionLinkHard, entries[0].Kind)
	})

	t.Run("symbolic", func(t *testing.T) {
		f := newFixture(t, "pixels")
		exec := executor.New(executor.Config{Catalog: f.catalog})

		plan := f.plan(types.ActionLinkSymbolic, "links/photo.jpg")
		result := exec.Execute(context.Background(), plan, executor.DefaultOptions())
		require.True(t, result.Success, "error: %v", result.Error)

		dest, err := os.Readlink(plan.Target)
		require.NoError(t, err)
		assert.Equal(t, f.source, dest)
		assert.Equal(t, types.ActionLinkSymbolic, f.actions(t)[0].Kind)
	})
}

func TestExecute_Preconditions(t *testing.T) {
	t.Run("destination exists", func(t *testing.T) {
		f := newFixture(t, "pixels")
		existing := filepath.Join(f.dir, "out", "photo.jpg")
		require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
		require.NoError(t, os.WriteFile(existing, []byte("other"), 0644))

		exec := executor.New(executor.Config{Catalog: f.catalog})
		result := exec.Execute(context.Background(), f.plan(types.ActionMove, "out/photo.jpg"), executor.DefaultOptions())

		assert.False(t, result.Success)
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrDestinationExists))
		assert.Equal(t, "pixels", readFile(t, f.source))
		assert.Equal(t, "other", readFile(t, existing))
		assert.Empty(t, f.actions(t))
	})

	t.Run("dangling symlink counts as existing", func(t *testing.T) {
		f := newFixture(t, "pixels")
		link := filepath.Join(f.dir, "in", "dangling.jpg")
		require.NoError(t, os.Symlink(filepath.Join(f.dir, "gone"), link))

		exec := executor.New(executor.Config{})
		result := exec.Execute(context.Background(), f.plan(types.ActionCopy, "in/dangling.jpg"), executor.DefaultOptions())
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrDestinationExists))
	})

	t.Run("missing source", func(t *testing.T) {
		f := newFixture(t, "pixels")
		plan := f.plan(types.ActionMove, "out/photo.jpg")
		plan.Source = filepath.Join(f.dir, "nope.jpg")

		result := executor.New(executor.Config{}).Execute(context.Background(), plan, executor.DefaultOptions())
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrSourceNotFound))
	})

	t.Run("directory source", func(t *testing.T) {
		f := newFixture(t, "pixels")
		plan := f.plan(types.ActionMove, "out/in")
		plan.Source = filepath.Join(f.dir, "in")

		result := executor.New(executor.Config{}).Execute(context.Background(), plan, executor.DefaultOptions())
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrSourceNotFound))
	})

	t.Run("unknown action", func(t *testing.T) {
		f := newFixture(t, "pixels")
		result := executor.New(executor.Config{}).Execute(context.Background(), f.plan("shred", "out/photo.jpg"), executor.DefaultOptions())
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrInvalidActionType))
	})

	t.Run("unknown link type", func(t *testing.T) {
		f := newFixture(t, "pixels")
		result := executor.New(executor.Config{}).Execute(context.Background(), f.plan("link_soft", "links/photo.jpg"), executor.DefaultOptions())
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrInvalidLinkType))
		assert.NoDirExists(t, filepath.Join(f.dir, "links"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t, "pixels")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := executor.New(executor.Config{Catalog: f.catalog}).Execute(ctx, f.plan(types.ActionMove, "out/photo.jpg"), executor.DefaultOptions())
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrExecutionFailure))
		assert.FileExists(t, f.source)
		assert.Empty(t, f.actions(t))
	})
}

func TestExecute_DryRun(t *testing.T) {
	f := newFixture(t, "pixels")
	exec := executor.New(executor.Config{Catalog: f.catalog})

	plan := f.plan(types.ActionMove, "Photos/photo.jpg", "photo")
	result := exec.Execute(context.Background(), plan, executor.Options{Verify: true, DryRun: true})

	assert.True(t, result.Success)
	assert.True(t, result.DryRun)
	assert.FileExists(t, f.source)
	assert.NoDirExists(t, filepath.Join(f.dir, "Photos"))
	assert.Empty(t, f.actions(t))

	tags, err := f.catalog.FileTags(context.Background(), f.fileID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestExecute_AlreadyInPlace(t *testing.T) {
	f := newFixture(t, "pixels")
	exec := executor.New(executor.Config{Catalog: f.catalog})

	result := exec.Execute(context.Background(), f.plan(types.ActionMove, "in/photo.jpg"), executor.DefaultOptions())
	assert.True(t, result.Success)
	assert.True(t, result.Skipped)
	assert.FileExists(t, f.source)
	assert.Empty(t, f.actions(t))
}

func TestExecute_VerificationRollback(t *testing.T) {
	t.Run("move is undone", func(t *testing.T) {
		f := newFixture(t, "pixels")
		plan := f.plan(types.ActionMove, "out/photo.jpg")
		fsys := filesystem.WithHooks(filesystem.NewOS(), filesystem.Hooks{
			AfterCopy: func(path string) error {
				return os.Truncate(path, 0)
			},
		})

		exec := executor.New(executor.Config{Catalog: f.catalog, FS: fsys})
		result := exec.Execute(context.Background(), plan, executor.DefaultOptions())

		assert.False(t, result.Success)
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrIntegrityVerify))
		testutil.AssertFileContent(t, f.source, "pixels")
		assert.NoFileExists(t, plan.Target)
		assert.Empty(t, f.actions(t))
		assert.NotContains(t, errors.GetErrorDetails(result.Error), "rollback_error")

		rec, err := f.catalog.GetByPath(context.Background(), f.source)
		require.NoError(t, err)
		assert.NotNil(t, rec)
	})

	t.Run("rename keeps the original bytes", func(t *testing.T) {
		f := newFixture(t, "pixels")
		plan := f.plan(types.ActionRename, "in/renamed.jpg")
		fsys := filesystem.WithHooks(filesystem.NewOS(), filesystem.Hooks{
			AfterCopy: func(path string) error {
				return os.WriteFile(path, []byte("pix"), 0644)
			},
		})

		exec := executor.New(executor.Config{Catalog: f.catalog, FS: fsys})
		result := exec.Execute(context.Background(), plan, executor.DefaultOptions())

		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrIntegrityVerify))
		testutil.AssertFileContent(t, f.source, "pixels")
		assert.NoFileExists(t, plan.Target)
	})

	t.Run("failed rollback is reported", func(t *testing.T) {
		f := newFixture(t, "pixels")
		plan := f.plan(types.ActionRename, "in/renamed.jpg")
		fsys := filesystem.WithHooks(filesystem.NewOS(), filesystem.Hooks{
			AfterCopy: func(path string) error {
				return os.Truncate(path, 0)
			},
			BeforeRemove: func(path string) error {
				return stderrors.New("disk on fire")
			},
		})

		exec := executor.New(executor.Config{Catalog: f.catalog, FS: fsys})
		result := exec.Execute(context.Background(), plan, executor.DefaultOptions())

		assert.False(t, result.Success)
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrIntegrityVerify))
		assert.Contains(t, errors.GetErrorDetails(result.Error)["rollback_error"], "disk on fire")
		testutil.AssertFileContent(t, f.source, "pixels")
	})

	t.Run("source that cannot be removed keeps the move from happening", func(t *testing.T) {
		f := newFixture(t, "pixels")
		plan := f.plan(types.ActionMove, "out/photo.jpg")
		fsys := filesystem.WithHooks(filesystem.NewOS(), filesystem.Hooks{
			BeforeRemove: func(path string) error {
				if path == f.source {
					return os.ErrPermission
				}
				return nil
			},
		})

		exec := executor.New(executor.Config{Catalog: f.catalog, FS: fsys})
		result := exec.Execute(context.Background(), plan, executor.DefaultOptions())

		assert.False(t, result.Success)
		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrExecutionFailure))
		testutil.AssertFileContent(t, f.source, "pixels")
		assert.NoFileExists(t, plan.Target)
		assert.Empty(t, f.actions(t))
	})

	t.Run("corrupt copy is removed", func(t *testing.T) {
		f := newFixture(t, "pixels")
		plan := f.plan(types.ActionCopy, "out/photo.jpg")
		fsys := filesystem.WithHooks(filesystem.NewOS(), filesystem.Hooks{
			AfterCopy: func(path string) error {
				return os.WriteFile(path, []byte("garbage"), 0644)
			},
		})

		exec := executor.New(executor.Config{Catalog: f.catalog, FS: fsys})
		result := exec.Execute(context.Background(), plan, executor.DefaultOptions())

		assert.True(t, errors.IsErrorCode(result.Error, errors.ErrIntegrityVerify))
		assert.Equal(t, "pixels", readFile(t, f.source))
		assert.NoFileExists(t, plan.Target)
		assert.Empty(t, f.actions(t))
	})

	t.Run("no verification skips the check", func(t *testing.T) {
		f := newFixture(t, "pixels")
		plan := f.plan(types.ActionCopy, "out/photo.jpg")
		fsys := filesystem.WithHooks(filesystem.NewOS(), filesystem.Hooks{
			AfterCopy: func(path string) error {
				return os.WriteFile(path, []byte("garbage"), 0644)
			},
		})

		exec := executor.New(executor.Config{Catalog: f.catalog, FS: fsys})
		result := exec.Execute(context.Background(), plan, executor.Options{Verify: false})
		assert.True(t, result.Success)
		assert.Equal(t, "garbage", readFile(t, plan.Target))
	})
}

// Test Type: Unit Test
// Description: Tests that a move without verification is a plain rename
func TestExecute_UnverifiedMoveRenames(t *testing.T) {
	f := newFixture(t, "pixels")
	plan := f.plan(types.ActionMove, "out/photo.jpg")
	renamed := false
	fsys := filesystem.WithHooks(filesystem.NewOS(), filesystem.Hooks{
		AfterRename: func(oldpath, newpath string) error {
			renamed = oldpath == f.source && newpath == plan.Target
			return nil
		},
	})

	exec := executor.New(executor.Config{Catalog: f.catalog, FS: fsys})
	result := exec.Execute(context.Background(), plan, executor.Options{Verify: false})

	require.True(t, result.Success, "error: %v", result.Error)
	assert.True(t, renamed)
	assert.NoFileExists(t, f.source)
	testutil.AssertFileContent(t, plan.Target, "pixels")
}

// Test Type: Unit Test
// Description: Tests that cancellation while verifying is an execution
// failure and leaves the source untouched
func TestExecute_CancelledDuringVerification(t *testing.T) {
	for _, kind := range []types.ActionKind{types.ActionMove, types.ActionCopy} {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t, "pixels")
			plan := f.plan(kind, "out/photo.jpg")
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			fsys := filesystem.WithHooks(filesystem.NewOS(), filesystem.Hooks{
				AfterCopy: func(path string) error {
					cancel()
					return nil
				},
			})

			exec := executor.New(executor.Config{Catalog: f.catalog, FS: fsys})
			result := exec.Execute(ctx, plan, executor.DefaultOptions())

			assert.False(t, result.Success)
			assert.True(t, errors.IsErrorCode(result.Error, errors.ErrExecutionFailure))
			assert.False(t, errors.IsErrorCode(result.Error, errors.ErrIntegrityVerify))
			assert.True(t, stderrors.Is(result.Error, context.Canceled))
			testutil.AssertFileContent(t, f.source, "pixels")
			assert.NoFileExists(t, plan.Target)
			assert.Empty(t, f.actions(t))
		})
	}
}

func TestExecute_CatalogFailure(t *testing.T) {
	f := newFixture(t, "pixels")
	plan := f.plan(types.ActionMove, "out/photo.jpg")

	cat := new(MockCatalog)
	cat.On("UpdatePath", mock.Anything, f.fileID, plan.Target, "").Return(stderrors.New("database is locked"))

	exec := executor.New(executor.Config{Catalog: cat})
	result := exec.Execute(context.Background(), plan, executor.DefaultOptions())

	assert.False(t, result.Success)
	assert.True(t, errors.IsErrorCode(result.Error, errors.ErrExecutionFailure))
	assert.Equal(t, "catalog", errors.GetErrorDetails(result.Error)["stage"])
	assert.FileExists(t, plan.Target, "the filesystem change is kept")
	cat.AssertNotCalled(t, "LogAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cat.AssertExpectations(t)
}

func TestExecute_TagFailuresAreIsolated(t *testing.T) {
	f := newFixture(t, "pixels")
	plan := f.plan(types.ActionCopy, "out/photo.jpg", "bad", "good")

	cat := new(MockCatalog)
	cat.On("LogAction", mock.Anything, f.fileID, types.ActionCopy, f.source, plan.Target).Return(int64(11), nil)
	cat.On("EnsureTag", mock.Anything, "bad").Return(int64(0), stderrors.New("constraint failed"))
	cat.On("EnsureTag", mock.Anything, "good").Return(int64(2), nil)
	cat.On("LinkTag", mock.Anything, f.fileID, int64(2)).Return(nil)

	exec := executor.New(executor.Config{Catalog: cat})
	result := exec.Execute(context.Background(), plan, executor.DefaultOptions())

	assert.True(t, result.Success)
	assert.Equal(t, int64(11), result.ActionID)
	require.Len(t, result.TagErrors, 1)
	assert.True(t, errors.IsErrorCode(result.TagErrors[0], errors.ErrTagApply))
	assert.Equal(t, "bad", errors.GetErrorDetails(result.TagErrors[0])["tag"])
	cat.AssertExpectations(t)
}

func TestExecute_SameDestinationConcurrently(t *testing.T) {
	dir := t.TempDir()
	store := catalog.NewMemory()
	exec := executor.New(executor.Config{Catalog: store})
	target := filepath.Join(dir, "out", "same.txt")

	const workers = 8
	results := make([]types.ActionResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		source := filepath.Join(dir, "in", string(rune('a'+i))+".txt")
		require.NoError(t, os.MkdirAll(filepath.Dir(source), 0755))
		require.NoError(t, os.WriteFile(source, []byte(source), 0644))
		id, err := store.AddFile(context.Background(), types.FileRecord{Path: source})
		require.NoError(t, err)

		wg.Add(1)
		go func(i int, plan types.ActionPlan) {
			defer wg.Done()
			results[i] = exec.Execute(context.Background(), plan, executor.DefaultOptions())
		}(i, types.ActionPlan{FileID: id, Source: source, Target: target, Kind: types.ActionMove})
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
			continue
		}
		assert.True(t, errors.IsErrorCode(r.Error, errors.ErrDestinationExists))
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, store.AllActions(), 1)
	assert.Zero(t, exec.LockCount(), "destination locks are released")
}

// Test Type: Unit Test
// Description: Tests that destination locks do not accumulate across plans
func TestExecute_LocksAreReleased(t *testing.T) {
	dir := t.TempDir()
	store := catalog.NewMemory()
	exec := executor.New(executor.Config{Catalog: store})

	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("file%02d.txt", i)
		source := testutil.CreateFile(t, filepath.Join(dir, "in"), name, name)
		id, err := store.AddFile(context.Background(), types.FileRecord{Path: source})
		require.NoError(t, err)

		plan := types.ActionPlan{FileID: id, Source: source, Target: filepath.Join(dir, "out", name), Kind: types.ActionMove}
		result := exec.Execute(context.Background(), plan, executor.DefaultOptions())
		require.True(t, result.Success, "error: %v", result.Error)
		assert.Zero(t, exec.LockCount())
	}
}

func TestApplyTags(t *testing.T) {
	store := catalog.NewMemory()
	id, err := store.AddFile(context.Background(), types.FileRecord{Path: "/in/a.pdf"})
	require.NoError(t, err)

	exec := executor.New(executor.Config{Catalog: store})
	errs := exec.ApplyTags(context.Background(), id, []string{"docs", " ", "pdf"})
	require.Len(t, errs, 1, "blank tag fails on its own")

	tags, err := store.FileTags(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "pdf"}, tags)

	assert.Nil(t, executor.New(executor.Config{}).ApplyTags(context.Background(), id, []string{"x"}))
}
