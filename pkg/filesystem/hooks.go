package filesystem

import (
	"github.com/arthur-debert/dosort/pkg/types"
)

// Hooks are callbacks run after a successful operation of a wrapped FS.
// A non-nil error returned by a hook replaces the operation's result.
// BeforeRemove runs first instead, and an error from it skips the removal.
type Hooks struct {
	AfterRename  func(oldpath, newpath string) error
	AfterLink    func(oldname, newname string) error
	AfterCopy    func(path string) error
	BeforeRemove func(path string) error
}

// hookFS wraps a types.FS and fires Hooks after mutating operations
type hookFS struct {
	types.FS
	hooks Hooks
}

// WithHooks wraps fsys so the given hooks fire after renames and links.
// AfterCopy is fired by callers through NotifyCopy.
func WithHooks(fsys types.FS, hooks Hooks) types.FS {
	return &hookFS{FS: fsys, hooks: hooks}
}

func (h *hookFS) Rename(oldpath, newpath string) error {
	if err := h.FS.Rename(oldpath, newpath); err != nil {
		return err
	}
	if h.hooks.AfterRename != nil {
		return h.hooks.AfterRename(oldpath, newpath)
	}
	return nil
}

func (h *hookFS) Link(oldname, newname string) error {
	if err := h.FS.Link(oldname, newname); err != nil {
		return err
	}
	if h.hooks.AfterLink != nil {
		return h.hooks.AfterLink(oldname, newname)
	}
	return nil
}

func (h *hookFS) Remove(name string) error {
	if h.hooks.BeforeRemove != nil {
		if err := h.hooks.BeforeRemove(name); err != nil {
			return err
		}
	}
	return h.FS.Remove(name)
}

// CopyNotifier is implemented by filesystems that want to observe
// completed content copies.
type CopyNotifier interface {
	NotifyCopy(path string) error
}

func (h *hookFS) NotifyCopy(path string) error {
	if h.hooks.AfterCopy != nil {
		return h.hooks.AfterCopy(path)
	}
	return nil
}
