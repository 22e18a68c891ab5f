package types

import (
	"fmt"
	"time"
)

// ActionKind identifies the filesystem operation of an ActionPlan
type ActionKind string

const (
	ActionMove         ActionKind = "move"
	ActionCopy         ActionKind = "copy"
	ActionRename       ActionKind = "rename"
	ActionLinkHard     ActionKind = "link_hard"
	ActionLinkSymbolic ActionKind = "link_symbolic"
)

// IsValid reports whether k is a known action kind
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionMove, ActionCopy, ActionRename, ActionLinkHard, ActionLinkSymbolic:
		return true
	}
	return false
}

// IsLink reports whether k creates a link instead of placing content
func (k ActionKind) IsLink() bool {
	return k == ActionLinkHard || k == ActionLinkSymbolic
}

// Relocates reports whether the file's catalog path changes after k
func (k ActionKind) Relocates() bool {
	return k == ActionMove || k == ActionRename
}

// ActionPlan is the resolved, ready-to-execute description of one
// filesystem mutation for one file. Plans are never persisted.
type ActionPlan struct {
	FileID   int64
	Source   string
	Target   string
	Kind     ActionKind
	RuleName string
	Tags     []string
}

// String renders the plan for previews and logs
func (p ActionPlan) String() string {
	return fmt.Sprintf("%s: %s -> %s", p.Kind, p.Source, p.Target)
}

// ActionResult is the outcome of executing one ActionPlan
type ActionResult struct {
	Success bool
	DryRun  bool
	// Skipped marks a plan whose target already is the file's location
	Skipped  bool
	Source   string
	Target   string
	Kind     ActionKind
	Error    error
	ActionID int64
	// TagErrors holds per-tag failures; they never affect Success
	TagErrors []error
	Duration  time.Duration
}
