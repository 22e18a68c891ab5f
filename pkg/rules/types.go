package rules

import (
	"github.com/arthur-debert/dosort/pkg/types"
)

// Ruleset is an ordered, immutable list of rules loaded from one document
type Ruleset struct {
	Version int
	Source  string // path of the rule document, empty when parsed from memory
	// BaseDir anchors relative target directories. LoadRules defaults it to
	// the directory holding the rule document. When empty, as for rules
	// parsed from memory, they resolve against the file's own directory.
	BaseDir string
	Rules   []Rule
}

// Rule pairs a condition with the action to take when it holds
type Rule struct {
	Name      string
	Condition types.Condition
	Action    Action
}

// Action is the "then" part of a rule. It is one of MoveAction, CopyAction,
// LinkAction, RenameAction or TagOnly.
type Action interface {
	// TagNames returns the tags the rule adds to matching files
	TagNames() []string
	isAction()
}

// Tagging carries the tags_add list shared by all action variants
type Tagging struct {
	Tags []string
}

// TagNames implements Action
func (t Tagging) TagNames() []string { return t.Tags }

func (Tagging) isAction() {}

// MoveAction moves the file into Dir, optionally renaming it
type MoveAction struct {
	Dir    string
	Rename string
	Tagging
}

// CopyAction copies the file into Dir, optionally renaming the copy
type CopyAction struct {
	Dir    string
	Rename string
	Tagging
}

// LinkType selects between hard and symbolic links
type LinkType string

const (
	LinkHard     LinkType = "hard"
	LinkSymbolic LinkType = "symbolic"
)

// LinkAction creates a link to the file inside Dir
type LinkAction struct {
	Dir      string
	Rename   string
	LinkType LinkType
	Tagging
}

// Kind maps the link type to the executor's action kind. Anything other
// than symbolic is a hard link.
func (a LinkAction) Kind() types.ActionKind {
	if a.LinkType == LinkSymbolic {
		return types.ActionLinkSymbolic
	}
	return types.ActionLinkHard
}

// RenameAction renames the file in place
type RenameAction struct {
	Name string
	Tagging
}

// TagOnly only tags matching files and never moves them
type TagOnly struct {
	Tagging
}
