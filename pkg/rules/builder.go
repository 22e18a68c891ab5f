package rules

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/matchers"
	"github.com/arthur-debert/dosort/pkg/template"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/rs/zerolog"
)

// Builder evaluates a ruleset against one file and resolves the plan
type Builder struct {
	formatter *template.Formatter
	logger    zerolog.Logger
}

// NewBuilder creates a builder that renders templates with the wall clock
func NewBuilder() *Builder {
	return NewBuilderWithFormatter(template.New())
}

// NewBuilderWithFormatter creates a builder using the given formatter
func NewBuilderWithFormatter(f *template.Formatter) *Builder {
	return &Builder{
		formatter: f,
		logger:    logging.GetLogger("rules.builder"),
	}
}

// Build returns the placement plan for fc, the union of tags from every
// matching rule and whether any rule matched at all. The plan is nil when
// no rule matched or when the first matching rule only tags.
func (b *Builder) Build(rs *Ruleset, fc *types.FileContext) (*types.ActionPlan, []string, bool) {
	if rs == nil || fc == nil {
		return nil, nil, false
	}

	var (
		plan    *types.ActionPlan
		tags    []string
		matched bool
		decided bool
	)
	for _, rule := range rs.Rules {
		if !matchers.Matches(rule.Condition, fc) {
			continue
		}
		b.logger.Debug().
			Str("file", fc.Path).
			Str("rule", rule.Name).
			Msg("File matched rule")

		if rule.Action != nil {
			tags = append(tags, rule.Action.TagNames()...)
		}
		matched = true
		if decided {
			continue
		}
		// The first matching rule decides placement, even when it only tags
		decided = true
		plan = b.resolve(rs, rule, fc)
	}

	if !matched {
		return nil, nil, false
	}
	tags = normalizeTags(tags)
	if plan != nil {
		plan.Tags = tags
	}
	return plan, tags, true
}

func (b *Builder) resolve(rs *Ruleset, rule Rule, fc *types.FileContext) *types.ActionPlan {
	plan := &types.ActionPlan{
		FileID:   fc.ID,
		Source:   fc.Path,
		RuleName: rule.Name,
	}

	switch a := rule.Action.(type) {
	case MoveAction:
		plan.Kind = types.ActionMove
		plan.Target = b.placeIn(rs, a.Dir, a.Rename, fc)
	case CopyAction:
		plan.Kind = types.ActionCopy
		plan.Target = b.placeIn(rs, a.Dir, a.Rename, fc)
	case LinkAction:
		plan.Kind = a.Kind()
		plan.Target = b.placeIn(rs, a.Dir, a.Rename, fc)
	case RenameAction:
		plan.Kind = types.ActionRename
		plan.Target = filepath.Join(filepath.Dir(fc.Path), b.formatter.Format(a.Name, fc))
	default:
		return nil
	}
	return plan
}

func (b *Builder) placeIn(rs *Ruleset, dirTmpl, renameTmpl string, fc *types.FileContext) string {
	dir := b.formatter.Format(dirTmpl, fc)
	if !filepath.IsAbs(dir) {
		base := rs.BaseDir
		if base == "" {
			base = filepath.Dir(fc.Path)
		}
		dir = filepath.Join(base, dir)
	}

	name := fc.Filename
	if renameTmpl != "" {
		name = b.formatter.Format(renameTmpl, fc)
	}
	if name == "" {
		name = filepath.Base(fc.Path)
	}
	return filepath.Join(dir, name)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
