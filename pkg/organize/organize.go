package organize

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/executor"
	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/rules"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Status is the per-file outcome of a run
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusUnmatched Status = "unmatched"
	StatusTagged    Status = "tagged"
)

// Options control one run
type Options struct {
	DryRun bool
	Verify bool
	// Concurrency is the number of files processed at once; values below 1
	// mean sequential
	Concurrency int
	// OnProgress is called once per finished file, never concurrently
	OnProgress func(done, total int, outcome FileOutcome)
}

// FileOutcome is what happened to one file
type FileOutcome struct {
	Path   string
	Rule   string
	Plan   *types.ActionPlan
	Tags   []string
	Result *types.ActionResult
	Status Status
	// TagErrors holds per-tag failures of tag-only and skipped files
	TagErrors []error
}

// FileError ties an error to the file it happened to
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// Summary aggregates a run. Results follow the input order.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Unmatched int
	TagOnly   int
	DryRun    bool
	Results   []FileOutcome
	Errors    []FileError
}

// Organizer matches files against rules and executes the resulting plans
type Organizer struct {
	builder  *rules.Builder
	executor *executor.Executor
	logger   zerolog.Logger
}

// New creates an organizer
func New(builder *rules.Builder, exec *executor.Executor) *Organizer {
	if builder == nil {
		builder = rules.NewBuilder()
	}
	return &Organizer{
		builder:  builder,
		executor: exec,
		logger:   logging.GetLogger("organize"),
	}
}

// Run organizes files with rs
func (o *Organizer) Run(ctx context.Context, rs *rules.Ruleset, files []*types.FileContext, opts Options) Summary {
	done := logging.LogOperationStart(o.logger, "organize")
	defer done()

	outcomes := make([]FileOutcome, len(files))
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	var (
		mu       sync.Mutex
		finished int
	)
	report := func(outcome FileOutcome) {
		mu.Lock()
		defer mu.Unlock()
		finished++
		if opts.OnProgress != nil {
			opts.OnProgress(finished, len(files), outcome)
		}
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, fc := range files {
		i, fc := i, fc
		g.Go(func() error {
			outcomes[i] = o.organizeOne(ctx, rs, fc, opts)
			report(outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(outcomes, opts.DryRun)
	o.logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int("unmatched", summary.Unmatched).
		Int("tag_only", summary.TagOnly).
		Bool("dry_run", summary.DryRun).
		Msg("Organize finished")
	return summary
}

func (o *Organizer) organizeOne(ctx context.Context, rs *rules.Ruleset, fc *types.FileContext, opts Options) FileOutcome {
	if fc == nil {
		return FileOutcome{
			Status: StatusFailed,
			Result: &types.ActionResult{Error: errors.New(errors.ErrInvalidInput, "missing file context")},
		}
	}
	outcome := FileOutcome{Path: fc.Path}

	if err := ctx.Err(); err != nil {
		outcome.Status = StatusFailed
		outcome.Result = &types.ActionResult{
			Source: fc.Path,
			Error:  errors.Wrap(err, errors.ErrExecutionFailure, "organize cancelled"),
		}
		return outcome
	}

	plan, tags, matched := o.builder.Build(rs, fc)
	outcome.Plan = plan
	outcome.Tags = tags
	if !matched {
		outcome.Status = StatusUnmatched
		return outcome
	}

	if plan == nil {
		outcome.Status = StatusTagged
		if !opts.DryRun {
			outcome.TagErrors = o.executor.ApplyTags(ctx, fc.ID, tags)
		}
		return outcome
	}
	outcome.Rule = plan.RuleName

	if filepath.Clean(plan.Target) == filepath.Clean(fc.Path) {
		o.logger.Debug().Str("file", fc.Path).Str("rule", plan.RuleName).Msg("File already in place")
		outcome.Status = StatusSkipped
		outcome.Result = &types.ActionResult{
			Success: true,
			Skipped: true,
			DryRun:  opts.DryRun,
			Source:  plan.Source,
			Target:  plan.Target,
			Kind:    plan.Kind,
		}
		if !opts.DryRun {
			// Tags added to a rule after a file was placed still apply
			outcome.TagErrors = o.executor.ApplyTags(ctx, fc.ID, tags)
		}
		return outcome
	}

	result := o.executor.Execute(ctx, *plan, executor.Options{Verify: opts.Verify, DryRun: opts.DryRun})
	outcome.Result = &result
	switch {
	case result.Success && result.Skipped:
		outcome.Status = StatusSkipped
	case result.Success:
		outcome.Status = StatusSucceeded
	default:
		outcome.Status = StatusFailed
	}
	return outcome
}

// AddUncollected counts files that never reached the rules, such as those
// Collect could not load, as failures of the run
func (s *Summary) AddUncollected(problems []FileError) {
	for _, p := range problems {
		s.Total++
		s.Failed++
		s.Results = append(s.Results, FileOutcome{
			Path:   p.Path,
			Status: StatusFailed,
			Result: &types.ActionResult{Source: p.Path, Error: p.Err},
		})
		s.Errors = append(s.Errors, p)
	}
}

func summarize(outcomes []FileOutcome, dryRun bool) Summary {
	s := Summary{Total: len(outcomes), DryRun: dryRun, Results: outcomes}
	for _, outcome := range outcomes {
		switch outcome.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
			if outcome.Result != nil && outcome.Result.Error != nil {
				s.Errors = append(s.Errors, FileError{Path: outcome.Path, Err: outcome.Result.Error})
			}
		case StatusSkipped:
			s.Skipped++
		case StatusUnmatched:
			s.Unmatched++
		case StatusTagged:
			s.TagOnly++
		}

		var tagErrs []error
		tagErrs = append(tagErrs, outcome.TagErrors...)
		if outcome.Result != nil {
			tagErrs = append(tagErrs, outcome.Result.TagErrors...)
		}
		for _, err := range tagErrs {
			s.Errors = append(s.Errors, FileError{Path: outcome.Path, Err: err})
		}
	}
	return s
}
