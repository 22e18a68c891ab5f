// Test Type: Unit Test
// Description: Tests for the organize summary, history and tag renderers

package display_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/arthur-debert/dosort/pkg/display"
	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/organize"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func sampleSummary() organize.Summary {
	plan := &types.ActionPlan{Source: "/in/a.jpg", Target: "/lib/2023/a.jpg", Kind: types.ActionMove}
	failErr := errors.New(errors.ErrDestinationExists, "destination exists")
	tagErr := errors.New(errors.ErrTagApply, "tag failed")
	return organize.Summary{
		Total:     4,
		Succeeded: 1,
		Failed:    1,
		Unmatched: 1,
		TagOnly:   1,
		Results: []organize.FileOutcome{
			{Path: "/in/a.jpg", Plan: plan, Tags: []string{"photo"}, Status: organize.StatusSucceeded, Result: &types.ActionResult{Success: true}},
			{Path: "/in/b.jpg", Plan: plan, Status: organize.StatusFailed, Result: &types.ActionResult{Error: failErr}},
			{Path: "/in/c.txt", Status: organize.StatusUnmatched},
			{Path: "/in/d.zip", Tags: []string{"archive"}, Status: organize.StatusTagged, TagErrors: []error{tagErr}},
		},
		Errors: []organize.FileError{
			{Path: "/in/b.jpg", Err: failErr},
			{Path: "/in/d.zip", Err: tagErr},
		},
	}
}

func TestPlainRenderer_Summary(t *testing.T) {
	out := display.NewPlainRenderer().RenderSummary(sampleSummary())

	assert.Contains(t, out, "ORGANIZE\n")
	assert.Contains(t, out, "succeeded  : /in/a.jpg : move → /lib/2023/a.jpg [photo]")
	assert.Contains(t, out, "failed     : /in/b.jpg : [DESTINATION_EXISTS] destination exists")
	assert.Contains(t, out, "unmatched  : /in/c.txt : no rule matched")
	assert.Contains(t, out, "tagged     : /in/d.zip : tags: archive")
	assert.Contains(t, out, "Total files: 4")
	assert.Contains(t, out, "Tag errors: 1")
}

func TestPlainRenderer_UncollectedFiles(t *testing.T) {
	s := organize.Summary{Total: 1, Succeeded: 1, Results: sampleSummary().Results[:1]}
	s.AddUncollected([]organize.FileError{{Path: "/in/gone.pdf", Err: errors.New(errors.ErrNotFound, "file is not in the catalog")}})

	out := display.NewPlainRenderer().RenderSummary(s)
	assert.Contains(t, out, "failed     : /in/gone.pdf : [NOT_FOUND] file is not in the catalog")
	assert.Contains(t, out, "Total files: 2")
	assert.Contains(t, out, "Failed: 1")
}

func TestPlainRenderer_DryRun(t *testing.T) {
	s := organize.Summary{
		Total:     1,
		Succeeded: 1,
		DryRun:    true,
		Results: []organize.FileOutcome{{
			Path:   "/in/a.jpg",
			Plan:   &types.ActionPlan{Kind: types.ActionCopy, Target: "/lib/a.jpg"},
			Status: organize.StatusSucceeded,
			Result: &types.ActionResult{Success: true, DryRun: true},
		}},
	}
	out := display.NewPlainRenderer().RenderSummary(s)

	assert.Contains(t, out, "ORGANIZE (DRY RUN)")
	assert.Contains(t, out, "would copy → /lib/a.jpg")
	assert.NotContains(t, out, "Tag errors")
}

func TestPlainRenderer_HistoryAndTags(t *testing.T) {
	r := display.NewPlainRenderer()
	when := time.Date(2023, 6, 4, 10, 0, 0, 0, time.Local)

	out := r.RenderHistory("/lib/a.jpg", []types.ActionLogEntry{
		{Kind: types.ActionMove, Source: "/in/a.jpg", Target: "/lib/a.jpg", Timestamp: when, Status: "success"},
	})
	assert.Contains(t, out, "2023-06-04 10:00:00")
	assert.Contains(t, out, "/in/a.jpg -> /lib/a.jpg (success)")

	assert.Contains(t, r.RenderHistory("/x", nil), "no recorded actions")
	assert.Equal(t, "/x: (no tags)", r.RenderTags("/x", nil))
	assert.Equal(t, "/x: a, b", r.RenderTags("/x", []string{"a", "b"}))
}

func TestRichRenderer(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	r := display.NewRichRenderer()
	out := r.RenderSummary(sampleSummary())
	assert.Contains(t, out, "Organize")
	assert.Contains(t, out, "/in/a.jpg")
	assert.Contains(t, out, "Organized: 1")
	assert.Contains(t, out, "1 tag errors")

	tags := r.RenderTags("/x", []string{"a"})
	assert.Contains(t, tags, "#a")

	hist := r.RenderHistory("/lib/a.jpg", []types.ActionLogEntry{
		{Kind: types.ActionCopy, Source: "/in/a.jpg", Target: "/lib/a.jpg", Status: "success"},
	})
	assert.Contains(t, hist, "copy")
}

func TestForWriter(t *testing.T) {
	var buf bytes.Buffer
	_, ok := display.ForWriter(&buf).(*display.PlainRenderer)
	assert.True(t, ok)
}
