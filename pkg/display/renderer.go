// Package display renders command results for the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/organize"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// Renderer defines the interface for rendering command results
type Renderer interface {
	// RenderSummary renders an organize run, one line per file then totals
	RenderSummary(summary organize.Summary) string

	// RenderOutcome renders a single file outcome
	RenderOutcome(outcome organize.FileOutcome) string

	// RenderHistory renders the action log of a file
	RenderHistory(path string, entries []types.ActionLogEntry) string

	// RenderTags renders the tags of a file
	RenderTags(path string, tags []string) string
}

// ForWriter picks the rich renderer for terminals and plain text otherwise
func ForWriter(w io.Writer) Renderer {
	if f, ok := w.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return NewRichRenderer()
		}
	}
	return NewPlainRenderer()
}

// outcomeMessage is the third column of a file line
func outcomeMessage(o organize.FileOutcome) string {
	switch o.Status {
	case organize.StatusSucceeded:
		msg := fmt.Sprintf("%s → %s", o.Plan.Kind, o.Plan.Target)
		if o.Result != nil && o.Result.DryRun {
			msg = "would " + msg
		}
		if len(o.Tags) > 0 {
			msg += " [" + strings.Join(o.Tags, ", ") + "]"
		}
		return msg
	case organize.StatusFailed:
		if o.Result != nil && o.Result.Error != nil {
			return o.Result.Error.Error()
		}
		return "failed"
	case organize.StatusSkipped:
		return "already in place"
	case organize.StatusTagged:
		return "tags: " + strings.Join(o.Tags, ", ")
	default:
		return "no rule matched"
	}
}

func tagErrorCount(summary organize.Summary) int {
	n := 0
	for _, fe := range summary.Errors {
		if errors.IsErrorCode(fe.Err, errors.ErrTagApply) {
			n++
		}
	}
	return n
}

func statusLabel(o organize.FileOutcome) string {
	return string(o.Status)
}

// RichRenderer implements Renderer with colored terminal output
type RichRenderer struct {
	statusWidth int
}

// NewRichRenderer creates a new rich terminal renderer
func NewRichRenderer() *RichRenderer {
	return &RichRenderer{statusWidth: 10}
}

// RenderSummary renders the organize summary
func (r *RichRenderer) RenderSummary(summary organize.Summary) string {
	var output strings.Builder

	header := "Organize"
	if summary.DryRun {
		header += " (dry run)"
	}
	output.WriteString(TitleStyle.Sprint(header) + "\n\n")

	for _, o := range summary.Results {
		output.WriteString(indent(r.RenderOutcome(o), 1) + "\n")
	}
	if len(summary.Results) > 0 {
		output.WriteString("\n")
	}

	output.WriteString(TitleStyle.Sprint("Summary") + "\n")
	stats := []string{fmt.Sprintf("Total files: %d", summary.Total)}
	if summary.Succeeded > 0 {
		stats = append(stats, fmt.Sprintf("%s Organized: %d", SuccessIndicator, summary.Succeeded))
	}
	if summary.TagOnly > 0 {
		stats = append(stats, fmt.Sprintf("%s Tagged: %d", InfoIndicator, summary.TagOnly))
	}
	if summary.Skipped > 0 {
		stats = append(stats, fmt.Sprintf("%s Skipped: %d", PendingIndicator, summary.Skipped))
	}
	if summary.Unmatched > 0 {
		stats = append(stats, fmt.Sprintf("%s Unmatched: %d", PendingIndicator, summary.Unmatched))
	}
	if summary.Failed > 0 {
		stats = append(stats, fmt.Sprintf("%s Failed: %d", ErrorIndicator, summary.Failed))
	}
	for _, stat := range stats {
		output.WriteString(indent(stat, 1) + "\n")
	}

	if n := tagErrorCount(summary); n > 0 {
		output.WriteString(indent(WarningStyle.Sprintf("%d tag errors", n), 1) + "\n")
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderOutcome renders a file line as <status> : <path> : <message>
func (r *RichRenderer) RenderOutcome(o organize.FileOutcome) string {
	label := r.statusStyle(o.Status).Sprint(padRight(statusLabel(o), r.statusWidth))
	return fmt.Sprintf("%s %s : %s : %s", r.indicator(o.Status), label, PathStyle.Sprint(o.Path), outcomeMessage(o))
}

// RenderHistory renders the action log of a file
func (r *RichRenderer) RenderHistory(path string, entries []types.ActionLogEntry) string {
	var output strings.Builder
	output.WriteString(TitleStyle.Sprint(path) + "\n")
	if len(entries) == 0 {
		output.WriteString(indent(MutedStyle.Sprint("no recorded actions"), 1))
		return output.String()
	}

	data := pterm.TableData{{"When", "Action", "From", "To", "Status"}}
	for _, e := range entries {
		data = append(data, []string{
			e.Timestamp.Format(time.DateTime),
			string(e.Kind),
			e.Source,
			e.Target,
			e.Status,
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return output.String() + err.Error()
	}
	output.WriteString(table)
	return strings.TrimRight(output.String(), "\n")
}

// RenderTags renders the tags of a file
func (r *RichRenderer) RenderTags(path string, tags []string) string {
	if len(tags) == 0 {
		return PathStyle.Sprint(path) + " " + MutedStyle.Sprint("(no tags)")
	}
	styled := make([]string, len(tags))
	for i, t := range tags {
		styled[i] = InfoStyle.Sprint("#" + t)
	}
	return PathStyle.Sprint(path) + " " + strings.Join(styled, " ")
}

func (r *RichRenderer) indicator(status organize.Status) string {
	switch status {
	case organize.StatusSucceeded:
		return SuccessIndicator
	case organize.StatusFailed:
		return ErrorIndicator
	case organize.StatusTagged:
		return InfoIndicator
	default:
		return PendingIndicator
	}
}

func (r *RichRenderer) statusStyle(status organize.Status) *pterm.Style {
	switch status {
	case organize.StatusSucceeded:
		return SuccessStyle
	case organize.StatusFailed:
		return ErrorStyle
	case organize.StatusTagged:
		return InfoStyle
	default:
		return MutedStyle
	}
}

// padRight pads a string to the specified width
func padRight(s string, width int) string {
	if len(s) > width {
		return s[:width-1] + "…"
	}
	return s + strings.Repeat(" ", width-len(s))
}

// PlainRenderer implements Renderer with plain text output
type PlainRenderer struct{}

// NewPlainRenderer creates a new plain text renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// RenderSummary renders the summary as plain text
func (r *PlainRenderer) RenderSummary(summary organize.Summary) string {
	var output strings.Builder

	output.WriteString("ORGANIZE")
	if summary.DryRun {
		output.WriteString(" (DRY RUN)")
	}
	output.WriteString("\n\n")

	for _, o := range summary.Results {
		output.WriteString("  " + r.RenderOutcome(o) + "\n")
	}
	if len(summary.Results) > 0 {
		output.WriteString("\n")
	}

	output.WriteString("SUMMARY\n")
	output.WriteString(fmt.Sprintf("  Total files: %d\n", summary.Total))
	output.WriteString(fmt.Sprintf("  Organized: %d\n", summary.Succeeded))
	output.WriteString(fmt.Sprintf("  Tagged: %d\n", summary.TagOnly))
	output.WriteString(fmt.Sprintf("  Skipped: %d\n", summary.Skipped))
	output.WriteString(fmt.Sprintf("  Unmatched: %d\n", summary.Unmatched))
	output.WriteString(fmt.Sprintf("  Failed: %d\n", summary.Failed))
	if n := tagErrorCount(summary); n > 0 {
		output.WriteString(fmt.Sprintf("  Tag errors: %d\n", n))
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderOutcome renders a file line as plain text
func (r *PlainRenderer) RenderOutcome(o organize.FileOutcome) string {
	return fmt.Sprintf("%s : %s : %s", padRight(statusLabel(o), 10), o.Path, outcomeMessage(o))
}

// RenderHistory renders the action log as plain text
func (r *PlainRenderer) RenderHistory(path string, entries []types.ActionLogEntry) string {
	var output strings.Builder
	output.WriteString(path + "\n")
	if len(entries) == 0 {
		output.WriteString("  no recorded actions")
		return output.String()
	}
	for _, e := range entries {
		output.WriteString(fmt.Sprintf("  %s  %-13s %s -> %s (%s)\n",
			e.Timestamp.Format(time.DateTime), e.Kind, e.Source, e.Target, e.Status))
	}
	return strings.TrimRight(output.String(), "\n")
}

// RenderTags renders the tags of a file as plain text
func (r *PlainRenderer) RenderTags(path string, tags []string) string {
	if len(tags) == 0 {
		return path + ": (no tags)"
	}
	return path + ": " + strings.Join(tags, ", ")
}
