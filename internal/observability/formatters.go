// Package observability provides formatted output for the interactive review loop and verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jonathan/repocompare/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

var (
	colorInfo    = lipgloss.Color("#5FAFFF")
	colorSuccess = lipgloss.Color("#00D787")
	colorWarning = lipgloss.Color("#FFAF00")
	colorMuted   = lipgloss.Color("#888888")

	styleTitle   = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
)

// Printer handles formatted output for the review loop and verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most width runes.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// Stage prints a progress heading such as "Stage 2/5: Analyzing chunks".
//
//nolint:errcheck
func (p *Printer) Stage(n, total int, name string) {
	fmt.Fprintln(p.out, styleTitle.Render(fmt.Sprintf("Stage %d/%d: %s", n, total, name)))
}

// Info prints a muted progress line.
//
//nolint:errcheck
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.out, styleMuted.Render("  "+fmt.Sprintf(format, args...)))
}

// Warn prints a highlighted warning line.
//
//nolint:errcheck
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, styleWarning.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Success prints a highlighted success line.
//
//nolint:errcheck
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, styleSuccess.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintAggregate outputs the merged findings, most important first.
func (p *Printer) PrintAggregate(agg *types.AggregateResult) {
	if agg == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Chunks merged: %d\n", agg.ChunkCount))
	sb.WriteString(fmt.Sprintf("Techniques: %d   Gaps: %d   Risks: %d\n",
		len(agg.Techniques), len(agg.Gaps), len(agg.Risks)))

	for _, group := range []struct {
		name     string
		findings []types.Finding
	}{
		{"Top gaps", agg.Gaps},
		{"Top techniques", agg.Techniques},
		{"Top risks", agg.Risks},
	} {
		if len(group.findings) == 0 {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(group.name + ":\n")
		count := min(len(group.findings), maxItemsToShow)
		for i := 0; i < count; i++ {
			f := group.findings[i]
			sb.WriteString(fmt.Sprintf("  • [P%d] %s\n", f.Priority, f.Title))
		}
		if len(group.findings) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(group.findings)-maxItemsToShow))
		}
	}

	p.printBox("COMPARISON SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCandidates outputs every candidate with its scores.
func (p *Printer) PrintCandidates(items []types.CandidateItem) {
	if len(items) == 0 {
		p.printBox("CANDIDATES", "No candidates left.")
		return
	}

	var sb strings.Builder
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, item.Title))
		sb.WriteString(fmt.Sprintf("    Priority: %d  Complexity: %d  Category: %s\n", item.Priority, item.Complexity, item.Category))
		sb.WriteString(fmt.Sprintf("    ID: %s\n", item.ID))
		if i < len(items)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("CANDIDATES (%d)", len(items)), sb.String())
}

// PrintVerdicts outputs the reviewer verdicts in name order.
func (p *Printer) PrintVerdicts(verdicts map[string]types.Verdict) {
	if len(verdicts) == 0 {
		return
	}

	names := make([]string, 0, len(verdicts))
	for name := range verdicts {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		v := verdicts[name]
		status := "✗ not approved"
		if v.Approved {
			status = "✓ approved"
		}
		sb.WriteString(fmt.Sprintf("%s  %.1f/10  %s", name, v.Score, status))
		if v.Default {
			sb.WriteString("  (default)")
		}
		sb.WriteString("\n")
		if v.Summary != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", v.Summary))
		}
		count := min(len(v.Concerns), 3)
		for j := 0; j < count; j++ {
			sb.WriteString(fmt.Sprintf("    - %s\n", v.Concerns[j]))
		}
		if len(v.Concerns) > 3 {
			sb.WriteString(fmt.Sprintf("    ... and %d more\n", len(v.Concerns)-3))
		}
		if i < len(names)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("REVIEWS", strings.TrimSuffix(sb.String(), "\n"))
}

// PresentIteration shows everything a human needs to pick the next directive.
//
//nolint:errcheck
func (p *Printer) PresentIteration(state *types.PipelineState) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, styleTitle.Render(fmt.Sprintf("Review iteration %d of %d", state.Iteration, state.MaxIterations)))
	p.PrintAggregate(state.Aggregate)
	p.PrintCandidates(state.CandidateSet)
	p.PrintVerdicts(state.ReviewResults)
	if state.RefineBlocked {
		p.Warn("refine is blocked until a different directive is chosen")
	}
	fmt.Fprintln(p.out, styleMuted.Render("  approve | skip | refine: a; b | filter: priority>=3 category=x,y complexity<=2 | change_focus: a, b"))
}

// PrintStatus outputs a one-box summary of a stored session.
func (p *Printer) PrintStatus(state *types.PipelineState) {
	if state == nil {
		return
	}
	done, degraded := state.LedgerCounts()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session:    %s\n", state.SessionID))
	sb.WriteString(fmt.Sprintf("Stage:      %s\n", state.Stage))
	sb.WriteString(fmt.Sprintf("Iteration:  %d/%d\n", state.Iteration, state.MaxIterations))
	sb.WriteString(fmt.Sprintf("Chunks:     %d done, %d degraded, %d total\n", done, degraded, len(state.ChunkLedger)))
	sb.WriteString(fmt.Sprintf("Candidates: %d\n", len(state.CandidateSet)))
	if len(state.FocusAreas) > 0 {
		sb.WriteString(fmt.Sprintf("Focus:      %s\n", strings.Join(state.FocusAreas, ", ")))
	}
	if state.Outcome != types.OutcomeNone {
		sb.WriteString(fmt.Sprintf("Outcome:    %s\n", state.Outcome))
	}
	if state.PendingAction != nil {
		sb.WriteString(fmt.Sprintf("Pending:    %s (iteration %d)\n", state.PendingAction.Directive, state.PendingAction.Iteration))
	}
	sb.WriteString(fmt.Sprintf("Completed:  %t\n", state.Completed))
	sb.WriteString(fmt.Sprintf("Updated:    %s", state.UpdatedAt.Format("2006-01-02 15:04:05 MST")))

	p.printBox("SESSION STATUS", sb.String())
}
