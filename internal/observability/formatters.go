// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/interview-manager/internal/analytics"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the stats command
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		line = truncate(line, boxWidth-4)
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// signed renders a month-over-month change as +12% / -5% / 0%
func signed(change int) string {
	if change > 0 {
		return fmt.Sprintf("+%d%%", change)
	}
	return fmt.Sprintf("%d%%", change)
}

// PrintDashboard outputs the headline numbers and the status distribution.
func (p *Printer) PrintDashboard(d *analytics.Dashboard) {
	if d == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Interviews:      %d\n", d.TotalInterviews))
	sb.WriteString(fmt.Sprintf("Candidates:      %d\n", d.TotalCandidates))
	sb.WriteString(fmt.Sprintf("Assignments:     %d (%s this month)\n", d.TotalAssignments, signed(d.Assignments.Change)))
	sb.WriteString(fmt.Sprintf("Completed:       %d (%s this month)\n", d.CompletedAssignments, signed(d.Completions.Change)))
	sb.WriteString(fmt.Sprintf("Completion rate: %d%%\n", d.CompletionRate))
	sb.WriteString(fmt.Sprintf("Avg response:    %dh\n", d.AvgResponseTimeHours))
	sb.WriteString(fmt.Sprintf("Completed today: %d\n", d.CompletedToday))
	sb.WriteString("\n")
	sb.WriteString("Status:\n")
	sb.WriteString(fmt.Sprintf("  pending      %d\n", d.Status.Pending))
	sb.WriteString(fmt.Sprintf("  in_progress  %d\n", d.Status.InProgress))
	sb.WriteString(fmt.Sprintf("  completed    %d", d.Status.Completed))

	p.printBox("DASHBOARD "+d.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"), sb.String())
}

// PrintTopInterviews outputs the interviews with the best completion rate.
func (p *Printer) PrintTopInterviews(stats []analytics.InterviewStat) {
	if len(stats) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(stats), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := stats[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, truncate(s.Name, 40)))
		sb.WriteString(fmt.Sprintf("    %d/%d completed (%d%%)", s.Completed, s.Assigned, s.CompletionRate))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(stats) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more interviews", len(stats)-maxItemsToShow))
	}

	p.printBox("TOP INTERVIEWS", sb.String())
}

// PrintTopCandidates outputs the candidates with the most completed interviews.
func (p *Printer) PrintTopCandidates(stats []analytics.CandidateStat) {
	if len(stats) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(stats), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := stats[i]
		sb.WriteString(fmt.Sprintf("• %s  %d/%d", truncate(s.Name, 36), s.Completed, s.Assigned))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("TOP CANDIDATES", sb.String())
}

// PrintDailyActivity outputs one line per day with a bar for completions.
func (p *Printer) PrintDailyActivity(days []analytics.DayActivity) {
	if len(days) == 0 {
		return
	}

	var sb strings.Builder
	for i, d := range days {
		bar := strings.Repeat("█", min(d.Completed, 20))
		sb.WriteString(fmt.Sprintf("%s  +%-3d ✓%-3d %s", d.Date, d.Assigned, d.Completed, bar))
		if i < len(days)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DAILY ACTIVITY", sb.String())
}

// PrintAll prints every section of the dashboard
func (p *Printer) PrintAll(d *analytics.Dashboard) {
	if d == nil {
		return
	}
	p.PrintDashboard(d)
	p.PrintTopInterviews(d.TopInterviews)
	p.PrintTopCandidates(d.TopCandidates)
	p.PrintDailyActivity(d.DailyActivity)
}
