// Package dashboard renders analytics snapshots and content summaries for
// the terminal.
package dashboard

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/haiblock/haiblock-go/haiblock"
)

const (
	barWidth       = 30
	activityLimit  = 10
	recentUploads  = 5
	sectionWidth   = 60
	subsectionRule = 40
)

// Options controls rendering
type Options struct {
	// Color enables ANSI styling. Plain text is written otherwise.
	Color bool
}

// Renderer writes dashboards to a single output
type Renderer struct {
	w  io.Writer
	lg *lipgloss.Renderer

	header  lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	good    lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	dim     lipgloss.Style
}

// New creates a renderer writing to w
func New(w io.Writer, opts Options) *Renderer {
	lg := lipgloss.NewRenderer(w)
	if !opts.Color {
		lg.SetColorProfile(termenv.Ascii)
	}

	return &Renderer{
		w:       w,
		lg:      lg,
		header:  lg.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		section: lg.NewStyle().Bold(true),
		label:   lg.NewStyle().Foreground(lipgloss.Color("14")),
		good:    lg.NewStyle().Foreground(lipgloss.Color("10")),
		warn:    lg.NewStyle().Foreground(lipgloss.Color("11")),
		bad:     lg.NewStyle().Foreground(lipgloss.Color("9")),
		dim:     lg.NewStyle().Faint(true),
	}
}

// Analytics writes the analytics overview, breakdowns, activity feed and
// performance insights for a snapshot.
func (r *Renderer) Analytics(a *haiblock.AnalyticsSnapshot) error {
	var b strings.Builder

	r.sectionHeader(&b, "ANALYTICS OVERVIEW")
	if !a.Range.IsZero() {
		fmt.Fprintf(&b, "%s %s\n", r.dim.Render("Window:"), formatRange(a.Range))
	}

	r.subsection(&b, "Key Metrics")
	r.metric(&b, "Total Content Items", formatCount(a.TotalContent))
	r.metric(&b, "Total Submissions", formatCount(a.TotalSubmissions))
	r.metric(&b, "Successful Submissions", formatCount(a.SuccessfulSubmissions))
	r.metric(&b, "Failed Submissions", formatCount(a.FailedSubmissions))
	r.metric(&b, "Success Rate", formatPercent(a.SuccessRate))

	r.subsection(&b, "Cost Analysis")
	r.metric(&b, "Total Costs", formatCurrency(a.TotalCosts))
	r.metric(&b, "Average Cost/Submission", formatCurrency(a.AverageCostPerSubmission))
	if a.TotalSubmissions > 0 {
		perSuccess := 0.0
		if a.SuccessfulSubmissions > 0 {
			perSuccess = a.TotalCosts / float64(a.SuccessfulSubmissions)
		}
		r.metric(&b, "Cost per Success", formatCurrency(perSuccess))
	}

	if len(a.ContentStatusBreakdown) > 0 {
		r.subsection(&b, "Content Status Distribution")
		r.distribution(&b, a.ContentStatusBreakdown)
	}
	if len(a.SubmissionProviderBreakdown) > 0 {
		r.subsection(&b, "AI Provider Distribution")
		r.distribution(&b, a.SubmissionProviderBreakdown)
	}

	if len(a.RecentActivity) > 0 {
		r.subsection(&b, "Recent Activity")
		for i, act := range a.RecentActivity[:min(len(a.RecentActivity), activityLimit)] {
			fmt.Fprintf(&b, "%2d. %s %s - %s\n", i+1, r.activityMarker(act.Status), formatActivityTime(act.Timestamp), act.Action)
			if act.ContentID != "" {
				fmt.Fprintf(&b, "     Content: %s\n", shortID(act.ContentID))
			}
		}
	}

	if len(a.MonthlyTrends) > 0 {
		r.subsection(&b, "Monthly Trends")
		for _, month := range slices.Sorted(maps.Keys(a.MonthlyTrends)) {
			t := a.MonthlyTrends[month]
			fmt.Fprintf(&b, "%s: %3d submissions, %s costs\n", month, t.Submissions, formatCurrency(t.Costs))
		}
	}

	r.sectionHeader(&b, "PERFORMANCE INSIGHTS")
	for _, line := range r.insights(a) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// Content writes a summary of content records: totals, file types, status
// counts and the most recent uploads.
func (r *Renderer) Content(records []*haiblock.ContentRecord) error {
	var b strings.Builder

	r.sectionHeader(&b, "CONTENT ANALYSIS")
	if len(records) == 0 {
		b.WriteString("No content found\n")
		_, err := io.WriteString(r.w, b.String())
		return err
	}

	fileTypes := make(map[string]int)
	statuses := make(map[string]int)
	var totalSize int64
	for _, rec := range records {
		fileTypes[cmp.Or(rec.FileType, "unknown")]++
		statuses[rec.Status.String()]++
		totalSize += rec.FileSize
	}

	r.subsection(&b, "Content Summary")
	r.metric(&b, "Total Files", formatCount(len(records)))
	r.metric(&b, "Total Size", formatMB(totalSize))

	b.WriteString("\nFile Types:\n")
	for _, ft := range slices.Sorted(maps.Keys(fileTypes)) {
		fmt.Fprintf(&b, "  %s: %d\n", ft, fileTypes[ft])
	}
	b.WriteString("\nContent Status:\n")
	for _, st := range slices.Sorted(maps.Keys(statuses)) {
		fmt.Fprintf(&b, "  %s: %d\n", st, statuses[st])
	}

	recent := slices.Clone(records)
	slices.SortStableFunc(recent, func(x, y *haiblock.ContentRecord) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})

	b.WriteString("\nRecent Uploads:\n")
	b.WriteString(r.ContentTable(recent[:min(len(recent), recentUploads)]))
	b.WriteByte('\n')

	_, err := io.WriteString(r.w, b.String())
	return err
}

// ContentTable renders records as a bordered table
func (r *Renderer) ContentTable(records []*haiblock.ContentRecord) string {
	t := lgtable.New().
		Headers("ID", "FILENAME", "STATUS", "SIZE", "CREATED").
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.dim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return r.header
			}
			return r.lg.NewStyle().Padding(0, 1)
		})

	for _, rec := range records {
		created := "-"
		if !rec.CreatedAt.IsZero() {
			created = rec.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		t.Row(rec.ID, rec.Filename, rec.Status.String(), formatMB(rec.FileSize), created)
	}
	return t.Render()
}

func (r *Renderer) sectionHeader(b *strings.Builder, title string) {
	rule := strings.Repeat("=", sectionWidth)
	fmt.Fprintf(b, "\n%s\n  %s\n%s\n", rule, r.header.Render(title), rule)
}

func (r *Renderer) subsection(b *strings.Builder, title string) {
	rule := strings.Repeat("-", subsectionRule)
	fmt.Fprintf(b, "\n%s\n  %s\n%s\n", rule, r.section.Render(title), rule)
}

func (r *Renderer) metric(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "%s %s\n", r.label.Render(fmt.Sprintf("%-25s", name+":")), value)
}

func (r *Renderer) distribution(b *strings.Builder, counts map[string]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	for _, key := range slices.Sorted(maps.Keys(counts)) {
		n := counts[key]
		share := 0.0
		if total > 0 {
			share = float64(n) / float64(total)
		}
		fmt.Fprintf(b, "%-12s │%s│ %3d (%s)\n", strings.ToUpper(key), Bar(share, barWidth), n, formatPercent(share))
	}
}

func (r *Renderer) activityMarker(status string) string {
	switch strings.ToLower(status) {
	case "success":
		return r.good.Render("[ok]")
	case "error", "failed":
		return r.bad.Render("[err]")
	case "pending":
		return r.warn.Render("[wait]")
	case "processing":
		return r.warn.Render("[run]")
	default:
		return r.dim.Render("[-]")
	}
}

func (r *Renderer) insights(a *haiblock.AnalyticsSnapshot) []string {
	var lines []string

	switch {
	case a.SuccessRate >= 0.9:
		lines = append(lines, r.good.Render("Excellent success rate! Content optimization is working well."))
	case a.SuccessRate >= 0.7:
		lines = append(lines, r.good.Render("Good success rate. Review failed submissions for improvement opportunities."))
	case a.SuccessRate >= 0.5:
		lines = append(lines, r.warn.Render("Moderate success rate. Review content transformation and submission processes."))
	default:
		lines = append(lines, r.bad.Render("Low success rate. The content optimization workflow needs attention."))
	}

	switch cost := a.AverageCostPerSubmission; {
	case cost < 0.01:
		lines = append(lines, r.good.Render("Very cost-effective processing."))
	case cost < 0.05:
		lines = append(lines, r.good.Render("Cost-effective processing."))
	case cost < 0.10:
		lines = append(lines, r.warn.Render("Moderate processing costs. Monitor for optimization opportunities."))
	default:
		lines = append(lines, r.bad.Render("High processing costs. Consider optimizing content size and transformation logic."))
	}

	switch {
	case a.TotalSubmissions > 100:
		lines = append(lines, "High activity level.")
	case a.TotalSubmissions > 20:
		lines = append(lines, "Moderate activity level.")
	default:
		lines = append(lines, "Getting started. Upload more content for better insights.")
	}

	return lines
}

// Bar draws a horizontal bar of width cells filled to share (0..1)
func Bar(share float64, width int) string {
	filled := int(share * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatCount(n int) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	s := fmt.Sprint(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func formatCurrency(amount float64) string {
	return fmt.Sprintf("$%.4f", amount)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func formatMB(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
}

func formatRange(tr haiblock.TimeRange) string {
	from, to := "…", "…"
	if !tr.From.IsZero() {
		from = tr.From.UTC().Format(time.DateOnly)
	}
	if !tr.To.IsZero() {
		to = tr.To.UTC().Format(time.DateOnly)
	}
	return from + " to " + to
}

func formatActivityTime(ts string) string {
	if ts == "" {
		return "N/A"
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("2006-01-02 15:04")
		}
	}
	return ts
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
