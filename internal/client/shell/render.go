package shell

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/atinyakov/realtivo/internal/client/analytics"
	"github.com/atinyakov/realtivo/internal/client/leadlist"
	"github.com/atinyakov/realtivo/internal/models"
)

var statusColors = map[models.Status]lipgloss.Color{
	models.StatusHot:    lipgloss.Color("#ef4444"),
	models.StatusWarm:   lipgloss.Color("#f59e0b"),
	models.StatusCold:   lipgloss.Color("#3b82f6"),
	models.StatusClosed: lipgloss.Color("#10b981"),
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
)

func statusCell(s models.Status, width int) string {
	text := string(s)
	if text == "" {
		text = "—"
	}
	cell := fmt.Sprintf("%-*s", width, text)
	if c, ok := statusColors[s]; ok {
		return lipgloss.NewStyle().Foreground(c).Render(cell)
	}
	return cell
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func followUpCell(l models.Lead, now time.Time) string {
	if l.FollowUpDate == "" {
		return "—"
	}
	date, ok := l.FollowUp()
	if !ok {
		return "invalid date"
	}
	return date.Format("2006-01-02") + " (" + humanize.RelTime(date, now, "ago", "from now") + ")"
}

func renderFilter(w io.Writer, f leadlist.Filter) {
	search := f.Search
	if search == "" {
		search = "—"
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("search: %s | status: %s | follow-up: %s", search, f.Status, f.FollowUp)))
}

func renderTable(w io.Writer, res leadlist.Result, now time.Time) {
	if len(res.Leads) == 0 {
		fmt.Fprintln(w, "No leads found.")
	} else {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-36s  %-22s  %-28s  %-16s  %-7s  %s", "ID", "Name", "Email", "Phone", "Status", "Follow-up")))
		for _, l := range res.Leads {
			fmt.Fprintf(w, "%-36s  %-22s  %-28s  %-16s  %s  %s\n",
				l.ID,
				truncate(orDash(l.Name), 22),
				truncate(orDash(l.Email), 28),
				truncate(orDash(l.Phone), 16),
				statusCell(l.Status, 7),
				followUpCell(l, now))
		}
	}
	fmt.Fprintf(w, "Page %d of %d (%d leads)\n", res.Page, res.TotalPages, res.TotalCount)
}

func renderLead(w io.Writer, l models.Lead, notes []models.Note, tags []models.Tag, now time.Time) {
	fmt.Fprintln(w, headerStyle.Render("Lead "+l.ID))
	fmt.Fprintf(w, "Name:      %s\n", orDash(l.Name))
	fmt.Fprintf(w, "Email:     %s\n", orDash(l.Email))
	fmt.Fprintf(w, "Phone:     %s\n", orDash(l.Phone))
	fmt.Fprintf(w, "Status:    %s\n", strings.TrimSpace(statusCell(l.Status, 0)))
	fmt.Fprintf(w, "Follow-up: %s\n", followUpCell(l, now))
	if l.Content != "" {
		fmt.Fprintf(w, "Content:   %s\n", l.Content)
	}
	if !l.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:   %s (%s)\n", l.CreatedAt.Format(time.RFC3339), humanize.RelTime(l.CreatedAt, now, "ago", "from now"))
	}
	if notes != nil {
		renderNotes(w, notes, now)
	}
	if tags != nil {
		renderTags(w, tags)
	}
}

func renderNotes(w io.Writer, notes []models.Note, now time.Time) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes.")
		return
	}
	fmt.Fprintln(w, headerStyle.Render("Notes"))
	for _, n := range notes {
		when := ""
		if !n.CreatedAt.IsZero() {
			when = " " + mutedStyle.Render(humanize.RelTime(n.CreatedAt, now, "ago", "from now"))
		}
		fmt.Fprintf(w, "  [%s] %s%s\n", n.ID, n.Content, when)
	}
}

func renderTags(w io.Writer, tags []models.Tag) {
	if len(tags) == 0 {
		fmt.Fprintln(w, "No tags.")
		return
	}
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		label := fmt.Sprintf("%s (%s)", t.Name, t.ID)
		if t.Color != "" {
			label = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Render(label)
		}
		parts = append(parts, label)
	}
	fmt.Fprintln(w, "Tags: "+strings.Join(parts, ", "))
}

func renderStats(w io.Writer, leads []models.Lead, now time.Time) {
	s := analytics.Summarize(leads, now)
	fmt.Fprintln(w, headerStyle.Render("Lead Analytics"))
	fmt.Fprintf(w, "Total leads: %d  (overdue follow-ups: %d, no follow-up: %d)\n", s.Total, s.Overdue, s.Undated)
	fmt.Fprintln(w, "By status:")
	for _, c := range s.ByStatus {
		fmt.Fprintf(w, "  %s %d\n", statusCell(c.Status, 7), c.Count)
	}
	fmt.Fprintln(w, "Leads over time:")
	for _, d := range analytics.ByCreatedDate(leads, now.Location()) {
		fmt.Fprintf(w, "  %s %d\n", d.Date.Format("2006-01-02"), d.Count)
	}
	recent := analytics.Recent(leads, 5)
	if len(recent) > 0 {
		fmt.Fprintln(w, "Recent leads:")
		for _, l := range recent {
			fmt.Fprintf(w, "  %-22s %-28s %s\n", truncate(orDash(l.Name), 22), truncate(orDash(l.Email), 28), statusCell(l.Status, 7))
		}
	}
}
