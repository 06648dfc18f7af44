// Package analytics computes the dashboard figures from a lead list.
package analytics

import (
	"sort"
	"time"

	"github.com/atinyakov/realtivo/internal/models"
)

// StatusCount is one slice of the status breakdown.
type StatusCount struct {
	Status models.Status
	Count  int
}

// DateCount is the number of leads created on one calendar day.
type DateCount struct {
	Date  time.Time
	Count int
}

// Summary is the dashboard header.
type Summary struct {
	Total    int
	ByStatus []StatusCount
	Overdue  int
	Undated  int
}

// ByStatus counts leads per status. Known statuses come first in their
// display order, followed by any unknown values sorted by name. Statuses
// with no leads are omitted.
func ByStatus(leads []models.Lead) []StatusCount {
	counts := map[models.Status]int{}
	for _, l := range leads {
		counts[l.Status]++
	}
	out := make([]StatusCount, 0, len(counts))
	for _, s := range models.Statuses {
		if n := counts[s]; n > 0 {
			out = append(out, StatusCount{Status: s, Count: n})
			delete(counts, s)
		}
	}
	var rest []models.Status
	for s := range counts {
		rest = append(rest, s)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, s := range rest {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

// ByCreatedDate counts leads per creation day in loc, oldest first. Leads
// with a zero creation time are skipped.
func ByCreatedDate(leads []models.Lead, loc *time.Location) []DateCount {
	if loc == nil {
		loc = time.Local
	}
	counts := map[time.Time]int{}
	for _, l := range leads {
		if l.CreatedAt.IsZero() {
			continue
		}
		y, m, d := l.CreatedAt.In(loc).Date()
		counts[time.Date(y, m, d, 0, 0, 0, 0, loc)]++
	}
	out := make([]DateCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, DateCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Recent returns the last n leads of the list, newest first.
func Recent(leads []models.Lead, n int) []models.Lead {
	if n <= 0 {
		return nil
	}
	start := max(len(leads)-n, 0)
	out := make([]models.Lead, 0, len(leads)-start)
	for i := len(leads) - 1; i >= start; i-- {
		out = append(out, leads[i])
	}
	return out
}

// Summarize computes the dashboard header at now.
func Summarize(leads []models.Lead, now time.Time) Summary {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	s := Summary{Total: len(leads), ByStatus: ByStatus(leads)}
	for _, l := range leads {
		date, ok := l.FollowUp()
		switch {
		case !ok:
			s.Undated++
		case date.Before(today):
			s.Overdue++
		}
	}
	return s
}
