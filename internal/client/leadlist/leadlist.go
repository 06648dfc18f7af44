// Package leadlist derives the rows of the lead table from the cached
// leads and the user's filter state.
package leadlist

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atinyakov/realtivo/internal/models"
)

// PerPage is the fixed page size of the lead table.
const PerPage = 10

// StatusAll disables the status filter.
const StatusAll models.Status = "all"

// FollowUpFilter selects leads by their follow-up date.
type FollowUpFilter string

const (
	FollowUpAll      FollowUpFilter = "all"
	FollowUpOverdue  FollowUpFilter = "overdue"
	FollowUpToday    FollowUpFilter = "today"
	FollowUpThisWeek FollowUpFilter = "thisWeek"
	FollowUpNone     FollowUpFilter = "none"
)

var followUpFilters = []FollowUpFilter{FollowUpAll, FollowUpOverdue, FollowUpToday, FollowUpThisWeek, FollowUpNone}

// ParseFollowUpFilter matches s against the known filters ignoring case.
func ParseFollowUpFilter(s string) (FollowUpFilter, error) {
	for _, f := range followUpFilters {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown follow-up filter %q (want all, overdue, today, thisWeek or none)", s)
}

// ParseStatusFilter accepts "all" or one of the lead statuses.
func ParseStatusFilter(s string) (models.Status, error) {
	if strings.EqualFold(s, string(StatusAll)) {
		return StatusAll, nil
	}
	if st, ok := models.ParseStatus(s); ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q (want all, Hot, Warm, Cold or Closed)", s)
}

// Filter is the complete input of Compute besides the leads.
type Filter struct {
	Search   string
	Status   models.Status
	FollowUp FollowUpFilter
	Page     int
}

// Result is one rendered page.
type Result struct {
	Leads      []models.Lead
	Page       int
	TotalPages int
	// TotalCount is the number of leads left after filtering.
	TotalCount int
}

// Compute filters, sorts and paginates leads. It never mutates its input
// and returns the same result for the same arguments.
func Compute(leads []models.Lead, f Filter, now time.Time) Result {
	today := startOfDay(now)
	nextWeek := today.AddDate(0, 0, 7)
	term := strings.ToLower(f.Search)

	filtered := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if !matchStatus(l, f.Status) || !matchText(l, term) || !matchFollowUp(l, f.FollowUp, today, nextWeek) {
			continue
		}
		filtered = append(filtered, l)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return dateBefore(filtered[i], filtered[j])
	})

	page := f.Page
	if page < 1 {
		page = 1
	}
	res := Result{
		Page:       page,
		TotalPages: totalPages(len(filtered)),
		TotalCount: len(filtered),
	}
	start := (page - 1) * PerPage
	if start >= len(filtered) {
		res.Leads = []models.Lead{}
		return res
	}
	end := min(start+PerPage, len(filtered))
	res.Leads = filtered[start:end]
	return res
}

func totalPages(n int) int {
	if n == 0 {
		return 1
	}
	return (n + PerPage - 1) / PerPage
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func matchStatus(l models.Lead, s models.Status) bool {
	return s == "" || s == StatusAll || l.Status == s
}

func matchText(l models.Lead, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Name), term) ||
		strings.Contains(strings.ToLower(l.Email), term) ||
		strings.Contains(strings.ToLower(l.Phone), term)
}

func matchFollowUp(l models.Lead, f FollowUpFilter, today, nextWeek time.Time) bool {
	if f == "" || f == FollowUpAll {
		return true
	}
	date, ok := l.FollowUp()
	if f == FollowUpNone {
		return !ok
	}
	if !ok {
		return false
	}
	switch f {
	case FollowUpOverdue:
		return date.Before(today)
	case FollowUpToday:
		return startOfDay(date.In(today.Location())).Equal(today)
	case FollowUpThisWeek:
		return !date.Before(today) && !date.After(nextWeek)
	}
	return false
}

// dateBefore orders by follow-up date with undated leads last.
func dateBefore(a, b models.Lead) bool {
	da, okA := a.FollowUp()
	db, okB := b.FollowUp()
	switch {
	case !okA:
		return false
	case !okB:
		return true
	default:
		return da.Before(db)
	}
}
