package leadlist

import (
	"time"

	"github.com/atinyakov/realtivo/internal/models"
)

// State owns the filter state of the lead table. Every filter change
// resets the page to 1; the page is never clamped to the new maximum.
type State struct {
	filter Filter
}

// NewState returns the unfiltered first page.
func NewState() *State {
	return &State{filter: Filter{Status: StatusAll, FollowUp: FollowUpAll, Page: 1}}
}

// Filter returns a copy of the current filter.
func (s *State) Filter() Filter { return s.filter }

// SetSearch replaces the search term.
func (s *State) SetSearch(term string) {
	s.filter.Search = term
	s.filter.Page = 1
}

// SetStatus replaces the status filter.
func (s *State) SetStatus(st models.Status) {
	s.filter.Status = st
	s.filter.Page = 1
}

// SetFollowUp replaces the follow-up filter.
func (s *State) SetFollowUp(f FollowUpFilter) {
	s.filter.FollowUp = f
	s.filter.Page = 1
}

// Reset clears every filter.
func (s *State) Reset() {
	*s = *NewState()
}

// SetPage jumps to page p; values below 1 become 1.
func (s *State) SetPage(p int) {
	if p < 1 {
		p = 1
	}
	s.filter.Page = p
}

// NextPage advances unless the current page is the last of totalPages.
func (s *State) NextPage(totalPages int) bool {
	if s.filter.Page >= totalPages {
		return false
	}
	s.filter.Page++
	return true
}

// PrevPage steps back unless already on the first page.
func (s *State) PrevPage() bool {
	if s.filter.Page <= 1 {
		return false
	}
	s.filter.Page--
	return true
}

// View computes the current page of leads.
func (s *State) View(leads []models.Lead, now time.Time) Result {
	return Compute(leads, s.filter, now)
}
