package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the lead temperature classification.
type Status string

const (
	StatusHot    Status = "Hot"
	StatusWarm   Status = "Warm"
	StatusCold   Status = "Cold"
	StatusClosed Status = "Closed"
)

// DefaultStatus is assigned to leads created without a status.
const DefaultStatus = StatusCold

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusHot, StatusWarm, StatusCold, StatusClosed}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus matches s against the known statuses ignoring case.
func ParseStatus(s string) (Status, bool) {
	for _, v := range Statuses {
		if strings.EqualFold(s, string(v)) {
			return v, true
		}
	}
	return "", false
}

// dateOnly is the layout produced by HTML date inputs.
const dateOnly = "2006-01-02"

// ParseFollowUp parses a follow-up date in RFC 3339 or YYYY-MM-DD form.
func ParseFollowUp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Lead is a sales prospect as returned by the backend.
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Content string `json:"content"`
	Status  Status `json:"status,omitempty"`
	// FollowUpDate keeps the raw wire value; use FollowUp to read it.
	FollowUpDate string    `json:"followUpDate,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// parseStamp reads a wire timestamp. Null, empty and malformed values
// become the zero time.
func parseStamp(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

// UnmarshalJSON decodes a lead, tolerating bad createdAt and updatedAt
// values so one malformed record does not fail a whole listing.
func (l *Lead) UnmarshalJSON(b []byte) error {
	type plain Lead
	aux := struct {
		*plain
		CreatedAt json.RawMessage `json:"createdAt"`
		UpdatedAt json.RawMessage `json:"updatedAt"`
	}{plain: (*plain)(l)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	l.CreatedAt = parseStamp(aux.CreatedAt)
	l.UpdatedAt = parseStamp(aux.UpdatedAt)
	return nil
}

// FollowUp returns the parsed follow-up date. Missing and malformed
// values both report ok == false.
func (l Lead) FollowUp() (time.Time, bool) {
	return ParseFollowUp(l.FollowUpDate)
}

// LeadInput is the payload for creating or updating a lead.
type LeadInput struct {
	Name         string `json:"name" validate:"required,min=2"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	Content      string `json:"content"`
	Status       Status `json:"status,omitempty" validate:"omitempty,oneof=Hot Warm Cold Closed"`
	FollowUpDate string `json:"followUpDate,omitempty" validate:"omitempty,followup"`
}

// Input extracts the editable fields of l.
func (l Lead) Input() LeadInput {
	return LeadInput{
		Name:         l.Name,
		Email:        l.Email,
		Phone:        l.Phone,
		Content:      l.Content,
		Status:       l.Status,
		FollowUpDate: l.FollowUpDate,
	}
}

// Note is a free-text annotation attached to a lead.
type Note struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"leadId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON decodes a note, tolerating a bad createdAt value.
func (n *Note) UnmarshalJSON(b []byte) error {
	type plain Note
	aux := struct {
		*plain
		CreatedAt json.RawMessage `json:"createdAt"`
	}{plain: (*plain)(n)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	n.CreatedAt = parseStamp(aux.CreatedAt)
	return nil
}

// Tag is a coloured label that can be attached to many leads.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// LeadQuery narrows a server-side lead listing. Zero values mean no
// constraint; Limit 0 returns every match.
type LeadQuery struct {
	Status Status
	Search string
	Limit  int
	Offset int
}
