package service

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/realtivo/internal/models"
	"github.com/atinyakov/realtivo/internal/validate"
)

// LeadRepository defines the lead persistence operations needed by LeadService.
type LeadRepository interface {
	List(ctx context.Context, q models.LeadQuery) ([]models.Lead, error)
	Get(ctx context.Context, id string) (*models.Lead, error)
	Create(ctx context.Context, l models.Lead) error
	Update(ctx context.Context, l models.Lead) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// NoteRepository stores lead notes.
type NoteRepository interface {
	List(ctx context.Context, leadID string) ([]models.Note, error)
	Add(ctx context.Context, n models.Note) error
	Delete(ctx context.Context, leadID, noteID string) error
}

// TagRepository stores the tag catalog and lead/tag links.
type TagRepository interface {
	ListAll(ctx context.Context) ([]models.Tag, error)
	ListForLead(ctx context.Context, leadID string) ([]models.Tag, error)
	Get(ctx context.Context, id string) (*models.Tag, error)
	Ensure(ctx context.Context, t models.Tag) (*models.Tag, error)
	Attach(ctx context.Context, leadID string, tagIDs ...string) error
	Detach(ctx context.Context, leadID, tagID string) error
}

// LeadService implements lead, note and tag management.
type LeadService struct {
	leads LeadRepository
	notes NoteRepository
	tags  TagRepository

	// Now is the clock used for timestamps.
	Now func() time.Time
	// NewID generates record identifiers.
	NewID func() string
}

// NewLeadService constructs a LeadService over the given repositories.
func NewLeadService(leads LeadRepository, notes NoteRepository, tags TagRepository) *LeadService {
	return &LeadService{
		leads: leads,
		notes: notes,
		tags:  tags,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// tagPalette colours new tags; the lead status colours come first.
var tagPalette = []string{"#ef4444", "#f59e0b", "#3b82f6", "#10b981", "#8b5cf6", "#ec4899", "#14b8a6", "#64748b"}

func tagColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(name)))
	return tagPalette[h.Sum32()%uint32(len(tagPalette))]
}

// normalize trims the form and stores a follow-up date in RFC 3339.
func normalize(in models.LeadInput) models.LeadInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Content = strings.TrimSpace(in.Content)
	in.FollowUpDate = strings.TrimSpace(in.FollowUpDate)
	if st, ok := models.ParseStatus(string(in.Status)); ok {
		in.Status = st
	}
	if t, ok := models.ParseFollowUp(in.FollowUpDate); ok {
		in.FollowUpDate = t.UTC().Format(time.RFC3339)
	}
	return in
}

// List returns the leads matching q. An unknown status is a validation error.
func (s *LeadService) List(ctx context.Context, q models.LeadQuery) ([]models.Lead, error) {
	if q.Status != "" {
		st, ok := models.ParseStatus(string(q.Status))
		if !ok {
			return nil, validate.Errors{"status": "Status must be one of Hot, Warm, Cold, Closed"}
		}
		q.Status = st
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, validate.Errors{"page": "Page and limit must be positive"}
	}
	return s.leads.List(ctx, q)
}

// Get returns one lead.
func (s *LeadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	l, err := s.leads.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

// Create validates in and stores it as a new lead. A missing status
// becomes models.DefaultStatus.
func (s *LeadService) Create(ctx context.Context, in models.LeadInput) (*models.Lead, error) {
	in = normalize(in)
	if in.Status == "" {
		in.Status = models.DefaultStatus
	}
	if err := validate.Lead(in); err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	l := models.Lead{
		ID:           s.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Content:      in.Content,
		Status:       in.Status,
		FollowUpDate: in.FollowUpDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.leads.Create(ctx, l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Update replaces the editable fields of lead id. A missing status keeps
// the current one.
func (s *LeadService) Update(ctx context.Context, id string, in models.LeadInput) (*models.Lead, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in = normalize(in)
	if in.Status == "" {
		in.Status = l.Status
	}
	if err := validate.Lead(in); err != nil {
		return nil, err
	}
	l.Name, l.Email, l.Phone, l.Content = in.Name, in.Email, in.Phone, in.Content
	l.Status, l.FollowUpDate = in.Status, in.FollowUpDate
	l.UpdatedAt = s.Now().UTC()
	if err := s.leads.Update(ctx, *l); err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

// Delete soft-deletes lead id.
func (s *LeadService) Delete(ctx context.Context, id string) error {
	return notFound(s.leads.SoftDelete(ctx, id, s.Now().UTC()))
}

// Notes lists the notes of lead id.
func (s *LeadService) Notes(ctx context.Context, leadID string) ([]models.Note, error) {
	if _, err := s.Get(ctx, leadID); err != nil {
		return nil, err
	}
	return s.notes.List(ctx, leadID)
}

// AddNote attaches a note to lead id.
func (s *LeadService) AddNote(ctx context.Context, leadID, content string) (*models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validate.Errors{"content": "Note content is required"}
	}
	if _, err := s.Get(ctx, leadID); err != nil {
		return nil, err
	}
	n := models.Note{ID: s.NewID(), LeadID: leadID, Content: content, CreatedAt: s.Now().UTC()}
	if err := s.notes.Add(ctx, n); err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote removes one note of a lead.
func (s *LeadService) DeleteNote(ctx context.Context, leadID, noteID string) error {
	return notFound(s.notes.Delete(ctx, leadID, noteID))
}

// AllTags returns the tag catalog.
func (s *LeadService) AllTags(ctx context.Context) ([]models.Tag, error) {
	return s.tags.ListAll(ctx)
}

// Tags lists the tags on lead id.
func (s *LeadService) Tags(ctx context.Context, leadID string) ([]models.Tag, error) {
	if _, err := s.Get(ctx, leadID); err != nil {
		return nil, err
	}
	return s.tags.ListForLead(ctx, leadID)
}

// AddTag attaches an existing tag by id, or a tag by name which is created
// when missing. tagID wins when both are given.
func (s *LeadService) AddTag(ctx context.Context, leadID, tagID, name string) (*models.Tag, error) {
	tagID, name = strings.TrimSpace(tagID), strings.TrimSpace(name)
	if tagID == "" && name == "" {
		return nil, validate.Errors{"tag": "Tag id or name is required"}
	}
	if _, err := s.Get(ctx, leadID); err != nil {
		return nil, err
	}

	var (
		tag *models.Tag
		err error
	)
	if tagID != "" {
		tag, err = s.tags.Get(ctx, tagID)
	} else {
		tag, err = s.tags.Ensure(ctx, models.Tag{ID: s.NewID(), Name: name, Color: tagColor(name)})
	}
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.tags.Attach(ctx, leadID, tag.ID); err != nil {
		return nil, err
	}
	return tag, nil
}

// RemoveTag detaches a tag from a lead.
func (s *LeadService) RemoveTag(ctx context.Context, leadID, tagID string) error {
	return notFound(s.tags.Detach(ctx, leadID, tagID))
}
