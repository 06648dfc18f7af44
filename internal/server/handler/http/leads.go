package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/middleware"
	"github.com/atinyakov/realtivo/internal/models"
)

// LeadService defines the lead, note and tag operations required by LeadHandler.
type LeadService interface {
	List(ctx context.Context, q models.LeadQuery) ([]models.Lead, error)
	Get(ctx context.Context, id string) (*models.Lead, error)
	Create(ctx context.Context, in models.LeadInput) (*models.Lead, error)
	Update(ctx context.Context, id string, in models.LeadInput) (*models.Lead, error)
	Delete(ctx context.Context, id string) error

	Notes(ctx context.Context, leadID string) ([]models.Note, error)
	AddNote(ctx context.Context, leadID, content string) (*models.Note, error)
	DeleteNote(ctx context.Context, leadID, noteID string) error

	AllTags(ctx context.Context) ([]models.Tag, error)
	Tags(ctx context.Context, leadID string) ([]models.Tag, error)
	AddTag(ctx context.Context, leadID, tagID, name string) (*models.Tag, error)
	RemoveTag(ctx context.Context, leadID, tagID string) error
}

// LeadHandler serves the /leads and /tags endpoints.
type LeadHandler struct {
	LeadService LeadService
	Log         *zap.Logger
}

func (h *LeadHandler) audit(r *http.Request, event, leadID string) {
	middleware.RecordLeadEvent(event)
	user := middleware.UserFromContext(r.Context())
	userID := ""
	if user != nil {
		userID = user.ID
	}
	h.Log.Info("lead "+event, zap.String("lead", leadID), zap.String("user", userID))
}

// statusAll as a status filter means no filter.
const statusAll = "all"

// parseListQuery reads status, search, page and limit. Without limit every
// match is returned and page is ignored.
func parseListQuery(r *http.Request) (models.LeadQuery, bool) {
	v := r.URL.Query()
	q := models.LeadQuery{Search: strings.TrimSpace(v.Get("search"))}
	if st := v.Get("status"); st != "" && !strings.EqualFold(st, statusAll) {
		q.Status = models.Status(st)
	}
	atoi := func(name string, def int) (int, bool) {
		raw := v.Get(name)
		if raw == "" {
			return def, true
		}
		n, err := strconv.Atoi(raw)
		return n, err == nil && n >= 0
	}
	limit, ok := atoi("limit", 0)
	if !ok {
		return q, false
	}
	page, ok := atoi("page", 1)
	if !ok {
		return q, false
	}
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		q.Limit = limit
		q.Offset = (page - 1) * limit
	}
	return q, true
}

// List handles GET /leads.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q, ok := parseListQuery(r)
	if !ok {
		http.Error(w, "invalid page or limit", http.StatusBadRequest)
		return
	}
	leads, err := h.LeadService.List(r.Context(), q)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

// Get handles GET /leads/{id}.
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.LeadService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Create handles POST /leads.
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.LeadInput
	if !decode(w, r, &in) {
		return
	}
	lead, err := h.LeadService.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.audit(r, "created", lead.ID)
	writeJSON(w, http.StatusCreated, lead)
}

// Update handles PUT /leads/{id}.
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.LeadInput
	if !decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	lead, err := h.LeadService.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.audit(r, "updated", id)
	writeJSON(w, http.StatusOK, lead)
}

// Delete handles DELETE /leads/{id}.
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.LeadService.Delete(r.Context(), id); err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.audit(r, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// Notes handles GET /leads/{id}/notes.
func (h *LeadHandler) Notes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.LeadService.Notes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// AddNote handles POST /leads/{id}/notes with body {content}.
func (h *LeadHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	note, err := h.LeadService.AddNote(r.Context(), id, req.Content)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.audit(r, "note_added", id)
	writeJSON(w, http.StatusCreated, note)
}

// DeleteNote handles DELETE /leads/{id}/notes/{noteId}.
func (h *LeadHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.LeadService.DeleteNote(r.Context(), id, chi.URLParam(r, "noteId")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.audit(r, "note_removed", id)
	w.WriteHeader(http.StatusNoContent)
}

// AllTags handles GET /tags.
func (h *LeadHandler) AllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.LeadService.AllTags(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// Tags handles GET /leads/{id}/tags.
func (h *LeadHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.LeadService.Tags(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// AddTag handles POST /leads/{id}/tags with body {tagId} or {name}.
func (h *LeadHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TagID string `json:"tagId"`
		Name  string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	tag, err := h.LeadService.AddTag(r.Context(), id, req.TagID, req.Name)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.audit(r, "tag_added", id)
	writeJSON(w, http.StatusCreated, tag)
}

// RemoveTag handles DELETE /leads/{id}/tags/{tagId}.
func (h *LeadHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.LeadService.RemoveTag(r.Context(), id, chi.URLParam(r, "tagId")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.audit(r, "tag_removed", id)
	w.WriteHeader(http.StatusNoContent)
}
