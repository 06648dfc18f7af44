package http_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/client/api"
	"github.com/atinyakov/realtivo/internal/models"
	handler "github.com/atinyakov/realtivo/internal/server/handler/http"
	"github.com/atinyakov/realtivo/internal/service"
)

// memLeadService is an in-memory LeadService.
type memLeadService struct {
	mu     sync.Mutex
	seq    int
	leads  map[string]models.Lead
	notes  map[string][]models.Note
	tags   map[string]models.Tag
	links  map[string]map[string]bool
	lastQ  models.LeadQuery
	failOn string
}

func newMemLeadService() *memLeadService {
	return &memLeadService{
		leads: map[string]models.Lead{},
		notes: map[string][]models.Note{},
		tags:  map[string]models.Tag{},
		links: map[string]map[string]bool{},
	}
}

func (m *memLeadService) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memLeadService) List(_ context.Context, q models.LeadQuery) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "list" {
		return nil, errors.New("db down")
	}
	m.lastQ = q
	out := []models.Lead{}
	for _, l := range m.leads {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memLeadService) Get(_ context.Context, id string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &l, nil
}

func (m *memLeadService) Create(_ context.Context, in models.LeadInput) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := models.Lead{ID: m.id("l"), Name: in.Name, Email: in.Email, Status: in.Status}
	if l.Status == "" {
		l.Status = models.DefaultStatus
	}
	m.leads[l.ID] = l
	return &l, nil
}

func (m *memLeadService) Update(_ context.Context, id string, in models.LeadInput) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	l.Name, l.Email = in.Name, in.Email
	if in.Status != "" {
		l.Status = in.Status
	}
	m.leads[id] = l
	return &l, nil
}

func (m *memLeadService) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[id]; !ok {
		return service.ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

func (m *memLeadService) Notes(_ context.Context, leadID string) ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Note{}, m.notes[leadID]...), nil
}

func (m *memLeadService) AddNote(_ context.Context, leadID, content string) (*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := models.Note{ID: m.id("n"), LeadID: leadID, Content: content}
	m.notes[leadID] = append(m.notes[leadID], n)
	return &n, nil
}

func (m *memLeadService) DeleteNote(_ context.Context, leadID, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := m.notes[leadID]
	for i, n := range notes {
		if n.ID == noteID {
			m.notes[leadID] = append(notes[:i], notes[i+1:]...)
			return nil
		}
	}
	return service.ErrNotFound
}

func (m *memLeadService) AllTags(context.Context) ([]models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Tag{}
	for _, t := range m.tags {
		out = append(out, t)
	}
	return out, nil
}

func (m *memLeadService) Tags(_ context.Context, leadID string) ([]models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Tag{}
	for id := range m.links[leadID] {
		out = append(out, m.tags[id])
	}
	return out, nil
}

func (m *memLeadService) AddTag(_ context.Context, leadID, tagID, name string) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tag, ok := m.tags[tagID]
	if !ok {
		if name == "" {
			return nil, service.ErrNotFound
		}
		tag = models.Tag{ID: m.id("t"), Name: name}
		m.tags[tag.ID] = tag
	}
	if m.links[leadID] == nil {
		m.links[leadID] = map[string]bool{}
	}
	m.links[leadID][tag.ID] = true
	return &tag, nil
}

func (m *memLeadService) RemoveTag(_ context.Context, leadID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.links[leadID][tagID] {
		return service.ErrNotFound
	}
	delete(m.links[leadID], tagID)
	return nil
}

type tokenTable map[string]*models.User

func (t tokenTable) ParseToken(token string) (*models.User, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, service.ErrInvalidToken
}

var tokens = tokenTable{
	"admin-token": {ID: "u1", Email: "boss@example.com", Role: models.RoleAdmin},
	"agent-token": {ID: "u2", Email: "agent@example.com", Role: models.RoleAgent},
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestServer(t *testing.T, leads *memLeadService) *httptest.Server {
	t.Helper()
	router := handler.NewRouter(handler.RouterConfig{
		Auth:           &handler.AuthHandler{AuthService: &fakeAuthService{token: "admin-token"}, Log: zap.NewNop()},
		Leads:          &handler.LeadHandler{LeadService: leads, Log: zap.NewNop()},
		Verifier:       tokens,
		Logger:         zap.NewNop(),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_ClientContract(t *testing.T) {
	for _, prefix := range []string{"/api", ""} {
		t.Run("prefix "+prefix, func(t *testing.T) {
			srv := newTestServer(t, newMemLeadService())
			ctx := context.Background()

			anon := api.New(srv.URL, prefix, srv.Client(), nil)
			login, err := anon.Login(ctx, "boss@example.com", "secret1")
			if err != nil {
				t.Fatalf("Login: %v", err)
			}

			c := api.New(srv.URL, prefix, srv.Client(), staticToken(login.Token))
			lead, err := c.CreateLead(ctx, models.LeadInput{Name: "Acme", Email: "a@acme.com"})
			if err != nil {
				t.Fatalf("CreateLead: %v", err)
			}
			if lead.Status != models.StatusCold {
				t.Errorf("Status = %q; want Cold", lead.Status)
			}
			if _, err := c.UpdateLead(ctx, lead.ID, models.LeadInput{Name: "Acme Corp", Email: "a@acme.com", Status: models.StatusHot}); err != nil {
				t.Fatalf("UpdateLead: %v", err)
			}
			got, err := c.GetLead(ctx, lead.ID)
			if err != nil || got.Status != models.StatusHot {
				t.Fatalf("GetLead = %+v, %v", got, err)
			}

			note, err := c.AddNote(ctx, lead.ID, "called")
			if err != nil {
				t.Fatalf("AddNote: %v", err)
			}
			tag, err := c.AddTag(ctx, lead.ID, api.TagRef{Name: "vip"})
			if err != nil {
				t.Fatalf("AddTag: %v", err)
			}
			if tags, err := c.ListTags(ctx, lead.ID); err != nil || len(tags) != 1 {
				t.Fatalf("ListTags = %v, %v", tags, err)
			}
			if all, err := c.ListAllTags(ctx); err != nil || len(all) != 1 {
				t.Fatalf("ListAllTags = %v, %v", all, err)
			}
			if err := c.RemoveTag(ctx, lead.ID, tag.ID); err != nil {
				t.Fatalf("RemoveTag: %v", err)
			}
			if err := c.DeleteNote(ctx, lead.ID, note.ID); err != nil {
				t.Fatalf("DeleteNote: %v", err)
			}
			if notes, err := c.ListNotes(ctx, lead.ID); err != nil || len(notes) != 0 {
				t.Fatalf("ListNotes = %v, %v", notes, err)
			}

			leads, err := c.FetchLeads(ctx)
			if err != nil || len(leads) != 1 {
				t.Fatalf("FetchLeads = %v, %v", leads, err)
			}
			if err := c.DeleteLead(ctx, lead.ID); err != nil {
				t.Fatalf("DeleteLead: %v", err)
			}
			if _, err := c.GetLead(ctx, lead.ID); !api.IsNotFound(err) {
				t.Errorf("GetLead after delete = %v; want 404", err)
			}
		})
	}
}

func TestRouter_Authorization(t *testing.T) {
	leads := newMemLeadService()
	leads.leads["l1"] = models.Lead{ID: "l1", Name: "Acme"}
	srv := newTestServer(t, leads)
	ctx := context.Background()

	anon := api.New(srv.URL, "/api", srv.Client(), nil)
	if _, err := anon.FetchLeads(ctx); !api.IsUnauthorized(err) {
		t.Errorf("anonymous FetchLeads = %v; want 401", err)
	}
	bogus := api.New(srv.URL, "/api", srv.Client(), staticToken("forged"))
	if _, err := bogus.FetchLeads(ctx); !api.IsUnauthorized(err) {
		t.Errorf("forged token FetchLeads = %v; want 401", err)
	}

	agent := api.New(srv.URL, "/api", srv.Client(), staticToken("agent-token"))
	if _, err := agent.FetchLeads(ctx); err != nil {
		t.Errorf("agent FetchLeads: %v", err)
	}
	if _, err := agent.AddNote(ctx, "l1", "left voicemail"); err != nil {
		t.Errorf("agent AddNote: %v", err)
	}
	for name, call := range map[string]func() error{
		"create": func() error { _, err := agent.CreateLead(ctx, models.LeadInput{Name: "X"}); return err },
		"update": func() error { _, err := agent.UpdateLead(ctx, "l1", models.LeadInput{Name: "X"}); return err },
		"delete": func() error { return agent.DeleteLead(ctx, "l1") },
	} {
		if err := call(); api.StatusCode(err) != http.StatusForbidden {
			t.Errorf("agent %s = %v; want 403", name, err)
		}
	}
}

func TestRouter_ListQuery(t *testing.T) {
	leads := newMemLeadService()
	srv := newTestServer(t, leads)
	c := api.New(srv.URL, "/api", srv.Client(), staticToken("agent-token"))
	ctx := context.Background()

	if _, err := c.ListLeads(ctx, api.ListQuery{Status: models.StatusWarm, Search: "acme", Page: 3, Limit: 10}); err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	want := models.LeadQuery{Status: models.StatusWarm, Search: "acme", Limit: 10, Offset: 20}
	if leads.lastQ != want {
		t.Errorf("query = %+v; want %+v", leads.lastQ, want)
	}

	if _, err := c.ListLeads(ctx, api.ListQuery{Status: "all", Page: 2}); err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if leads.lastQ != (models.LeadQuery{}) {
		t.Errorf("query = %+v; want no constraints without limit", leads.lastQ)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/leads?limit=-1", nil)
	req.Header.Set("Authorization", "Bearer agent-token")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative limit status = %d; want 400", resp.StatusCode)
	}

	leads.failOn = "list"
	if _, err := c.FetchLeads(ctx); api.StatusCode(err) != http.StatusInternalServerError {
		t.Errorf("failing List = %v; want 500", err)
	}
}

func TestRouter_HealthMetricsAndCORS(t *testing.T) {
	srv := newTestServer(t, newMemLeadService())

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d; want 200", path, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/leads", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/api/auth/login", strings.NewReader("email=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("form post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("form post status = %d; want 415", resp.StatusCode)
	}
}
