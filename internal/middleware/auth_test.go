package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/access"
	"github.com/atinyakov/realtivo/internal/models"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type verifierFunc func(string) (*models.User, error)

func (f verifierFunc) ParseToken(token string) (*models.User, error) { return f(token) }

var okVerifier = verifierFunc(func(token string) (*models.User, error) {
	if token != "good" {
		return nil, errors.New("bad signature")
	}
	return &models.User{ID: "u1", Email: "ada@example.com", Role: models.RoleAgent}, nil
})

func TestBearerAuth(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := BearerAuth(okVerifier, zap.NewNop())(dummy)
			req := httptest.NewRequest(http.MethodGet, "/leads", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d; want %d", rec.Code, tc.want)
			}
			if dummy.called != (tc.want == http.StatusOK) {
				t.Errorf("next called = %v", dummy.called)
			}
			if tc.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			if dummy.called {
				if u := UserFromContext(dummy.ctx); u == nil || u.ID != "u1" {
					t.Errorf("UserFromContext = %+v; want u1", u)
				}
			}
		})
	}
}

func TestRequireCapability(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"agent", &models.User{ID: "u2", Role: models.RoleAgent}, http.StatusForbidden},
		{"admin", &models.User{ID: "u1", Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := RequireCapability(access.ManageLeads)(dummy)
			req := httptest.NewRequest(http.MethodPost, "/leads", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), tc.user))
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("status = %d; want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	if u := UserFromContext(context.Background()); u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
}
