// Package api is the thin HTTP client for the Realtivo backend. Each
// method issues exactly one request and returns the decoded body; retries
// and caching are left to callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/realtivo/internal/models"
)

// TokenSource supplies the current bearer token; "" means anonymous.
type TokenSource interface {
	Token() string
}

// Client talks to one backend.
type Client struct {
	// BaseURL is the scheme and host, e.g. "http://localhost:8080".
	BaseURL string
	// PathPrefix is prepended to every route, e.g. "/api".
	PathPrefix string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Tokens may be nil for anonymous use.
	Tokens TokenSource
}

// New returns a Client for baseURL and prefix.
func New(baseURL, prefix string, hc *http.Client, tokens TokenSource) *Client {
	return &Client{BaseURL: baseURL, PathPrefix: prefix, HTTPClient: hc, Tokens: tokens}
}

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := strings.TrimRight(c.BaseURL, "/") + c.PathPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		if tok := c.Tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s %s: invalid response: %w", method, path, err)
	}
	return nil
}

// ListQuery holds the optional server-side filters for ListLeads.
type ListQuery struct {
	Status models.Status
	Search string
	Page   int
	Limit  int
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ListLeads fetches leads. A zero query fetches all of them.
func (c *Client) ListLeads(ctx context.Context, q ListQuery) ([]models.Lead, error) {
	var leads []models.Lead
	if err := c.do(ctx, http.MethodGet, "/leads", q.values(), nil, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// FetchLeads fetches every lead; it satisfies leadlist.LeadFetcher.
func (c *Client) FetchLeads(ctx context.Context) ([]models.Lead, error) {
	return c.ListLeads(ctx, ListQuery{})
}

func leadPath(id string, rest ...string) string {
	p := "/leads/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// GetLead fetches a single lead.
func (c *Client) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	if err := c.do(ctx, http.MethodGet, leadPath(id), nil, nil, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// CreateLead creates a lead and returns the stored record.
func (c *Client) CreateLead(ctx context.Context, in models.LeadInput) (*models.Lead, error) {
	var lead models.Lead
	if err := c.do(ctx, http.MethodPost, "/leads", nil, in, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// UpdateLead replaces the editable fields of lead id.
func (c *Client) UpdateLead(ctx context.Context, id string, in models.LeadInput) (*models.Lead, error) {
	var lead models.Lead
	if err := c.do(ctx, http.MethodPut, leadPath(id), nil, in, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// DeleteLead removes lead id.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, leadPath(id), nil, nil, nil)
}

// ListNotes fetches the notes of a lead.
func (c *Client) ListNotes(ctx context.Context, leadID string) ([]models.Note, error) {
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, leadPath(leadID, "notes"), nil, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// AddNote attaches a note to a lead.
func (c *Client) AddNote(ctx context.Context, leadID, content string) (*models.Note, error) {
	var note models.Note
	in := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, leadPath(leadID, "notes"), nil, in, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote removes a note from a lead.
func (c *Client) DeleteNote(ctx context.Context, leadID, noteID string) error {
	return c.do(ctx, http.MethodDelete, leadPath(leadID, "notes", noteID), nil, nil, nil)
}

// ListTags fetches the tags attached to a lead.
func (c *Client) ListTags(ctx context.Context, leadID string) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.do(ctx, http.MethodGet, leadPath(leadID, "tags"), nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// ListAllTags fetches the tag catalog.
func (c *Client) ListAllTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.do(ctx, http.MethodGet, "/tags", nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// TagRef identifies a tag to attach: an existing tag by ID, or a tag by
// Name that the backend creates when missing.
type TagRef struct {
	ID   string `json:"tagId,omitempty"`
	Name string `json:"name,omitempty"`
}

// AddTag attaches a tag to a lead.
func (c *Client) AddTag(ctx context.Context, leadID string, ref TagRef) (*models.Tag, error) {
	var tag models.Tag
	if err := c.do(ctx, http.MethodPost, leadPath(leadID, "tags"), nil, ref, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// RemoveTag detaches a tag from a lead.
func (c *Client) RemoveTag(ctx context.Context, leadID, tagID string) error {
	return c.do(ctx, http.MethodDelete, leadPath(leadID, "tags", tagID), nil, nil, nil)
}

// LoginResult is the normalised login response.
type LoginResult struct {
	Token string
	// User is only set by backends that return it alongside the token.
	User *models.User
}

// ErrNoToken is returned when a successful login response has no token.
var ErrNoToken = errors.New("login response carried no token")

// Login exchanges credentials for a token. Both {token} and
// {access_token, user} response shapes are accepted.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp struct {
		Token       string       `json:"token"`
		AccessToken string       `json:"access_token"`
		User        *models.User `json:"user"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &resp); err != nil {
		return nil, err
	}
	tok := resp.Token
	if tok == "" {
		tok = resp.AccessToken
	}
	if tok == "" {
		return nil, ErrNoToken
	}
	return &LoginResult{Token: tok, User: resp.User}, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, name, email, password string) error {
	in := map[string]string{"name": name, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/signup", nil, in, nil)
}
