// Package service provides the business logic behind the Realtivo API:
// authentication and lead management. Persistence is delegated to
// repository interfaces.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/realtivo/internal/models"
	"github.com/atinyakov/realtivo/internal/validate"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned by Signup for an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned by ParseToken.
	ErrInvalidToken = errors.New("invalid token")
)

// notFound maps a missing row to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// UserRepository defines the persistence operations
// required by the authentication service.
type UserRepository interface {
	// UserExists returns true if a user with the given email exists.
	UserExists(ctx context.Context, email string) (bool, error)
	// CreateUser stores a new user.
	CreateUser(ctx context.Context, u models.User) error
	// GetUserByEmail returns the user with its password hash.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthService registers users and issues and verifies their access tokens.
type AuthService struct {
	repo   UserRepository
	secret []byte
	ttl    time.Duration
	admins map[string]bool

	// Cost is the bcrypt work factor for new password hashes.
	Cost int
	// Now is the clock used for token timestamps.
	Now func() time.Time
}

// NewAuthService constructs an AuthService signing HS256 tokens with secret.
// Users signing up with one of adminEmails get the admin role; everyone
// else is an agent.
func NewAuthService(repo UserRepository, secret []byte, ttl time.Duration, adminEmails []string) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[normalizeEmail(e)] = true
	}
	return &AuthService{
		repo:   repo,
		secret: secret,
		ttl:    ttl,
		admins: admins,
		Cost:   bcrypt.DefaultCost,
		Now:    time.Now,
	}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Signup validates the form, hashes the password and stores the user.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if err := validate.Signup(name, email, password); err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := models.RoleAgent
	if s.admins[email] {
		role = models.RoleAdmin
	}
	now := s.Now().UTC()
	u := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	u.PasswordHash = nil
	return &u, nil
}

// Login checks the credentials and returns a signed token for the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	u.PasswordHash = nil

	token, err := s.IssueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// IssueToken signs an access token describing u.
func (s *AuthService) IssueToken(u *models.User) (string, error) {
	now := s.Now()
	claims := models.Claims{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies an access token and returns the user it names.
func (s *AuthService) ParseToken(token string) (*models.User, error) {
	claims := &models.Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidToken)
	}
	return claims.User(), nil
}
