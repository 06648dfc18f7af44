package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/realtivo/internal/models"
	"github.com/atinyakov/realtivo/internal/validate"
)

type mockUserRepo struct {
	UserExistsFunc     func(ctx context.Context, email string) (bool, error)
	CreateUserFunc     func(ctx context.Context, u models.User) error
	GetUserByEmailFunc func(ctx context.Context, email string) (*models.User, error)
}

func (m *mockUserRepo) UserExists(ctx context.Context, email string) (bool, error) {
	return m.UserExistsFunc(ctx, email)
}
func (m *mockUserRepo) CreateUser(ctx context.Context, u models.User) error {
	return m.CreateUserFunc(ctx, u)
}
func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.GetUserByEmailFunc(ctx, email)
}

var fixedNow = time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)

func newAuth(repo UserRepository, admins ...string) *AuthService {
	svc := NewAuthService(repo, []byte("test-secret"), time.Hour, admins)
	svc.Cost = bcrypt.MinCost
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func TestSignup_AssignsRoles(t *testing.T) {
	cases := []struct {
		email string
		want  models.Role
	}{
		{"Boss@Example.com", models.RoleAdmin},
		{"agent@example.com", models.RoleAgent},
	}
	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			var stored models.User
			repo := &mockUserRepo{
				UserExistsFunc: func(context.Context, string) (bool, error) { return false, nil },
				CreateUserFunc: func(_ context.Context, u models.User) error {
					stored = u
					return nil
				},
			}
			svc := newAuth(repo, "boss@example.com")

			u, err := svc.Signup(context.Background(), " Ada ", tc.email, "secret1")
			if err != nil {
				t.Fatalf("Signup returned error: %v", err)
			}
			if u.Role != tc.want || stored.Role != tc.want {
				t.Errorf("role = %q (stored %q); want %q", u.Role, stored.Role, tc.want)
			}
			if u.Name != "Ada" || u.ID == "" || u.ID != stored.ID {
				t.Errorf("unexpected user %+v", u)
			}
			if u.PasswordHash != nil {
				t.Error("Signup must not return the password hash")
			}
			if err := bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("secret1")); err != nil {
				t.Errorf("stored hash does not match password: %v", err)
			}
		})
	}
}

func TestSignup_Errors(t *testing.T) {
	dbErr := errors.New("db down")
	cases := []struct {
		name     string
		email    string
		password string
		exists   bool
		existErr error
		check    func(error) bool
	}{
		{"validation", "bad", "123", false, nil, func(err error) bool {
			var v validate.Errors
			return errors.As(err, &v) && v["email"] != "" && v["password"] != ""
		}},
		{"taken", "ada@example.com", "secret1", true, nil, func(err error) bool { return errors.Is(err, ErrEmailTaken) }},
		{"repo failure", "ada@example.com", "secret1", false, dbErr, func(err error) bool { return errors.Is(err, dbErr) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockUserRepo{
				UserExistsFunc: func(context.Context, string) (bool, error) { return tc.exists, tc.existErr },
				CreateUserFunc: func(context.Context, models.User) error {
					t.Error("CreateUser must not be called")
					return nil
				},
			}
			_, err := newAuth(repo).Signup(context.Background(), "Ada", tc.email, tc.password)
			if !tc.check(err) {
				t.Errorf("Signup error = %v", err)
			}
		})
	}
}

func storedUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin, PasswordHash: hash}
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	repo := &mockUserRepo{
		GetUserByEmailFunc: func(_ context.Context, email string) (*models.User, error) {
			if email != "ada@example.com" {
				t.Errorf("lookup email = %q; want normalized", email)
			}
			return storedUser(t, "secret1"), nil
		},
	}
	svc := newAuth(repo)

	token, u, err := svc.Login(context.Background(), "ADA@example.com ", "secret1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if u.PasswordHash != nil {
		t.Error("Login must not return the password hash")
	}

	got, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got.ID != "u1" || got.Role != models.RoleAdmin || got.Email != "ada@example.com" {
		t.Errorf("ParseToken = %+v", got)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	cases := map[string]func(context.Context, string) (*models.User, error){
		"unknown email": func(context.Context, string) (*models.User, error) {
			return nil, fmt.Errorf("GetUserByEmail: %w", sql.ErrNoRows)
		},
		"wrong password": func(context.Context, string) (*models.User, error) {
			return storedUser(t, "other-password"), nil
		},
	}
	for name, get := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := newAuth(&mockUserRepo{GetUserByEmailFunc: get}).Login(context.Background(), "ada@example.com", "secret1")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login error = %v; want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestParseToken_Rejects(t *testing.T) {
	svc := newAuth(&mockUserRepo{})
	valid := models.Claims{
		UserID: "u1",
		Role:   models.RoleAgent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
		},
	}
	sign := func(c models.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(fixedNow.Add(-time.Minute))
	noExp := valid
	noExp.ExpiresAt = nil
	noID := valid
	noID.UserID = ""
	badRole := valid
	badRole.Role = "owner"

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign(valid, jwt.SigningMethodHS256, []byte("other")),
		"expired":      sign(expired, jwt.SigningMethodHS256, []byte("test-secret")),
		"no expiry":    sign(noExp, jwt.SigningMethodHS256, []byte("test-secret")),
		"no user id":   sign(noID, jwt.SigningMethodHS256, []byte("test-secret")),
		"unknown role": sign(badRole, jwt.SigningMethodHS256, []byte("test-secret")),
		"alg none":     sign(valid, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseToken error = %v; want ErrInvalidToken", err)
			}
		})
	}

	if _, err := svc.ParseToken(sign(valid, jwt.SigningMethodHS256, []byte("test-secret"))); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}
