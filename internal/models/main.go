// Package models defines the core data structures shared by the Realtivo
// client and server: users, leads, notes and tags.
package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the coarse permission group of a user.
type Role string

const (
	// RoleAdmin may create, edit and delete leads.
	RoleAdmin Role = "admin"
	// RoleAgent works leads read-only but may annotate them.
	RoleAgent Role = "agent"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAgent
}

// User represents an application user.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Name is the display name given at signup.
	Name string `json:"name,omitempty"`
	// Email is the login identifier.
	Email string `json:"email"`
	// Role selects what the user is allowed to do.
	Role Role `json:"role"`
	// PasswordHash is the bcrypt hash of the password. Server side only.
	PasswordHash []byte `json:"-"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Claims is the JWT payload exchanged between server and client.
type Claims struct {
	UserID string `json:"id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// User converts the claims into the identity they describe.
func (c *Claims) User() *User {
	return &User{
		ID:    c.UserID,
		Name:  c.Name,
		Email: c.Email,
		Role:  c.Role,
	}
}
