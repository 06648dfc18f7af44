// Package validate checks signup and lead form input before it is sent to,
// or accepted by, the backend.
package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/atinyakov/realtivo/internal/models"
)

// Errors maps a field name to the first problem found with it.
type Errors map[string]string

// Error joins the field messages in a stable order.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// SignupForm is the registration payload.
type SignupForm struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

// LoginForm is the login payload.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// followup accepts RFC 3339 or YYYY-MM-DD.
	if err := val.RegisterValidation("followup", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseFollowUp(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}
	return val
}

// messages holds the user-facing text per field; rule-specific entries
// use "field.tag" keys and win over the field default.
type messages map[string]string

func (m messages) lookup(field, tag string) string {
	if msg, ok := m[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := m[field]; ok {
		return msg
	}
	return "is invalid"
}

// check runs the struct rules and maps failures onto Errors.
func check(form any, msgs messages) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := Errors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = msgs.lookup(fe.Field(), fe.Tag())
		}
	}
	return out
}

var signupMessages = messages{
	"name":     "Name is required",
	"email":    "Invalid email address",
	"password": "Password must be at least 6 characters",
}

// Signup validates the registration form.
func Signup(name, email, password string) error {
	return check(SignupForm{Name: strings.TrimSpace(name), Email: email, Password: password}, signupMessages)
}

var loginMessages = messages{
	"email":    "Invalid email address",
	"password": "Password is required",
}

// Login validates the login form.
func Login(email, password string) error {
	return check(LoginForm{Email: email, Password: password}, loginMessages)
}

var leadMessages = messages{
	"name":         "Name is required",
	"name.min":     "Name must be at least 2 characters",
	"email":        "Invalid email",
	"status":       "Status must be one of Hot, Warm, Cold, Closed",
	"followUpDate": "Follow-up date must be YYYY-MM-DD or RFC 3339",
}

// Lead validates a lead form. An empty status is accepted; it is
// defaulted at creation.
func Lead(in models.LeadInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.FollowUpDate = strings.TrimSpace(in.FollowUpDate)
	return check(in, leadMessages)
}
