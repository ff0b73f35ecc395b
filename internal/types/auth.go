// Package types defines the request and response bodies of the HTTP API.
package types

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// RegisterRequest creates a candidate account with a password.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MagicLinkRequest asks for a passwordless sign-in link
type MagicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// MagicLinkVerifyRequest exchanges a sign-in link token for a session
type MagicLinkVerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// MagicLinkResponse is returned for every magic link request, known email or not.
// Link is only filled in when email delivery is simulated.
type MagicLinkResponse struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// User is a profile as returned by the API
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	DisplayName string    `json:"display_name"`
	PasswordSet bool      `json:"password_set"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginResponse represents the login/register response with user data and authentication token.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// UpdatePasswordRequest represents a password update request. CurrentPassword may be
// empty for accounts that never had a password.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (r *RegisterRequest) Validate() error        { return Validator().Struct(r) }
func (r *LoginRequest) Validate() error           { return Validator().Struct(r) }
func (r *MagicLinkRequest) Validate() error       { return Validator().Struct(r) }
func (r *MagicLinkVerifyRequest) Validate() error { return Validator().Struct(r) }
func (r *UpdatePasswordRequest) Validate() error  { return Validator().Struct(r) }
