package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/config"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/types"
)

// ProfileStore is the profile persistence used by UserService
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *db.Profile) (*db.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*db.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*db.Profile, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// UserService provides business logic for user authentication operations
type UserService struct {
	db             ProfileStore
	passwordConfig *config.PasswordConfig
}

// NewUserService creates a new UserService with the given dependencies
func NewUserService(db ProfileStore, passwordConfig *config.PasswordConfig) *UserService {
	return &UserService{
		db:             db,
		passwordConfig: passwordConfig,
	}
}

// toUser converts a profile to the API user, excluding the password hash
func toUser(p *db.Profile) *types.User {
	if p == nil {
		return nil
	}
	u := &types.User{
		ID:          p.ID,
		Email:       p.Email,
		Role:        p.Role,
		DisplayName: p.DisplayName(),
		PasswordSet: p.PasswordHash != "",
		CreatedAt:   p.CreatedAt,
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	return u
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Register creates a candidate with password authentication
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*types.User, error) {
	return s.create(ctx, db.RoleCandidate, req)
}

// CreateAdmin creates an admin account. Admins are never self-registered.
func (s *UserService) CreateAdmin(ctx context.Context, req *types.RegisterRequest) (*types.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, db.RoleAdmin, req)
}

func (s *UserService) create(ctx context.Context, role string, req *types.RegisterRequest) (*types.User, error) {
	existing, err := s.db.GetProfileByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if existing != nil {
		return nil, &ErrEmailAlreadyExists{Email: req.Email}
	}

	if err := s.passwordConfig.CheckPassword(req.Password); err != nil {
		return nil, &ErrValidation{Field: "password", Message: err.Error()}
	}
	passwordHash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.db.CreateProfile(ctx, &db.Profile{
		Email:        req.Email,
		Role:         role,
		FirstName:    optional(req.FirstName),
		LastName:     optional(req.LastName),
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return toUser(created), nil
}

// Login authenticates a user and returns user data
func (s *UserService) Login(ctx context.Context, req *types.LoginRequest) (*types.User, error) {
	p, err := s.db.GetProfileByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	// Security: Always return generic error if user not found or password wrong
	if p == nil || p.PasswordHash == "" {
		return nil, &ErrInvalidCredentials{}
	}
	if !s.passwordConfig.VerifyPassword(req.Password, p.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}

	if s.passwordConfig.NeedsRehash(p.PasswordHash) {
		if hash, err := s.passwordConfig.HashPassword(req.Password); err == nil {
			_ = s.db.UpdatePassword(ctx, p.ID, hash)
		}
	}

	return toUser(p), nil
}

// LookupByEmail returns the profile for a magic link request, or nil when the email is
// unknown. Callers must not reveal which case occurred.
func (s *UserService) LookupByEmail(ctx context.Context, email string) (*types.User, error) {
	p, err := s.db.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return toUser(p), nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	p, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if p == nil {
		return nil, &ErrUserNotFound{UserID: userID}
	}
	return toUser(p), nil
}

// UpdatePassword updates a user's password. Accounts without a password (magic link
// only) may set one without supplying the current password.
func (s *UserService) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	p, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if p == nil {
		return &ErrUserNotFound{UserID: userID}
	}

	if p.PasswordHash != "" && !s.passwordConfig.VerifyPassword(currentPassword, p.PasswordHash) {
		return &ErrPasswordMismatch{}
	}

	if err := s.passwordConfig.CheckPassword(newPassword); err != nil {
		return &ErrValidation{Field: "new_password", Message: err.Error()}
	}
	newPasswordHash, err := s.passwordConfig.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.db.UpdatePassword(ctx, userID, newPasswordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
