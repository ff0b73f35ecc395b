package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/config"
	"github.com/jonathan/interview-manager/internal/server/middleware"
)

// Token purposes. A magic link token can only be exchanged for a session, never used
// as one.
const (
	PurposeSession   = "session"
	PurposeMagicLink = "magic_link"
)

const defaultMagicLinkTTL = 15 * time.Minute

// ErrWrongTokenPurpose is returned when a token is presented where another kind is expected.
var ErrWrongTokenPurpose = errors.New("token cannot be used for this purpose")

// Claims represents JWT claims with user ID and role.
type Claims struct {
	UserID  uuid.UUID `json:"user_id"`
	Role    string    `json:"role"`
	Purpose string    `json:"purpose"`
	jwt.RegisteredClaims
}

// GetUserID returns the user ID from the claims.
// This implements the middleware.UserIDGetter interface.
func (c *Claims) GetUserID() uuid.UUID {
	return c.UserID
}

// GetRole returns the role from the claims.
func (c *Claims) GetRole() string {
	return c.Role
}

// AsTokenValidator returns a TokenValidator adapter for this JWTService.
// This allows the JWTService to be used with middleware without creating import cycles.
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return &jwtServiceValidator{service: s}
}

// jwtServiceValidator adapts JWTService to middleware.TokenValidator interface.
type jwtServiceValidator struct {
	service *JWTService
}

func (v *jwtServiceValidator) ValidateToken(tokenString string) (middleware.UserIDGetter, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// JWTService provides JWT token generation and validation functionality.
type JWTService struct {
	config *config.JWTConfig
}

// NewJWTService creates a new JWT service with the given configuration.
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{
		config: cfg,
	}
}

// GenerateToken generates a session token for the given user.
func (s *JWTService) GenerateToken(userID uuid.UUID, role string) (string, error) {
	return s.sign(userID, role, PurposeSession, time.Duration(s.config.ExpirationHours)*time.Hour)
}

// GenerateMagicLinkToken generates a short-lived sign-in token.
func (s *JWTService) GenerateMagicLinkToken(userID uuid.UUID, role string) (string, error) {
	ttl := time.Duration(s.config.MagicLinkMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultMagicLinkTTL
	}
	return s.sign(userID, role, PurposeMagicLink, ttl)
}

func (s *JWTService) sign(userID uuid.UUID, role, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		UserID:  userID,
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a session token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, PurposeSession)
}

// ValidateMagicLinkToken validates a sign-in link token and returns the claims.
func (s *JWTService) ValidateMagicLinkToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, PurposeMagicLink)
}

func (s *JWTService) validate(tokenString, purpose string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrSignatureInvalid), errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongTokenPurpose
	}

	return claims, nil
}
