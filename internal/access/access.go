// Package access resolves interview invitation tokens to the assignment they grant.
//
// A token is a bearer capability: whoever holds the link can answer the interview.
// Tokens do not expire and cannot be revoked.
package access

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/lifecycle"
)

// ErrNotFound is returned for tokens that do not map to an assignment, including
// malformed ones.
var ErrNotFound = errors.New("interview not found")

// Token is the capability carried in an invitation link
type Token string

// TokenFor returns the token granting access to an assignment
func TokenFor(assignmentID uuid.UUID) Token {
	return Token(assignmentID.String())
}

// ParseToken validates the shape of a raw token
func ParseToken(raw string) (Token, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrNotFound
	}
	return TokenFor(id), nil
}

// AssignmentID returns the assignment the token grants. A malformed token yields uuid.Nil.
func (t Token) AssignmentID() uuid.UUID {
	id, err := uuid.Parse(string(t))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (t Token) String() string { return string(t) }

// InvitationURL builds {origin}/interview/{token}
func InvitationURL(baseURL string, t Token) string {
	return strings.TrimRight(baseURL, "/") + "/interview/" + url.PathEscape(t.String())
}

// Store is the persistence read by the gate
type Store interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*db.Assignment, error)
	GetInterview(ctx context.Context, id uuid.UUID) (*db.Interview, error)
	ListQuestions(ctx context.Context, interviewID uuid.UUID) ([]db.Question, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*db.Profile, error)
	ListResponses(ctx context.Context, assignmentID uuid.UUID) ([]db.Response, error)
}

// Access is everything the candidate flow needs to render an assignment
type Access struct {
	Token      Token
	Assignment *db.Assignment
	Interview  *db.Interview
	Questions  []db.Question
	Candidate  *db.Profile
	Responses  []db.Response
	// ResumeIndex is the question the answer form opens at
	ResumeIndex int
	// ReadOnly is set once the assignment is completed; callers show the completion
	// summary instead of the answer form.
	ReadOnly bool
}

// Gate resolves tokens
type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Resolve maps a raw token to its assignment, interview, ordered questions, candidate
// and current answers.
func (g *Gate) Resolve(ctx context.Context, raw string) (*Access, error) {
	token, err := ParseToken(raw)
	if err != nil {
		return nil, err
	}

	a, err := g.store.GetAssignment(ctx, token.AssignmentID())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}

	iv, err := g.store.GetInterview(ctx, a.InterviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access: %w", err)
	}
	if iv == nil {
		return nil, ErrNotFound
	}

	questions, err := g.store.ListQuestions(ctx, a.InterviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access: %w", err)
	}
	candidate, err := g.store.GetProfile(ctx, a.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access: %w", err)
	}
	responses, err := g.store.ListResponses(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access: %w", err)
	}
	responses = db.CurrentResponses(responses)

	return &Access{
		Token:       token,
		Assignment:  a,
		Interview:   iv,
		Questions:   questions,
		Candidate:   candidate,
		Responses:   responses,
		ResumeIndex: lifecycle.ResumePoint(questions, responses),
		ReadOnly:    a.Status == db.AssignmentStatusCompleted,
	}, nil
}

// Owns reports whether the token grants the given assignment
func (a *Access) Owns(assignmentID uuid.UUID) bool {
	return a.Assignment != nil && a.Assignment.ID == assignmentID
}
