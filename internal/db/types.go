package db

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role constants
const (
	RoleAdmin     = "admin"
	RoleCandidate = "candidate"
)

// QuestionType constants
const (
	QuestionTypeText           = "text"
	QuestionTypeVideo          = "video"
	QuestionTypeMultipleChoice = "multiple_choice"
)

// AssignmentStatus constants
const (
	AssignmentStatusPending    = "pending"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusCompleted  = "completed"
)

// ProcessingStatus constants for video responses
const (
	ProcessingStatusPending    = "pending"
	ProcessingStatusProcessing = "processing"
	ProcessingStatusCompleted  = "completed"
	ProcessingStatusFailed     = "failed"
)

// Profile represents a user of the system, admin or candidate
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	PasswordHash string    `json:"-"` // Never serialize to JSON
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName returns "First Last" when known, falling back to the email.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	name := ""
	if p.FirstName != nil {
		name = *p.FirstName
	}
	if p.LastName != nil && *p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += *p.LastName
	}
	if name == "" {
		return p.Email
	}
	return name
}

// Interview is a named, ordered template of questions
type Interview struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Option is one choice of a multiple_choice question
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Question belongs to an interview; OrderIndex is dense from 0
type Question struct {
	ID           uuid.UUID `json:"id"`
	InterviewID  uuid.UUID `json:"interview_id"`
	QuestionText string    `json:"question_text"`
	Type         string    `json:"type"`
	Options      []Option  `json:"options,omitempty"`
	OrderIndex   int       `json:"order_index"`
}

// QuestionInput is a question as submitted by an admin, before indexing.
// ID is uuid.Nil for a new question and the stored id for one being kept.
type QuestionInput struct {
	ID           uuid.UUID
	QuestionText string
	Type         string
	Options      []Option
}

// Assignment is one candidate's attempt at one interview
type Assignment struct {
	ID          uuid.UUID  `json:"id"`
	InterviewID uuid.UUID  `json:"interview_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Status      string     `json:"status"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Response is a candidate's persisted answer to one question within one assignment
type Response struct {
	ID               uuid.UUID       `json:"id"`
	AssignmentID     uuid.UUID       `json:"assignment_id"`
	QuestionID       uuid.UUID       `json:"question_id"`
	Data             json.RawMessage `json:"data"`
	ProcessingStatus *string         `json:"processing_status,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Errors returned by question syncing and processing result updates
var (
	ErrForeignQuestion  = errors.New("question does not belong to this interview")
	ErrQuestionAnswered = errors.New("question already has answers")
	ErrStaleResult      = errors.New("result is for a superseded recording")
)

// AssignmentFilter narrows ListAssignments; nil fields are ignored
type AssignmentFilter struct {
	InterviewID *uuid.UUID
	UserID      *uuid.UUID
	Status      *string
}

// Matches reports whether a satisfies every set field of the filter.
func (f AssignmentFilter) Matches(a *Assignment) bool {
	if f.InterviewID != nil && a.InterviewID != *f.InterviewID {
		return false
	}
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	return true
}

// CurrentResponses collapses duplicate rows per question, keeping the one with the
// latest UpdatedAt. Input order of the survivors is preserved.
func CurrentResponses(responses []Response) []Response {
	type key struct{ a, q uuid.UUID }
	best := make(map[key]int, len(responses))
	out := make([]Response, 0, len(responses))
	for _, r := range responses {
		k := key{r.AssignmentID, r.QuestionID}
		if i, ok := best[k]; ok {
			if r.UpdatedAt.After(out[i].UpdatedAt) {
				out[i] = r
			}
			continue
		}
		best[k] = len(out)
		out = append(out, r)
	}
	return out
}
