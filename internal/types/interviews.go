package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/schemas"
)

// OptionRequest is one choice of a multiple_choice question
type OptionRequest struct {
	Label string `json:"label" validate:"required,max=200"`
	Value string `json:"value" validate:"required,max=200"`
}

// QuestionRequest is a question in submitted order; the position becomes order_index.
// On update, ID names the stored question being kept; omit it for a new question.
type QuestionRequest struct {
	ID           string          `json:"id,omitempty" validate:"omitempty,uuid"`
	QuestionText string          `json:"question_text" validate:"required,max=2000"`
	Type         string          `json:"type" validate:"required,oneof=text video multiple_choice"`
	Options      []OptionRequest `json:"options,omitempty" validate:"omitempty,dive"`
}

// InterviewRequest creates an interview
type InterviewRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"description" validate:"omitempty,max=5000"`
	Questions   []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// Validate checks tags plus the question and option rules
func (r *InterviewRequest) Validate() error {
	if err := Validator().Struct(r); err != nil {
		return err
	}
	return validateQuestions(r.Questions)
}

// UpdateInterviewRequest edits an interview. Leaving out questions changes only the
// name and description; a questions list is synced by question id.
type UpdateInterviewRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"description" validate:"omitempty,max=5000"`
	Questions   []QuestionRequest `json:"questions,omitempty" validate:"omitempty,dive"`
}

// Validate checks tags plus the question and option rules
func (r *UpdateInterviewRequest) Validate() error {
	if err := Validator().Struct(r); err != nil {
		return err
	}
	if r.Questions == nil {
		return nil
	}
	if len(r.Questions) == 0 {
		return &FieldError{Field: "questions", Message: "must not be empty"}
	}
	return validateQuestions(r.Questions)
}

// validateQuestions requires question text, and options only on multiple_choice
// questions, where they must match the question options schema and carry distinct
// values.
func validateQuestions(questions []QuestionRequest) error {
	for i, q := range questions {
		if strings.TrimSpace(q.QuestionText) == "" {
			return &FieldError{Field: fmt.Sprintf("questions[%d].question_text", i), Message: "is required"}
		}
		field := fmt.Sprintf("questions[%d].options", i)
		if q.Type != "multiple_choice" {
			if len(q.Options) > 0 {
				return &FieldError{Field: field, Message: "only multiple_choice questions take options"}
			}
			continue
		}
		if err := validateOptions(field, q.Options); err != nil {
			return err
		}
	}
	return nil
}

func validateOptions(field string, options []OptionRequest) error {
	if options == nil {
		options = []OptionRequest{}
	}
	doc, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	if err := schemas.Validate(schemas.QuestionOptions, doc); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) && len(ve.Errors) > 0 {
			return &FieldError{Field: field, Message: ve.Errors[0].Message}
		}
		return err
	}

	seen := map[string]bool{}
	for _, o := range options {
		if seen[o.Value] {
			return &FieldError{Field: field, Message: fmt.Sprintf("duplicate option value %q", o.Value)}
		}
		seen[o.Value] = true
	}
	return nil
}

// FieldError is a validation failure on one request field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Option is a stored choice
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Question is a stored question
type Question struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Type         string    `json:"type"`
	Options      []Option  `json:"options,omitempty"`
	OrderIndex   int       `json:"order_index"`
}

// Interview is an interview with its ordered questions
type Interview struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	Questions   []Question `json:"questions,omitempty"`
}
