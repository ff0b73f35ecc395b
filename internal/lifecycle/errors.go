package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrAssignmentNotFound is returned when the assignment does not exist
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrQuestionNotFound is returned when the question does not exist or belongs to
	// another interview
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAssignmentCompleted is returned for any write to a completed assignment
	ErrAssignmentCompleted = errors.New("assignment already completed")
	// ErrInvalidTransition is returned when a status change would move backwards
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrIncomplete is returned by Complete when the last question has no valid answer
	ErrIncomplete = errors.New("last question has not been answered")
)

// AnswerError reports an answer payload that does not fit its question
type AnswerError struct {
	QuestionID string
	Field      string
	Message    string
}

func (e *AnswerError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid answer for question %s: %s", e.QuestionID, e.Message)
	}
	return fmt.Sprintf("invalid answer for question %s: %s: %s", e.QuestionID, e.Field, e.Message)
}

// TransitionError carries the rejected statuses
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
