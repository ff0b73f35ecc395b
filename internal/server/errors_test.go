package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/access"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/lifecycle"
	"github.com/jonathan/interview-manager/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestErrEmailAlreadyExists(t *testing.T) {
	err := &ErrEmailAlreadyExists{Email: "test@example.com"}
	assert.Equal(t, "email already registered: test@example.com", err.Error())
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestErrInvalidCredentials(t *testing.T) {
	err := &ErrInvalidCredentials{}
	assert.Equal(t, "invalid email or password", err.Error())
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
}

func TestErrUserNotFound(t *testing.T) {
	userID := uuid.New()
	err := &ErrUserNotFound{UserID: userID}
	assert.Equal(t, "user not found: "+userID.String(), err.Error())
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestErrPasswordMismatch(t *testing.T) {
	err := &ErrPasswordMismatch{}
	assert.Equal(t, "current password is incorrect", err.Error())
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "email", Message: "invalid format"}
	assert.Equal(t, "validation error: email - invalid format", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "ErrEmailAlreadyExists",
			err:      &ErrEmailAlreadyExists{Email: "test@example.com"},
			expected: http.StatusConflict,
		},
		{
			name:     "ErrInvalidCredentials",
			err:      &ErrInvalidCredentials{},
			expected: http.StatusUnauthorized,
		},
		{
			name:     "ErrPasswordMismatch",
			err:      &ErrPasswordMismatch{},
			expected: http.StatusUnauthorized,
		},
		{
			name:     "ErrUserNotFound",
			err:      &ErrUserNotFound{UserID: uuid.New()},
			expected: http.StatusNotFound,
		},
		{
			name:     "ErrValidation",
			err:      &ErrValidation{Field: "password", Message: "too short"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "ErrNotFound",
			err:      &ErrNotFound{Kind: "interview", ID: "x"},
			expected: http.StatusNotFound,
		},
		{
			name:     "access not found",
			err:      access.ErrNotFound,
			expected: http.StatusNotFound,
		},
		{
			name:     "wrapped assignment not found",
			err:      fmt.Errorf("failed to save: %w", lifecycle.ErrAssignmentNotFound),
			expected: http.StatusNotFound,
		},
		{
			name:     "question not found",
			err:      lifecycle.ErrQuestionNotFound,
			expected: http.StatusNotFound,
		},
		{
			name:     "answer error",
			err:      &lifecycle.AnswerError{QuestionID: "q", Field: "text", Message: "answer cannot be empty"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "field error",
			err:      &types.FieldError{Field: "questions[0].options", Message: "too few"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "validator errors",
			err:      (&types.LoginRequest{}).Validate(),
			expected: http.StatusBadRequest,
		},
		{
			name:     "assignment completed",
			err:      lifecycle.ErrAssignmentCompleted,
			expected: http.StatusConflict,
		},
		{
			name:     "transition error",
			err:      &lifecycle.TransitionError{From: "completed", To: "in_progress"},
			expected: http.StatusConflict,
		},
		{
			name:     "incomplete",
			err:      lifecycle.ErrIncomplete,
			expected: http.StatusConflict,
		},
		{
			name:     "answered question removed",
			err:      fmt.Errorf("%w: x cannot be removed", db.ErrQuestionAnswered),
			expected: http.StatusConflict,
		},
		{
			name:     "question from another interview",
			err:      fmt.Errorf("%w: x", db.ErrForeignQuestion),
			expected: http.StatusBadRequest,
		},
		{
			name:     "wrong token purpose",
			err:      ErrWrongTokenPurpose,
			expected: http.StatusUnauthorized,
		},
		{
			name:     "payload too large",
			err:      &ErrPayloadTooLarge{Limit: 10},
			expected: http.StatusRequestEntityTooLarge,
		},
		{
			name:     "Unknown error",
			err:      assert.AnError,
			expected: http.StatusInternalServerError,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "internal server error", publicMessage(fmt.Errorf("failed to list interviews: %w", assert.AnError)))
	assert.Equal(t, "assignment already completed", publicMessage(lifecycle.ErrAssignmentCompleted))
	assert.Equal(t, "validation error: Email - required", publicMessage((&types.LoginRequest{Password: "x"}).Validate()))
}
