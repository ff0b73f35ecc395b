package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/access"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/lifecycle"
	"github.com/jonathan/interview-manager/internal/types"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrPasswordMismatch indicates current password is incorrect
type ErrPasswordMismatch struct{}

func (e *ErrPasswordMismatch) Error() string {
	return "current password is incorrect"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing interview, assignment or profile
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ErrPayloadTooLarge indicates an upload over the configured limit
type ErrPayloadTooLarge struct {
	Limit int64
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("upload exceeds %d bytes", e.Limit)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		emailExists   *ErrEmailAlreadyExists
		badCreds      *ErrInvalidCredentials
		mismatch      *ErrPasswordMismatch
		userNotFound  *ErrUserNotFound
		validation    *ErrValidation
		notFound      *ErrNotFound
		tooLarge      *ErrPayloadTooLarge
		fieldErr      *types.FieldError
		answerErr     *lifecycle.AnswerError
		validatorErrs validator.ValidationErrors
	)

	switch {
	case errors.As(err, &emailExists):
		return http.StatusConflict
	case errors.As(err, &badCreds), errors.As(err, &mismatch), errors.Is(err, ErrWrongTokenPurpose):
		return http.StatusUnauthorized
	case errors.As(err, &userNotFound), errors.As(err, &notFound),
		errors.Is(err, access.ErrNotFound),
		errors.Is(err, lifecycle.ErrAssignmentNotFound),
		errors.Is(err, lifecycle.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &fieldErr),
		errors.As(err, &answerErr), errors.As(err, &validatorErrs),
		errors.Is(err, db.ErrForeignQuestion):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrAssignmentCompleted),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrIncomplete),
		errors.Is(err, db.ErrQuestionAnswered):
		return http.StatusConflict
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text a client may see. Storage and other internal
// failures collapse to a generic message.
func publicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) {
		return extractValidationErrors(validatorErrs)
	}
	return err.Error()
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			// Return first validation error for simplicity
			ve := validationErrors[0]
			return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
		}
	}
	return "validation error: invalid request"
}
