package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/interview-assistant/internal/ingestion"
	"github.com/jonathan/interview-assistant/internal/session"
	"github.com/jonathan/interview-assistant/internal/store"
)

// ErrInvalidCredentials indicates a wrong interviewer password
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		invalidCreds *ErrInvalidCredentials
		validation   *ErrValidation
		fieldErrs    validator.ValidationErrors
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &invalidCreds):
		return http.StatusUnauthorized
	case errors.As(err, &validation), errors.As(err, &fieldErrs),
		errors.Is(err, ingestion.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAlreadyCompleted),
		errors.Is(err, session.ErrAlreadyStarted),
		errors.Is(err, session.ErrQuestionClosed),
		errors.Is(err, session.ErrNoActiveQuestion),
		errors.Is(err, session.ErrStale),
		errors.Is(err, store.ErrDuplicateID),
		errors.Is(err, store.ErrInvariant),
		errors.Is(err, store.ErrStatusRegression):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

const unsupportedFormatMessage = "Unsupported file format. Please upload a PDF or DOCX file."

// errorMessage returns the client-facing text for err. Server errors are not
// echoed back.
func errorMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("validation error: %s - %s", fe.Field(), fe.Tag())
	}
	if errors.Is(err, ingestion.ErrUnsupportedFormat) {
		return unsupportedFormatMessage
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
