package types

import (
	"github.com/go-playground/validator/v10"
)

// UpdateContactRequest fills in contact fields the extractor could not find.
type UpdateContactRequest struct {
	Name  string `json:"name" validate:"required,min=1"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=7"`
}

// TokenRequest exchanges the interviewer password for a dashboard token.
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued dashboard token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// AnswerRequest submits or buffers answer text for the active question.
type AnswerRequest struct {
	QuestionID string `json:"questionId,omitempty"`
	Text       string `json:"text"`
}

// Validate validates the UpdateContactRequest using the validator.
func (r *UpdateContactRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the TokenRequest using the validator.
func (r *TokenRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
