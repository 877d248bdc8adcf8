package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/interview-assistant/internal/config"
	"github.com/jonathan/interview-assistant/internal/types"
)

// AuthHandler exchanges the interviewer password for a dashboard token.
type AuthHandler struct {
	password     *config.PasswordConfig
	passwordHash string
	jwtService   *JWTService
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(password *config.PasswordConfig, passwordHash string, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		password:     password,
		passwordHash: passwordHash,
		jwtService:   jwtService,
	}
}

// IssueToken handles POST /auth/token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req types.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if !h.password.VerifyPassword(req.Password, h.passwordHash) {
		writeError(w, &ErrInvalidCredentials{})
		return
	}

	token, err := h.jwtService.GenerateToken(RoleInterviewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.TokenResponse{
		Token:     token,
		ExpiresIn: int(h.jwtService.config.Expiration().Seconds()),
	})
}
