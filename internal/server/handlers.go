package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/interview-assistant/internal/types"
)

// handleAddCandidate ingests a multipart resume upload.
func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, &ErrValidation{Field: "resume", Message: "expected a multipart upload under 10MB"})
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, &ErrValidation{Field: "resume", Message: "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, &ErrValidation{Field: "resume", Message: "could not read upload"})
		return
	}

	res, err := s.svc.AddCandidate(r.Context(), header.Filename, data, types.ContactInfo{
		Name:  r.FormValue("name"),
		Email: r.FormValue("email"),
		Phone: r.FormValue("phone"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.svc.UpdateContact(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.StartInterview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Restore(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Session())
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req types.AnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.SaveDraft(req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmitAnswer records the answer. The optional questionId guards
// against a submit racing the question's timeout.
func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req types.AnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Submit(r.Context(), req.QuestionID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	if err := s.svc.Pause(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Session())
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	if err := s.svc.Resume(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Session())
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWelcomeBack reports the unfinished interview, if any.
func (s *Server) handleWelcomeBack(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.WelcomeBack(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending":   c != nil,
		"candidate": c,
	})
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return false
	}
	return true
}
