package server

import (
	"net/http"

	"github.com/jonathan/interview-assistant/internal/interview"
)

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	key, err := interview.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, &ErrValidation{Field: "sort", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": s.svc.Candidates(r.Context(), key),
		"sort":       key,
	})
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Candidate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAssessmentStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.AssessmentStatus())
}

func (s *Server) handleResetAssessment(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ResetAssessment())
}
