package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devfolio/profile-agent/internal/profile"
	"github.com/devfolio/profile-agent/internal/server/middleware"
)

// authorize is the authorization gate: a caller may only act on their own
// profile. No roles, no delegation.
func authorize(caller, subject string) bool {
	return caller == subject
}

// requireSubject resolves the path subject and enforces the authorization
// gate before any pipeline run or artifact read. The denial response is
// identical whether or not the subject exists.
func (s *Server) requireSubject(w http.ResponseWriter, r *http.Request) (string, bool) {
	subject := chi.URLParam(r, "username")
	if subject == "" {
		s.errorResponse(w, http.StatusBadRequest, "username is required")
		return "", false
	}

	caller, err := middleware.GetUsername(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}

	if !authorize(caller, subject) {
		s.errorResponse(w, http.StatusForbidden, "forbidden")
		return "", false
	}
	return subject, true
}

// handleProcess triggers a pipeline run for the subject and returns the
// result envelope.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	subject, ok := s.requireSubject(w, r)
	if !ok {
		return
	}

	res, err := s.pipeline.Process(r.Context(), subject)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleFilteredData serves the composed profile built from the filter
// stage output.
func (s *Server) handleFilteredData(w http.ResponseWriter, r *http.Request) {
	s.handleComposed(w, r, profile.ArtifactFiltered)
}

// handleTranslatedData serves the composed profile built from the
// translate stage output.
func (s *Server) handleTranslatedData(w http.ResponseWriter, r *http.Request) {
	s.handleComposed(w, r, profile.ArtifactTranslated)
}

func (s *Server) handleComposed(w http.ResponseWriter, r *http.Request, kind profile.ArtifactKind) {
	subject, ok := s.requireSubject(w, r)
	if !ok {
		return
	}

	doc, err := s.composer.Compose(r.Context(), kind, subject)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}
