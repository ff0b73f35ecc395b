package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/server/middleware"
	"github.com/jonathan/interview-manager/internal/types"
)

// ---------------------------------------------------------------------
// Interview Handlers
// ---------------------------------------------------------------------

// questionInputs converts submitted questions. A nil list stays nil so an update
// can leave the questions untouched.
func questionInputs(questions []types.QuestionRequest) []db.QuestionInput {
	if questions == nil {
		return nil
	}
	out := make([]db.QuestionInput, 0, len(questions))
	for _, q := range questions {
		in := db.QuestionInput{
			QuestionText: strings.TrimSpace(q.QuestionText),
			Type:         q.Type,
		}
		if q.ID != "" {
			in.ID = uuid.MustParse(q.ID)
		}
		for _, o := range q.Options {
			in.Options = append(in.Options, db.Option{Label: o.Label, Value: o.Value})
		}
		out = append(out, in)
	}
	return out
}

type validatable interface {
	Validate() error
}

func decodeRequest(r *http.Request, req validatable) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	return req.Validate()
}

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var req types.InterviewRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	adminID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	iv, questions, err := s.store.CreateInterview(r.Context(), &db.Interview{
		Name:        strings.TrimSpace(req.Name),
		Description: optional(req.Description),
		CreatedBy:   adminID,
	}, questionInputs(req.Questions))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, toInterview(iv, questions))
}

func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	interviews, err := s.store.ListInterviews(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]types.Interview, 0, len(interviews))
	for i := range interviews {
		out = append(out, toInterview(&interviews[i], nil))
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// interview loads the {id} interview, writing 404 when it does not exist
func (s *Server) interview(w http.ResponseWriter, r *http.Request) (*db.Interview, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	iv, err := s.store.GetInterview(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if iv == nil {
		writeError(w, r, &ErrNotFound{Kind: "interview", ID: id.String()})
		return nil, false
	}
	return iv, true
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	iv, ok := s.interview(w, r)
	if !ok {
		return
	}
	questions, err := s.store.ListQuestions(r.Context(), iv.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, toInterview(iv, questions))
}

// handleUpdateInterview edits name and description and, when the body carries
// questions, syncs them by id. Answered questions cannot be removed or change type
// (409), so stored answers are never lost to an edit.
func (s *Server) handleUpdateInterview(w http.ResponseWriter, r *http.Request) {
	iv, ok := s.interview(w, r)
	if !ok {
		return
	}
	var req types.UpdateInterviewRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	iv.Name = strings.TrimSpace(req.Name)
	iv.Description = optional(req.Description)
	questions, err := s.store.UpdateInterview(r.Context(), iv, questionInputs(req.Questions))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, toInterview(iv, questions))
}

func (s *Server) handleDeleteInterview(w http.ResponseWriter, r *http.Request) {
	iv, ok := s.interview(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteInterview(r.Context(), iv.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------
// Candidate Handlers
// ---------------------------------------------------------------------

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context(), db.RoleCandidate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]*types.User, 0, len(profiles))
	for i := range profiles {
		out = append(out, toUser(&profiles[i]))
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// parseCandidateIDs de-duplicates ids keeping their order
func parseCandidateIDs(raw []string) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(raw))
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
