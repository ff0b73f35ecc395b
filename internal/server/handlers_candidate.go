package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/access"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/lifecycle"
	"github.com/jonathan/interview-manager/internal/server/middleware"
	"github.com/jonathan/interview-manager/internal/types"
)

// maxAnswerBytes bounds a JSON answer body
const maxAnswerBytes = 1 << 20

// ---------------------------------------------------------------------
// Candidate Flow Handlers
//
// The invitation token in the path is the only credential. Unknown tokens and
// questions of other interviews are both 404.
// ---------------------------------------------------------------------

// tokenAssignment maps the {token} path value to its assignment id
func tokenAssignment(r *http.Request) (uuid.UUID, error) {
	token, err := access.ParseToken(r.PathValue("token"))
	if err != nil {
		return uuid.Nil, err
	}
	return token.AssignmentID(), nil
}

func tokenQuestion(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("question_id"))
	if err != nil {
		return uuid.Nil, lifecycle.ErrQuestionNotFound
	}
	return id, nil
}

// handleOpenInterview resolves the invitation. The first open of a pending assignment
// starts it; a completed one comes back read-only for the completion summary.
func (s *Server) handleOpenInterview(w http.ResponseWriter, r *http.Request) {
	acc, err := s.gate.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if acc.Assignment.Status == db.AssignmentStatusPending {
		started, err := s.lifecycle.Start(r.Context(), acc.Assignment.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		acc.Assignment = started
	}

	candidateName := ""
	if acc.Candidate != nil {
		candidateName = acc.Candidate.DisplayName()
	}
	s.jsonResponse(w, http.StatusOK, types.CandidateInterview{
		Assignment:    s.toAssignment(acc.Assignment, acc.Interview, acc.Candidate),
		Interview:     toInterview(acc.Interview, acc.Questions),
		CandidateName: candidateName,
		Answers:       toAnswers(acc.Responses),
		ResumeIndex:   acc.ResumeIndex,
		ReadOnly:      acc.ReadOnly,
		Answered:      len(acc.Responses),
		Total:         len(acc.Questions),
	})
}

// handleSaveAnswer stores a text or multiple choice answer. Saving again replaces it.
// Video questions are rejected here; they go through handleUploadVideo.
func (s *Server) handleSaveAnswer(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := tokenAssignment(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	questionID, err := tokenQuestion(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnswerBytes)).Decode(&payload); err != nil {
		writeError(w, r, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}

	resp, err := s.lifecycle.RecordAnswer(r.Context(), assignmentID, questionID, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, toAnswer(resp))
}

// handleUploadVideo accepts a multipart upload in the "video" field. The answer is
// only saved once the object store accepted the upload.
func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := tokenAssignment(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	questionID, err := tokenQuestion(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := s.cfg.MaxVideoBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, &ErrPayloadTooLarge{Limit: limit})
			return
		}
		writeError(w, r, &ErrValidation{Field: "video", Message: "expected a multipart form"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, r, &ErrValidation{Field: "video", Message: "is required"})
		return
	}
	defer file.Close()

	resp, err := s.lifecycle.RecordVideoAnswer(r.Context(), assignmentID, questionID, file, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, toAnswer(resp))
}

// handleCompleteInterview finishes the assignment once the last question is answered
func (s *Server) handleCompleteInterview(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := tokenAssignment(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	a, err := s.lifecycle.Complete(r.Context(), assignmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	iv, err := s.store.GetInterview(r.Context(), a.InterviewID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.toAssignment(a, iv, nil))
}

// handleMyAssignments lists the signed-in candidate's assignments with their links
func (s *Server) handleMyAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.listAssignments(w, r, db.AssignmentFilter{UserID: &userID})
}
