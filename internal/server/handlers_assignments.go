package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/access"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/lifecycle"
	"github.com/jonathan/interview-manager/internal/logging"
	"github.com/jonathan/interview-manager/internal/notify"
	"github.com/jonathan/interview-manager/internal/types"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------
// Assignment Handlers
// ---------------------------------------------------------------------

func invitationFor(a *db.Assignment, iv *db.Interview, candidate *db.Profile) notify.Invitation {
	return notify.Invitation{
		AssignmentID:   a.ID,
		CandidateEmail: candidate.Email,
		CandidateName:  candidate.DisplayName(),
		InterviewTitle: iv.Name,
		Token:          access.TokenFor(a.ID),
	}
}

func toInvitationResults(report notify.Report) []types.InvitationResult {
	out := make([]types.InvitationResult, 0, len(report.Results))
	for _, res := range report.Results {
		out = append(out, types.InvitationResult{
			AssignmentID: res.AssignmentID,
			Email:        res.Email,
			Link:         res.Link,
			Sent:         res.Sent,
			Error:        res.Error,
		})
	}
	return out
}

// handleCreateAssignments creates one pending assignment per selected candidate and
// emails the invitations. A failed email never removes its assignment; the report
// carries the link for manual sharing.
func (s *Server) handleCreateAssignments(w http.ResponseWriter, r *http.Request) {
	iv, ok := s.interview(w, r)
	if !ok {
		return
	}

	var req types.CreateAssignmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	ids := parseCandidateIDs(req.CandidateIDs)
	candidates := make(map[uuid.UUID]*db.Profile, len(ids))
	for _, id := range ids {
		p, err := s.store.GetProfile(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if p == nil || p.Role != db.RoleCandidate {
			writeError(w, r, &ErrValidation{Field: "candidate_ids", Message: "not a candidate: " + id.String()})
			return
		}
		candidates[id] = p
	}

	created, err := s.store.CreateAssignments(r.Context(), iv.ID, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := types.CreateAssignmentsResponse{Assignments: make([]types.Assignment, 0, len(created))}
	invitations := make([]notify.Invitation, 0, len(created))
	for i := range created {
		a := &created[i]
		resp.Assignments = append(resp.Assignments, s.toAssignment(a, iv, candidates[a.UserID]))
		invitations = append(invitations, invitationFor(a, iv, candidates[a.UserID]))
	}

	if req.ShouldSend() {
		report := notify.Dispatch(r.Context(), s.sender, s.cfg.BaseURL, invitations, s.cfg.Invite.Concurrency)
		resp.Sent = report.Sent
		resp.Failed = report.Failed
		resp.Invitations = toInvitationResults(report)
		if report.Failed > 0 {
			logging.FromContext(r.Context()).Warn("some invitations were not delivered",
				zap.String("interview_id", iv.ID.String()),
				zap.Int("sent", report.Sent),
				zap.Int("failed", report.Failed),
			)
		}
	}

	s.jsonResponse(w, http.StatusCreated, resp)
}

func (s *Server) handleListInterviewAssignments(w http.ResponseWriter, r *http.Request) {
	iv, ok := s.interview(w, r)
	if !ok {
		return
	}
	s.listAssignments(w, r, db.AssignmentFilter{InterviewID: &iv.ID})
}

// handleListAssignments accepts optional status, interview_id and user_id filters
func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	var filter db.AssignmentFilter
	q := r.URL.Query()

	if status := q.Get("status"); status != "" {
		if !lifecycle.IsValidStatus(status) {
			writeError(w, r, &ErrValidation{Field: "status", Message: "unknown status " + status})
			return
		}
		filter.Status = &status
	}
	for param, dst := range map[string]**uuid.UUID{
		"interview_id": &filter.InterviewID,
		"user_id":      &filter.UserID,
	} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, r, &ErrValidation{Field: param, Message: "must be a valid UUID"})
			return
		}
		*dst = &id
	}

	s.listAssignments(w, r, filter)
}

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request, filter db.AssignmentFilter) {
	assignments, err := s.store.ListAssignments(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.loadDirectory(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.toAssignments(d, assignments))
}

// handleGetResults returns an assignment with its interview and the current answers,
// verbatim as stored.
func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.gate.Resolve(r.Context(), access.TokenFor(id).String())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, types.Results{
		Assignment: s.toAssignment(acc.Assignment, acc.Interview, acc.Candidate),
		Interview:  toInterview(acc.Interview, acc.Questions),
		Candidate:  toUser(acc.Candidate),
		Answers:    toAnswers(acc.Responses),
	})
}

// handleResendInvitation sends the invitation of one open assignment again
func (s *Server) handleResendInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.gate.Resolve(r.Context(), access.TokenFor(id).String())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if acc.ReadOnly {
		writeError(w, r, lifecycle.ErrAssignmentCompleted)
		return
	}
	if acc.Candidate == nil {
		writeError(w, r, &ErrNotFound{Kind: "candidate", ID: acc.Assignment.UserID.String()})
		return
	}

	report := notify.Dispatch(r.Context(), s.sender, s.cfg.BaseURL,
		[]notify.Invitation{invitationFor(acc.Assignment, acc.Interview, acc.Candidate)}, 1)
	s.jsonResponse(w, http.StatusOK, toInvitationResults(report)[0])
}
