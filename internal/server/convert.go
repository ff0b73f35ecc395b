package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/access"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/types"
)

// ---------------------------------------------------------------------
// db rows to API bodies
// ---------------------------------------------------------------------

func toInterview(iv *db.Interview, questions []db.Question) types.Interview {
	out := types.Interview{
		ID:        iv.ID,
		Name:      iv.Name,
		CreatedBy: iv.CreatedBy,
		CreatedAt: iv.CreatedAt,
	}
	if iv.Description != nil {
		out.Description = *iv.Description
	}
	for _, q := range questions {
		tq := types.Question{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Type:         q.Type,
			OrderIndex:   q.OrderIndex,
		}
		for _, o := range q.Options {
			tq.Options = append(tq.Options, types.Option{Label: o.Label, Value: o.Value})
		}
		out.Questions = append(out.Questions, tq)
	}
	return out
}

func toAnswers(responses []db.Response) []types.Answer {
	out := make([]types.Answer, 0, len(responses))
	for _, r := range responses {
		out = append(out, toAnswer(&r))
	}
	return out
}

func toAnswer(r *db.Response) types.Answer {
	return types.Answer{
		ID:               r.ID,
		QuestionID:       r.QuestionID,
		Data:             r.Data,
		ProcessingStatus: r.ProcessingStatus,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func (s *Server) toAssignment(a *db.Assignment, iv *db.Interview, candidate *db.Profile) types.Assignment {
	out := types.Assignment{
		ID:            a.ID,
		InterviewID:   a.InterviewID,
		UserID:        a.UserID,
		Status:        a.Status,
		AssignedAt:    a.AssignedAt,
		CompletedAt:   a.CompletedAt,
		InvitationURL: access.InvitationURL(s.cfg.BaseURL, access.TokenFor(a.ID)),
	}
	if iv != nil {
		out.InterviewName = iv.Name
	}
	if candidate != nil {
		out.CandidateName = candidate.DisplayName()
		out.CandidateEmail = candidate.Email
	}
	return out
}

// directory resolves interview and profile names for list views
type directory struct {
	interviews map[uuid.UUID]*db.Interview
	profiles   map[uuid.UUID]*db.Profile
}

func (s *Server) loadDirectory(ctx context.Context) (*directory, error) {
	interviews, err := s.store.ListInterviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load interviews: %w", err)
	}
	profiles, err := s.store.ListProfiles(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	d := &directory{
		interviews: make(map[uuid.UUID]*db.Interview, len(interviews)),
		profiles:   make(map[uuid.UUID]*db.Profile, len(profiles)),
	}
	for i := range interviews {
		d.interviews[interviews[i].ID] = &interviews[i]
	}
	for i := range profiles {
		d.profiles[profiles[i].ID] = &profiles[i]
	}
	return d, nil
}

func (s *Server) toAssignments(d *directory, assignments []db.Assignment) []types.Assignment {
	out := make([]types.Assignment, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		out = append(out, s.toAssignment(a, d.interviews[a.InterviewID], d.profiles[a.UserID]))
	}
	return out
}
