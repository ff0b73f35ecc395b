// Package memdb provides an in-memory store with the same methods as db.DB.
// It backs `serve --memory` and the package tests; data is lost on exit.
package memdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/db"
)

// Store is a goroutine-safe in-memory store.
type Store struct {
	mu sync.RWMutex

	// Now is the clock used for every timestamp. Defaults to time.Now.
	Now func() time.Time

	profiles    []db.Profile
	interviews  []db.Interview
	questions   []db.Question
	assignments []db.Assignment
	responses   []db.Response
}

// New creates an empty store
func New() *Store {
	return &Store{Now: time.Now}
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

// Ping always succeeds
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() {}

// -----------------------------------------------------------------------------
// Profiles
// -----------------------------------------------------------------------------

// CreateProfile inserts a profile; email must be unique
func (s *Store) CreateProfile(_ context.Context, p *db.Profile) (*db.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(p.Email))
	for _, existing := range s.profiles {
		if existing.Email == email {
			return nil, fmt.Errorf("failed to create profile: duplicate email %s", email)
		}
	}
	created := *p
	created.ID = uuid.New()
	created.Email = email
	created.CreatedAt = s.now()
	s.profiles = append(s.profiles, created)
	return &created, nil
}

// GetProfile retrieves a profile by ID
func (s *Store) GetProfile(_ context.Context, id uuid.UUID) (*db.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.ID == id {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

// GetProfileByEmail retrieves a profile by email (case-insensitive)
func (s *Store) GetProfileByEmail(_ context.Context, email string) (*db.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, p := range s.profiles {
		if p.Email == email {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

// ListProfiles lists profiles in creation order, optionally filtered by role
func (s *Store) ListProfiles(_ context.Context, role string) ([]db.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db.Profile
	for _, p := range s.profiles {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdatePassword sets the password hash of a profile
func (s *Store) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			s.profiles[i].PasswordHash = passwordHash
			return nil
		}
	}
	return fmt.Errorf("profile not found: %s", id)
}

// -----------------------------------------------------------------------------
// Interviews and questions
// -----------------------------------------------------------------------------

// CreateInterview inserts an interview and its questions indexed 0..n-1
func (s *Store) CreateInterview(_ context.Context, in *db.Interview, questions []db.QuestionInput) (*db.Interview, []db.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *in
	created.ID = uuid.New()
	created.CreatedAt = s.now()
	s.interviews = append(s.interviews, created)
	return &created, s.insertQuestionsLocked(created.ID, questions), nil
}

func (s *Store) insertQuestionsLocked(interviewID uuid.UUID, questions []db.QuestionInput) []db.Question {
	saved := make([]db.Question, 0, len(questions))
	for i, q := range questions {
		saved = append(saved, db.Question{
			ID:           uuid.New(),
			InterviewID:  interviewID,
			QuestionText: q.QuestionText,
			Type:         q.Type,
			Options:      append([]db.Option(nil), q.Options...),
			OrderIndex:   i,
		})
	}
	s.questions = append(s.questions, saved...)
	return saved
}

// GetInterview retrieves an interview by ID
func (s *Store) GetInterview(_ context.Context, id uuid.UUID) (*db.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, iv := range s.interviews {
		if iv.ID == id {
			out := iv
			return &out, nil
		}
	}
	return nil, nil
}

// ListInterviews lists interviews newest first
func (s *Store) ListInterviews(_ context.Context) ([]db.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.Interview, 0, len(s.interviews))
	for i := len(s.interviews) - 1; i >= 0; i-- {
		out = append(out, s.interviews[i])
	}
	return out, nil
}

// UpdateInterview updates metadata and, when questions is non-nil, syncs the
// question list with the same rules as the PostgreSQL store.
func (s *Store) UpdateInterview(_ context.Context, in *db.Interview, questions []db.QuestionInput) ([]db.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.interviews {
		if s.interviews[i].ID == in.ID {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("interview not found: %s", in.ID)
	}

	if questions == nil {
		s.interviews[idx].Name = in.Name
		s.interviews[idx].Description = in.Description
		return s.listQuestionsLocked(in.ID), nil
	}

	answered := map[uuid.UUID]bool{}
	for _, r := range s.responses {
		answered[r.QuestionID] = true
	}
	stored := map[uuid.UUID]db.QuestionState{}
	for _, q := range s.questions {
		if q.InterviewID == in.ID {
			stored[q.ID] = db.QuestionState{Type: q.Type, Answered: answered[q.ID]}
		}
	}
	removed, err := db.CheckQuestionSync(stored, questions)
	if err != nil {
		return nil, err
	}

	s.interviews[idx].Name = in.Name
	s.interviews[idx].Description = in.Description

	drop := make(map[uuid.UUID]bool, len(removed))
	for _, id := range removed {
		drop[id] = true
	}
	byID := map[uuid.UUID]int{}
	var kept []db.Question
	for _, q := range s.questions {
		if drop[q.ID] {
			continue
		}
		if q.InterviewID == in.ID {
			byID[q.ID] = len(kept)
		}
		kept = append(kept, q)
	}

	saved := make([]db.Question, 0, len(questions))
	for i, q := range questions {
		stored := db.Question{
			ID:           q.ID,
			InterviewID:  in.ID,
			QuestionText: q.QuestionText,
			Type:         q.Type,
			Options:      append([]db.Option(nil), q.Options...),
			OrderIndex:   i,
		}
		if q.ID == uuid.Nil {
			stored.ID = uuid.New()
			kept = append(kept, stored)
		} else {
			kept[byID[q.ID]] = stored
		}
		saved = append(saved, stored)
	}
	s.questions = kept
	return saved, nil
}

// DeleteInterview deletes an interview and cascades to its children
func (s *Store) DeleteInterview(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, iv := range s.interviews {
		if iv.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("interview not found: %s", id)
	}
	s.interviews = append(s.interviews[:idx], s.interviews[idx+1:]...)

	var qs []db.Question
	for _, q := range s.questions {
		if q.InterviewID != id {
			qs = append(qs, q)
		}
	}
	s.questions = qs

	gone := map[uuid.UUID]bool{}
	var as []db.Assignment
	for _, a := range s.assignments {
		if a.InterviewID == id {
			gone[a.ID] = true
			continue
		}
		as = append(as, a)
	}
	s.assignments = as
	s.dropResponsesLocked(func(r db.Response) bool { return gone[r.AssignmentID] })
	return nil
}

func (s *Store) dropResponsesLocked(drop func(db.Response) bool) {
	var rs []db.Response
	for _, r := range s.responses {
		if !drop(r) {
			rs = append(rs, r)
		}
	}
	s.responses = rs
}

// ListQuestions lists an interview's questions by order_index
func (s *Store) ListQuestions(_ context.Context, interviewID uuid.UUID) ([]db.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listQuestionsLocked(interviewID), nil
}

func (s *Store) listQuestionsLocked(interviewID uuid.UUID) []db.Question {
	var out []db.Question
	for _, q := range s.questions {
		if q.InterviewID == interviewID {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

// GetQuestion retrieves a question by ID
func (s *Store) GetQuestion(_ context.Context, id uuid.UUID) (*db.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			out := q
			return &out, nil
		}
	}
	return nil, nil
}

// -----------------------------------------------------------------------------
// Assignments
// -----------------------------------------------------------------------------

// CreateAssignments inserts one pending assignment per user
func (s *Store) CreateAssignments(_ context.Context, interviewID uuid.UUID, userIDs []uuid.UUID) ([]db.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := make([]db.Assignment, 0, len(userIDs))
	for _, userID := range userIDs {
		created = append(created, db.Assignment{
			ID:          uuid.New(),
			InterviewID: interviewID,
			UserID:      userID,
			Status:      db.AssignmentStatusPending,
			AssignedAt:  s.now(),
		})
	}
	s.assignments = append(s.assignments, created...)
	return created, nil
}

// GetAssignment retrieves an assignment by ID
func (s *Store) GetAssignment(_ context.Context, id uuid.UUID) (*db.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assignments {
		if a.ID == id {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

// ListAssignments lists assignments matching filter in insertion order
func (s *Store) ListAssignments(_ context.Context, filter db.AssignmentFilter) ([]db.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db.Assignment
	for i := range s.assignments {
		if filter.Matches(&s.assignments[i]) {
			out = append(out, s.assignments[i])
		}
	}
	return out, nil
}

// TransitionAssignment applies from→to only when the row is currently in `from`
func (s *Store) TransitionAssignment(_ context.Context, id uuid.UUID, from, to string) (*db.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		a := &s.assignments[i]
		if a.ID != id || a.Status != from {
			continue
		}
		a.Status = to
		if to == db.AssignmentStatusCompleted {
			now := s.now()
			a.CompletedAt = &now
		}
		out := *a
		return &out, nil
	}
	return nil, nil
}

// -----------------------------------------------------------------------------
// Responses
// -----------------------------------------------------------------------------

// UpsertResponse replaces or inserts the answer for (assignment, question)
func (s *Store) UpsertResponse(_ context.Context, assignmentID, questionID uuid.UUID, data json.RawMessage, processingStatus *string) (*db.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range s.responses {
		r := &s.responses[i]
		if r.AssignmentID != assignmentID || r.QuestionID != questionID {
			continue
		}
		if !now.After(r.UpdatedAt) {
			now = r.UpdatedAt.Add(time.Microsecond)
		}
		r.Data = append(json.RawMessage(nil), data...)
		r.ProcessingStatus = processingStatus
		r.UpdatedAt = now
		out := *r
		return &out, nil
	}

	r := db.Response{
		ID:               uuid.New(),
		AssignmentID:     assignmentID,
		QuestionID:       questionID,
		Data:             append(json.RawMessage(nil), data...),
		ProcessingStatus: processingStatus,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.responses = append(s.responses, r)
	return &r, nil
}

// GetResponse retrieves a response by ID
func (s *Store) GetResponse(_ context.Context, id uuid.UUID) (*db.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.responses {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

// ListResponses lists the responses of one assignment
func (s *Store) ListResponses(_ context.Context, assignmentID uuid.UUID) ([]db.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db.Response
	for _, r := range s.responses {
		if r.AssignmentID == assignmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListAllResponses lists every response in insertion order
func (s *Store) ListAllResponses(_ context.Context) ([]db.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]db.Response(nil), s.responses...), nil
}

// ApplyProcessingResult merges patch into the response data and sets processing_status
// when the stored answer still carries jobID
func (s *Store) ApplyProcessingResult(_ context.Context, id, jobID uuid.UUID, status string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.responses {
		r := &s.responses[i]
		if r.ID != id {
			continue
		}
		merged := map[string]any{}
		if len(r.Data) > 0 {
			if err := json.Unmarshal(r.Data, &merged); err != nil {
				return fmt.Errorf("failed to decode response data: %w", err)
			}
		}
		if current, _ := merged["job_id"].(string); current != jobID.String() {
			return fmt.Errorf("%w: response %s job %s", db.ErrStaleResult, id, jobID)
		}
		for k, v := range patch {
			merged[k] = v
		}
		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal processing result: %w", err)
		}
		r.Data = data
		r.ProcessingStatus = &status
		r.UpdatedAt = s.now()
		return nil
	}
	return fmt.Errorf("response not found: %s", id)
}
