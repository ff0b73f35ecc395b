package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/events"
	"github.com/jonathan/interview-manager/internal/logging"
	"github.com/jonathan/interview-manager/internal/storage"
	"go.uber.org/zap"
)

// Store is the persistence used by Service. Implemented by *db.DB and *memdb.Store.
type Store interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*db.Assignment, error)
	TransitionAssignment(ctx context.Context, id uuid.UUID, from, to string) (*db.Assignment, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*db.Question, error)
	ListQuestions(ctx context.Context, interviewID uuid.UUID) ([]db.Question, error)
	ListResponses(ctx context.Context, assignmentID uuid.UUID) ([]db.Response, error)
	UpsertResponse(ctx context.Context, assignmentID, questionID uuid.UUID, data json.RawMessage, processingStatus *string) (*db.Response, error)
}

// Service drives an assignment through pending -> in_progress -> completed and
// records the candidate's answers on the way.
type Service struct {
	store     Store
	objects   storage.ObjectStore
	publisher events.Publisher
	now       func() time.Time
}

// NewService creates a lifecycle service
func NewService(store Store, objects storage.ObjectStore, publisher events.Publisher) *Service {
	return &Service{
		store:     store,
		objects:   objects,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *Service) assignment(ctx context.Context, id uuid.UUID) (*db.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

// writable loads the assignment and the question, rejecting completed assignments
// and questions from another interview.
func (s *Service) writable(ctx context.Context, assignmentID, questionID uuid.UUID) (*db.Assignment, *db.Question, error) {
	a, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	if a.Status == db.AssignmentStatusCompleted {
		return nil, nil, ErrAssignmentCompleted
	}

	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, nil, err
	}
	if q == nil || q.InterviewID != a.InterviewID {
		return nil, nil, ErrQuestionNotFound
	}
	return a, q, nil
}

// Start moves a pending assignment to in_progress. It is a no-op for assignments
// already in progress or completed.
func (s *Service) Start(ctx context.Context, assignmentID uuid.UUID) (*db.Assignment, error) {
	a, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, a)
}

func (s *Service) start(ctx context.Context, a *db.Assignment) (*db.Assignment, error) {
	if a.Status != db.AssignmentStatusPending {
		return a, nil
	}

	updated, err := s.store.TransitionAssignment(ctx, a.ID, db.AssignmentStatusPending, db.AssignmentStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to start assignment: %w", err)
	}
	if updated == nil {
		// another request moved it first
		return s.assignment(ctx, a.ID)
	}

	logging.FromContext(ctx).Info("assignment started", zap.String("assignment_id", a.ID.String()))
	return updated, nil
}

// RecordAnswer validates payload for the question type and stores it as the current
// answer, replacing any earlier one. Concurrent writes are last-write-wins. Video
// questions are answered only through RecordVideoAnswer.
func (s *Service) RecordAnswer(ctx context.Context, assignmentID, questionID uuid.UUID, payload json.RawMessage) (*db.Response, error) {
	a, q, err := s.writable(ctx, assignmentID, questionID)
	if err != nil {
		return nil, err
	}
	if q.Type == db.QuestionTypeVideo {
		return nil, &AnswerError{QuestionID: q.ID.String(), Message: "video answers must be uploaded as a recording"}
	}
	if err := ValidateAnswer(q, payload); err != nil {
		return nil, err
	}
	return s.save(ctx, a, q, payload, nil)
}

func (s *Service) save(ctx context.Context, a *db.Assignment, q *db.Question, payload json.RawMessage, processingStatus *string) (*db.Response, error) {
	if _, err := s.start(ctx, a); err != nil {
		return nil, err
	}
	r, err := s.store.UpsertResponse(ctx, a.ID, q.ID, payload, processingStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}
	return r, nil
}

// RecordVideoAnswer uploads a recorded answer to
// {userId}/{assignmentId}/{questionId}.webm, stores its public URL as the answer and
// queues it for transcription. Nothing is persisted when the upload fails.
func (s *Service) RecordVideoAnswer(ctx context.Context, assignmentID, questionID uuid.UUID, video io.Reader, contentType string) (*db.Response, error) {
	a, q, err := s.writable(ctx, assignmentID, questionID)
	if err != nil {
		return nil, err
	}
	if q.Type != db.QuestionTypeVideo {
		return nil, &AnswerError{QuestionID: q.ID.String(), Message: "question does not accept video"}
	}
	if contentType == "" {
		contentType = storage.VideoContentType
	}

	key := storage.VideoKey(a.UserID, a.ID, q.ID)
	if err := s.objects.Put(ctx, key, video, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}
	url := s.objects.PublicURL(key)
	jobID := uuid.New()

	payload, err := json.Marshal(VideoAnswer{VideoURL: url, Type: db.QuestionTypeVideo, JobID: jobID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode video answer: %w", err)
	}

	pending := db.ProcessingStatusPending
	r, err := s.save(ctx, a, q, payload, &pending)
	if err != nil {
		return nil, err
	}

	job := events.VideoJob{
		JobID:        jobID,
		ResponseID:   r.ID,
		AssignmentID: a.ID,
		QuestionID:   q.ID,
		UserID:       a.UserID,
		ObjectKey:    key,
		VideoURL:     url,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.publisher.PublishVideoJob(ctx, job); err != nil {
		// the answer is saved; the response stays in processing_status=pending
		logging.FromContext(ctx).Error("failed to queue video for processing",
			zap.String("response_id", r.ID.String()), zap.Error(err))
	}
	return r, nil
}

// Complete marks the assignment completed. The last question must have a stored,
// valid answer. completed_at is written together with the status.
func (s *Service) Complete(ctx context.Context, assignmentID uuid.UUID) (*db.Assignment, error) {
	a, err := s.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status == db.AssignmentStatusCompleted {
		return nil, ErrAssignmentCompleted
	}

	questions, err := s.store.ListQuestions(ctx, a.InterviewID)
	if err != nil {
		return nil, err
	}
	if len(questions) > 0 {
		responses, err := s.store.ListResponses(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if err := lastAnswered(questions, responses); err != nil {
			return nil, err
		}
	}

	if a.Status == db.AssignmentStatusPending {
		if a, err = s.start(ctx, a); err != nil {
			return nil, err
		}
	}
	if !CanTransition(a.Status, db.AssignmentStatusCompleted) {
		return nil, &TransitionError{From: a.Status, To: db.AssignmentStatusCompleted}
	}

	updated, err := s.store.TransitionAssignment(ctx, a.ID, db.AssignmentStatusInProgress, db.AssignmentStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to complete assignment: %w", err)
	}
	if updated == nil {
		current, err := s.assignment(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == db.AssignmentStatusCompleted {
			return nil, ErrAssignmentCompleted
		}
		return nil, &TransitionError{From: current.Status, To: db.AssignmentStatusCompleted}
	}

	logging.FromContext(ctx).Info("assignment completed", zap.String("assignment_id", a.ID.String()))
	return updated, nil
}

func lastAnswered(questions []db.Question, responses []db.Response) error {
	last := questions[len(questions)-1]
	for i := range responses {
		if responses[i].QuestionID != last.ID {
			continue
		}
		if err := ValidateAnswer(&last, responses[i].Data); err != nil {
			return fmt.Errorf("%w: %v", ErrIncomplete, err)
		}
		return nil
	}
	return ErrIncomplete
}
