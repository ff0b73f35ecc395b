package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Interview Methods
// -----------------------------------------------------------------------------

// CreateInterview inserts an interview together with its questions in one transaction.
// Questions are indexed 0..n-1 in the order given.
func (db *DB) CreateInterview(ctx context.Context, in *Interview, questions []QuestionInput) (*Interview, []Question, error) {
	var created Interview
	var saved []Question

	err := db.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO interviews (name, description, created_by)
			 VALUES ($1, $2, $3)
			 RETURNING id, name, description, created_by, created_at`,
			in.Name, in.Description, in.CreatedBy,
		).Scan(&created.ID, &created.Name, &created.Description, &created.CreatedBy, &created.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create interview: %w", err)
		}

		saved, err = insertQuestions(ctx, tx, created.ID, questions)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &created, saved, nil
}

// GetInterview retrieves an interview by ID
func (db *DB) GetInterview(ctx context.Context, id uuid.UUID) (*Interview, error) {
	var iv Interview
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, description, created_by, created_at FROM interviews WHERE id = $1`, id,
	).Scan(&iv.ID, &iv.Name, &iv.Description, &iv.CreatedBy, &iv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return &iv, nil
}

// ListInterviews lists all interviews, newest first
func (db *DB) ListInterviews(ctx context.Context) ([]Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, description, created_by, created_at
		 FROM interviews ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []Interview
	for rows.Next() {
		var iv Interview
		if err := rows.Scan(&iv.ID, &iv.Name, &iv.Description, &iv.CreatedBy, &iv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		interviews = append(interviews, iv)
	}
	return interviews, rows.Err()
}

// UpdateInterview updates name and description. When questions is non-nil the
// question list is synced to it in one transaction: entries carrying an ID update
// that question in place, entries without one are inserted, and stored questions
// missing from the list are deleted. Every question is re-indexed 0..n-1 in list
// order. Answered questions can be neither removed nor change type, so stored
// responses survive every edit.
func (db *DB) UpdateInterview(ctx context.Context, in *Interview, questions []QuestionInput) ([]Question, error) {
	var saved []Question
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE interviews SET name = $1, description = $2 WHERE id = $3`,
			in.Name, in.Description, in.ID)
		if err != nil {
			return fmt.Errorf("failed to update interview: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("interview not found: %s", in.ID)
		}
		if questions == nil {
			return nil
		}

		saved, err = syncQuestions(ctx, tx, in.ID, questions)
		return err
	})
	if err != nil {
		return nil, err
	}
	if questions == nil {
		return db.ListQuestions(ctx, in.ID)
	}
	return saved, nil
}

// DeleteInterview deletes an interview; questions, assignments and responses cascade
func (db *DB) DeleteInterview(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM interviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("interview not found: %s", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Question Methods
// -----------------------------------------------------------------------------

func marshalOptions(options []Option) ([]byte, error) {
	if len(options) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal options: %w", err)
	}
	return data, nil
}

func insertQuestions(ctx context.Context, tx pgx.Tx, interviewID uuid.UUID, questions []QuestionInput) ([]Question, error) {
	saved := make([]Question, 0, len(questions))
	for i, q := range questions {
		stored, err := insertQuestion(ctx, tx, interviewID, q, i)
		if err != nil {
			return nil, err
		}
		saved = append(saved, stored)
	}
	return saved, nil
}

func insertQuestion(ctx context.Context, tx pgx.Tx, interviewID uuid.UUID, q QuestionInput, index int) (Question, error) {
	optionsJSON, err := marshalOptions(q.Options)
	if err != nil {
		return Question{}, err
	}
	stored := Question{
		InterviewID:  interviewID,
		QuestionText: q.QuestionText,
		Type:         q.Type,
		Options:      q.Options,
		OrderIndex:   index,
	}
	if err := tx.QueryRow(ctx,
		`INSERT INTO questions (interview_id, question_text, type, options, order_index)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		interviewID, q.QuestionText, q.Type, optionsJSON, index,
	).Scan(&stored.ID); err != nil {
		return Question{}, fmt.Errorf("failed to insert question %d: %w", index, err)
	}
	return stored, nil
}

// QuestionState is what a question sync needs to know about a stored question
type QuestionState struct {
	Type     string
	Answered bool
}

// CheckQuestionSync validates a new question list against the stored questions of
// an interview. It returns the ids of stored questions the list drops.
func CheckQuestionSync(stored map[uuid.UUID]QuestionState, questions []QuestionInput) ([]uuid.UUID, error) {
	kept := make(map[uuid.UUID]bool, len(questions))
	for _, q := range questions {
		if q.ID == uuid.Nil {
			continue
		}
		existing, ok := stored[q.ID]
		if !ok || kept[q.ID] {
			return nil, fmt.Errorf("%w: %s", ErrForeignQuestion, q.ID)
		}
		if existing.Answered && existing.Type != q.Type {
			return nil, fmt.Errorf("%w: %s cannot change type", ErrQuestionAnswered, q.ID)
		}
		kept[q.ID] = true
	}

	var removed []uuid.UUID
	for id, existing := range stored {
		if kept[id] {
			continue
		}
		if existing.Answered {
			return nil, fmt.Errorf("%w: %s cannot be removed", ErrQuestionAnswered, id)
		}
		removed = append(removed, id)
	}
	return removed, nil
}

func syncQuestions(ctx context.Context, tx pgx.Tx, interviewID uuid.UUID, questions []QuestionInput) ([]Question, error) {
	rows, err := tx.Query(ctx,
		`SELECT q.id, q.type, EXISTS (SELECT 1 FROM responses r WHERE r.question_id = q.id)
		 FROM questions q WHERE q.interview_id = $1
		 FOR UPDATE OF q`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	stored := map[uuid.UUID]QuestionState{}
	for rows.Next() {
		var id uuid.UUID
		var sq QuestionState
		if err := rows.Scan(&id, &sq.Type, &sq.Answered); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		stored[id] = sq
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	removed, err := CheckQuestionSync(stored, questions)
	if err != nil {
		return nil, err
	}
	for _, id := range removed {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("failed to delete question %s: %w", id, err)
		}
	}

	// Move kept rows out of the 0..n-1 range so re-indexing cannot collide with
	// UNIQUE(interview_id, order_index).
	if _, err := tx.Exec(ctx,
		`UPDATE questions SET order_index = -order_index - 1 WHERE interview_id = $1`, interviewID); err != nil {
		return nil, fmt.Errorf("failed to re-index questions: %w", err)
	}

	saved := make([]Question, 0, len(questions))
	for i, q := range questions {
		if q.ID == uuid.Nil {
			stored, err := insertQuestion(ctx, tx, interviewID, q, i)
			if err != nil {
				return nil, err
			}
			saved = append(saved, stored)
			continue
		}

		optionsJSON, err := marshalOptions(q.Options)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE questions SET question_text = $2, type = $3, options = $4, order_index = $5
			 WHERE id = $1`,
			q.ID, q.QuestionText, q.Type, optionsJSON, i); err != nil {
			return nil, fmt.Errorf("failed to update question %s: %w", q.ID, err)
		}
		saved = append(saved, Question{
			ID:           q.ID,
			InterviewID:  interviewID,
			QuestionText: q.QuestionText,
			Type:         q.Type,
			Options:      q.Options,
			OrderIndex:   i,
		})
	}
	return saved, nil
}

// ListQuestions lists the questions of an interview in order_index order
func (db *DB) ListQuestions(ctx context.Context, interviewID uuid.UUID) ([]Question, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, interview_id, question_text, type, options, order_index
		 FROM questions WHERE interview_id = $1 ORDER BY order_index`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		var optionsJSON []byte
		if err := rows.Scan(&q.ID, &q.InterviewID, &q.QuestionText, &q.Type, &optionsJSON, &q.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if optionsJSON != nil {
			if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
				return nil, fmt.Errorf("failed to decode options of question %s: %w", q.ID, err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestion retrieves a question by ID
func (db *DB) GetQuestion(ctx context.Context, id uuid.UUID) (*Question, error) {
	var q Question
	var optionsJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, interview_id, question_text, type, options, order_index
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.InterviewID, &q.QuestionText, &q.Type, &optionsJSON, &q.OrderIndex)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if optionsJSON != nil {
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options of question %s: %w", q.ID, err)
		}
	}
	return &q, nil
}
