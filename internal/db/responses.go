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
// Response Methods
// -----------------------------------------------------------------------------

const responseColumns = `id, assignment_id, question_id, data, processing_status, created_at, updated_at`

func scanResponse(row pgx.Row) (*Response, error) {
	var r Response
	var data []byte
	if err := row.Scan(&r.ID, &r.AssignmentID, &r.QuestionID, &data, &r.ProcessingStatus, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Data = json.RawMessage(data)
	return &r, nil
}

// UpsertResponse stores the answer for (assignment, question). An existing row has its
// data, processing_status and updated_at replaced; otherwise a new row is inserted.
// Concurrent calls resolve last-write-wins at the row level.
func (db *DB) UpsertResponse(ctx context.Context, assignmentID, questionID uuid.UUID, data json.RawMessage, processingStatus *string) (*Response, error) {
	r, err := scanResponse(db.pool.QueryRow(ctx,
		`INSERT INTO responses (assignment_id, question_id, data, processing_status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (assignment_id, question_id) DO UPDATE
		 SET data = EXCLUDED.data,
		     processing_status = EXCLUDED.processing_status,
		     updated_at = clock_timestamp()
		 RETURNING `+responseColumns,
		assignmentID, questionID, []byte(data), processingStatus))
	if err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}
	return r, nil
}

// GetResponse retrieves a response by ID
func (db *DB) GetResponse(ctx context.Context, id uuid.UUID) (*Response, error) {
	r, err := scanResponse(db.pool.QueryRow(ctx,
		`SELECT `+responseColumns+` FROM responses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	return r, nil
}

// ListResponses lists the current responses of one assignment
func (db *DB) ListResponses(ctx context.Context, assignmentID uuid.UUID) ([]Response, error) {
	return db.queryResponses(ctx,
		`SELECT DISTINCT ON (question_id) `+responseColumns+`
		 FROM responses WHERE assignment_id = $1
		 ORDER BY question_id, updated_at DESC`, assignmentID)
}

// ListAllResponses lists every current response, oldest first
func (db *DB) ListAllResponses(ctx context.Context) ([]Response, error) {
	responses, err := db.queryResponses(ctx,
		`SELECT `+responseColumns+` FROM responses ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return CurrentResponses(responses), nil
}

func (db *DB) queryResponses(ctx context.Context, query string, args ...any) ([]Response, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, *r)
	}
	return responses, rows.Err()
}

// ApplyProcessingResult merges the fields of patch into the response data and sets
// processing_status, provided the stored answer is still the recording of jobID.
// It returns ErrStaleResult when the answer has been re-recorded since.
func (db *DB) ApplyProcessingResult(ctx context.Context, id, jobID uuid.UUID, status string, patch map[string]any) error {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal processing result: %w", err)
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE responses
		 SET data = data || $2::jsonb, processing_status = $3, updated_at = clock_timestamp()
		 WHERE id = $1 AND data->>'job_id' = $4`,
		id, patchJSON, status, jobID.String())
	if err != nil {
		return fmt.Errorf("failed to apply processing result: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM responses WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check response: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: response %s job %s", ErrStaleResult, id, jobID)
	}
	return fmt.Errorf("response not found: %s", id)
}
