package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Assignment Methods
// -----------------------------------------------------------------------------

const assignmentColumns = `id, interview_id, user_id, status, assigned_at, completed_at`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	if err := row.Scan(&a.ID, &a.InterviewID, &a.UserID, &a.Status, &a.AssignedAt, &a.CompletedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAssignments inserts one pending assignment per user in a single transaction.
// The returned slice follows the order of userIDs.
func (db *DB) CreateAssignments(ctx context.Context, interviewID uuid.UUID, userIDs []uuid.UUID) ([]Assignment, error) {
	created := make([]Assignment, 0, len(userIDs))
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		for _, userID := range userIDs {
			a, err := scanAssignment(tx.QueryRow(ctx,
				`INSERT INTO assignments (interview_id, user_id, status)
				 VALUES ($1, $2, 'pending')
				 RETURNING `+assignmentColumns,
				interviewID, userID))
			if err != nil {
				return fmt.Errorf("failed to create assignment for user %s: %w", userID, err)
			}
			created = append(created, *a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetAssignment retrieves an assignment by ID
func (db *DB) GetAssignment(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	a, err := scanAssignment(db.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// ListAssignments lists assignments matching the filter, oldest first
func (db *DB) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE TRUE`
	args := []any{}
	argPos := 1

	if filter.InterviewID != nil {
		query += fmt.Sprintf(" AND interview_id = $%d", argPos)
		args = append(args, *filter.InterviewID)
		argPos++
	}
	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argPos)
		args = append(args, *filter.UserID)
		argPos++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *filter.Status)
	}
	query += " ORDER BY assigned_at, id"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// TransitionAssignment moves an assignment from one status to another in a single
// conditional UPDATE. completed_at is written in the same statement when the target
// is completed. It returns (nil, nil) when the row is not in status `from`, leaving
// the caller to decide whether that is a no-op or a conflict.
func (db *DB) TransitionAssignment(ctx context.Context, id uuid.UUID, from, to string) (*Assignment, error) {
	a, err := scanAssignment(db.pool.QueryRow(ctx,
		`UPDATE assignments
		 SET status = $3,
		     completed_at = CASE WHEN $3 = 'completed' THEN NOW() ELSE completed_at END
		 WHERE id = $1 AND status = $2
		 RETURNING `+assignmentColumns,
		id, from, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to transition assignment: %w", err)
	}
	return a, nil
}
