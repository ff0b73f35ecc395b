// Package lifecycle implements the assignment state machine and answer recording.
package lifecycle

import "github.com/jonathan/interview-manager/internal/db"

// forward lists the single allowed successor of each status
var forward = map[string]string{
	db.AssignmentStatusPending:    db.AssignmentStatusInProgress,
	db.AssignmentStatusInProgress: db.AssignmentStatusCompleted,
}

// IsValidStatus reports whether s is one of the three assignment statuses
func IsValidStatus(s string) bool {
	switch s {
	case db.AssignmentStatusPending, db.AssignmentStatusInProgress, db.AssignmentStatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether an assignment may move from one status to another.
// Only pending -> in_progress and in_progress -> completed are allowed, plus the
// identity, which callers treat as a no-op.
func CanTransition(from, to string) bool {
	if !IsValidStatus(from) || !IsValidStatus(to) {
		return false
	}
	return from == to || forward[from] == to
}
