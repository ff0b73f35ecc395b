// Package readstate remembers which notifications each user has read.
//
// Only the Cap most recently marked ids are kept per user; older marks are evicted
// and those notifications show as unread again.
package readstate

import (
	"context"

	"github.com/google/uuid"
)

// DefaultCap is the number of read marks kept per user
const DefaultCap = 200

// Store tracks read notification ids per user
type Store interface {
	MarkRead(ctx context.Context, userID uuid.UUID, notificationID string) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, notificationIDs []string) error
	// ReadSet reports, for each of ids, whether it is marked read. Unread ids map to false.
	ReadSet(ctx context.Context, userID uuid.UUID, ids []string) (map[string]bool, error)
}

func normalizeCap(n int) int {
	if n < 1 {
		return DefaultCap
	}
	return n
}
