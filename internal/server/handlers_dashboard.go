package server

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/jonathan/interview-manager/internal/analytics"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/server/middleware"
	"github.com/jonathan/interview-manager/internal/types"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// ---------------------------------------------------------------------
// Dashboard Handlers
// ---------------------------------------------------------------------

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := analytics.Load(r.Context(), s.store, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, dashboard)
}

// ---------------------------------------------------------------------
// Notification Handlers
//
// A notification is a completed assignment; its id is the assignment id. Read state
// lives in readstate, keyed by the admin's user id.
// ---------------------------------------------------------------------

// notifications returns the newest completed assignments, most recent first
func (s *Server) notifications(r *http.Request, limit int) ([]types.Notification, error) {
	ctx := r.Context()
	status := db.AssignmentStatusCompleted
	completed, err := s.store.ListAssignments(ctx, db.AssignmentFilter{Status: &status})
	if err != nil {
		return nil, err
	}

	when := func(a *db.Assignment) time.Time {
		if a.CompletedAt != nil {
			return *a.CompletedAt
		}
		return a.AssignedAt
	}
	sort.SliceStable(completed, func(i, j int) bool {
		return when(&completed[i]).After(when(&completed[j]))
	})
	if len(completed) > limit {
		completed = completed[:limit]
	}

	d, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.Notification, 0, len(completed))
	for i := range completed {
		a := &completed[i]
		n := types.Notification{
			ID:           a.ID.String(),
			AssignmentID: a.ID,
			CreatedAt:    when(a),
		}
		if p := d.profiles[a.UserID]; p != nil {
			n.CandidateName = p.DisplayName()
		}
		if iv := d.interviews[a.InterviewID]; iv != nil {
			n.InterviewName = iv.Name
		}
		n.Message = fmt.Sprintf("%s completed %s", n.CandidateName, n.InterviewName)
		out = append(out, n)
	}
	return out, nil
}

func notificationLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		return defaultNotificationLimit
	}
	return min(limit, maxNotificationLimit)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := s.notifications(r, notificationLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]string, len(items))
	for i, n := range items {
		ids[i] = n.ID
	}
	read, err := s.readState.ReadSet(r.Context(), userID, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list := types.NotificationList{Notifications: items}
	for i := range list.Notifications {
		list.Notifications[i].Read = read[list.Notifications[i].ID]
		if !list.Notifications[i].Read {
			list.Unread++
		}
	}
	s.jsonResponse(w, http.StatusOK, list)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.readState.MarkRead(r.Context(), userID, id.String()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMarkAllNotificationsRead marks every notification currently in the feed
func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := s.notifications(r, maxNotificationLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// oldest first so the newest end up as the most recent marks
	ids := make([]string, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		ids = append(ids, items[i].ID)
	}

	if err := s.readState.MarkAllRead(r.Context(), userID, ids); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
