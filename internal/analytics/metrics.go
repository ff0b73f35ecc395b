// Package analytics derives the admin dashboard from assignments, responses,
// interviews and profiles already loaded into memory.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/db"
)

// TopN is the length of every ranking
const TopN = 5

// ActivityDays is the number of trailing days in DailyActivity, today included
const ActivityDays = 7

const dateLayout = "2006-01-02"

// round rounds half up, so -2.5 becomes -2 rather than -3.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// CompletionRate returns completed/total as a whole percentage, 0 when total is 0.
func CompletionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return round(float64(completed) / float64(total) * 100)
}

// MonthOverMonthChange returns the percentage change from previous to current.
// From zero it is 100 when anything happened this month and 0 otherwise.
func MonthOverMonthChange(current, previous int) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return round(float64(current-previous) / float64(previous) * 100)
}

// AvgResponseTimeHours averages, over responses whose assignment is known, the hours
// from assignment to response. Non-positive samples are discarded; 0 without samples.
func AvgResponseTimeHours(assignments []db.Assignment, responses []db.Response) int {
	assignedAt := make(map[uuid.UUID]time.Time, len(assignments))
	for _, a := range assignments {
		if !a.AssignedAt.IsZero() {
			assignedAt[a.ID] = a.AssignedAt
		}
	}

	var sum float64
	var n int
	for _, r := range responses {
		start, ok := assignedAt[r.AssignmentID]
		if !ok {
			continue
		}
		hours := math.Max(0, r.CreatedAt.Sub(start).Hours())
		if hours <= 0 {
			continue
		}
		sum += hours
		n++
	}
	if n == 0 {
		return 0
	}
	return round(sum / float64(n))
}

// InferredCompletionDate returns the latest response creation time of an assignment.
// Rows completed before completed_at was recorded are dated this way.
func InferredCompletionDate(assignmentID uuid.UUID, responses []db.Response) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, r := range responses {
		if r.AssignmentID != assignmentID {
			continue
		}
		if !found || r.CreatedAt.After(latest) {
			latest = r.CreatedAt
			found = true
		}
	}
	return latest, found
}

// CompletionDate returns when a completed assignment was completed: completed_at when
// present, the inferred date otherwise. ok is false for unfinished assignments.
func CompletionDate(a db.Assignment, responses []db.Response) (time.Time, bool) {
	if a.Status != db.AssignmentStatusCompleted {
		return time.Time{}, false
	}
	if a.CompletedAt != nil {
		return *a.CompletedAt, true
	}
	return InferredCompletionDate(a.ID, responses)
}

func utcDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// completionDates maps each completed assignment to its UTC completion date
func completionDates(assignments []db.Assignment, responses []db.Response) map[uuid.UUID]string {
	byAssignment := make(map[uuid.UUID][]db.Response)
	for _, r := range responses {
		byAssignment[r.AssignmentID] = append(byAssignment[r.AssignmentID], r)
	}
	out := make(map[uuid.UUID]string)
	for _, a := range assignments {
		if t, ok := CompletionDate(a, byAssignment[a.ID]); ok {
			out[a.ID] = utcDate(t)
		}
	}
	return out
}

// CompletedToday counts completed assignments whose completion date is today (UTC).
func CompletedToday(assignments []db.Assignment, responses []db.Response, now time.Time) int {
	today := utcDate(now)
	n := 0
	for _, d := range completionDates(assignments, responses) {
		if d == today {
			n++
		}
	}
	return n
}

// StatusCounts is the distribution of assignment statuses
type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// StatusDistribution counts assignments per status. Unknown statuses are not counted.
func StatusDistribution(assignments []db.Assignment) StatusCounts {
	var c StatusCounts
	for _, a := range assignments {
		switch a.Status {
		case db.AssignmentStatusPending:
			c.Pending++
		case db.AssignmentStatusInProgress:
			c.InProgress++
		case db.AssignmentStatusCompleted:
			c.Completed++
		}
	}
	return c
}

// InterviewStat ranks an interview
type InterviewStat struct {
	InterviewID    uuid.UUID `json:"interview_id"`
	Name           string    `json:"name"`
	Assigned       int       `json:"assigned"`
	Completed      int       `json:"completed"`
	CompletionRate int       `json:"completion_rate"`
}

// TopInterviews ranks interviews by completion rate. Ties keep the order of interviews.
func TopInterviews(interviews []db.Interview, assignments []db.Assignment) []InterviewStat {
	assigned := map[uuid.UUID]int{}
	completed := map[uuid.UUID]int{}
	for _, a := range assignments {
		assigned[a.InterviewID]++
		if a.Status == db.AssignmentStatusCompleted {
			completed[a.InterviewID]++
		}
	}

	stats := make([]InterviewStat, 0, len(interviews))
	for _, iv := range interviews {
		stats = append(stats, InterviewStat{
			InterviewID:    iv.ID,
			Name:           iv.Name,
			Assigned:       assigned[iv.ID],
			Completed:      completed[iv.ID],
			CompletionRate: CompletionRate(completed[iv.ID], assigned[iv.ID]),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].CompletionRate > stats[j].CompletionRate })
	return truncate(stats)
}

// CandidateStat ranks a candidate
type CandidateStat struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Assigned  int       `json:"assigned"`
	Completed int       `json:"completed"`
}

// TopCandidates ranks candidate profiles by completed assignments. Ties keep the
// order of profiles.
func TopCandidates(profiles []db.Profile, assignments []db.Assignment) []CandidateStat {
	assigned := map[uuid.UUID]int{}
	completed := map[uuid.UUID]int{}
	for _, a := range assignments {
		assigned[a.UserID]++
		if a.Status == db.AssignmentStatusCompleted {
			completed[a.UserID]++
		}
	}

	stats := make([]CandidateStat, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		if p.Role != db.RoleCandidate {
			continue
		}
		stats = append(stats, CandidateStat{
			UserID:    p.ID,
			Name:      p.DisplayName(),
			Email:     p.Email,
			Assigned:  assigned[p.ID],
			Completed: completed[p.ID],
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Completed > stats[j].Completed })
	return truncate(stats)
}

func truncate[T any](s []T) []T {
	if len(s) > TopN {
		return s[:TopN]
	}
	return s
}

// DayActivity is one day of the activity chart
type DayActivity struct {
	Date      string `json:"date"`
	Assigned  int    `json:"assigned"`
	Completed int    `json:"completed"`
}

// DailyActivity returns the trailing ActivityDays UTC days ending today, oldest first,
// with assignments counted by assigned_at and completions by completion date.
func DailyActivity(assignments []db.Assignment, responses []db.Response, now time.Time) []DayActivity {
	today := now.UTC().Truncate(24 * time.Hour)
	days := make([]DayActivity, ActivityDays)
	index := make(map[string]int, ActivityDays)
	for i := range days {
		d := utcDate(today.AddDate(0, 0, i-(ActivityDays-1)))
		days[i].Date = d
		index[d] = i
	}

	for _, a := range assignments {
		if i, ok := index[utcDate(a.AssignedAt)]; ok {
			days[i].Assigned++
		}
	}
	for _, d := range completionDates(assignments, responses) {
		if i, ok := index[d]; ok {
			days[i].Completed++
		}
	}
	return days
}

// monthCounts returns how many times fall in now's UTC month and in the month before
func monthCounts(times []time.Time, now time.Time) (current, previous int) {
	n := now.UTC()
	thisMonth := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	nextMonth := thisMonth.AddDate(0, 1, 0)
	for _, t := range times {
		t = t.UTC()
		switch {
		case !t.Before(thisMonth) && t.Before(nextMonth):
			current++
		case !t.Before(lastMonth) && t.Before(thisMonth):
			previous++
		}
	}
	return current, previous
}
