package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/interview-manager/internal/db"
	"golang.org/x/sync/errgroup"
)

// Snapshot is the data a dashboard is computed from
type Snapshot struct {
	Candidates  []db.Profile
	Interviews  []db.Interview
	Assignments []db.Assignment
	Responses   []db.Response
}

// Trend compares this month with the previous one
type Trend struct {
	Current  int `json:"current"`
	Previous int `json:"previous"`
	Change   int `json:"change"`
}

func newTrend(times []time.Time, now time.Time) Trend {
	c, p := monthCounts(times, now)
	return Trend{Current: c, Previous: p, Change: MonthOverMonthChange(c, p)}
}

// Dashboard is the admin overview
type Dashboard struct {
	TotalInterviews      int             `json:"total_interviews"`
	TotalCandidates      int             `json:"total_candidates"`
	TotalAssignments     int             `json:"total_assignments"`
	CompletedAssignments int             `json:"completed_assignments"`
	CompletionRate       int             `json:"completion_rate"`
	AvgResponseTimeHours int             `json:"avg_response_time_hours"`
	CompletedToday       int             `json:"completed_today"`
	Assignments          Trend           `json:"assignments_trend"`
	Completions          Trend           `json:"completions_trend"`
	Status               StatusCounts    `json:"status_distribution"`
	TopInterviews        []InterviewStat `json:"top_interviews"`
	TopCandidates        []CandidateStat `json:"top_candidates"`
	DailyActivity        []DayActivity   `json:"daily_activity"`
	GeneratedAt          time.Time       `json:"generated_at"`
}

// Build computes the dashboard for now
func Build(s Snapshot, now time.Time) Dashboard {
	responses := db.CurrentResponses(s.Responses)
	status := StatusDistribution(s.Assignments)

	assignedTimes := make([]time.Time, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		assignedTimes = append(assignedTimes, a.AssignedAt)
	}
	var completedTimes []time.Time
	for _, a := range s.Assignments {
		if t, ok := CompletionDate(a, responses); ok {
			completedTimes = append(completedTimes, t)
		}
	}

	return Dashboard{
		TotalInterviews:      len(s.Interviews),
		TotalCandidates:      len(s.Candidates),
		TotalAssignments:     len(s.Assignments),
		CompletedAssignments: status.Completed,
		CompletionRate:       CompletionRate(status.Completed, len(s.Assignments)),
		AvgResponseTimeHours: AvgResponseTimeHours(s.Assignments, responses),
		CompletedToday:       CompletedToday(s.Assignments, responses, now),
		Assignments:          newTrend(assignedTimes, now),
		Completions:          newTrend(completedTimes, now),
		Status:               status,
		TopInterviews:        TopInterviews(s.Interviews, s.Assignments),
		TopCandidates:        TopCandidates(s.Candidates, s.Assignments),
		DailyActivity:        DailyActivity(s.Assignments, responses, now),
		GeneratedAt:          now.UTC(),
	}
}

// Source is the store a snapshot is read from
type Source interface {
	ListProfiles(ctx context.Context, role string) ([]db.Profile, error)
	ListInterviews(ctx context.Context) ([]db.Interview, error)
	ListAssignments(ctx context.Context, filter db.AssignmentFilter) ([]db.Assignment, error)
	ListAllResponses(ctx context.Context) ([]db.Response, error)
}

// LoadSnapshot fetches the four collections concurrently. Any failure cancels the
// rest and is returned alone.
func LoadSnapshot(ctx context.Context, src Source) (*Snapshot, error) {
	var s Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if s.Candidates, err = src.ListProfiles(ctx, db.RoleCandidate); err != nil {
			return fmt.Errorf("failed to load candidates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if s.Interviews, err = src.ListInterviews(ctx); err != nil {
			return fmt.Errorf("failed to load interviews: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if s.Assignments, err = src.ListAssignments(ctx, db.AssignmentFilter{}); err != nil {
			return fmt.Errorf("failed to load assignments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if s.Responses, err = src.ListAllResponses(ctx); err != nil {
			return fmt.Errorf("failed to load responses: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a snapshot and builds the dashboard. No partial dashboard is returned.
func Load(ctx context.Context, src Source, now time.Time) (*Dashboard, error) {
	s, err := LoadSnapshot(ctx, src)
	if err != nil {
		return nil, err
	}
	d := Build(*s, now)
	return &d, nil
}
