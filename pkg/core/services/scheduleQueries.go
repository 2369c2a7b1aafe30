package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jakechorley/whoseonfirst/pkg/core/rotation"
	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// ErrInvalidDateRange indicates a query range whose end precedes its start
var ErrInvalidDateRange = errors.New("end date must not precede start date")

// ScheduleQueryStore defines the database operations needed for schedule queries
type ScheduleQueryStore interface {
	GetAssignmentsByDateRange(ctx context.Context, start, end time.Time) ([]db.Assignment, error)
	GetAssignmentsByMember(ctx context.Context, memberID string, start, end *time.Time) ([]db.Assignment, error)
	GetNextAssignmentForMember(ctx context.Context, memberID string, after time.Time) (*db.Assignment, error)
	GetPendingAssignments(ctx context.Context, dayStart, dayEnd time.Time) ([]db.Assignment, error)
}

// CurrentWeekSchedule retrieves the assignments for the week containing now
func CurrentWeekSchedule(ctx context.Context, database ScheduleQueryStore, now time.Time) ([]db.Assignment, error) {
	start := rotation.WeekStart(now)
	return ScheduleByDateRange(ctx, database, start, start.AddDate(0, 0, 7))
}

// UpcomingSchedules retrieves assignments from now through the given number
// of weeks ahead
func UpcomingSchedules(ctx context.Context, database ScheduleQueryStore, now time.Time, weeks int) ([]db.Assignment, error) {
	if weeks < 1 {
		weeks = 1
	}
	return ScheduleByDateRange(ctx, database, now, now.AddDate(0, 0, 7*weeks))
}

// ScheduleByDateRange retrieves assignments overlapping [start, end)
func ScheduleByDateRange(ctx context.Context, database ScheduleQueryStore, start, end time.Time) ([]db.Assignment, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidDateRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	assignments, err := database.GetAssignmentsByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}
	return assignments, nil
}

// ScheduleByMember retrieves a member's assignments, optionally bounded
func ScheduleByMember(ctx context.Context, database ScheduleQueryStore, memberID string, start, end *time.Time) ([]db.Assignment, error) {
	if start != nil && end != nil && end.Before(*start) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidDateRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	assignments, err := database.GetAssignmentsByMember(ctx, memberID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member assignments: %w", err)
	}
	return assignments, nil
}

// NextAssignmentForMember retrieves a member's next assignment after now.
// Returns nil when the member has nothing scheduled.
func NextAssignmentForMember(ctx context.Context, database ScheduleQueryStore, memberID string, now time.Time) (*db.Assignment, error) {
	assignment, err := database.GetNextAssignmentForMember(ctx, memberID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next assignment: %w", err)
	}
	return assignment, nil
}

// PendingNotifications retrieves un-notified assignments starting on the
// calendar day containing the given time
func PendingNotifications(ctx context.Context, database ScheduleQueryStore, day time.Time) ([]db.Assignment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	assignments, err := database.GetPendingAssignments(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending assignments: %w", err)
	}
	return assignments, nil
}
