package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/pkg/core/rotation"
	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// ErrScheduleExists indicates assignments already exist in the requested
// window and force was not set
var ErrScheduleExists = errors.New("schedule already exists for the requested period")

// GenerateResult summarizes a schedule generation run
type GenerateResult struct {
	Assignments []db.Assignment
	Deleted     int64
	StartDate   time.Time
	Weeks       int
}

// GenerateScheduleStore defines the database operations needed for schedule generation
type GenerateScheduleStore interface {
	GetActiveMembers(ctx context.Context) ([]db.Member, error)
	GetShiftsOrdered(ctx context.Context) ([]db.Shift, error)
	GetAssignmentsByDateRange(ctx context.Context, start, end time.Time) ([]db.Assignment, error)
	InsertAssignments(ctx context.Context, assignments []db.Assignment) error
	DeleteAssignmentsFrom(ctx context.Context, from time.Time) (int64, error)
}

// GenerateSchedule builds and persists assignments for the given window.
// When force is false, any existing assignment overlapping the window aborts
// the run with ErrScheduleExists. When force is true, assignments from the
// normalized start date onward are deleted and regenerated; earlier history
// is never touched. The existence check and the insert are separate
// statements, so concurrent generation runs can both pass the check - callers
// are expected to serialize generation.
func GenerateSchedule(
	ctx context.Context,
	database GenerateScheduleStore,
	logger *zap.Logger,
	startDate time.Time,
	weeks int,
	force bool,
) (*GenerateResult, error) {
	logger.Debug("Starting generateSchedule",
		zap.Time("start_date", startDate),
		zap.Int("weeks", weeks),
		zap.Bool("force", force))

	// Step 1: Fetch active members in rotation order
	members, err := database.GetActiveMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active members: %w", err)
	}
	logger.Debug("Found active members", zap.Int("count", len(members)))

	// Step 2: Fetch shift definitions
	shifts, err := database.GetShiftsOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shifts: %w", err)
	}
	logger.Debug("Found shifts", zap.Int("count", len(shifts)))

	// Step 3: Build the rotation drafts
	drafts, err := rotation.Generate(members, shifts, startDate, weeks)
	if err != nil {
		return nil, err
	}

	windowStart := rotation.WeekStart(startDate)
	windowEnd := windowStart.AddDate(0, 0, 7*weeks)

	// Step 4: Check for assignments starting in the window. The range query
	// also returns rows spilling in from the week before; those are history,
	// not conflicts, and the delete below leaves them alone too.
	overlapping, err := database.GetAssignmentsByDateRange(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing assignments: %w", err)
	}
	existing := 0
	for _, a := range overlapping {
		if !a.StartAt.Before(windowStart) {
			existing++
		}
	}

	var deleted int64
	if existing > 0 {
		if !force {
			return nil, fmt.Errorf("%w: %d assignments between %s and %s",
				ErrScheduleExists, existing,
				windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"))
		}

		deleted, err = database.DeleteAssignmentsFrom(ctx, windowStart)
		if err != nil {
			return nil, fmt.Errorf("failed to delete existing assignments: %w", err)
		}
		logger.Info("Deleted existing assignments for regeneration", zap.Int64("count", deleted))
	}

	// Step 5: Assign ids and persist
	now := time.Now()
	for i := range drafts {
		drafts[i].ID = uuid.New().String()
		drafts[i].CreatedAt = now
	}

	if err := database.InsertAssignments(ctx, drafts); err != nil {
		return nil, fmt.Errorf("failed to insert assignments: %w", err)
	}

	logger.Info("Generated schedule",
		zap.Int("assignments", len(drafts)),
		zap.Time("window_start", windowStart),
		zap.Time("window_end", windowEnd))

	return &GenerateResult{
		Assignments: drafts,
		Deleted:     deleted,
		StartDate:   windowStart,
		Weeks:       weeks,
	}, nil
}

// RegenerateFrom rebuilds the schedule from the given date onward, replacing
// whatever exists there. Everything starting at or after the date is removed
// first, including assignments beyond the regenerated window, so a roster
// change never leaves stale future rows behind. Assignments before the date
// are preserved.
func RegenerateFrom(
	ctx context.Context,
	database GenerateScheduleStore,
	logger *zap.Logger,
	from time.Time,
	weeks int,
) (*GenerateResult, error) {
	deleted, err := database.DeleteAssignmentsFrom(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to delete assignments from %s: %w",
			from.Format("2006-01-02"), err)
	}
	logger.Info("Deleted future assignments for regeneration",
		zap.Int64("count", deleted),
		zap.Time("from", from))

	result, err := GenerateSchedule(ctx, database, logger, from, weeks, true)
	if err != nil {
		return nil, err
	}
	result.Deleted += deleted
	return result, nil
}
