package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

const assignmentColumns = `
	a.id, a.member_id, a.shift_id, a.week_number, a.start_at, a.end_at,
	a.notified, a.notified_at, a.created_at,
	m.id, m.name, m.phone, m.secondary_phone, m.active, m.rotation_order, m.created_at,
	s.id, s.shift_number, s.day_of_week, s.duration_hours, s.start_time`

const assignmentJoins = `
	FROM assignments a
	JOIN team_members m ON m.id = a.member_id
	JOIN shifts s ON s.id = a.shift_id`

func scanAssignment(row pgx.Row) (*db.Assignment, error) {
	var a db.Assignment
	var m db.Member
	var s db.Shift
	err := row.Scan(
		&a.ID, &a.MemberID, &a.ShiftID, &a.WeekNumber, &a.StartAt, &a.EndAt,
		&a.Notified, &a.NotifiedAt, &a.CreatedAt,
		&m.ID, &m.Name, &m.Phone, &m.SecondaryPhone, &m.Active, &m.RotationOrder, &m.CreatedAt,
		&s.ID, &s.ShiftNumber, &s.DayOfWeek, &s.DurationHours, &s.StartTime,
	)
	if err != nil {
		return nil, err
	}
	a.Member = &m
	a.Shift = &s
	return &a, nil
}

func (d *DB) queryAssignments(ctx context.Context, query string, args ...any) ([]db.Assignment, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

// GetAssignment retrieves a single assignment with its member and shift.
// Returns nil when the assignment does not exist.
func (d *DB) GetAssignment(ctx context.Context, id string) (*db.Assignment, error) {
	a, err := scanAssignment(d.pool.QueryRow(ctx,
		`SELECT`+assignmentColumns+assignmentJoins+` WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}
	return a, nil
}

// GetAssignmentsByDateRange retrieves assignments overlapping [start, end)
// ordered by start time
func (d *DB) GetAssignmentsByDateRange(ctx context.Context, start, end time.Time) ([]db.Assignment, error) {
	return d.queryAssignments(ctx,
		`SELECT`+assignmentColumns+assignmentJoins+`
		WHERE a.start_at < $2 AND a.end_at > $1
		ORDER BY a.start_at`, start, end)
}

// GetAssignmentsByMember retrieves a member's assignments, optionally bounded
// by start and end times
func (d *DB) GetAssignmentsByMember(ctx context.Context, memberID string, start, end *time.Time) ([]db.Assignment, error) {
	query := `SELECT` + assignmentColumns + assignmentJoins + ` WHERE a.member_id = $1`
	args := []any{memberID}
	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(" AND a.end_at > $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(" AND a.start_at < $%d", len(args))
	}
	query += " ORDER BY a.start_at"
	return d.queryAssignments(ctx, query, args...)
}

// GetNextAssignmentForMember retrieves the member's first assignment starting
// after the given time. Returns nil when none exists.
func (d *DB) GetNextAssignmentForMember(ctx context.Context, memberID string, after time.Time) (*db.Assignment, error) {
	a, err := scanAssignment(d.pool.QueryRow(ctx,
		`SELECT`+assignmentColumns+assignmentJoins+`
		WHERE a.member_id = $1 AND a.start_at > $2
		ORDER BY a.start_at
		LIMIT 1`, memberID, after))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query next assignment: %w", err)
	}
	return a, nil
}

// GetPendingAssignments retrieves un-notified assignments starting within
// [dayStart, dayEnd)
func (d *DB) GetPendingAssignments(ctx context.Context, dayStart, dayEnd time.Time) ([]db.Assignment, error) {
	return d.queryAssignments(ctx,
		`SELECT`+assignmentColumns+assignmentJoins+`
		WHERE a.notified = FALSE AND a.start_at >= $1 AND a.start_at < $2
		ORDER BY a.start_at`, dayStart, dayEnd)
}

// InsertAssignments inserts assignment records in one transaction
func (d *DB) InsertAssignments(ctx context.Context, assignments []db.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range assignments {
		_, err := tx.Exec(ctx, `
			INSERT INTO assignments (id, member_id, shift_id, week_number, start_at, end_at, notified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, a.ID, a.MemberID, a.ShiftID, a.WeekNumber, a.StartAt, a.EndAt, a.Notified, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteAssignmentsFrom removes assignments starting at or after the given
// time and returns how many were removed
func (d *DB) DeleteAssignmentsFrom(ctx context.Context, from time.Time) (int64, error) {
	tag, err := d.pool.Exec(ctx, `DELETE FROM assignments WHERE start_at >= $1`, from)
	if err != nil {
		return 0, fmt.Errorf("failed to delete assignments: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkAssignmentNotified records that the shift-start notification succeeded
func (d *DB) MarkAssignmentNotified(ctx context.Context, id string, at time.Time) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE assignments SET notified = TRUE, notified_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark assignment notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s not found", id)
	}
	return nil
}

// FurthestAssignmentEnd returns the latest assignment end time. The second
// return is false when no assignments exist.
func (d *DB) FurthestAssignmentEnd(ctx context.Context) (time.Time, bool, error) {
	var end *time.Time
	err := d.pool.QueryRow(ctx, `SELECT MAX(end_at) FROM assignments`).Scan(&end)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query furthest assignment end: %w", err)
	}
	if end == nil {
		return time.Time{}, false, nil
	}
	return *end, true, nil
}
