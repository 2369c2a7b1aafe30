package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// GetShiftsOrdered retrieves all shift definitions ordered by shift number
func (d *DB) GetShiftsOrdered(ctx context.Context) ([]db.Shift, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, shift_number, day_of_week, duration_hours, start_time
		FROM shifts
		ORDER BY shift_number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []db.Shift
	for rows.Next() {
		var s db.Shift
		if err := rows.Scan(&s.ID, &s.ShiftNumber, &s.DayOfWeek, &s.DurationHours, &s.StartTime); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shifts: %w", err)
	}

	return shifts, nil
}

// InsertShift inserts a shift definition
func (d *DB) InsertShift(ctx context.Context, shift *db.Shift) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO shifts (id, shift_number, day_of_week, duration_hours, start_time)
		VALUES ($1, $2, $3, $4, $5)
	`, shift.ID, shift.ShiftNumber, shift.DayOfWeek, shift.DurationHours, shift.StartTime)
	if err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}
