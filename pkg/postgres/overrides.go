package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

const overrideColumns = `
	id, assignment_id, covering_member_id, original_member_name, covering_member_name,
	reason, status, created_by, created_at, updated_at, cancelled_at, completed_at`

func scanOverride(row pgx.Row) (*db.Override, error) {
	var o db.Override
	err := row.Scan(
		&o.ID, &o.AssignmentID, &o.CoveringMemberID, &o.OriginalMemberName, &o.CoveringMemberName,
		&o.Reason, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.CancelledAt, &o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOverride retrieves a single override by id. Returns nil when it does
// not exist.
func (d *DB) GetOverride(ctx context.Context, id string) (*db.Override, error) {
	o, err := scanOverride(d.pool.QueryRow(ctx,
		`SELECT`+overrideColumns+` FROM overrides WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query override: %w", err)
	}
	return o, nil
}

// GetActiveOverrideForAssignment retrieves the active override covering an
// assignment, if any
func (d *DB) GetActiveOverrideForAssignment(ctx context.Context, assignmentID string) (*db.Override, error) {
	o, err := scanOverride(d.pool.QueryRow(ctx,
		`SELECT`+overrideColumns+` FROM overrides WHERE assignment_id = $1 AND status = $2`,
		assignmentID, db.OverrideActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active override: %w", err)
	}
	return o, nil
}

// InsertOverride inserts an override record
func (d *DB) InsertOverride(ctx context.Context, override *db.Override) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO overrides (id, assignment_id, covering_member_id, original_member_name,
			covering_member_name, reason, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, override.ID, override.AssignmentID, override.CoveringMemberID, override.OriginalMemberName,
		override.CoveringMemberName, override.Reason, override.Status, override.CreatedBy,
		override.CreatedAt, override.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert override: %w", err)
	}
	return nil
}

// MarkOverrideCancelled cancels an active override
func (d *DB) MarkOverrideCancelled(ctx context.Context, id string, at time.Time) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE overrides
		SET status = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
	`, id, db.OverrideCancelled, at, db.OverrideActive)
	if err != nil {
		return fmt.Errorf("failed to cancel override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active override %s not found", id)
	}
	return nil
}

// CompletePastOverrides marks active overrides whose assignments have ended
// as completed and returns how many were updated
func (d *DB) CompletePastOverrides(ctx context.Context, now time.Time) (int64, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE overrides o
		SET status = $1, completed_at = $2, updated_at = $2
		FROM assignments a
		WHERE o.assignment_id = a.id AND o.status = $3 AND a.end_at < $2
	`, db.OverrideCompleted, now, db.OverrideActive)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past overrides: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListOverrides retrieves overrides newest first, optionally filtered by
// status, along with the total count for the filter
func (d *DB) ListOverrides(ctx context.Context, status string, limit, offset int) ([]db.Override, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM overrides`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count overrides: %w", err)
	}

	query := `SELECT` + overrideColumns + ` FROM overrides` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var overrides []db.Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan override: %w", err)
		}
		overrides = append(overrides, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating overrides: %w", err)
	}

	return overrides, total, nil
}
