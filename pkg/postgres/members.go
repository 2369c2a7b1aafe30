package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// GetMember retrieves a single team member by id. Returns nil when the
// member does not exist.
func (d *DB) GetMember(ctx context.Context, id string) (*db.Member, error) {
	var m db.Member
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, phone, secondary_phone, active, rotation_order, created_at
		FROM team_members
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Phone, &m.SecondaryPhone, &m.Active, &m.RotationOrder, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query member: %w", err)
	}
	return &m, nil
}

// GetActiveMembers retrieves active team members in rotation order
func (d *DB) GetActiveMembers(ctx context.Context) ([]db.Member, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, phone, secondary_phone, active, rotation_order, created_at
		FROM team_members
		WHERE active = TRUE
		ORDER BY rotation_order NULLS LAST, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active members: %w", err)
	}
	defer rows.Close()

	var members []db.Member
	for rows.Next() {
		var m db.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone, &m.SecondaryPhone, &m.Active, &m.RotationOrder, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// InsertMember inserts a team member record
func (d *DB) InsertMember(ctx context.Context, member *db.Member) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO team_members (id, name, phone, secondary_phone, active, rotation_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, member.ID, member.Name, member.Phone, member.SecondaryPhone, member.Active, member.RotationOrder, member.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// SetMemberActive updates a member's active flag
func (d *DB) SetMemberActive(ctx context.Context, id string, active bool) error {
	tag, err := d.pool.Exec(ctx, `UPDATE team_members SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update member active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %s not found", id)
	}
	return nil
}

// SetRotationOrder updates a single member's rotation position. A nil order
// removes the member from the rotation.
func (d *DB) SetRotationOrder(ctx context.Context, id string, order *int) error {
	tag, err := d.pool.Exec(ctx, `UPDATE team_members SET rotation_order = $2 WHERE id = $1`, id, order)
	if err != nil {
		return fmt.Errorf("failed to update rotation order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %s not found", id)
	}
	return nil
}

// UpdateRotationOrders applies a set of rotation positions in one transaction
func (d *DB) UpdateRotationOrders(ctx context.Context, orders map[string]int) error {
	if len(orders) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for id, order := range orders {
		_, err := tx.Exec(ctx, `UPDATE team_members SET rotation_order = $2 WHERE id = $1`, id, order)
		if err != nil {
			return fmt.Errorf("failed to update rotation order for %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// MaxRotationOrder returns the highest rotation position among active members.
// The second return is false when no active member holds a position.
func (d *DB) MaxRotationOrder(ctx context.Context) (int, bool, error) {
	var max *int
	err := d.pool.QueryRow(ctx, `
		SELECT MAX(rotation_order) FROM team_members WHERE active = TRUE
	`).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query max rotation order: %w", err)
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}
