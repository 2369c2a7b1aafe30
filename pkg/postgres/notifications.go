package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// InsertNotificationRecord appends a delivery attempt to the notification log
func (d *DB) InsertNotificationRecord(ctx context.Context, record *db.NotificationRecord) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO notification_log (id, assignment_id, recipient_name, recipient_phone,
			status, provider_id, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.ID, record.AssignmentID, record.RecipientName, record.RecipientPhone,
		record.Status, record.ProviderID, record.ErrorMessage, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification record: %w", err)
	}
	return nil
}

// GetNotificationRetryCount returns how many failed delivery attempts have
// been logged for an assignment
func (d *DB) GetNotificationRetryCount(ctx context.Context, assignmentID string) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notification_log
		WHERE assignment_id = $1 AND status = $2
	`, assignmentID, db.NotificationFailed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed notifications: %w", err)
	}
	return count, nil
}

// GetNotificationsByAssignment retrieves an assignment's delivery attempts
// newest first
func (d *DB) GetNotificationsByAssignment(ctx context.Context, assignmentID string) ([]db.NotificationRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, assignment_id, recipient_name, recipient_phone, status, provider_id, error_message, created_at
		FROM notification_log
		WHERE assignment_id = $1
		ORDER BY created_at DESC
	`, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var records []db.NotificationRecord
	for rows.Next() {
		var r db.NotificationRecord
		if err := rows.Scan(&r.ID, &r.AssignmentID, &r.RecipientName, &r.RecipientPhone,
			&r.Status, &r.ProviderID, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification records: %w", err)
	}

	return records, nil
}

// UpdateNotificationStatus updates the delivery status of the record matching
// a provider message id, used by delivery status callbacks
func (d *DB) UpdateNotificationStatus(ctx context.Context, providerID, status, errorMessage string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE notification_log SET status = $2, error_message = $3 WHERE provider_id = $1
	`, providerID, status, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification with provider id %s not found", providerID)
	}
	return nil
}

// GetNotificationSuccessRate returns the fraction of attempts since the given
// time that were sent or delivered. Returns 1 when there are no attempts.
func (d *DB) GetNotificationSuccessRate(ctx context.Context, since time.Time) (float64, error) {
	var total, succeeded int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status IN ($2, $3))
		FROM notification_log
		WHERE created_at >= $1
	`, since, db.NotificationSent, db.NotificationDelivered).Scan(&total, &succeeded)
	if err != nil {
		return 0, fmt.Errorf("failed to query notification success rate: %w", err)
	}
	if total == 0 {
		return 1, nil
	}
	return float64(succeeded) / float64(total), nil
}
