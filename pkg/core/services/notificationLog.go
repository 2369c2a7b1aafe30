package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// StatusClient defines the operations needed to poll provider delivery status
type StatusClient interface {
	DeliveryStatus(ctx context.Context, providerID string) (string, error)
}

// NotificationLogStore defines the database operations needed for the
// delivery log
type NotificationLogStore interface {
	GetNotificationsByAssignment(ctx context.Context, assignmentID string) ([]db.NotificationRecord, error)
	UpdateNotificationStatus(ctx context.Context, providerID, status, errorMessage string) error
	GetNotificationSuccessRate(ctx context.Context, since time.Time) (float64, error)
}

// NotificationHistory retrieves an assignment's delivery attempts newest first
func NotificationHistory(ctx context.Context, database NotificationLogStore, assignmentID string) ([]db.NotificationRecord, error) {
	records, err := database.GetNotificationsByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification history: %w", err)
	}
	return records, nil
}

// RefreshDeliveryStatuses polls the provider for records still marked sent
// and writes back any final status. Returns how many records changed.
func RefreshDeliveryStatuses(
	ctx context.Context,
	database NotificationLogStore,
	client StatusClient,
	logger *zap.Logger,
	assignmentID string,
) (int, error) {
	records, err := database.GetNotificationsByAssignment(ctx, assignmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch notification history: %w", err)
	}

	updated := 0
	for _, record := range records {
		if record.Status != db.NotificationSent || record.ProviderID == "" {
			continue
		}

		status, err := client.DeliveryStatus(ctx, record.ProviderID)
		if err != nil {
			logger.Warn("Failed to poll delivery status",
				zap.String("provider_id", record.ProviderID),
				zap.Error(err))
			continue
		}

		switch status {
		case db.NotificationDelivered, db.NotificationFailed, db.NotificationUndelivered:
			if err := database.UpdateNotificationStatus(ctx, record.ProviderID, status, ""); err != nil {
				return updated, fmt.Errorf("failed to update notification status: %w", err)
			}
			updated++
			logger.Debug("Delivery status updated",
				zap.String("provider_id", record.ProviderID),
				zap.String("status", status))
		}
	}

	return updated, nil
}

// DeliverySuccessRate returns the fraction of delivery attempts since the
// given time that went out successfully
func DeliverySuccessRate(ctx context.Context, database NotificationLogStore, since time.Time) (float64, error) {
	rate, err := database.GetNotificationSuccessRate(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch success rate: %w", err)
	}
	return rate, nil
}
