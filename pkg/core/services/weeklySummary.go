package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// WeeklySummaryStore defines the database operations needed for the summary digest
type WeeklySummaryStore interface {
	GetMember(ctx context.Context, id string) (*db.Member, error)
	GetAssignmentsByDateRange(ctx context.Context, start, end time.Time) ([]db.Assignment, error)
	GetActiveOverrideForAssignment(ctx context.Context, assignmentID string) (*db.Override, error)
}

// digestHolder is who actually covers an assignment after override resolution
type digestHolder struct {
	name  string
	phone string
}

// ComposeWeeklySummary builds a one-message digest of the week starting at
// weekStart (a Monday). Each day shows who holds the shift with their phone
// number, with active overrides resolved to the covering member. The second
// day of a 48-hour shift is shown as a continuation without repeating the
// contact; days with no coverage are called out.
func ComposeWeeklySummary(ctx context.Context, database WeeklySummaryStore, weekStart time.Time) (string, error) {
	weekEnd := weekStart.AddDate(0, 0, 7)

	assignments, err := database.GetAssignmentsByDateRange(ctx, weekStart, weekEnd)
	if err != nil {
		return "", fmt.Errorf("failed to fetch week assignments: %w", err)
	}

	// Resolve who actually holds each assignment
	holders := make(map[string]digestHolder, len(assignments))
	for _, a := range assignments {
		holder := digestHolder{name: "unknown"}
		if a.Member != nil {
			holder = digestHolder{name: a.Member.Name, phone: a.Member.Phone}
		}
		override, err := database.GetActiveOverrideForAssignment(ctx, a.ID)
		if err != nil {
			return "", fmt.Errorf("failed to check override: %w", err)
		}
		if override != nil {
			holder = digestHolder{name: override.CoveringMemberName}
			covering, err := database.GetMember(ctx, override.CoveringMemberID)
			if err != nil {
				return "", fmt.Errorf("failed to fetch covering member: %w", err)
			}
			if covering != nil {
				holder.phone = covering.Phone
			}
		}
		holders[a.ID] = holder
	}

	var b strings.Builder
	fmt.Fprintf(&b, "On-call %s - %s:\n",
		weekStart.Format("Jan 2"), weekEnd.AddDate(0, 0, -1).Format("Jan 2"))

	for day := 0; day < 7; day++ {
		dayStart := weekStart.AddDate(0, 0, day)
		dayEnd := dayStart.AddDate(0, 0, 1)
		label := dayStart.Format("Mon")

		var line string
		for _, a := range assignments {
			if !a.StartAt.Before(dayStart) && a.StartAt.Before(dayEnd) {
				holder := holders[a.ID]
				line = holder.name
				if holder.phone != "" {
					line += " " + holder.phone
				}
				if a.EndAt.Sub(a.StartAt) >= 48*time.Hour {
					line += " (48h)"
				}
				break
			}
			// A multi-day shift owns this whole day; a shift merely
			// ending during the morning does not
			if a.StartAt.Before(dayStart) && a.EndAt.After(dayEnd) {
				line = holders[a.ID].name + " (continues)"
			}
		}
		if line == "" {
			line = "No assignment"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, line)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// SendWeeklySummary delivers the digest to the configured escalation
// contacts. Each contact gets a single attempt; the digest goes out again
// next week regardless, so failures are logged but not retried.
func SendWeeklySummary(ctx context.Context, dp *Dispatcher, logger *zap.Logger, body string) ([]SendOutcome, error) {
	contacts, err := dp.Settings.EscalationContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch escalation contacts: %w", err)
	}
	if len(contacts) == 0 {
		logger.Info("No escalation contacts configured, skipping summary send")
		return nil, nil
	}

	outcomes := make([]SendOutcome, 0, len(contacts))
	for _, contact := range contacts {
		providerID, status, err := dp.Client.Send(ctx, contact.Phone, body)
		outcome := SendOutcome{Recipient: contact.Name, Message: body, Attempts: 1}
		if err != nil {
			dp.record(ctx, logger, nil, contact.Name, contact.Phone, db.NotificationFailed, "", err.Error())
			outcome.Status = OutcomeFailed
			outcome.Err = err
			logger.Warn("Summary send failed",
				zap.String("contact", contact.Name),
				zap.Error(err))
		} else {
			if status == "" {
				status = db.NotificationSent
			}
			dp.record(ctx, logger, nil, contact.Name, contact.Phone, status, providerID, "")
			outcome.Success = true
			outcome.Status = OutcomeSent
			outcome.ProviderID = providerID
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}
