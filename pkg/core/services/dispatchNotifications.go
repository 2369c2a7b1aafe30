package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// Outcome status values
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeError   = "error"
)

// maxMessageLength is the single-segment SMS limit; longer messages are
// truncated rather than split
const maxMessageLength = 160

// MessageClient defines the operations needed to send SMS messages
type MessageClient interface {
	Send(ctx context.Context, to, body string) (providerID, status string, err error)
}

// Clock abstracts time for the retry backoff so tests can run without
// real delays
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// DispatchStore defines the database operations needed for notification dispatch
type DispatchStore interface {
	GetMember(ctx context.Context, id string) (*db.Member, error)
	GetActiveOverrideForAssignment(ctx context.Context, assignmentID string) (*db.Override, error)
	InsertNotificationRecord(ctx context.Context, record *db.NotificationRecord) error
	GetNotificationRetryCount(ctx context.Context, assignmentID string) (int, error)
	MarkAssignmentNotified(ctx context.Context, id string, at time.Time) error
}

// SendOutcome reports the result of dispatching one notification
type SendOutcome struct {
	AssignmentID string
	Recipient    string
	Success      bool
	Status       string
	ProviderID   string
	Message      string
	Attempts     int
	Err          error
}

// BatchResult aggregates the outcomes of a dispatch run
type BatchResult struct {
	Total      int
	Successful int
	Failed     int
	Skipped    int
	Outcomes   []SendOutcome
}

// Dispatcher sends shift-start notifications with retry, exponential backoff
// and override-aware recipient resolution. Every attempt is appended to the
// notification log, and the per-assignment log bounds retries across runs.
type Dispatcher struct {
	Store    DispatchStore
	Client   MessageClient
	Settings *Settings
	Logger   *zap.Logger
	Clock    Clock

	// MaxRetries bounds send attempts per destination per run and, via the
	// failed-attempt log, across runs for one assignment
	MaxRetries int
	// BaseDelay is the wait before the second attempt; it doubles each
	// further attempt
	BaseDelay time.Duration
}

// NewDispatcher builds a Dispatcher with a real clock
func NewDispatcher(store DispatchStore, client MessageClient, settings *Settings, logger *zap.Logger, maxRetries int, baseDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		Store:      store,
		Client:     client,
		Settings:   settings,
		Logger:     logger,
		Clock:      realClock{},
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
	}
}

// IsRetryable reports whether a send error is worth retrying. Errors that
// do not classify themselves are treated as permanent.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// SendShiftNotification notifies the on-call member that their shift has
// started. An active override redirects the message to the covering member.
// Already-notified assignments are skipped unless force is set. On success
// on either destination the assignment is marked notified.
func (dp *Dispatcher) SendShiftNotification(ctx context.Context, assignment *db.Assignment, force bool) SendOutcome {
	logger := dp.Logger.With(zap.String("assignment_id", assignment.ID))

	if assignment.Notified && !force {
		logger.Debug("Assignment already notified, skipping")
		return SendOutcome{AssignmentID: assignment.ID, Status: OutcomeSkipped}
	}

	// Step 1: Resolve the recipient, honouring any active override
	recipient, err := dp.resolveRecipient(ctx, assignment)
	if err != nil {
		return SendOutcome{AssignmentID: assignment.ID, Status: OutcomeError, Err: err}
	}
	logger = logger.With(zap.String("recipient", recipient.Name))

	// Step 2: Enforce the cross-run retry budget
	failedSoFar, err := dp.Store.GetNotificationRetryCount(ctx, assignment.ID)
	if err != nil {
		return SendOutcome{AssignmentID: assignment.ID, Status: OutcomeError, Err: fmt.Errorf("failed to fetch retry count: %w", err)}
	}
	if failedSoFar >= dp.MaxRetries {
		logger.Warn("Retry budget exhausted", zap.Int("failed_attempts", failedSoFar))
		msg := fmt.Sprintf("retry budget exhausted after %d failed attempts", failedSoFar)
		dp.record(ctx, logger, &assignment.ID, recipient.Name, recipient.Phone, db.NotificationFailed, "", msg)
		return SendOutcome{
			AssignmentID: assignment.ID,
			Recipient:    recipient.Name,
			Status:       OutcomeFailed,
			Message:      msg,
		}
	}

	// Step 3: Compose the message
	template, err := dp.Settings.MessageTemplate(ctx)
	if err != nil {
		return SendOutcome{AssignmentID: assignment.ID, Status: OutcomeError, Err: fmt.Errorf("failed to fetch message template: %w", err)}
	}
	body := ComposeShiftMessage(template, recipient.Name, assignment)

	// Step 4: Send to every destination the recipient has
	phones := []string{recipient.Phone}
	if recipient.SecondaryPhone != "" {
		phones = append(phones, recipient.SecondaryPhone)
	}

	type channelResult struct {
		providerID string
		attempts   int
		err        error
	}
	results := make([]channelResult, len(phones))

	var wg sync.WaitGroup
	for i, phone := range phones {
		wg.Add(1)
		go func(i int, phone string) {
			defer wg.Done()
			providerID, attempts, err := dp.sendWithRetry(ctx, logger, &assignment.ID, recipient.Name, phone, body)
			results[i] = channelResult{providerID: providerID, attempts: attempts, err: err}
		}(i, phone)
	}
	wg.Wait()

	outcome := SendOutcome{
		AssignmentID: assignment.ID,
		Recipient:    recipient.Name,
		Message:      body,
	}
	for _, r := range results {
		outcome.Attempts += r.attempts
		if r.err == nil && outcome.ProviderID == "" {
			outcome.ProviderID = r.providerID
		}
	}

	// Step 5: Success on any destination marks the assignment notified
	if outcome.ProviderID != "" {
		if err := dp.Store.MarkAssignmentNotified(ctx, assignment.ID, dp.Clock.Now()); err != nil {
			return SendOutcome{AssignmentID: assignment.ID, Status: OutcomeError, Err: fmt.Errorf("failed to mark assignment notified: %w", err)}
		}
		outcome.Success = true
		outcome.Status = OutcomeSent
		logger.Info("Shift notification sent", zap.String("provider_id", outcome.ProviderID))
		return outcome
	}

	outcome.Status = OutcomeFailed
	for _, r := range results {
		if r.err != nil {
			outcome.Err = r.err
			break
		}
	}
	logger.Warn("Shift notification failed on all destinations", zap.Error(outcome.Err))
	return outcome
}

// SendBatch dispatches notifications for a set of assignments concurrently.
// Outcomes are reported in input order.
func (dp *Dispatcher) SendBatch(ctx context.Context, assignments []db.Assignment, force bool) *BatchResult {
	result := &BatchResult{
		Total:    len(assignments),
		Outcomes: make([]SendOutcome, len(assignments)),
	}

	var wg sync.WaitGroup
	for i := range assignments {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result.Outcomes[i] = dp.SendShiftNotification(ctx, &assignments[i], force)
		}(i)
	}
	wg.Wait()

	for _, o := range result.Outcomes {
		switch o.Status {
		case OutcomeSent:
			result.Successful++
		case OutcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	return result
}

// SendManual sends an arbitrary message to one phone number with the usual
// retry handling. The log record carries no assignment.
func (dp *Dispatcher) SendManual(ctx context.Context, name, phone, body string) SendOutcome {
	logger := dp.Logger.With(zap.String("recipient", name))
	body = Truncate(body)

	providerID, attempts, err := dp.sendWithRetry(ctx, logger, nil, name, phone, body)
	outcome := SendOutcome{
		Recipient: name,
		Message:   body,
		Attempts:  attempts,
	}
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Err = err
		return outcome
	}
	outcome.Success = true
	outcome.Status = OutcomeSent
	outcome.ProviderID = providerID
	return outcome
}

type recipient struct {
	Name           string
	Phone          string
	SecondaryPhone string
}

// resolveRecipient picks the member who actually holds the shift: the
// covering member when an active override exists, otherwise the assignee.
func (dp *Dispatcher) resolveRecipient(ctx context.Context, assignment *db.Assignment) (*recipient, error) {
	override, err := dp.Store.GetActiveOverrideForAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check override: %w", err)
	}

	memberID := assignment.MemberID
	if override != nil {
		memberID = override.CoveringMemberID
	}

	if override == nil && assignment.Member != nil {
		return &recipient{
			Name:           assignment.Member.Name,
			Phone:          assignment.Member.Phone,
			SecondaryPhone: assignment.Member.SecondaryPhone,
		}, nil
	}

	member, err := dp.Store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	return &recipient{Name: member.Name, Phone: member.Phone, SecondaryPhone: member.SecondaryPhone}, nil
}

// sendWithRetry attempts delivery to one phone number, backing off
// exponentially between attempts. The first attempt runs immediately; before
// attempt n the wait is BaseDelay doubled n-2 times. Non-retryable provider
// errors stop the loop. Every attempt is logged.
func (dp *Dispatcher) sendWithRetry(ctx context.Context, logger *zap.Logger, assignmentID *string, name, phone, body string) (string, int, error) {
	var lastErr error

	for attempt := 1; attempt <= dp.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := dp.BaseDelay << (attempt - 2)
			logger.Debug("Waiting before retry",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-dp.Clock.After(delay):
			case <-ctx.Done():
				return "", attempt - 1, ctx.Err()
			}
		}

		providerID, status, err := dp.Client.Send(ctx, phone, body)
		if err == nil {
			if status == "" {
				status = db.NotificationSent
			}
			dp.record(ctx, logger, assignmentID, name, phone, status, providerID, "")
			return providerID, attempt, nil
		}

		lastErr = err
		dp.record(ctx, logger, assignmentID, name, phone, db.NotificationFailed, "", err.Error())

		if !IsRetryable(err) {
			logger.Warn("Send failed with permanent error",
				zap.String("phone", phone),
				zap.Error(err))
			return "", attempt, err
		}
		logger.Debug("Send failed, will retry",
			zap.String("phone", phone),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return "", dp.MaxRetries, fmt.Errorf("all %d attempts failed: %w", dp.MaxRetries, lastErr)
}

// record appends a delivery attempt to the notification log. Logging
// failures are reported but never fail the send.
func (dp *Dispatcher) record(ctx context.Context, logger *zap.Logger, assignmentID *string, name, phone, status, providerID, errMsg string) {
	rec := &db.NotificationRecord{
		ID:             uuid.New().String(),
		AssignmentID:   assignmentID,
		RecipientName:  name,
		RecipientPhone: phone,
		Status:         status,
		ProviderID:     providerID,
		ErrorMessage:   errMsg,
		CreatedAt:      dp.Clock.Now(),
	}
	if err := dp.Store.InsertNotificationRecord(ctx, rec); err != nil {
		logger.Error("Failed to write notification record", zap.Error(err))
	}
}

// ComposeShiftMessage renders the shift-start template for a recipient.
// Supported placeholders: {name}, {start_time}, {end_time}, {duration}.
// Messages over the single-segment SMS limit are truncated.
func ComposeShiftMessage(template, recipientName string, assignment *db.Assignment) string {
	duration := int(assignment.EndAt.Sub(assignment.StartAt).Hours())
	body := strings.NewReplacer(
		"{name}", recipientName,
		"{start_time}", assignment.StartAt.Format("Mon 03:04 PM"),
		"{end_time}", assignment.EndAt.Format("Mon 03:04 PM"),
		"{duration}", fmt.Sprintf("%d", duration),
	).Replace(template)
	return Truncate(body)
}

// Truncate shortens a message to the single-segment SMS limit, marking the
// cut with an ellipsis
func Truncate(body string) string {
	if len(body) <= maxMessageLength {
		return body
	}
	return body[:maxMessageLength-3] + "..."
}
