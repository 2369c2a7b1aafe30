package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

var dispatchBase = time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

func testAssignment(id, memberID, name, phone string) *db.Assignment {
	return &db.Assignment{
		ID:       id,
		MemberID: memberID,
		StartAt:  dispatchBase,
		EndAt:    dispatchBase.Add(24 * time.Hour),
		Member:   &db.Member{ID: memberID, Name: name, Phone: phone, Active: true},
		Shift:    &db.Shift{ID: "shift-1", ShiftNumber: 1, DayOfWeek: "Monday", DurationHours: 24},
	}
}

func newTestDispatcher(store *mockStore, client *mockMessageClient) (*Dispatcher, *fakeClock) {
	clock := &fakeClock{now: dispatchBase}
	dp := &Dispatcher{
		Store:      store,
		Client:     client,
		Settings:   &Settings{Store: store},
		Logger:     zap.NewNop(),
		Clock:      clock,
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
	}
	return dp, clock
}

func TestSendShiftNotification_SendsAndMarksNotified(t *testing.T) {
	store := newMockStore()
	client := newMockMessageClient()
	client.script("+15550001", sendResult{providerID: "SM-1", status: "sent"})
	dp, _ := newTestDispatcher(store, client)

	assignment := testAssignment("a-1", "m-1", "Lee", "+15550001")
	outcome := dp.SendShiftNotification(t.Context(), assignment, false)

	require.True(t, outcome.Success)
	assert.Equal(t, OutcomeSent, outcome.Status)
	assert.Equal(t, "SM-1", outcome.ProviderID)
	assert.Equal(t, 1, outcome.Attempts)

	_, notified := store.notified["a-1"]
	assert.True(t, notified)

	sent := store.notificationsByStatus(db.NotificationSent)
	require.Len(t, sent, 1)
	assert.Equal(t, "Lee", sent[0].RecipientName)
	assert.Equal(t, "+15550001", sent[0].RecipientPhone)
	require.NotNil(t, sent[0].AssignmentID)
	assert.Equal(t, "a-1", *sent[0].AssignmentID)
}

func TestSendShiftNotification_SkipsAlreadyNotified(t *testing.T) {
	store := newMockStore()
	client := newMockMessageClient()
	dp, _ := newTestDispatcher(store, client)

	assignment := testAssignment("a-1", "m-1", "Lee", "+15550001")
	assignment.Notified = true

	outcome := dp.SendShiftNotification(t.Context(), assignment, false)
	assert.Equal(t, OutcomeSkipped, outcome.Status)
	assert.Equal(t, 0, client.callCount("+15550001"))

	// force resends
	outcome = dp.SendShiftNotification(t.Context(), assignment, true)
	assert.Equal(t, OutcomeSent, outcome.Status)
	assert.Equal(t, 1, client.callCount("+15550001"))
}

func TestSendShiftNotification_RetriesWithExponentialBackoff(t *testing.T) {
	store := newMockStore()
	client := newMockMessageClient()
	client.script("+15550001",
		sendResult{err: &transientErr{msg: "queue full"}},
		sendResult{err: &transientErr{msg: "queue full"}},
		sendResult{providerID: "SM-3", status: "sent"},
	)
	dp, clock := newTestDispatcher(store, client)

	assignment := testAssignment("a-1", "m-1", "Lee", "+15550001")
	outcome := dp.SendShiftNotification(t.Context(), assignment, false)

	require.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, client.callCount("+15550001"))

	// 2s before attempt 2, doubled to 4s before attempt 3
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clock.recorded())

	// Both failures and the final success were logged
	assert.Len(t, store.notificationsByStatus(db.NotificationFailed), 2)
	assert.Len(t, store.notificationsByStatus(db.NotificationSent), 1)
}

func TestSendShiftNotification_PermanentErrorStopsRetrying(t *testing.T) {
	store := newMockStore()
	client := newMockMessageClient()
	client.script("+15550001", sendResult{err: &permanentErr{msg: "invalid number"}})
	dp, clock := newTestDispatcher(store, client)

	assignment := testAssignment("a-1", "m-1", "Lee", "+15550001")
	outcome := dp.SendShiftNotification(t.Context(), assignment, false)

	assert.False(t, outcome.Success)
	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Equal(t, 1, client.callCount("+15550001"))
	assert.Empty(t, clock.recorded())
	assert.Len(t, store.notificationsByStatus(db.NotificationFailed), 1)

	_, notified := store.notified["a-1"]
	assert.False(t, notified)
}

func TestSendShiftNotification_AllAttemptsFail(t *testing.T) {
	store := newMockStore()
	client := newMockMessageClient()
	client.script("+15550001", sendResult{err: &transientErr{msg: "carrier down"}})
	dp, _ := newTestDispatcher(store, client)

	assignment := testAssignment("a-1", "m-1", "Lee", "+15550001")
	outcome := dp.SendShiftNotification(t.Context(), assignment, false)

	assert.False(t, outcome.Success)
	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Equal(t, 3, client.callCount("+15550001"))
	assert.Error(t, outcome.Err)
	assert.Len(t, store.notificationsByStatus(db.NotificationFailed), 3)
}

func TestSendShiftNotification_RetryBudgetExhausted(t *testing.T) {
	store := newMockStore()
	store.retryCounts["a-1"] = 3
	client := newMockMessageClient()
	dp, _ := newTestDispatcher(store, client)

	assignment := testAssignment("a-1", "m-1", "Lee", "+15550001")
	outcome := dp.SendShiftNotification(t.Context(), assignment, false)

	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.Equal(t, 0, client.callCount("+15550001"))
	assert.Contains(t, outcome.Message, "retry budget exhausted")

	// Exactly one record documents the refusal
	failed := store.notificationsByStatus(db.NotificationFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ErrorMessage, "retry budget exhausted")
}

func TestSendShiftNotification_SecondaryPhoneCoversPrimaryFailure(t *testing.T) {
	store := newMockStore()
	client := newMockMessageClient()
	client.script("+15550001", sendResult{err: &permanentErr{msg: "invalid number"}})
	client.script("+15550002", sendResult{providerID: "SM-2", status: "sent"})
	dp, _ := newTestDispatcher(store, client)

	assignment := testAssignment("a-1", "m-1", "Lee", "+15550001")
	assignment.Member.SecondaryPhone = "+15550002"

	outcome := dp.SendShiftNotification(t.Context(), assignment, false)

	require.True(t, outcome.Success)
	assert.Equal(t, "SM-2", outcome.ProviderID)

	_, notified := store.notified["a-1"]
	assert.True(t, notified)
}

func TestSendShiftNotification_OverrideRedirectsRecipient(t *testing.T) {
	store := newMockStore()
	store.members["m-2"] = &db.Member{ID: "m-2", Name: "Sam", Phone: "+15550099", Active: true}
	store.activeOverrides["a-1"] = &db.Override{
		ID:               "o-1",
		AssignmentID:     "a-1",
		CoveringMemberID: "m-2",
		Status:           db.OverrideActive,
	}
	client := newMockMessageClient()
	dp, _ := newTestDispatcher(store, client)

	assignment := testAssignment("a-1", "m-1", "Lee", "+15550001")
	outcome := dp.SendShiftNotification(t.Context(), assignment, false)

	require.True(t, outcome.Success)
	assert.Equal(t, "Sam", outcome.Recipient)
	assert.Equal(t, 0, client.callCount("+15550001"))
	assert.Equal(t, 1, client.callCount("+15550099"))
}

func TestSendBatch_CountsAndPreservesOrder(t *testing.T) {
	store := newMockStore()
	client := newMockMessageClient()
	client.script("+1555000bad", sendResult{err: &permanentErr{msg: "invalid number"}})
	dp, _ := newTestDispatcher(store, client)

	notifiedAssignment := testAssignment("a-2", "m-2", "Kim", "+15550002")
	notifiedAssignment.Notified = true

	assignments := []db.Assignment{
		*testAssignment("a-1", "m-1", "Lee", "+15550001"),
		*notifiedAssignment,
		*testAssignment("a-3", "m-3", "Pat", "+1555000bad"),
	}

	result := dp.SendBatch(t.Context(), assignments, false)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, "a-1", result.Outcomes[0].AssignmentID)
	assert.Equal(t, "a-2", result.Outcomes[1].AssignmentID)
	assert.Equal(t, "a-3", result.Outcomes[2].AssignmentID)
	assert.Equal(t, OutcomeSent, result.Outcomes[0].Status)
	assert.Equal(t, OutcomeSkipped, result.Outcomes[1].Status)
	assert.Equal(t, OutcomeFailed, result.Outcomes[2].Status)
}

func TestSendManual_LogsWithoutAssignment(t *testing.T) {
	store := newMockStore()
	client := newMockMessageClient()
	client.script("+15550042", sendResult{providerID: "SM-m", status: "sent"})
	dp, _ := newTestDispatcher(store, client)

	outcome := dp.SendManual(t.Context(), "ops", "+15550042", "maintenance window at noon")

	require.True(t, outcome.Success)
	sent := store.notificationsByStatus(db.NotificationSent)
	require.Len(t, sent, 1)
	assert.Nil(t, sent[0].AssignmentID)
	assert.Equal(t, "ops", sent[0].RecipientName)
}

func TestComposeShiftMessage_RendersPlaceholders(t *testing.T) {
	assignment := &db.Assignment{
		StartAt: time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, 11, 4, 8, 0, 0, 0, time.UTC),
	}

	body := ComposeShiftMessage("Hi {name}, on-call {start_time}-{end_time} ({duration}h)", "Lee", assignment)
	assert.Equal(t, "Hi Lee, on-call Mon 08:00 AM-Tue 08:00 AM (24h)", body)
}

func TestComposeShiftMessage_TruncatesLongMessages(t *testing.T) {
	assignment := &db.Assignment{
		StartAt: dispatchBase,
		EndAt:   dispatchBase.Add(24 * time.Hour),
	}

	body := ComposeShiftMessage(strings.Repeat("x", 200), "Lee", assignment)
	assert.Len(t, body, 160)
	assert.True(t, strings.HasSuffix(body, "..."))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&transientErr{msg: "try again"}))
	assert.False(t, IsRetryable(&permanentErr{msg: "bad number"}))
	assert.False(t, IsRetryable(assert.AnError))
}
