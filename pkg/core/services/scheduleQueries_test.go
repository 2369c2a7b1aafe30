package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

func queryFixtures(store *mockStore) {
	monday := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	assignments := []*db.Assignment{
		{ID: "a-1", MemberID: "m-1", StartAt: monday, EndAt: monday.Add(24 * time.Hour)},
		{ID: "a-2", MemberID: "m-2", StartAt: monday.AddDate(0, 0, 1), EndAt: monday.AddDate(0, 0, 3)},
		{ID: "a-3", MemberID: "m-1", StartAt: monday.AddDate(0, 0, 7), EndAt: monday.AddDate(0, 0, 8)},
	}
	for _, a := range assignments {
		store.assignments[a.ID] = a
	}
}

func TestCurrentWeekSchedule(t *testing.T) {
	store := newMockStore()
	queryFixtures(store)

	// A Wednesday inside the first week
	now := time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)
	assignments, err := CurrentWeekSchedule(t.Context(), store, now)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, a := range assignments {
		ids[a.ID] = true
	}
	assert.True(t, ids["a-1"])
	assert.True(t, ids["a-2"])
	assert.False(t, ids["a-3"])
}

func TestUpcomingSchedules_CoversMultipleWeeks(t *testing.T) {
	store := newMockStore()
	queryFixtures(store)

	now := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	assignments, err := UpcomingSchedules(t.Context(), store, now, 2)
	require.NoError(t, err)
	assert.Len(t, assignments, 3)
}

func TestScheduleByDateRange_RejectsInvertedRange(t *testing.T) {
	store := newMockStore()

	start := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	_, err := ScheduleByDateRange(t.Context(), store, start, end)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestScheduleByMember(t *testing.T) {
	store := newMockStore()
	queryFixtures(store)

	assignments, err := ScheduleByMember(t.Context(), store, "m-1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, assignments, 2)

	// Bounded to the first week
	end := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	assignments, err = ScheduleByMember(t.Context(), store, "m-1", nil, &end)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "a-1", assignments[0].ID)
}

func TestNextAssignmentForMember(t *testing.T) {
	store := newMockStore()
	queryFixtures(store)

	now := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	next, err := NextAssignmentForMember(t.Context(), store, "m-1", now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "a-3", next.ID)

	next, err = NextAssignmentForMember(t.Context(), store, "m-9", now)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestPendingNotifications_OnlyTodaysUnnotified(t *testing.T) {
	store := newMockStore()
	queryFixtures(store)
	store.assignments["a-1"].Notified = true

	day := time.Date(2025, 11, 3, 6, 0, 0, 0, time.UTC)
	pending, err := PendingNotifications(t.Context(), store, day)
	require.NoError(t, err)
	assert.Empty(t, pending)

	store.assignments["a-1"].Notified = false
	pending, err = PendingNotifications(t.Context(), store, day)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a-1", pending[0].ID)
}
