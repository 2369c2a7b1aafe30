package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

func overrideFixtures(store *mockStore) {
	store.members["m-1"] = &db.Member{ID: "m-1", Name: "Alice", Phone: "+15550001", Active: true}
	store.members["m-2"] = &db.Member{ID: "m-2", Name: "Bob", Phone: "+15550002", Active: true}
	store.members["m-3"] = &db.Member{ID: "m-3", Name: "Cara", Phone: "+15550003", Active: false}

	start := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	store.assignments["a-1"] = &db.Assignment{
		ID:       "a-1",
		MemberID: "m-1",
		StartAt:  start,
		EndAt:    start.Add(24 * time.Hour),
		Member:   store.members["m-1"],
	}
}

func TestCreateOverride_SnapshotsMemberNames(t *testing.T) {
	store := newMockStore()
	overrideFixtures(store)

	override, err := CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-2", "vacation", "admin")
	require.NoError(t, err)

	assert.Equal(t, db.OverrideActive, override.Status)
	assert.Equal(t, "Alice", override.OriginalMemberName)
	assert.Equal(t, "Bob", override.CoveringMemberName)
	assert.Equal(t, "vacation", override.Reason)
	assert.Equal(t, "admin", override.CreatedBy)
	assert.NotEmpty(t, override.ID)

	// Snapshot survives a later rename
	store.members["m-2"].Name = "Robert"
	stored, err := store.GetOverride(t.Context(), override.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", stored.CoveringMemberName)
}

func TestCreateOverride_ValidationFailures(t *testing.T) {
	store := newMockStore()
	overrideFixtures(store)

	_, err := CreateOverride(t.Context(), store, zap.NewNop(), "missing", "m-2", "", "")
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	_, err = CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "missing", "", "")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	// Inactive members cannot cover
	_, err = CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-3", "", "")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	// The assignee cannot cover their own shift
	_, err = CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-1", "", "")
	assert.ErrorIs(t, err, ErrSelfOverride)
}

func TestCreateOverride_RefusesSecondActiveOverride(t *testing.T) {
	store := newMockStore()
	overrideFixtures(store)

	_, err := CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-2", "", "")
	require.NoError(t, err)

	_, err = CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-2", "", "")
	assert.ErrorIs(t, err, ErrDuplicateOverride)
	assert.Len(t, store.insertedOverrides, 1)
}

func TestCancelOverride(t *testing.T) {
	store := newMockStore()
	overrideFixtures(store)

	created, err := CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-2", "", "")
	require.NoError(t, err)

	cancelled, err := CancelOverride(t.Context(), store, zap.NewNop(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OverrideCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	// Cancelling again fails; so does cancelling an unknown id
	_, err = CancelOverride(t.Context(), store, zap.NewNop(), created.ID)
	assert.ErrorIs(t, err, ErrOverrideNotActive)

	_, err = CancelOverride(t.Context(), store, zap.NewNop(), "missing")
	assert.ErrorIs(t, err, ErrOverrideNotFound)

	// A new override can now be created for the same assignment
	_, err = CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-2", "", "")
	assert.NoError(t, err)
}

func TestCompletePastOverrides_IsIdempotent(t *testing.T) {
	store := newMockStore()
	overrideFixtures(store)

	_, err := CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-2", "", "")
	require.NoError(t, err)

	after := store.assignments["a-1"].EndAt.Add(time.Hour)

	completed, err := CompletePastOverrides(t.Context(), store, zap.NewNop(), after)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)

	completed, err = CompletePastOverrides(t.Context(), store, zap.NewNop(), after)
	require.NoError(t, err)
	assert.Equal(t, int64(0), completed)
}

func TestCompletePastOverrides_LeavesRunningShiftsAlone(t *testing.T) {
	store := newMockStore()
	overrideFixtures(store)

	_, err := CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-2", "", "")
	require.NoError(t, err)

	during := store.assignments["a-1"].EndAt.Add(-time.Hour)

	completed, err := CompletePastOverrides(t.Context(), store, zap.NewNop(), during)
	require.NoError(t, err)
	assert.Equal(t, int64(0), completed)
}

func TestListOverrides_DefaultsPaging(t *testing.T) {
	store := newMockStore()
	overrideFixtures(store)

	_, err := CreateOverride(t.Context(), store, zap.NewNop(), "a-1", "m-2", "", "")
	require.NoError(t, err)

	overrides, total, err := ListOverrides(t.Context(), store, "", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, overrides, 1)

	overrides, total, err = ListOverrides(t.Context(), store, db.OverrideCancelled, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, overrides)
}
