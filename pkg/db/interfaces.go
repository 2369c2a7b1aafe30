package db

import (
	"context"
	"time"
)

// MemberStore defines the interface for team member database operations
type MemberStore interface {
	GetMember(ctx context.Context, id string) (*Member, error)
	// GetActiveMembers returns active members sorted by rotation order,
	// unset orders last, ties broken by id
	GetActiveMembers(ctx context.Context) ([]Member, error)
	InsertMember(ctx context.Context, member *Member) error
	SetMemberActive(ctx context.Context, id string, active bool) error
	SetRotationOrder(ctx context.Context, id string, order *int) error
	UpdateRotationOrders(ctx context.Context, orders map[string]int) error
	MaxRotationOrder(ctx context.Context) (int, bool, error)
}

// ShiftStore defines the interface for shift definition database operations
type ShiftStore interface {
	GetShiftsOrdered(ctx context.Context) ([]Shift, error)
	InsertShift(ctx context.Context, shift *Shift) error
}

// AssignmentStore defines the interface for schedule assignment database operations
type AssignmentStore interface {
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	GetAssignmentsByDateRange(ctx context.Context, start, end time.Time) ([]Assignment, error)
	GetAssignmentsByMember(ctx context.Context, memberID string, start, end *time.Time) ([]Assignment, error)
	GetNextAssignmentForMember(ctx context.Context, memberID string, after time.Time) (*Assignment, error)
	GetPendingAssignments(ctx context.Context, dayStart, dayEnd time.Time) ([]Assignment, error)
	InsertAssignments(ctx context.Context, assignments []Assignment) error
	DeleteAssignmentsFrom(ctx context.Context, from time.Time) (int64, error)
	MarkAssignmentNotified(ctx context.Context, id string, at time.Time) error
	FurthestAssignmentEnd(ctx context.Context) (time.Time, bool, error)
}

// OverrideStore defines the interface for schedule override database operations
type OverrideStore interface {
	GetOverride(ctx context.Context, id string) (*Override, error)
	GetActiveOverrideForAssignment(ctx context.Context, assignmentID string) (*Override, error)
	InsertOverride(ctx context.Context, override *Override) error
	MarkOverrideCancelled(ctx context.Context, id string, at time.Time) error
	CompletePastOverrides(ctx context.Context, now time.Time) (int64, error)
	ListOverrides(ctx context.Context, status string, limit, offset int) ([]Override, int, error)
}

// NotificationStore defines the interface for the append-only notification log
type NotificationStore interface {
	InsertNotificationRecord(ctx context.Context, record *NotificationRecord) error
	GetNotificationRetryCount(ctx context.Context, assignmentID string) (int, error)
	GetNotificationsByAssignment(ctx context.Context, assignmentID string) ([]NotificationRecord, error)
	UpdateNotificationStatus(ctx context.Context, providerID, status, errorMessage string) error
	GetNotificationSuccessRate(ctx context.Context, since time.Time) (float64, error)
}

// SettingsStore defines the interface for application settings
type SettingsStore interface {
	GetSettingValue(ctx context.Context, key string) (string, bool, error)
	SetSettingValue(ctx context.Context, key, value, valueType, description string) error
	GetAllSettings(ctx context.Context) ([]Setting, error)
}

// Store combines all database operations, implemented by pkg/postgres
type Store interface {
	MemberStore
	ShiftStore
	AssignmentStore
	OverrideStore
	NotificationStore
	SettingsStore
}
