package db

import "time"

// Override status values
const (
	OverrideActive    = "active"
	OverrideCancelled = "cancelled"
	OverrideCompleted = "completed"
)

// Notification status values
const (
	NotificationPending     = "pending"
	NotificationSent        = "sent"
	NotificationDelivered   = "delivered"
	NotificationFailed      = "failed"
	NotificationUndelivered = "undelivered"
)

// Member represents a team member in the on-call rotation
type Member struct {
	ID             string
	Name           string
	Phone          string
	SecondaryPhone string // optional second paging device
	Active         bool
	RotationOrder  *int // nil for members outside the rotation
	CreatedAt      time.Time
}

// Shift represents a reusable shift definition that generation instantiates
// into dated assignments
type Shift struct {
	ID            string
	ShiftNumber   int    // unique ordering key
	DayOfWeek     string // "Tuesday" or "Tuesday-Wednesday" for 48h shifts
	DurationHours int    // 24 or 48
	StartTime     string // start of day, "08:00"
}

// Assignment represents one dated on-call period linking a member to a shift.
// Member and Shift are populated by queries that join the related rows.
type Assignment struct {
	ID         string
	MemberID   string
	ShiftID    string
	WeekNumber int // ISO week number of the start
	StartAt    time.Time
	EndAt      time.Time
	Notified   bool
	NotifiedAt *time.Time
	CreatedAt  time.Time

	Member *Member
	Shift  *Shift
}

// Override represents an operator-directed substitution for one assignment.
// Member names are snapshotted at creation time so the audit trail survives
// later changes to the member records.
type Override struct {
	ID                 string
	AssignmentID       string
	CoveringMemberID   string
	OriginalMemberName string
	CoveringMemberName string
	Reason             string
	Status             string
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CancelledAt        *time.Time
	CompletedAt        *time.Time
}

// NotificationRecord represents one delivery attempt. AssignmentID is nil for
// manual and summary sends. Recipient name and phone are snapshotted at send
// time and never resolve through the member row.
type NotificationRecord struct {
	ID             string
	AssignmentID   *string
	RecipientName  string
	RecipientPhone string
	Status         string
	ProviderID     string
	ErrorMessage   string
	CreatedAt      time.Time
}

// Setting represents a typed key/value application setting
type Setting struct {
	Key         string
	Value       string
	ValueType   string // str, int, float, bool
	Description string
	UpdatedAt   time.Time
}
