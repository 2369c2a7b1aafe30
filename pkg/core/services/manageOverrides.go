package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

var (
	// ErrAssignmentNotFound indicates the referenced assignment does not exist
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrMemberNotFound indicates the referenced member does not exist or is inactive
	ErrMemberNotFound = errors.New("member not found or inactive")
	// ErrDuplicateOverride indicates the assignment already has an active override
	ErrDuplicateOverride = errors.New("assignment already has an active override")
	// ErrSelfOverride indicates the covering member already holds the assignment
	ErrSelfOverride = errors.New("covering member already holds this assignment")
	// ErrOverrideNotFound indicates the referenced override does not exist
	ErrOverrideNotFound = errors.New("override not found")
	// ErrOverrideNotActive indicates the override is not in the active state
	ErrOverrideNotActive = errors.New("override is not active")
)

// OverrideStore defines the database operations needed for override management
type OverrideStore interface {
	GetAssignment(ctx context.Context, id string) (*db.Assignment, error)
	GetMember(ctx context.Context, id string) (*db.Member, error)
	GetOverride(ctx context.Context, id string) (*db.Override, error)
	GetActiveOverrideForAssignment(ctx context.Context, assignmentID string) (*db.Override, error)
	InsertOverride(ctx context.Context, override *db.Override) error
	MarkOverrideCancelled(ctx context.Context, id string, at time.Time) error
	CompletePastOverrides(ctx context.Context, now time.Time) (int64, error)
	ListOverrides(ctx context.Context, status string, limit, offset int) ([]db.Override, int, error)
}

// CreateOverride records a covering member for one assignment. Member names
// are snapshotted onto the override so the audit trail survives later renames
// or deactivations. An assignment can carry at most one active override.
func CreateOverride(
	ctx context.Context,
	database OverrideStore,
	logger *zap.Logger,
	assignmentID, coveringMemberID, reason, createdBy string,
) (*db.Override, error) {
	logger.Debug("Starting createOverride",
		zap.String("assignment_id", assignmentID),
		zap.String("covering_member_id", coveringMemberID))

	// Step 1: Validate the assignment
	assignment, err := database.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, assignmentID)
	}

	// Step 2: Validate the covering member
	covering, err := database.GetMember(ctx, coveringMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch covering member: %w", err)
	}
	if covering == nil || !covering.Active {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, coveringMemberID)
	}
	if covering.ID == assignment.MemberID {
		return nil, ErrSelfOverride
	}

	// Step 3: Refuse a second active override for the same assignment
	existing, err := database.GetActiveOverrideForAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing override: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: override %s", ErrDuplicateOverride, existing.ID)
	}

	// Step 4: Persist with name snapshots
	originalName := ""
	if assignment.Member != nil {
		originalName = assignment.Member.Name
	}

	now := time.Now()
	override := &db.Override{
		ID:                 uuid.New().String(),
		AssignmentID:       assignmentID,
		CoveringMemberID:   coveringMemberID,
		OriginalMemberName: originalName,
		CoveringMemberName: covering.Name,
		Reason:             reason,
		Status:             db.OverrideActive,
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := database.InsertOverride(ctx, override); err != nil {
		return nil, fmt.Errorf("failed to insert override: %w", err)
	}

	logger.Info("Created override",
		zap.String("override_id", override.ID),
		zap.String("original", originalName),
		zap.String("covering", covering.Name))

	return override, nil
}

// CancelOverride cancels an active override, restoring the original member
func CancelOverride(ctx context.Context, database OverrideStore, logger *zap.Logger, overrideID string) (*db.Override, error) {
	override, err := database.GetOverride(ctx, overrideID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch override: %w", err)
	}
	if override == nil {
		return nil, fmt.Errorf("%w: %s", ErrOverrideNotFound, overrideID)
	}
	if override.Status != db.OverrideActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrOverrideNotActive, overrideID, override.Status)
	}

	now := time.Now()
	if err := database.MarkOverrideCancelled(ctx, overrideID, now); err != nil {
		return nil, fmt.Errorf("failed to cancel override: %w", err)
	}

	override.Status = db.OverrideCancelled
	override.CancelledAt = &now
	override.UpdatedAt = now

	logger.Info("Cancelled override", zap.String("override_id", overrideID))
	return override, nil
}

// CompletePastOverrides marks active overrides whose assignments have ended
// as completed. The sweep is idempotent.
func CompletePastOverrides(ctx context.Context, database OverrideStore, logger *zap.Logger, now time.Time) (int64, error) {
	completed, err := database.CompletePastOverrides(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past overrides: %w", err)
	}
	if completed > 0 {
		logger.Info("Completed past overrides", zap.Int64("count", completed))
	}
	return completed, nil
}

// ListOverrides retrieves overrides newest first, optionally filtered by
// status, along with the total count for the filter
func ListOverrides(ctx context.Context, database OverrideStore, status string, limit, offset int) ([]db.Override, int, error) {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	overrides, total, err := database.ListOverrides(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list overrides: %w", err)
	}
	return overrides, total, nil
}
