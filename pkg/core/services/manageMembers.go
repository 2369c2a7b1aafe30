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
	// ErrMemberAlreadyActive indicates an activation of a member who is active
	ErrMemberAlreadyActive = errors.New("member is already active")
	// ErrMemberAlreadyInactive indicates a deactivation of a member who is inactive
	ErrMemberAlreadyInactive = errors.New("member is already inactive")
	// ErrIncompleteReorder indicates a reorder that does not cover every active member
	ErrIncompleteReorder = errors.New("reorder must include every active member exactly once")
)

// MemberStore defines the database operations needed for member management
type MemberStore interface {
	GetMember(ctx context.Context, id string) (*db.Member, error)
	GetActiveMembers(ctx context.Context) ([]db.Member, error)
	InsertMember(ctx context.Context, member *db.Member) error
	SetMemberActive(ctx context.Context, id string, active bool) error
	SetRotationOrder(ctx context.Context, id string, order *int) error
	UpdateRotationOrders(ctx context.Context, orders map[string]int) error
	MaxRotationOrder(ctx context.Context) (int, bool, error)
}

// CreateMember adds an active team member at the end of the rotation
func CreateMember(ctx context.Context, database MemberStore, logger *zap.Logger, name, phone, secondaryPhone string) (*db.Member, error) {
	max, ok, err := database.MaxRotationOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch max rotation order: %w", err)
	}
	order := 0
	if ok {
		order = max + 1
	}

	member := &db.Member{
		ID:             uuid.New().String(),
		Name:           name,
		Phone:          phone,
		SecondaryPhone: secondaryPhone,
		Active:         true,
		RotationOrder:  &order,
		CreatedAt:      time.Now(),
	}

	if err := database.InsertMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to insert member: %w", err)
	}

	logger.Info("Created member", zap.String("member_id", member.ID), zap.Int("rotation_order", order))
	return member, nil
}

// DeactivateMember removes a member from the rotation and renumbers the
// remaining active members densely from zero so generation stays fair
func DeactivateMember(ctx context.Context, database MemberStore, logger *zap.Logger, memberID string) error {
	member, err := database.GetMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to fetch member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	if !member.Active {
		return fmt.Errorf("%w: %s", ErrMemberAlreadyInactive, memberID)
	}

	if err := database.SetMemberActive(ctx, memberID, false); err != nil {
		return fmt.Errorf("failed to deactivate member: %w", err)
	}
	if err := database.SetRotationOrder(ctx, memberID, nil); err != nil {
		return fmt.Errorf("failed to clear rotation order: %w", err)
	}

	remaining, err := database.GetActiveMembers(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch remaining members: %w", err)
	}

	orders := make(map[string]int, len(remaining))
	for i, m := range remaining {
		orders[m.ID] = i
	}
	if err := database.UpdateRotationOrders(ctx, orders); err != nil {
		return fmt.Errorf("failed to renumber rotation: %w", err)
	}

	logger.Info("Deactivated member", zap.String("member_id", memberID), zap.Int("remaining", len(remaining)))
	return nil
}

// ActivateMember returns a member to the rotation at the last position
func ActivateMember(ctx context.Context, database MemberStore, logger *zap.Logger, memberID string) error {
	member, err := database.GetMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to fetch member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	if member.Active {
		return fmt.Errorf("%w: %s", ErrMemberAlreadyActive, memberID)
	}

	max, ok, err := database.MaxRotationOrder(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch max rotation order: %w", err)
	}
	order := 0
	if ok {
		order = max + 1
	}

	if err := database.SetMemberActive(ctx, memberID, true); err != nil {
		return fmt.Errorf("failed to activate member: %w", err)
	}
	if err := database.SetRotationOrder(ctx, memberID, &order); err != nil {
		return fmt.Errorf("failed to set rotation order: %w", err)
	}

	logger.Info("Activated member", zap.String("member_id", memberID), zap.Int("rotation_order", order))
	return nil
}

// ReorderRotation applies a complete new rotation ordering. memberIDs must
// list every active member exactly once; positions are assigned from zero in
// the given order.
func ReorderRotation(ctx context.Context, database MemberStore, logger *zap.Logger, memberIDs []string) error {
	active, err := database.GetActiveMembers(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch active members: %w", err)
	}

	if len(memberIDs) != len(active) {
		return fmt.Errorf("%w: got %d ids for %d active members", ErrIncompleteReorder, len(memberIDs), len(active))
	}

	activeIDs := make(map[string]bool, len(active))
	for _, m := range active {
		activeIDs[m.ID] = true
	}

	orders := make(map[string]int, len(memberIDs))
	for i, id := range memberIDs {
		if !activeIDs[id] {
			return fmt.Errorf("%w: %s is not an active member", ErrIncompleteReorder, id)
		}
		if _, dup := orders[id]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrIncompleteReorder, id)
		}
		orders[id] = i
	}

	if err := database.UpdateRotationOrders(ctx, orders); err != nil {
		return fmt.Errorf("failed to apply rotation order: %w", err)
	}

	logger.Info("Reordered rotation", zap.Int("members", len(memberIDs)))
	return nil
}
