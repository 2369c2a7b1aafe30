package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/whoseonfirst/pkg/core/services"
)

// AddMemberCmd creates the addMember command
func AddMemberCmd(app *AppContext) *cobra.Command {
	var secondaryPhone string

	cmd := &cobra.Command{
		Use:   "addMember <name> <phone>",
		Short: "Add a team member at the end of the rotation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			member, err := services.CreateMember(app.Ctx, app.Database, app.Logger, args[0], args[1], secondaryPhone)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Member added!\n\n")
			fmt.Printf("Member ID:      %s\n", member.ID)
			fmt.Printf("Rotation order: %d\n\n", *member.RotationOrder)
			return nil
		},
	}

	cmd.Flags().StringVar(&secondaryPhone, "secondary-phone", "", "Optional second paging number")
	return cmd
}

// DeactivateMemberCmd creates the deactivateMember command
func DeactivateMemberCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivateMember <member_id>",
		Short: "Remove a member from the rotation and renumber the rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.DeactivateMember(app.Ctx, app.Database, app.Logger, args[0]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Member deactivated\n\n")
			return nil
		},
	}
}

// ActivateMemberCmd creates the activateMember command
func ActivateMemberCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "activateMember <member_id>",
		Short: "Return a member to the rotation at the last position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.ActivateMember(app.Ctx, app.Database, app.Logger, args[0]); err != nil {
				return err
			}
			fmt.Printf("\n✓ Member activated\n\n")
			return nil
		},
	}
}

// ListMembersCmd creates the listMembers command
func ListMembersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listMembers",
		Short: "List active members in rotation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := app.Database.GetActiveMembers(app.Ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n%d active member(s)\n", len(members))
			for _, m := range members {
				order := "-"
				if m.RotationOrder != nil {
					order = fmt.Sprintf("%d", *m.RotationOrder)
				}
				fmt.Printf("  %2s. %-20s %-15s %s\n", order, m.Name, m.Phone, m.ID)
			}
			fmt.Println()
			return nil
		},
	}
}

// ReorderRotationCmd creates the reorderRotation command
func ReorderRotationCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorderRotation <member_id> [member_id...]",
		Short: "Apply a complete new rotation ordering",
		Long:  "Every active member must be listed exactly once; positions are assigned in the given order.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.ReorderRotation(app.Ctx, app.Database, app.Logger, args); err != nil {
				return err
			}
			fmt.Printf("\n✓ Rotation reordered\n\n")
			return nil
		},
	}
}
