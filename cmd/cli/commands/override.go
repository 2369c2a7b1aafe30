package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/whoseonfirst/pkg/core/services"
)

// AddOverrideCmd creates the addOverride command
func AddOverrideCmd(app *AppContext) *cobra.Command {
	var reason, createdBy string

	cmd := &cobra.Command{
		Use:   "addOverride <assignment_id> <covering_member_id>",
		Short: "Assign a covering member for one assignment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := services.CreateOverride(app.Ctx, app.Database, app.Logger, args[0], args[1], reason, createdBy)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Override created!\n\n")
			fmt.Printf("Override ID: %s\n", override.ID)
			fmt.Printf("Covering:    %s (was %s)\n", override.CoveringMemberName, override.OriginalMemberName)
			if override.Reason != "" {
				fmt.Printf("Reason:      %s\n", override.Reason)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the cover is needed")
	cmd.Flags().StringVar(&createdBy, "by", "", "Who requested the cover")
	return cmd
}

// CancelOverrideCmd creates the cancelOverride command
func CancelOverrideCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelOverride <override_id>",
		Short: "Cancel an active override, restoring the original member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := services.CancelOverride(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Override cancelled: %s returns to %s\n\n",
				override.CoveringMemberName, override.OriginalMemberName)
			return nil
		},
	}
}

// ListOverridesCmd creates the listOverrides command
func ListOverridesCmd(app *AppContext) *cobra.Command {
	var (
		status        string
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "listOverrides",
		Short: "List overrides, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, total, err := services.ListOverrides(app.Ctx, app.Database, status, limit, offset)
			if err != nil {
				return err
			}

			fmt.Printf("\n%d override(s)", total)
			if status != "" {
				fmt.Printf(" with status %q", status)
			}
			fmt.Println()
			for _, o := range overrides {
				fmt.Printf("  %s  %-10s %s covers %s  (%s)\n",
					o.ID, o.Status, o.CoveringMemberName, o.OriginalMemberName,
					o.CreatedAt.Format("2006-01-02"))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (active, cancelled, completed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

// CompleteOverridesCmd creates the completeOverrides command
func CompleteOverridesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "completeOverrides",
		Short: "Mark active overrides for finished assignments as completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().In(app.Cfg.Location())
			completed, err := services.CompletePastOverrides(app.Ctx, app.Database, app.Logger, now)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Completed %d override(s)\n\n", completed)
			return nil
		},
	}
}
