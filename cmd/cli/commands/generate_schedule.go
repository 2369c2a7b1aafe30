package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/whoseonfirst/pkg/core/services"
)

// GenerateScheduleCmd creates the generateSchedule command
func GenerateScheduleCmd(app *AppContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "generateSchedule <start_date> <weeks>",
		Short: "Generate on-call assignments from a start date for a number of weeks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := time.ParseInLocation("2006-01-02", args[0], app.Cfg.Location())
			if err != nil {
				return fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
			}
			weeks, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("weeks must be a number: %w", err)
			}

			result, err := services.GenerateSchedule(app.Ctx, app.Database, app.Logger, startDate, weeks, force)
			if errors.Is(err, services.ErrScheduleExists) {
				return fmt.Errorf("%w (use --force to regenerate)", err)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Schedule generated!\n\n")
			fmt.Printf("Week starting: %s\n", result.StartDate.Format("2006-01-02"))
			fmt.Printf("Weeks:         %d\n", result.Weeks)
			fmt.Printf("Assignments:   %d\n", len(result.Assignments))
			if result.Deleted > 0 {
				fmt.Printf("Replaced:      %d\n", result.Deleted)
			}
			fmt.Println()

			printAssignments(result.Assignments)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace existing assignments from the start date onward")
	return cmd
}

// RegenerateCmd creates the regenerate command
func RegenerateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <from_date> <weeks>",
		Short: "Rebuild the schedule from a date onward, preserving earlier history",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.ParseInLocation("2006-01-02", args[0], app.Cfg.Location())
			if err != nil {
				return fmt.Errorf("from_date must be YYYY-MM-DD: %w", err)
			}
			weeks, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("weeks must be a number: %w", err)
			}

			result, err := services.RegenerateFrom(app.Ctx, app.Database, app.Logger, from, weeks)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Schedule regenerated: %d assignments (%d replaced)\n\n",
				len(result.Assignments), result.Deleted)
			printAssignments(result.Assignments)
			return nil
		},
	}
}
