package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/whoseonfirst/pkg/core/services"
	"github.com/jakechorley/whoseonfirst/pkg/db"
)

func printAssignments(assignments []db.Assignment) {
	if len(assignments) == 0 {
		fmt.Println("No assignments found.")
		return
	}
	for _, a := range assignments {
		name := "unknown"
		if a.Member != nil {
			name = a.Member.Name
		}
		day := ""
		if a.Shift != nil {
			day = a.Shift.DayOfWeek
		}
		notified := " "
		if a.Notified {
			notified = "✓"
		}
		fmt.Printf("  [%s] %-20s %-20s %s → %s\n",
			notified, name, day,
			a.StartAt.Format("Mon 2006-01-02 15:04"),
			a.EndAt.Format("Mon 2006-01-02 15:04"))
	}
	fmt.Println()
}

// ViewScheduleCmd creates the viewSchedule command
func ViewScheduleCmd(app *AppContext) *cobra.Command {
	var (
		weeks    int
		from, to string
		memberID string
	)

	cmd := &cobra.Command{
		Use:   "viewSchedule",
		Short: "View on-call assignments for the current week, a window, or a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().In(app.Cfg.Location())

			var (
				assignments []db.Assignment
				err         error
			)
			switch {
			case memberID != "":
				var start, end *time.Time
				if from != "" {
					t, perr := time.ParseInLocation("2006-01-02", from, app.Cfg.Location())
					if perr != nil {
						return fmt.Errorf("--from must be YYYY-MM-DD: %w", perr)
					}
					start = &t
				}
				if to != "" {
					t, perr := time.ParseInLocation("2006-01-02", to, app.Cfg.Location())
					if perr != nil {
						return fmt.Errorf("--to must be YYYY-MM-DD: %w", perr)
					}
					end = &t
				}
				assignments, err = services.ScheduleByMember(app.Ctx, app.Database, memberID, start, end)
			case from != "" && to != "":
				start, perr := time.ParseInLocation("2006-01-02", from, app.Cfg.Location())
				if perr != nil {
					return fmt.Errorf("--from must be YYYY-MM-DD: %w", perr)
				}
				end, perr := time.ParseInLocation("2006-01-02", to, app.Cfg.Location())
				if perr != nil {
					return fmt.Errorf("--to must be YYYY-MM-DD: %w", perr)
				}
				assignments, err = services.ScheduleByDateRange(app.Ctx, app.Database, start, end)
			case weeks > 0:
				assignments, err = services.UpcomingSchedules(app.Ctx, app.Database, now, weeks)
			default:
				assignments, err = services.CurrentWeekSchedule(app.Ctx, app.Database, now)
			}
			if err != nil {
				return err
			}

			fmt.Println()
			printAssignments(assignments)
			return nil
		},
	}

	cmd.Flags().IntVarP(&weeks, "weeks", "w", 0, "Show the upcoming number of weeks")
	cmd.Flags().StringVar(&from, "from", "", "Window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&memberID, "member", "m", "", "Only this member's assignments")
	return cmd
}

// NextShiftCmd creates the nextShift command
func NextShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "nextShift <member_id>",
		Short: "Show a member's next upcoming assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().In(app.Cfg.Location())
			assignment, err := services.NextAssignmentForMember(app.Ctx, app.Database, args[0], now)
			if err != nil {
				return err
			}
			if assignment == nil {
				fmt.Println("\nNo upcoming assignment.")
				return nil
			}

			fmt.Println()
			printAssignments([]db.Assignment{*assignment})
			fmt.Printf("Starts in %s\n\n", assignment.StartAt.Sub(now).Round(time.Minute))
			return nil
		},
	}
}
