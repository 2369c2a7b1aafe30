package commands

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// ListShiftsCmd creates the listShifts command
func ListShiftsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listShifts",
		Short: "List shift definitions in rotation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shifts, err := app.Database.GetShiftsOrdered(app.Ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n%d shift(s)\n", len(shifts))
			for _, s := range shifts {
				fmt.Printf("  %2d. %-20s %2dh starting %s\n", s.ShiftNumber, s.DayOfWeek, s.DurationHours, s.StartTime)
			}
			fmt.Println()
			return nil
		},
	}
}

// AddShiftCmd creates the addShift command
func AddShiftCmd(app *AppContext) *cobra.Command {
	var startTime string

	cmd := &cobra.Command{
		Use:   "addShift <shift_number> <day_of_week> <duration_hours>",
		Short: "Add a shift definition",
		Long:  "day_of_week is a weekday name, or a pair like Tuesday-Wednesday for a 48-hour shift.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("shift_number must be a number: %w", err)
			}
			duration, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("duration_hours must be a number: %w", err)
			}

			shift := &db.Shift{
				ID:            uuid.New().String(),
				ShiftNumber:   number,
				DayOfWeek:     args[1],
				DurationHours: duration,
				StartTime:     startTime,
			}
			if err := app.Database.InsertShift(app.Ctx, shift); err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift %d added: %s, %dh from %s\n\n", number, args[1], duration, startTime)
			return nil
		},
	}

	cmd.Flags().StringVar(&startTime, "start-time", "08:00", "Shift start time (HH:MM)")
	return cmd
}
