package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/whoseonfirst/pkg/core/services"
)

func printOutcome(o services.SendOutcome) {
	switch o.Status {
	case services.OutcomeSent:
		fmt.Printf("  ✓ %-20s sent (provider %s, %d attempt(s))\n", o.Recipient, o.ProviderID, o.Attempts)
	case services.OutcomeSkipped:
		fmt.Printf("  - %-20s already notified, skipped\n", o.AssignmentID)
	default:
		fmt.Printf("  ✗ %-20s %s", o.Recipient, o.Status)
		if o.Err != nil {
			fmt.Printf(": %v", o.Err)
		}
		fmt.Println()
	}
}

// NotifyCmd creates the notify command
func NotifyCmd(app *AppContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send shift-start notifications for today's pending assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Scheduler.RunDailyNotifications(app.Ctx, force)
			if err != nil {
				return err
			}

			fmt.Printf("\nNotification run: %d total, %d sent, %d failed, %d skipped\n\n",
				result.Total, result.Successful, result.Failed, result.Skipped)
			for _, o := range result.Outcomes {
				printOutcome(o)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Resend even already-notified assignments")
	return cmd
}

// NotifyAssignmentCmd creates the notifyAssignment command
func NotifyAssignmentCmd(app *AppContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "notifyAssignment <assignment_id>",
		Short: "Send the shift-start notification for one assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignment, err := app.Database.GetAssignment(app.Ctx, args[0])
			if err != nil {
				return err
			}
			if assignment == nil {
				return fmt.Errorf("%w: %s", services.ErrAssignmentNotFound, args[0])
			}

			outcome := app.Dispatcher.SendShiftNotification(app.Ctx, assignment, force)
			fmt.Println()
			printOutcome(outcome)
			fmt.Println()
			if outcome.Err != nil {
				return outcome.Err
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Resend even if already notified")
	return cmd
}

// SendMessageCmd creates the sendMessage command
func SendMessageCmd(app *AppContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "sendMessage <phone> <message>",
		Short: "Send an ad-hoc SMS message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := app.Dispatcher.SendManual(app.Ctx, name, args[0], args[1])
			fmt.Println()
			printOutcome(outcome)
			fmt.Println()
			if outcome.Err != nil {
				return outcome.Err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "manual", "Recipient name for the notification log")
	return cmd
}

// WeeklySummaryCmd creates the weeklySummary command
func WeeklySummaryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "weeklySummary",
		Short: "Compose and send the weekly on-call digest now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Scheduler.RunWeeklySummary(app.Ctx); err != nil {
				return err
			}
			fmt.Printf("\n✓ Weekly summary sent\n\n")
			return nil
		},
	}
}

// RenewCmd creates the renew command
func RenewCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "renew",
		Short: "Run the schedule auto-renewal check now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Scheduler.RunAutoRenewal(app.Ctx)
			if err != nil {
				return err
			}

			if result.Renewed {
				fmt.Printf("\n✓ Schedule renewed: %d new assignments (%.1f weeks remained)\n\n",
					result.Generated, result.WeeksRemaining)
			} else {
				fmt.Printf("\nNo renewal: %s\n\n", result.Reason)
			}
			return nil
		},
	}
}
