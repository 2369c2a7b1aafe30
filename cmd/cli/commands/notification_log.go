package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/whoseonfirst/pkg/core/services"
)

// NotificationLogCmd creates the notificationLog command
func NotificationLogCmd(app *AppContext) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "notificationLog <assignment_id>",
		Short: "Show an assignment's delivery attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if refresh {
				updated, err := services.RefreshDeliveryStatuses(app.Ctx, app.Database, app.SMSClient, app.Logger, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("\nRefreshed %d delivery status(es)\n", updated)
			}

			records, err := services.NotificationHistory(app.Ctx, app.Database, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n%d delivery attempt(s)\n", len(records))
			for _, r := range records {
				detail := r.ProviderID
				if r.ErrorMessage != "" {
					detail = r.ErrorMessage
				}
				fmt.Printf("  %s  %-12s %-15s %s\n",
					r.CreatedAt.Format("2006-01-02 15:04:05"), r.Status, r.RecipientPhone, detail)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Poll the provider for final delivery statuses first")
	return cmd
}

// NotificationStatsCmd creates the notificationStats command
func NotificationStatsCmd(app *AppContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "notificationStats",
		Short: "Show the delivery success rate over a recent window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			since := time.Now().In(app.Cfg.Location()).AddDate(0, 0, -days)
			rate, err := services.DeliverySuccessRate(app.Ctx, app.Database, since)
			if err != nil {
				return err
			}

			fmt.Printf("\nDelivery success rate over the last %d day(s): %.1f%%\n\n", days, rate*100)
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "Window size in days")
	return cmd
}
