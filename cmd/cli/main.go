package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/cmd/cli/commands"
	"github.com/jakechorley/whoseonfirst/internal/config"
	"github.com/jakechorley/whoseonfirst/pkg/clients/twilioclient"
	"github.com/jakechorley/whoseonfirst/pkg/core/services"
	"github.com/jakechorley/whoseonfirst/pkg/postgres"
	"github.com/jakechorley/whoseonfirst/pkg/scheduler"
	"github.com/jakechorley/whoseonfirst/pkg/utils/logging"
)

var app *commands.AppContext

func main() {
	rootCmd := &cobra.Command{
		Use:   "whoseonfirst",
		Short: "WhoseOnFirst - On-call rotation and SMS dispatch",
		Long:  `Manages a fair on-call rotation, shift-start SMS notifications, manual overrides, and the background jobs that keep the schedule rolling.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(
		commands.GenerateScheduleCmd(appRef()),
		commands.RegenerateCmd(appRef()),
		commands.ViewScheduleCmd(appRef()),
		commands.NextShiftCmd(appRef()),
		commands.AddOverrideCmd(appRef()),
		commands.CancelOverrideCmd(appRef()),
		commands.ListOverridesCmd(appRef()),
		commands.CompleteOverridesCmd(appRef()),
		commands.NotifyCmd(appRef()),
		commands.NotifyAssignmentCmd(appRef()),
		commands.SendMessageCmd(appRef()),
		commands.WeeklySummaryCmd(appRef()),
		commands.RenewCmd(appRef()),
		commands.AddMemberCmd(appRef()),
		commands.DeactivateMemberCmd(appRef()),
		commands.ActivateMemberCmd(appRef()),
		commands.ListMembersCmd(appRef()),
		commands.ReorderRotationCmd(appRef()),
		commands.ListShiftsCmd(appRef()),
		commands.AddShiftCmd(appRef()),
		commands.NotificationLogCmd(appRef()),
		commands.NotificationStatsCmd(appRef()),
		commands.ViewSettingsCmd(appRef()),
		commands.SetSettingCmd(appRef()),
		commands.ServeCmd(appRef()),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// appRef returns the shared AppContext, created empty here and populated by
// initApp before any command runs
func appRef() *commands.AppContext {
	if app == nil {
		app = &commands.AppContext{}
	}
	return app
}

// initApp sets up logger, config, database, SMS client, and scheduler
func initApp() error {
	a := appRef()
	a.Ctx = context.Background()

	logger, err := logging.InitLogger("whoseonfirst")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.Cfg = cfg
	logger.Debug("Loaded config", zap.String("timezone", cfg.Timezone))

	database, err := postgres.NewDB(a.Ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(a.Ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.Database = database

	smsClient, err := twilioclient.New(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	if err != nil {
		return fmt.Errorf("failed to create SMS client: %w", err)
	}
	a.SMSClient = smsClient

	a.Settings = &services.Settings{Store: database}
	a.Dispatcher = services.NewDispatcher(database, smsClient, a.Settings, logger,
		cfg.SMS.MaxRetries, cfg.BaseDelay())

	a.Scheduler, err = scheduler.NewManager(cfg, database, a.Dispatcher, a.Settings, logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	return nil
}
