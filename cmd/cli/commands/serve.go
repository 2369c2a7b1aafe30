package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Scheduler.Start()
			fmt.Println("Scheduler running. Press Ctrl+C to stop.")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			sig := <-stop

			app.Logger.Info("Shutting down", zap.String("signal", sig.String()))
			app.Scheduler.Stop()
			return nil
		},
	}
}
