package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ViewSettingsCmd creates the viewSettings command
func ViewSettingsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "viewSettings",
		Short: "List all application settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := app.Database.GetAllSettings(app.Ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n%d setting(s)\n", len(settings))
			for _, s := range settings {
				fmt.Printf("  %-30s (%-5s) = %q\n", s.Key, s.ValueType, s.Value)
			}
			fmt.Println()
			return nil
		},
	}
}

// SetSettingCmd creates the setSetting command
func SetSettingCmd(app *AppContext) *cobra.Command {
	var valueType, description string

	cmd := &cobra.Command{
		Use:   "setSetting <key> <value>",
		Short: "Create or update an application setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Database.SetSettingValue(app.Ctx, args[0], args[1], valueType, description); err != nil {
				return err
			}
			fmt.Printf("\n✓ Setting %s updated\n\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&valueType, "type", "t", "str", "Value type (str, int, float, bool)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "What the setting controls")
	return cmd
}
