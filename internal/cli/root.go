package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	return newRootCmd(NewApp())
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "attendctl",
		Short:         "Check attendance records and clock in or out from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.LoadConfig(); err != nil {
				return err
			}
			switch app.OutputFormat {
			case "", FormatText, FormatJSON, FormatYAML:
			default:
				return fmt.Errorf("--output must be one of: %s, %s, %s", FormatText, FormatJSON, FormatYAML)
			}
			if app.BaseURL() == "" {
				return fmt.Errorf("base URL is not configured")
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&app.JSONOutput, "json", false, "Emit machine-readable JSON output")
	cmd.PersistentFlags().StringVarP(&app.OutputFormat, "output", "o", "", "Output format: text, json or yaml")
	cmd.PersistentFlags().StringVar(&app.BaseURLOverride, "base-url", "", "Override portal base URL")

	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newRecordsCmd(app))
	cmd.AddCommand(newSessionsCmd(app))
	cmd.AddCommand(newGateCmd(app))
	cmd.AddCommand(newClockCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}
