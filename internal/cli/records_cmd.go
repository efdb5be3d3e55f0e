package cli

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
	"github.com/spf13/cobra"
)

func newRecordsCmd(app *App) *cobra.Command {
	var from, to, employeeID string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show daily attendance records with night shifts merged",
		RunE: func(cmd *cobra.Command, args []string) error {
			for flag, value := range map[string]string{"from": from, "to": to} {
				if value == "" {
					continue
				}
				if _, ok := validator.IsValidDate(value); !ok {
					return fmt.Errorf("--%s must be in YYYY-MM-DD format", flag)
				}
			}

			client, err := app.NewAuthedClient()
			if err != nil {
				return err
			}
			ctx := context.Background()

			if id := app.teamMember(employeeID); id != "" {
				if from != "" || to != "" {
					return fmt.Errorf("--from/--to are not supported for team members; their dashboard covers the default history window")
				}
				dash, err := client.TeamDashboard(ctx, id)
				if err != nil {
					return err
				}
				return app.Write(RenderRecords(dash.Records), dash.Records)
			}

			result, err := client.Records(ctx, from, to)
			if err != nil {
				return err
			}
			human := fmt.Sprintf("%s to %s\n%s", result.StartDate, result.EndDate, RenderRecords(result.Records))
			return app.Write(human, result)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&employeeID, "employee", "", "Team member to show (team leaders only)")
	return cmd
}

func newSessionsCmd(app *App) *cobra.Command {
	var employeeID string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show work sessions and the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.NewAuthedClient()
			if err != nil {
				return err
			}
			ctx := context.Background()

			var dash attendance.DashboardResponse
			if id := app.teamMember(employeeID); id != "" {
				dash, err = client.TeamDashboard(ctx, id)
			} else {
				dash, err = client.Dashboard(ctx)
			}
			if err != nil {
				return err
			}

			payload := map[string]any{
				"employee_id":    dash.EmployeeID,
				"active_session": dash.ActiveSession,
				"sessions":       dash.Sessions,
			}
			return app.Write(RenderSessions(dash.Sessions, dash.ActiveSession), payload)
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee", "", "Team member to show (team leaders only)")
	return cmd
}

// teamMember resolves the employee to view: the flag, then the configured default.
func (a *App) teamMember(flag string) string {
	if flag != "" {
		return flag
	}
	return a.Cfg.EmployeeID
}
