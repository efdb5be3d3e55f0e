package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI config",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigSetBaseURLCmd(app))
	cmd.AddCommand(newConfigSetEmployeeCmd(app))
	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"config_path": app.CfgPath,
				"base_url":    app.BaseURL(),
				"employee_id": app.Cfg.EmployeeID,
				"output":      app.Format(),
			}
			employee := app.Cfg.EmployeeID
			if employee == "" {
				employee = "(self)"
			}
			human := fmt.Sprintf("Config:   %s\nBase URL: %s\nEmployee: %s", app.CfgPath, app.BaseURL(), employee)
			return app.Write(human, payload)
		},
	}
}

func newConfigSetBaseURLCmd(app *App) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "set-base-url --url <url>",
		Short: "Set the portal base URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(strings.TrimSpace(baseURL))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("--url must be an absolute http(s) URL")
			}
			app.Cfg.BaseURL = strings.TrimRight(u.String(), "/")
			if err := app.SaveConfig(); err != nil {
				return err
			}
			payload := map[string]any{"ok": true, "operation": "config_set_base_url", "base_url": app.Cfg.BaseURL, "config_path": app.CfgPath}
			return app.Write(fmt.Sprintf("Base URL set to %s", app.Cfg.BaseURL), payload)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "Portal base URL, e.g. https://attendance.example.com")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newConfigSetEmployeeCmd(app *App) *cobra.Command {
	var employeeID string
	var reset bool
	cmd := &cobra.Command{
		Use:   "set-employee --id <employee_id>",
		Short: "Set the team member shown by records and sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case reset:
				app.Cfg.EmployeeID = ""
			case strings.TrimSpace(employeeID) == "":
				return fmt.Errorf("--id is required unless --clear is given")
			default:
				app.Cfg.EmployeeID = strings.TrimSpace(employeeID)
			}
			if err := app.SaveConfig(); err != nil {
				return err
			}
			payload := map[string]any{"ok": true, "operation": "config_set_employee", "employee_id": app.Cfg.EmployeeID, "config_path": app.CfgPath}
			human := "Showing your own attendance"
			if app.Cfg.EmployeeID != "" {
				human = fmt.Sprintf("Showing attendance of employee %s", app.Cfg.EmployeeID)
			}
			return app.Write(human, payload)
		},
	}
	cmd.Flags().StringVar(&employeeID, "id", "", "Employee ID")
	cmd.Flags().BoolVar(&reset, "clear", false, "Go back to your own attendance")
	return cmd
}
