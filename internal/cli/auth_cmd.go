package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored access token",
	}
	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthStatusCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))
	return cmd
}

func newAuthLoginCmd(app *App) *cobra.Command {
	var token string
	var fromStdin bool
	var noVerify bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token in the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if cmd.Flags().Changed("token") && fromStdin {
				return fmt.Errorf("use only one of --token or --token-stdin")
			}

			switch {
			case fromStdin:
				data, err := io.ReadAll(app.Stdin)
				if err != nil {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				token = strings.TrimSpace(string(data))
			case !cmd.Flags().Changed("token"):
				if !app.IsInteractive() {
					return errors.New("token is required; pass --token or --token-stdin when non-interactive")
				}
				secret, err := app.readSecret("Access token: ")
				if err != nil {
					return err
				}
				token = secret
			}
			if token == "" {
				return errors.New("token is required")
			}

			payload := map[string]any{"ok": true, "operation": "auth_login", "verified": !noVerify}
			if !noVerify {
				dash, err := app.newClient(token).Dashboard(ctx)
				if err != nil {
					return fmt.Errorf("token rejected by %s: %w", app.BaseURL(), err)
				}
				payload["employee_id"] = dash.EmployeeID
			}

			if err := SaveToken(token); err != nil {
				return err
			}

			human := "Token stored"
			if id, ok := payload["employee_id"].(string); ok && id != "" {
				human = fmt.Sprintf("Logged in as employee %s", id)
			}
			return app.Write(human, payload)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Access token (non-interactive; avoid shell history leaks)")
	cmd.Flags().BoolVar(&fromStdin, "token-stdin", false, "Read the access token from stdin")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Store the token without checking it against the portal")
	return cmd
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the stored token is accepted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.NewAuthedClient()
			if err != nil {
				payload := map[string]any{"ok": true, "operation": "auth_status", "authenticated": false}
				return app.Write("No stored token", payload)
			}

			dash, err := client.Dashboard(context.Background())
			if err != nil {
				payload := map[string]any{"ok": true, "operation": "auth_status", "authenticated": false, "reason": err.Error()}
				return app.Write("Stored token is invalid", payload)
			}

			payload := map[string]any{"ok": true, "operation": "auth_status", "authenticated": true, "employee_id": dash.EmployeeID}
			return app.Write(fmt.Sprintf("Authenticated as employee %s", dash.EmployeeID), payload)
		},
	}
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteToken(); err != nil {
				return err
			}
			payload := map[string]any{"ok": true, "operation": "auth_logout"}
			return app.Write("Token removed", payload)
		},
	}
}
