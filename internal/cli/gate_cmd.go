package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/spf13/cobra"
)

func parseAction(arg string) (schedule.GateAction, error) {
	switch strings.ToLower(arg) {
	case "in":
		return schedule.GateActionIn, nil
	case "out":
		return schedule.GateActionOut, nil
	default:
		return "", fmt.Errorf("action must be in or out, got %q", arg)
	}
}

func newGateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "gate in|out",
		Short:     "Check whether clocking in or out is allowed right now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"in", "out"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := parseAction(args[0])
			if err != nil {
				return err
			}

			client, err := app.NewAuthedClient()
			if err != nil {
				return err
			}

			gate, err := client.Gate(context.Background(), action)
			if err != nil {
				return err
			}
			return app.Write(RenderGate(gate), gate)
		},
	}
}

func newClockCmd(app *App) *cobra.Command {
	var lat, lng, accuracy float64
	var locationError string
	cmd := &cobra.Command{
		Use:   "clock in|out",
		Short: "Clock in or out at the given position",
		Long: "Clock in or out. Pass the device position with --lat/--lng, or the reason it\n" +
			"could not be determined with --location-error.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"in", "out"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := parseAction(args[0])
			if err != nil {
				return err
			}

			req := attendance.ClockRequest{
				Accuracy:      accuracy,
				LocationError: locationError,
			}
			latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			if latSet != lngSet {
				return fmt.Errorf("--lat and --lng must be given together")
			}
			if latSet {
				req.Latitude = &lat
				req.Longitude = &lng
			}
			if err := req.Validate(); err != nil {
				return err
			}

			client, err := app.NewAuthedClient()
			if err != nil {
				return err
			}

			result, err := client.Clock(context.Background(), action, req)
			if err != nil {
				return err
			}

			verb := "Clocked in"
			if action == schedule.GateActionOut {
				verb = "Clocked out"
			}
			human := fmt.Sprintf("%s at %s", verb, result.FormattedDisplay)
			if result.LocationName != nil && result.DistanceMeters != nil {
				human += fmt.Sprintf(" (%s, %.0f m)", *result.LocationName, *result.DistanceMeters)
			}
			return app.Write(human, result)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude in decimal degrees")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "Position accuracy in meters")
	cmd.Flags().StringVar(&locationError, "location-error", "", "Why no position is available: permission_denied, position_unavailable or timeout")
	return cmd
}
