package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/torqlabs/vcu/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("client: %s\n", version.Version)
			if v, err := apiClient.GetVersion(); err == nil {
				cmd.Printf("daemon: %s\n", v)
			}
		},
	}
}

func NewThrottleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "throttle",
		Short:   "Get the current validated throttle position",
		GroupID: gBasic,
		Long: `Get the current validated throttle position.

Prints the throttle fraction (0 to 1) produced by the dual-sensor
plausibility check, whether it can be trusted, and any active faults.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := apiClient.GetThrottle()
			if err != nil {
				return fmt.Errorf("failed to get throttle: %v", err)
			}

			cmd.Printf("Throttle: %s\n", bold("%.1f%%", rep.Value*100))
			cmd.Printf("Trusted: %s\n", bool2Text(rep.Trusted))
			for _, f := range rep.Faults {
				cmd.Printf("Fault: %s\n", f.String())
			}

			return nil
		},
	}
}

func NewSpeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "speed",
		Short:   "Get wheel and vehicle speeds",
		GroupID: gBasic,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := apiClient.GetSpeed()
			if err != nil {
				return fmt.Errorf("failed to get speed: %v", err)
			}

			if len(rep.WheelRPM) == 0 {
				cmd.Println("No wheel speed samples yet.")
				return nil
			}

			names := make([]string, 0, len(rep.WheelRPM))
			for name := range rep.WheelRPM {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				cmd.Printf("%s: %s\n", name, bold("%.1f RPM", rep.WheelRPM[name]))
			}
			cmd.Printf("Vehicle: %s\n", bold("%.1f MPH", rep.VehicleMPH))

			return nil
		},
	}
}

func NewToleranceCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "tolerance [fraction]",
		Short:   "Set the throttle cross-check tolerance",
		GroupID: gAdvanced,
		Long: `Set the throttle cross-check tolerance.

This is the allowed pedal-travel deviation between the two throttle
sensors, as a fraction of full travel between 0 and 1 exclusive. When
the sensors disagree by more than this, the throttle output drops to
the fail-safe value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			t, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid tolerance: %v", err)
			}

			ret, err := apiClient.SetTolerance(t)
			if err != nil {
				return fmt.Errorf("failed to set tolerance: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set throttle tolerance to %v", t)

			return nil
		},
	}
}
