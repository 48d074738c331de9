package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/torqlabs/vcu/pkg/calibration"
	"github.com/torqlabs/vcu/pkg/config"
	"github.com/torqlabs/vcu/pkg/types"
)

type statusData struct {
	throttle types.ThrottleReport
	speed    types.SpeedReport
	channels types.ChannelsReport
	calib    calibration.Status
	config   *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	throttle, err := apiClient.GetThrottle()
	if err != nil {
		return nil, fmt.Errorf("failed to get throttle: %w", err)
	}

	speed, err := apiClient.GetSpeed()
	if err != nil {
		return nil, fmt.Errorf("failed to get speed: %w", err)
	}

	channels, err := apiClient.GetChannels()
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}

	calib, err := apiClient.GetCalibrationStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration status: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		throttle: throttle,
		speed:    speed,
		channels: channels,
		calib:    calib,
		config:   conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of the vcu",
		Long:    `Get throttle, speed, sensor channel, and calibration status, plus configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			conf := config.NewFileFromConfig(data.config, "")

			// Throttle.
			cmd.Println(bold("Throttle:"))
			cmd.Printf("  Position: %s\n", bold("%.1f%%", data.throttle.Value*100))
			cmd.Println("  Trusted: " + bool2Text(data.throttle.Trusted))
			if !data.throttle.Trusted {
				cmd.Println("    Output is held at the fail-safe value until every fault clears.")
			}
			for _, f := range data.throttle.Faults {
				cmd.Printf("  Fault: %s\n", color.New(color.Bold, color.FgRed).Sprint(f.String()))
			}

			cmd.Println()

			// Speed.
			cmd.Println(bold("Speed:"))
			if len(data.speed.WheelRPM) == 0 {
				cmd.Println("  No wheel speed samples yet.")
			} else {
				cmd.Printf("  Vehicle: %s\n", bold("%.1f MPH", data.speed.VehicleMPH))
			}

			cmd.Println()

			// Channels.
			cmd.Println(bold("Sensor channels:"))
			for _, ch := range data.channels.Channels {
				calibrated := bool2Text(ch.Calibrated)
				if ch.Fresh {
					cmd.Printf("  %s: %.3f (spec [%.3f, %.3f], calibrated: %s)\n",
						ch.Name, ch.LastValue, ch.SpecMin, ch.SpecMax, calibrated)
				} else {
					cmd.Printf("  %s: no sample (spec [%.3f, %.3f], calibrated: %s)\n",
						ch.Name, ch.SpecMin, ch.SpecMax, calibrated)
				}
			}

			cmd.Println()

			// Calibration.
			cmd.Println(bold("Calibration:"))
			cmd.Printf("  Phase: %s\n", bold(string(data.calib.Phase)))
			if data.calib.Phase == calibration.PhaseRunning {
				cmd.Printf("  Remaining: %s\n", bold("%ds", data.calib.RemainingSeconds))
			}
			if data.calib.LastError != "" {
				cmd.Printf("  Last error: %s\n", data.calib.LastError)
			}

			cmd.Println()

			// Config.
			cmd.Println(bold("Configuration:"))
			tMin, tMax := conf.ThrottleSpecRange()
			cmd.Printf("  Throttle sensor spec range: %s\n", bold("[%.2f V, %.2f V]", tMin, tMax))
			cmd.Printf("  Cross-check tolerance: %s\n", bold("%.0f%%", conf.ThrottleTolerance()*100))
			cmd.Printf("  Fail-safe value: %s\n", bold("%.2f", conf.FailSafeValue()))
			cmd.Printf("  Control cycle: %s\n", bold("%s", conf.LoopInterval()))
			cmd.Printf("  Default calibration duration: %s\n", bold("%s", conf.DefaultCalibrationDuration()))
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
			return nil
		},
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
