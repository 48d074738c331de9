package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/torqlabs/vcu/pkg/calibration"
)

func NewCalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calibration",
		Aliases: []string{"calibrate", "cali"},
		Short:   "Manage throttle sensor calibration",
		Long: `Start, monitor, and cancel a throttle calibration run.

During a run, sweep the pedal from fully released to fully pressed a
few times. The daemon records the extremes each sensor actually
reaches and commits them as the calibrated range when the run ends.`,
		GroupID: gCalibration,
	}

	var seconds int
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a calibration run",
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.StartCalibration(seconds)
			if err != nil {
				return fmt.Errorf("failed to start calibration: %w", err)
			}
			fmt.Println(ret)
			fmt.Println("Sweep the pedal through its full travel until the run ends.")
			return nil
		},
	}
	startCmd.Flags().IntVar(&seconds, "seconds", 0, "run duration in seconds (0 uses the daemon default)")

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the calibration run and restore the previous calibration",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := apiClient.CancelCalibration()
			if err != nil {
				return fmt.Errorf("failed to cancel calibration: %w", err)
			}
			fmt.Println("Calibration cancelled and previous calibration restored.")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show current calibration status",
		RunE: func(_ *cobra.Command, _ []string) error {
			st, err := apiClient.GetCalibrationStatus()
			if err != nil {
				return fmt.Errorf("failed to fetch calibration status: %w", err)
			}
			printCalibrationStatus(st)
			return nil
		},
	}

	cmd.AddCommand(startCmd, cancelCmd, statusCmd)
	return cmd
}

func printCalibrationStatus(st calibration.Status) {
	fmt.Printf("Phase: %s\n", bold(string(st.Phase)))
	if st.Phase == calibration.PhaseRunning {
		fmt.Printf("Remaining: %s\n", bold("%ds", st.RemainingSeconds))
	}
	if !st.StartedAt.IsZero() {
		fmt.Printf("Started: %s (%s ago)\n", st.StartedAt.Format(time.RFC3339), time.Since(st.StartedAt).Round(time.Second))
	}
	for _, ch := range st.Channels {
		if ch.Calibrated {
			fmt.Printf("%s: calibrated [%.3f V, %.3f V]\n", ch.Name, ch.CalibMin, ch.CalibMax)
		} else if st.Phase == calibration.PhaseRunning {
			fmt.Printf("%s: accumulating [%.3f V, %.3f V]\n", ch.Name, ch.CalibMin, ch.CalibMax)
		} else {
			fmt.Printf("%s: %s\n", ch.Name, bool2Text(false)+" uncalibrated")
		}
	}
	if st.LastError != "" {
		fmt.Printf("Last error: %s\n", st.LastError)
	}
}
