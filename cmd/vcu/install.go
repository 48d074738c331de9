package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	daemonutils "github.com/torqlabs/vcu/pkg/utils/daemon"
)

func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "install",
		Short:   "Install the daemon as a systemd service",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := daemonutils.Install(); err != nil {
				return fmt.Errorf("failed to install daemon: %w. Are you root?", err)
			}

			logrus.Infof("installation succeeded")

			return nil
		},
	}
}

func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Stop and remove the systemd service",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := daemonutils.Uninstall(); err != nil {
				return fmt.Errorf("failed to uninstall daemon: %w. Are you root?", err)
			}

			logrus.Infof("uninstallation succeeded")

			return nil
		},
	}
}
