package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/rtdconv/pkg/config"
	daemonutils "github.com/charlie0129/rtdconv/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	user := ""

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install the rtdconv server as a systemd service",
		GroupID: gInstallation,
		Long: `Install the rtdconv server as a systemd service (system-wide).

This makes the server run in the background and start on boot. You must run
this command as root. The config file is created with defaults if it does not
exist yet.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			err = daemonutils.Install(configPath, logLevel, user)
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install service: %v. Are you root?", err)
			}

			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use the current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run `rtdconv install' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "run the service as this user instead of root")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the rtdconv systemd service",
		GroupID: gInstallation,
		Long: `Stop the rtdconv server and remove its systemd unit.

You must run this command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall service: %v", err)
			}

			fmt.Println("successfully uninstalled")

			cmd.Printf("Your config and outputs are kept (config: %s), in case you want to use `rtdconv' again.\n", configPath)

			return nil
		},
	}
}
