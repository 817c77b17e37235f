package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/rtdconv/pkg/client"
)

var (
	logLevel   = "info"
	configPath = "/etc/rtdconv.json"
	serverAddr = "127.0.0.1:5000"
)

var (
	gConversion   = "Conversion:"
	gService      = "Service:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gConversion,
		gService,
		gInstallation,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrServerNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: rtdconv server is not running")
		fmt.Fprintf(os.Stderr, "Is it listening on %s? Start it with 'rtdconv serve' or point --server at it.\n", serverAddr)
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rtdconv",
		Short: "rtdconv converts platinum RTD resistance readings to temperature",
		Long: `rtdconv converts platinum RTD (Pt100, Pt1000, ...) resistance readings to
temperature, either by inverting the Callendar-Van Dusen equation or by fitting
a polynomial to calibration data, and reports the error against measured
temperatures.

Conversions run locally. The same conversions are offered over HTTP by
'rtdconv serve'; commands in the Service group talk to that server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&serverAddr, "server", serverAddr, "rtdconv server address, host:port, http(s)://host:port or unix:///path/to/sock")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewVersionCommand(),
		NewConvertCommand(),
		NewBatchCommand(),
		NewFitCommand(),
		NewTableCommand(),
		NewExportCommand(),
		NewPlotCommand(),
		NewServeCommand(),
		NewDegreeCommand(),
		NewReferenceCommand(),
		NewStatusCommand(),
		NewWatchCommand(),
		NewOutputsCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
