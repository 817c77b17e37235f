package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/rtdconv/pkg/server"
	"github.com/charlie0129/rtdconv/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

// NewServeCommand .
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Run the rtdconv server in the foreground",
		GroupID: gService,
		Long: `Run the HTTP server. It listens on the address set by "listen" in the
config file, which is either host:port or unix:///path/to/sock.

Send SIGHUP to reload the config file.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("rtdconv server starting")
			return server.Run(configPath)
		},
	}
}

func NewDegreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "degree [n]",
		Short:   "Set the server's polynomial fit degree",
		GroupID: gService,
		Long:    `Set the polynomial degree the server uses for poly_fit conversions. This is an integer from 1 to 15.`,
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := parseIntArg(args, "degree")
			if err != nil {
				return err
			}

			ret, err := newAPIClient().SetDegree(d)
			if err != nil {
				return err
			}
			if ret != "" {
				logrus.Infof("server responded: %s", ret)
			}
			return nil
		},
	}
}

func NewReferenceCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "reference [ohms]",
		Short:   "Set the server's reference resistance",
		GroupID: gService,
		Long:    `Set the resistance at 0 °C (R0) the server uses by default, e.g. 100 for Pt100 or 1000 for Pt1000.`,
		RunE: func(_ *cobra.Command, args []string) error {
			values, err := parseFloatArgs(args, "reference resistance")
			if err != nil {
				return err
			}
			if len(values) != 1 {
				return errInvalidArgs
			}

			ret, err := newAPIClient().SetReferenceResistance(values[0])
			if err != nil {
				return err
			}
			if ret != "" {
				logrus.Infof("server responded: %s", ret)
			}
			return nil
		},
	}
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show the server's configuration",
		GroupID: gService,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newAPIClient()
			v, err := c.GetVersion()
			if err != nil {
				return err
			}
			conf, err := c.GetConfig()
			if err != nil {
				return err
			}

			bold := color.New(color.Bold).SprintFunc()
			cmd.Printf("%s %s\n", bold("Server:"), serverAddr)
			cmd.Printf("  Version: %s\n", v)
			if conf.ReferenceResistance != nil {
				cmd.Printf("  Reference resistance: %s Ω\n", color.GreenString(strconv.FormatFloat(*conf.ReferenceResistance, 'g', -1, 64)))
			}
			if conf.Degree != nil {
				cmd.Printf("  Fit degree: %s\n", color.GreenString(strconv.Itoa(*conf.Degree)))
			}
			if conf.MaxFiles != nil {
				cmd.Printf("  Max files per upload: %d\n", *conf.MaxFiles)
			}
			if conf.Storage != nil {
				cmd.Printf("  Storage: %s\n", *conf.Storage)
			}
			return nil
		},
	}
}

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Print server events as they happen",
		GroupID: gService,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := newAPIClient().SubscribeEvents(ctx)
			if err != nil {
				return err
			}
			for ev := range ch {
				cmd.Printf("%s %s\n", color.CyanString(ev.Name), string(ev.Data))
			}
			return nil
		},
	}
}

func NewOutputsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "outputs",
		Short:   "List or delete outputs stored on the server",
		GroupID: gService,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outputs, err := newAPIClient().ListOutputs()
			if err != nil {
				return err
			}
			for _, o := range outputs {
				cmd.Printf("%s\t%s\n", o.ModTime.Local().Format(time.DateTime), o.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [names...]",
		Short: "Delete stored outputs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newAPIClient()
			for _, name := range args {
				if err := c.DeleteOutput(name); err != nil {
					return err
				}
				logrus.Infof("deleted %s", name)
			}
			return nil
		},
	})

	return cmd
}
