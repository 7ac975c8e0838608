// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowmill/common/clickhousedb"
	"flowmill/common/daemon"
	"flowmill/common/httpserver"
	"flowmill/common/reporter"
	"flowmill/inlet/core"
	"flowmill/inlet/device"
	"flowmill/inlet/flow"
	"flowmill/inlet/storage"
)

// ServeConfiguration represents the configuration file for the serve command.
type ServeConfiguration struct {
	Reporting  reporter.Configuration
	HTTP       httpserver.Configuration
	ClickHouse clickhousedb.Configuration
	Storage    storage.Configuration
	Flow       flow.Configuration
	Device     device.Configuration
	Core       core.Configuration
}

// Reset resets the configuration for the serve command to its default value.
func (c *ServeConfiguration) Reset() {
	*c = ServeConfiguration{
		Reporting:  reporter.DefaultConfiguration(),
		HTTP:       httpserver.DefaultConfiguration(),
		ClickHouse: clickhousedb.DefaultConfiguration(),
		Storage:    storage.DefaultConfiguration(),
		Flow:       flow.DefaultConfiguration(),
		Device:     device.DefaultConfiguration(),
		Core:       core.DefaultConfiguration(),
	}
}

type serveOptions struct {
	ConfigRelatedOptions
	CheckMode bool
}

// ServeOptions stores the command-line option values for the serve
// command.
var ServeOptions serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve config.yaml",
	Short: "Start flowmill",
	Long: `Flowmill is a NetFlow/IPFIX/sFlow collector. It decodes incoming flow
datagrams and stores them into ClickHouse.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := ServeConfiguration{}
		config.Reset()
		ServeOptions.Path = args[0]
		if err := ServeOptions.Parse(cmd.OutOrStdout(), "serve", &config); err != nil {
			return err
		}

		r, err := reporter.New(config.Reporting)
		if err != nil {
			return fmt.Errorf("unable to initialize reporter: %w", err)
		}
		return serveStart(r, config, ServeOptions.CheckMode)
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVarP(&ServeOptions.ConfigRelatedOptions.Dump, "dump", "D", false,
		"Dump configuration before starting")
	serveCmd.Flags().BoolVarP(&ServeOptions.CheckMode, "check", "C", false,
		"Check configuration, but does not start")
}

func serveStart(r *reporter.Reporter, config ServeConfiguration, checkOnly bool) error {
	daemonComponent, err := daemon.New(r)
	if err != nil {
		return fmt.Errorf("unable to initialize daemon component: %w", err)
	}
	httpComponent, err := httpserver.New(r, config.HTTP, httpserver.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize http component: %w", err)
	}
	clickhouseComponent, err := clickhousedb.New(r, config.ClickHouse, clickhousedb.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize ClickHouse component: %w", err)
	}
	storageComponent, err := storage.New(r, config.Storage, storage.Dependencies{
		Daemon:     daemonComponent,
		ClickHouse: clickhouseComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize storage component: %w", err)
	}
	flowComponent, err := flow.New(r, config.Flow, flow.Dependencies{
		Daemon: daemonComponent,
		HTTP:   httpComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize flow component: %w", err)
	}
	deviceComponent, err := device.New(r, config.Device, device.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize device component: %w", err)
	}
	coreComponent, err := core.New(r, config.Core, core.Dependencies{
		Daemon:  daemonComponent,
		Flow:    flowComponent,
		Device:  deviceComponent,
		Storage: storageComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize core component: %w", err)
	}

	// Expose some informations and metrics
	addCommonHTTPHandlers(r, httpComponent)
	versionMetrics(r)

	// If we only asked for a check, stop here.
	if checkOnly {
		return nil
	}

	// Start all the components. The flow component is started last:
	// everything downstream must be ready before ingestion begins.
	components := []interface{}{
		httpComponent,
		clickhouseComponent,
		storageComponent,
		deviceComponent,
		coreComponent,
		flowComponent,
	}
	return StartStopComponents(r, daemonComponent, components)
}
