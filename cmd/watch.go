// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Conectric/conectric-usb-gateway-beta/pkg/conectric"
	"github.com/spf13/cobra"
)

var watchStats bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream decoded sensor messages as JSON lines",
	Long: `Run the gateway engine and print every decoded sensor message to stdout,
one JSON object per line.

The engine brings the dongle up (dump mode, version query, MAC query, sink
mode) before any frame is accepted, so the first messages can take a couple
of seconds to appear.

Supports both serial and WebSocket connections.

Examples:
  # Stream from a local dongle
  congate watch --port /dev/ttyUSB0

  # Stream with an options file and raw frame text included
  congate watch --port /dev/ttyUSB0 --options gateway.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchStats, "stats", false, "Print session statistics on exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := loadEngineOptions()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	opts.OnSensorMessage = func(m conectric.Message) {
		if err := enc.Encode(m); err != nil {
			logger.Error().Err(err).Msg("failed to write message")
		}
	}
	opts.OnGatewayReady = func(id conectric.Identity) {
		logger.Info().
			Str("mac", id.MACAddress).
			Str("contiki", id.ContikiVersion).
			Str("conectric", id.ConectricVersion).
			Msg("gateway ready")
	}

	g, err := conectric.NewGateway(opts)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info().Str("connection", connInfo).Msg("watching for sensor messages")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = g.Run(ctx, conn)
	if watchStats {
		stats := g.Stats()
		fmt.Fprint(os.Stderr, stats.String())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
