// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Conectric/conectric-usb-gateway-beta/pkg/conectric"
	"github.com/spf13/cobra"
)

var (
	sendDestination string
	sendWait        int

	rs485Raw bool

	chunkNumber int
	chunkSize   int

	uartBaud     int
	uartParity   string
	uartStopBits int
	uartBitMask  int

	ledTX       bool
	ledRX       bool
	ledActivity bool
	ledSensor   string
	ledLifetime int
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a command to a mesh node",
	Long: `Send an outbound command frame to one node in the mesh.

The engine first brings the dongle up (the same handshake the watch command
runs); the frame is written once the gateway reports ready. Replies, if any,
arrive as regular sensor messages and are printed by the watch command.

All subcommands require --dest, the node's 4-hex-digit short address.`,
}

var sendTextCmd = &cobra.Command{
	Use:   "text <message>",
	Short: "Send a text message to a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReadyGateway(func(g *conectric.Gateway) error {
			return g.SendTextMessage(conectric.TextMessageParams{
				Message:     args[0],
				Destination: sendDestination,
			})
		})
	},
}

var sendRS485Cmd = &cobra.Command{
	Use:   "rs485 <message>",
	Short: "Pass a request through a node's RS-485 port",
	Long: `Pass an opaque request through a node's RS-485 port.

By default the message is hex-encoded for the wire. With --raw the message
must already be a hex string and is sent as-is.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hexEncode := !rs485Raw
		return withReadyGateway(func(g *conectric.Gateway) error {
			return g.SendRS485Request(conectric.RS485RequestParams{
				Message:          args[0],
				Destination:      sendDestination,
				HexEncodePayload: &hexEncode,
			})
		})
	},
}

var sendChunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Request one chunk of an oversized RS-485 response",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReadyGateway(func(g *conectric.Gateway) error {
			return g.SendRS485ChunkRequest(conectric.RS485ChunkRequestParams{
				ChunkNumber: chunkNumber,
				ChunkSize:   chunkSize,
				Destination: sendDestination,
			})
		})
	},
}

var sendUARTConfigCmd = &cobra.Command{
	Use:   "uart-config",
	Short: "Configure a node's RS-485 UART",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReadyGateway(func(g *conectric.Gateway) error {
			return g.SendRS485Config(conectric.RS485ConfigParams{
				BaudRate:    uartBaud,
				Parity:      uartParity,
				StopBits:    uartStopBits,
				BitMask:     uartBitMask,
				Destination: sendDestination,
			})
		})
	},
}

var sendLEDConfigCmd = &cobra.Command{
	Use:   "led-config",
	Short: "Configure a node's LEDs and deployment lifetime",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReadyGateway(func(g *conectric.Gateway) error {
			return g.SendLEDConfig(conectric.LEDConfigParams{
				Destination: sendDestination,
				SensorType:  ledSensor,
				LEDs: conectric.LEDState{
					TX:       ledTX,
					RX:       ledRX,
					Activity: ledActivity,
				},
				DeploymentLifetime: ledLifetime,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.AddCommand(sendTextCmd, sendRS485Cmd, sendChunkCmd, sendUARTConfigCmd, sendLEDConfigCmd)

	sendCmd.PersistentFlags().StringVarP(&sendDestination, "dest", "d", "", "Destination node address (4 hex digits)")
	sendCmd.PersistentFlags().IntVar(&sendWait, "wait", 10, "Seconds to wait for gateway bring-up")
	sendCmd.MarkPersistentFlagRequired("dest")

	sendRS485Cmd.Flags().BoolVar(&rs485Raw, "raw", false, "Message is already hex, skip encoding")

	sendChunkCmd.Flags().IntVar(&chunkNumber, "number", 0, "Chunk number (0-255)")
	sendChunkCmd.Flags().IntVar(&chunkSize, "size", 64, "Chunk size in bytes (1-255)")

	sendUARTConfigCmd.Flags().IntVar(&uartBaud, "uart-baud", 9600, "UART baud rate (2400, 4800, 9600, 19200)")
	sendUARTConfigCmd.Flags().StringVar(&uartParity, "parity", "none", "Parity (none, odd, even)")
	sendUARTConfigCmd.Flags().IntVar(&uartStopBits, "stop-bits", 1, "Stop bits (1 or 2)")
	sendUARTConfigCmd.Flags().IntVar(&uartBitMask, "data-bits", 8, "Data bits (7 or 8)")

	sendLEDConfigCmd.Flags().BoolVar(&ledTX, "tx", false, "Enable the TX LED")
	sendLEDConfigCmd.Flags().BoolVar(&ledRX, "rx", false, "Enable the RX LED")
	sendLEDConfigCmd.Flags().BoolVar(&ledActivity, "activity", false, "Enable the activity LED")
	sendLEDConfigCmd.Flags().StringVar(&ledSensor, "sensor", "", "Target sensor type (moisture, motion, switch, tempHumidity, tempHumidityLight)")
	sendLEDConfigCmd.Flags().IntVar(&ledLifetime, "lifetime", 0, "Deployment lifetime (0-255)")
}

// withReadyGateway opens the connection, runs the bring-up handshake, waits
// until the gateway reports ready and hands the session to fn.
func withReadyGateway(fn func(*conectric.Gateway) error) error {
	opts, err := loadEngineOptions()
	if err != nil {
		return err
	}
	opts.OnSensorMessage = func(conectric.Message) {}

	ready := make(chan struct{})
	opts.OnGatewayReady = func(conectric.Identity) { close(ready) }

	g, err := conectric.NewGateway(opts)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info().Str("connection", connInfo).Msg("bringing gateway up")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- g.Run(ctx, conn) }()

	select {
	case <-ready:
	case err := <-runErr:
		return fmt.Errorf("gateway stopped during bring-up: %v", err)
	case <-time.After(time.Duration(sendWait) * time.Second):
		return fmt.Errorf("gateway not ready after %ds", sendWait)
	}

	if err := fn(g); err != nil {
		return err
	}
	logger.Info().Msg("command sent")

	// Give the transport a moment to flush before tearing down.
	time.Sleep(100 * time.Millisecond)
	return nil
}
