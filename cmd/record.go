// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Conectric/conectric-usb-gateway-beta/pkg/conectric"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
)

// captureRecord is one line of dongle output with its arrival time. Captures
// are a CBOR stream of these, small enough to record for hours and replayable
// through the same engine that ran live.
type captureRecord struct {
	At   time.Time `cbor:"1,keyasint"`
	Line string    `cbor:"2,keyasint"`
}

var recordDuration int

var recordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Capture a raw gateway session to a file",
	Long: `Record every line the dongle emits, bring-up replies and frames alike,
with arrival timestamps. The capture is a CBOR stream and can be fed back
through the engine with the replay command.

The bring-up handshake runs as usual so the dongle enters sink mode and
starts relaying frames.

Examples:
  # Capture until interrupted
  congate record session.cbor --port /dev/ttyUSB0

  # Capture five minutes
  congate record session.cbor --port /dev/ttyUSB0 --duration 300`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().IntVar(&recordDuration, "duration", 0, "Stop after this many seconds (0 = until interrupted)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	opts, err := loadEngineOptions()
	if err != nil {
		return err
	}
	opts.OnSensorMessage = func(conectric.Message) {}

	g, err := conectric.NewGateway(opts)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	out, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("capture file: %w", err)
	}
	defer out.Close()

	buffered := bufio.NewWriter(out)
	defer buffered.Flush()
	enc := cbor.NewEncoder(buffered)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(recordDuration)*time.Second)
		defer cancel()
	}

	if err := g.Attach(ctx, conn); err != nil {
		return err
	}
	defer g.Detach()

	logger.Info().Str("connection", connInfo).Str("file", args[0]).Msg("recording session")

	stopRead := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopRead()

	count := 0
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if err := enc.Encode(captureRecord{At: time.Now(), Line: line}); err != nil {
			return fmt.Errorf("capture write: %w", err)
		}
		count++

		// Still drive the handshake so the dongle reaches sink mode.
		g.ProcessRecord(line)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("transport read: %w", err)
	}

	logger.Info().Int("records", count).Msg("capture complete")
	return nil
}
