// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Conectric/conectric-usb-gateway-beta/pkg/conectric"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
)

var (
	replayTiming bool
	replayStats  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Feed a recorded session back through the engine",
	Long: `Replay a capture made with the record command. Every line runs through
the full pipeline: identity gating, dedup, decoding and delivery, exactly as
it would live. Decoded messages are printed as JSON lines.

No connection flags are needed; the capture is the transport.

Examples:
  # Replay as fast as possible
  congate replay session.cbor

  # Replay with the original inter-record timing
  congate replay session.cbor --timing`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayTiming, "timing", false, "Reproduce the original inter-record delays")
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "Print session statistics when done")
}

func runReplay(cmd *cobra.Command, args []string) error {
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

	g, err := conectric.NewGateway(opts)
	if err != nil {
		return err
	}

	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("capture file: %w", err)
	}
	defer in.Close()

	dec := cbor.NewDecoder(bufio.NewReader(in))
	var prev time.Time
	count := 0

	for {
		var rec captureRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("capture record %d: %w", count+1, err)
		}

		if replayTiming && !prev.IsZero() {
			if gap := rec.At.Sub(prev); gap > 0 {
				time.Sleep(gap)
			}
		}
		prev = rec.At

		g.ProcessRecord(rec.Line)
		count++
	}

	logger.Info().Int("records", count).Msg("replay complete")
	if replayStats {
		stats := g.Stats()
		fmt.Fprint(os.Stderr, stats.String())
	}
	return nil
}
