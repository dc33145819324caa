// SPDX-License-Identifier: Apache-2.0

package conectric

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Gateway. Build it with DefaultOptions and override
// what you need; defaults are applied once at construction, never during
// record processing.
type Options struct {
	// OnSensorMessage receives every decoded sensor message. Required.
	OnSensorMessage func(Message)

	// OnGatewayReady fires once per bring-up cycle when the dongle has
	// identified itself and sink mode is confirmed.
	OnGatewayReady func(Identity)

	SendAdcWithLux           bool
	SendRawData              bool
	SendRawLux               bool
	SendBootMessages         bool // default true
	SendStatusMessages       bool
	SendDecodedPayload       bool // default true
	SendEventCount           bool
	UseFahrenheitTemps       bool
	UseMillisecondTimestamps bool
	SwitchOpenValue          bool
	DeDuplicateBursts        bool // default true
	DecodeTextMessages       bool // default true
	SendHopData              bool
	DebugMode                bool

	// Logger receives drop/suppress diagnostics at debug level. Defaults to
	// a no-op logger.
	Logger zerolog.Logger
}

// DefaultOptions returns the documented option defaults.
func DefaultOptions() Options {
	return Options{
		SendBootMessages:   true,
		SendDecodedPayload: true,
		DeDuplicateBursts:  true,
		DecodeTextMessages: true,
		Logger:             zerolog.Nop(),
	}
}

// Gateway is one protocol session with a gateway dongle. It owns the
// handshake state machine, the dedup cache and the statistics; there are no
// package-level globals. Records are processed one at a time: ProcessRecord
// runs each record to completion before the next is considered.
type Gateway struct {
	opts Options
	log  zerolog.Logger

	mu            sync.Mutex
	conn          io.Writer
	identity      Identity
	state         State
	sinkConfirmed bool
	readyFired    bool

	writeMu sync.Mutex

	dedup *dedupCache
	stats *Statistics
}

// NewGateway validates the options and builds a detached session. The only
// fatal configuration error is a missing sensor message callback.
func NewGateway(opts Options) (*Gateway, error) {
	if opts.OnSensorMessage == nil {
		return nil, fmt.Errorf("%w: OnSensorMessage callback is required", ErrValidation)
	}

	logger := opts.Logger
	if opts.DebugMode {
		logger = logger.Level(zerolog.DebugLevel)
	}

	return &Gateway{
		opts:  opts,
		log:   logger,
		state: StateDisconnected,
		dedup: newDedupCache(dedupWindow),
		stats: NewStatistics(),
	}, nil
}

// Attach binds a transport and starts the bring-up sequence. The caller
// keeps ownership of the read side; records must be fed to ProcessRecord.
// Use Run when the Gateway should own the read loop too.
func (g *Gateway) Attach(ctx context.Context, conn io.Writer) error {
	g.mu.Lock()
	if g.conn != nil {
		g.mu.Unlock()
		return fmt.Errorf("gateway already attached")
	}
	g.conn = conn
	g.state = StatePortOpen
	g.mu.Unlock()

	g.dedup.StartSweeper(dedupSweepInterval)
	go g.runHandshake(ctx)

	g.log.Info().Msg("transport attached, starting bring-up")
	return nil
}

// Detach drops the transport and resets all bring-up state. The identity is
// cleared; reattaching re-runs the full handshake. No partial frame state
// survives a transport loss.
func (g *Gateway) Detach() {
	g.dedup.Stop()

	g.mu.Lock()
	g.conn = nil
	g.identity = Identity{}
	g.state = StateDisconnected
	g.sinkConfirmed = false
	g.readyFired = false
	g.dedup = newDedupCache(dedupWindow)
	g.mu.Unlock()

	g.log.Info().Msg("transport detached, gateway state reset")
}

// Close tears the session down. The transport itself belongs to the caller
// and is not closed here.
func (g *Gateway) Close() error {
	g.Detach()
	return nil
}

// Run attaches the transport and consumes newline-delimited records until
// the context is cancelled or the transport fails. The transport is closed
// on cancellation to unblock the read.
func (g *Gateway) Run(ctx context.Context, conn io.ReadWriteCloser) error {
	if err := g.Attach(ctx, conn); err != nil {
		return err
	}
	defer g.Detach()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		g.ProcessRecord(scanner.Text())
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("transport read: %w", err)
	}
	return ctx.Err()
}

// State reports the current handshake state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Identity reports the dongle identity learned so far.
func (g *Gateway) Identity() Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity
}

// Ready reports whether frames are being accepted and commands may be sent.
func (g *Gateway) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == StateSinkModeReady && g.identity.Complete()
}

// Stats returns a snapshot of the session counters.
func (g *Gateway) Stats() Statistics {
	return g.stats.Snapshot()
}

// runHandshake issues the fixed bring-up command sequence. Order matters
// (DP before VER before MR before SS); the delays only pace the dongle's
// input buffer and tolerate any additional slack.
func (g *Gateway) runHandshake(ctx context.Context) {
	steps := []struct {
		name string
		send func() error
	}{
		{handshakeCmdDumpMode, func() error { return g.writeLine(handshakeCmdDumpMode) }},
		{handshakeCmdVersion, g.writeVersionCommand},
		{handshakeCmdMac, func() error { return g.writeLine(handshakeCmdMac) }},
		{handshakeCmdSinkMode, func() error { return g.writeLine(handshakeCmdSinkMode) }},
	}

	for i, step := range steps {
		if i > 0 {
			select {
			case <-time.After(handshakeDelay):
			case <-ctx.Done():
				return
			}
		}
		if err := step.send(); err != nil {
			g.log.Warn().Err(err).Str("command", step.name).Msg("bring-up command failed")
			return
		}
		g.log.Debug().Str("command", step.name).Msg("bring-up command sent")
		if i == 0 {
			g.advance(StateAwaitingMac)
		}
	}
}

// writeVersionCommand writes V, E, R as single raw characters before the
// line break. Some dongle firmware drops VER when it arrives in one burst.
func (g *Gateway) writeVersionCommand() error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	conn := g.transport()
	if conn == nil {
		return ErrNotReady
	}
	for _, c := range []byte(handshakeCmdVersion) {
		if _, err := conn.Write([]byte{c}); err != nil {
			return err
		}
	}
	_, err := conn.Write([]byte("\n"))
	return err
}

func (g *Gateway) transport() io.Writer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn
}

// writeLine writes one ASCII line to the transport, fire-and-forget. Any
// acknowledgement arrives later as its own inbound record.
func (g *Gateway) writeLine(line string) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	conn := g.transport()
	if conn == nil {
		return ErrNotReady
	}
	_, err := conn.Write([]byte(line + "\n"))
	return err
}

// ProcessRecord runs one inbound text record through the engine: bring-up
// records feed the handshake state machine, '>'-prefixed records are frames.
// Exported so captures can be replayed without a transport.
func (g *Gateway) ProcessRecord(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	g.stats.add(&g.stats.TotalRecords)

	if strings.HasPrefix(line, ">") {
		g.handleFrame(line)
		return
	}
	g.handleControlRecord(line)
}

// advance moves the handshake state forward; transitions never go backwards
// while attached, whatever order the dongle replies in.
func (g *Gateway) advance(s State) {
	g.mu.Lock()
	if s > g.state {
		g.state = s
	}
	g.mu.Unlock()
}

func (g *Gateway) handleControlRecord(line string) {
	lower := strings.ToLower(line)

	switch {
	case strings.HasPrefix(line, recordPrefixMac):
		addr := line[len(recordPrefixMac):]
		if len(addr) < 4 {
			g.log.Debug().Str("record", line).Msg("MAC record too short")
			return
		}
		g.mu.Lock()
		g.identity.MACAddress = addr
		g.mu.Unlock()
		g.advance(StateAwaitingVersions)
		g.log.Debug().Str("mac", addr).Msg("gateway MAC learned")

	case strings.HasPrefix(lower, recordPrefixConectric):
		g.mu.Lock()
		g.identity.ConectricVersion = line[len(recordPrefixConectric):]
		g.mu.Unlock()
		g.log.Debug().Str("version", line[len(recordPrefixConectric):]).Msg("conectric version learned")

	case strings.HasPrefix(lower, recordPrefixContiki):
		g.mu.Lock()
		g.identity.ContikiVersion = line[len(recordPrefixContiki):]
		g.mu.Unlock()
		g.log.Debug().Str("version", line[len(recordPrefixContiki):]).Msg("contiki version learned")

	case line == recordDumpModeOk:
		g.advance(StateDumpModeConfirmed)
		g.log.Debug().Msg("dump mode confirmed")

	case line == recordSinkModeOk:
		g.mu.Lock()
		g.sinkConfirmed = true
		g.mu.Unlock()
		g.advance(StateSinkModeReady)
		g.log.Debug().Msg("sink mode confirmed")

	case expectedEchoes[line]:
		// Command echo, expected and carries nothing.

	default:
		g.log.Debug().Str("record", line).Msg("unrecognized record")
	}

	g.maybeFireReady()
}

// maybeFireReady fires the ready notification exactly once per bring-up
// cycle, as soon as sink mode is confirmed and the identity is complete.
func (g *Gateway) maybeFireReady() {
	g.mu.Lock()
	fire := g.sinkConfirmed && g.identity.Complete() && !g.readyFired
	if fire {
		g.readyFired = true
	}
	identity := g.identity
	g.mu.Unlock()

	if !fire {
		return
	}
	g.log.Info().
		Str("mac", identity.MACAddress).
		Str("contiki", identity.ContikiVersion).
		Str("conectric", identity.ConectricVersion).
		Msg("gateway ready")
	if g.opts.OnGatewayReady != nil {
		g.opts.OnGatewayReady(identity)
	}
}

// handleFrame runs the frame pipeline: identity gate, header parse, registry
// lookup, dedup, payload decode, delivery. Every failure is a drop with a
// debug log, never an error surfaced to the caller.
func (g *Gateway) handleFrame(line string) {
	g.mu.Lock()
	complete := g.identity.Complete()
	g.mu.Unlock()
	if !complete {
		g.stats.add(&g.stats.PrematureFrames)
		g.log.Debug().Str("record", line).Msg("frame before gateway identified, dropped")
		return
	}
	g.stats.add(&g.stats.Frames)

	// Strip the '>' prefix and the trailing 4-hex-digit checksum. The
	// checksum is not validated here; the dongle already did.
	body := line[1:]
	if len(body) < 4+2 {
		g.stats.add(&g.stats.DecodeErrors)
		g.log.Debug().Str("record", line).Msg("frame too short, dropped")
		return
	}
	body = body[:len(body)-4]

	hdr, err := ParseFrameHeader(body)
	if err != nil {
		g.stats.add(&g.stats.HeaderRejects)
		g.log.Debug().Err(err).Str("record", line).Msg("unsupported frame header, dropped")
		return
	}

	typeStart := 2 + hdr.Length*2
	typeEnd := typeStart + 2
	if hdr.Length < 3 || typeEnd > len(body) {
		g.stats.add(&g.stats.DecodeErrors)
		g.log.Debug().Int("headerLength", hdr.Length).Str("record", line).
			Msg("header length out of range, dropped")
		return
	}

	code := strings.ToLower(body[typeStart:typeEnd])
	if ignorableTypes[code] {
		g.stats.add(&g.stats.IgnoredTypes)
		return
	}
	typ, ok := messageTypes[code]
	if !ok {
		g.stats.add(&g.stats.UnknownTypes)
		g.log.Debug().Str("code", code).Msg("unknown message type, dropped")
		return
	}

	seq, err := strconv.ParseUint(body[2:4], 16, 8)
	if err != nil {
		g.stats.add(&g.stats.DecodeErrors)
		g.log.Debug().Err(err).Str("record", line).Msg("bad sequence field, dropped")
		return
	}

	// The source address is the last two bytes of the header region,
	// preserved exactly as it appeared on the wire.
	source := body[typeStart-4 : typeStart]
	messageData := body[typeEnd:]

	if g.opts.DeDuplicateBursts {
		key := source + strconv.FormatUint(seq, 10) + dedupDiscriminant(typ, messageData)
		if !g.dedup.CheckAndInsert(key) {
			g.stats.add(&g.stats.Duplicates)
			g.log.Debug().Str("source", source).Uint64("seq", seq).Msg("duplicate burst, dropped")
			return
		}
	}

	result, err := decodePayload(typ, messageData, g.opts)
	if err != nil {
		g.stats.add(&g.stats.DecodeErrors)
		g.log.Debug().Err(err).Str("type", typ).Str("record", line).Msg("payload decode failed, dropped")
		return
	}
	if !result.deliver {
		g.stats.add(&g.stats.Suppressed)
		g.log.Debug().Str("type", result.typ).Msg("message suppressed by configuration")
		return
	}

	now := time.Now()
	msg := Message{
		Type:           result.typ,
		SensorID:       source,
		SequenceNumber: int(seq),
		Timestamp:      now.Unix(),
	}
	if g.opts.UseMillisecondTimestamps {
		msg.Timestamp = now.UnixMilli()
	}
	if g.opts.SendDecodedPayload {
		msg.Payload = result.payload
	}
	if g.opts.SendRawData {
		msg.RawData = line
	}
	if g.opts.SendHopData && broadcastTypes[typ] && hdr.Length >= 5 {
		if numHops, err := strconv.ParseUint(body[4:6], 16, 8); err == nil {
			if maxHops, err := strconv.ParseUint(body[6:8], 16, 8); err == nil {
				n, m := int(numHops), int(maxHops)
				msg.NumHops = &n
				msg.MaxHops = &m
			}
		}
	}

	g.stats.add(&g.stats.Delivered)
	g.opts.OnSensorMessage(msg)
}

// SendTextMessage transmits a text message frame. Validation failures are
// returned and nothing is written.
func (g *Gateway) SendTextMessage(p TextMessageParams) error {
	frame, err := BuildTextMessage(p)
	if err != nil {
		return g.rejected(err)
	}
	return g.writeLine(frame)
}

// SendRS485Request transmits an RS-485 pass-through request.
func (g *Gateway) SendRS485Request(p RS485RequestParams) error {
	frame, err := BuildRS485Request(p)
	if err != nil {
		return g.rejected(err)
	}
	return g.writeLine(frame)
}

// SendRS485ChunkRequest requests one chunk of an oversized RS-485 response.
func (g *Gateway) SendRS485ChunkRequest(p RS485ChunkRequestParams) error {
	frame, err := BuildRS485ChunkRequest(p)
	if err != nil {
		return g.rejected(err)
	}
	return g.writeLine(frame)
}

// SendRS485Config configures a node's RS-485 UART.
func (g *Gateway) SendRS485Config(p RS485ConfigParams) error {
	frame, err := BuildRS485Config(p)
	if err != nil {
		return g.rejected(err)
	}
	return g.writeLine(frame)
}

// SendLEDConfig configures a node's LEDs and deployment lifetime.
func (g *Gateway) SendLEDConfig(p LEDConfigParams) error {
	frame, err := BuildLEDConfig(p)
	if err != nil {
		return g.rejected(err)
	}
	return g.writeLine(frame)
}

func (g *Gateway) rejected(err error) error {
	g.log.Warn().Err(err).Msg("outbound command rejected")
	return err
}
