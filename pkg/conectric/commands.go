// SPDX-License-Identifier: Apache-2.0

package conectric

// Command builder functions produce complete outbound frame text ready for
// the transport. Every builder validates its parameters first and returns
// ErrValidation-wrapped errors instead of emitting a malformed frame.
//
// Frame layout: '<' + total length (2 lowercase hex digits) + type code +
// 4-char destination + reserved byte 01 + payload. The length counts the
// five fixed fields plus one byte per two payload characters.

import (
	"fmt"
	"regexp"
)

var destinationPattern = regexp.MustCompile(`^[0-9a-fA-F]{4}$`)

// TextMessageParams transmits a short text message to one node.
type TextMessageParams struct {
	Message     string
	Destination string
}

// RS485RequestParams passes an opaque request through a node's RS-485 port.
// The message is hex-encoded on the wire unless HexEncodePayload is false,
// in which case it must already be hex.
type RS485RequestParams struct {
	Message          string
	Destination      string
	HexEncodePayload *bool // nil means true
}

// RS485ChunkRequestParams requests one numbered chunk of an oversized
// RS-485 response.
type RS485ChunkRequestParams struct {
	ChunkNumber int
	ChunkSize   int
	Destination string
}

// RS485ConfigParams configures a node's RS-485 UART. All four parameters are
// required: the config frame has a fixed 4-byte payload with no encoding for
// an omitted field.
type RS485ConfigParams struct {
	BaudRate    int    // 2400, 4800, 9600 or 19200
	Parity      string // none, odd or even
	StopBits    int    // 1 or 2
	BitMask     int    // 7 or 8
	Destination string
}

// LEDState switches the three node LEDs individually.
type LEDState struct {
	TX       bool
	RX       bool
	Activity bool
}

// LEDConfigParams configures a node's LEDs and deployment lifetime.
type LEDConfigParams struct {
	Destination        string
	SensorType         string // moisture, motion, switch, tempHumidity or tempHumidityLight
	LEDs               LEDState
	DeploymentLifetime int
}

func validateDestination(dest string) error {
	if !destinationPattern.MatchString(dest) {
		return fmt.Errorf("%w: destination must be 4 hex characters, got %q", ErrValidation, dest)
	}
	return nil
}

func validateMessage(msg string) error {
	if len(msg) < 1 || len(msg) > maxOutboundMessageChars {
		return fmt.Errorf("%w: message must be 1-%d characters, got %d",
			ErrValidation, maxOutboundMessageChars, len(msg))
	}
	return nil
}

// buildFrame assembles the common frame structure around a payload that is
// already in wire form.
func buildFrame(typeCode, destination, payload string) string {
	length := cmdFixedFieldBytes + len(payload)/2
	return fmt.Sprintf("<%02x%s%s%s%s", length, typeCode, destination, cmdReservedByte, payload)
}

// BuildTextMessage encodes a text message frame (type 61).
func BuildTextMessage(p TextMessageParams) (string, error) {
	if err := validateDestination(p.Destination); err != nil {
		return "", err
	}
	if err := validateMessage(p.Message); err != nil {
		return "", err
	}
	return buildFrame(cmdTypeText, p.Destination, EncodeHex(p.Message)), nil
}

// BuildRS485Request encodes an RS-485 pass-through frame (type 36).
func BuildRS485Request(p RS485RequestParams) (string, error) {
	if err := validateDestination(p.Destination); err != nil {
		return "", err
	}
	if err := validateMessage(p.Message); err != nil {
		return "", err
	}

	payload := p.Message
	if p.HexEncodePayload == nil || *p.HexEncodePayload {
		payload = EncodeHex(p.Message)
	}
	return buildFrame(cmdTypeRS485Request, p.Destination, payload), nil
}

// BuildRS485ChunkRequest encodes a chunk request frame (type 38). The chunk
// number and size are always sent unencoded, one byte each.
func BuildRS485ChunkRequest(p RS485ChunkRequestParams) (string, error) {
	if err := validateDestination(p.Destination); err != nil {
		return "", err
	}
	if p.ChunkNumber < 0 || p.ChunkNumber > 255 {
		return "", fmt.Errorf("%w: chunkNumber must be 0-255, got %d", ErrValidation, p.ChunkNumber)
	}
	if p.ChunkSize < 1 || p.ChunkSize > 255 {
		return "", fmt.Errorf("%w: chunkSize must be 1-255, got %d", ErrValidation, p.ChunkSize)
	}

	payload := fmt.Sprintf("%02x%02x", p.ChunkNumber, p.ChunkSize)
	return buildFrame(cmdTypeRS485ChunkReq, p.Destination, payload), nil
}

// BuildRS485Config encodes a UART configuration frame (type 70, fixed length
// byte 09). Parameter values map through the inverse of the rs485Config
// decode tables.
func BuildRS485Config(p RS485ConfigParams) (string, error) {
	if err := validateDestination(p.Destination); err != nil {
		return "", err
	}

	baud, ok := baudRateCodes[p.BaudRate]
	if !ok {
		return "", fmt.Errorf("%w: baudRate must be one of 2400, 4800, 9600, 19200; got %d",
			ErrValidation, p.BaudRate)
	}
	parity, ok := parityCodes[p.Parity]
	if !ok {
		return "", fmt.Errorf("%w: parity must be none, odd or even; got %q", ErrValidation, p.Parity)
	}
	stop, ok := stopBitCodes[p.StopBits]
	if !ok {
		return "", fmt.Errorf("%w: stopBits must be 1 or 2; got %d", ErrValidation, p.StopBits)
	}
	mask, ok := bitMaskCodes[p.BitMask]
	if !ok {
		return "", fmt.Errorf("%w: bitMask must be 7 or 8; got %d", ErrValidation, p.BitMask)
	}

	return buildFrame(cmdTypeRS485Config, p.Destination, baud+parity+stop+mask), nil
}

// BuildLEDConfig encodes an LED/lifetime configuration frame (type 1c).
// Each enabled LED encodes as its fixed color code, disabled as 00.
func BuildLEDConfig(p LEDConfigParams) (string, error) {
	if err := validateDestination(p.Destination); err != nil {
		return "", err
	}
	sensorType, ok := sensorTypeCodes[p.SensorType]
	if !ok {
		return "", fmt.Errorf("%w: sensorType %q is not configurable", ErrValidation, p.SensorType)
	}
	if p.DeploymentLifetime < 0 || p.DeploymentLifetime > 255 {
		return "", fmt.Errorf("%w: deploymentLifetime must be 0-255, got %d",
			ErrValidation, p.DeploymentLifetime)
	}

	tx, rx, activity := ledOff, ledOff, ledOff
	if p.LEDs.TX {
		tx = ledColorCodes.tx
	}
	if p.LEDs.RX {
		rx = ledColorCodes.rx
	}
	if p.LEDs.Activity {
		activity = ledColorCodes.activity
	}

	payload := fmt.Sprintf("%s%s%s%s%02x", sensorType, tx, rx, activity, p.DeploymentLifetime)
	return buildFrame(cmdTypeLEDConfig, p.Destination, payload), nil
}
