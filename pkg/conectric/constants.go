// SPDX-License-Identifier: Apache-2.0

// Package conectric implements the Conectric wireless-sensor-network protocol
// spoken by the USB gateway dongle over a serial link.
//
// Inbound traffic arrives as newline-delimited text records: bring-up replies
// from the dongle itself, and '>'-prefixed hex frames relayed from the mesh.
// This package parses frame headers, dispatches on message type, decodes the
// per-type payloads into structured sensor messages, suppresses duplicate
// mesh rebroadcasts, and builds outbound command frames. A handshake state
// machine drives the dongle through its fixed bring-up sequence and gates
// frame processing until the gateway has identified itself.
package conectric

import "time"

// Header byte bitfields. The 5-bit length counts the bytes between the header
// byte and the message-type field; each counted byte is two hex characters.
const (
	headerLengthMask  = 0x1F
	headerTypeMask    = 0x80
	payloadTypeMask   = 0x60
	payloadTypeSimple = 0x20
)

// Symbolic message type names delivered to callers.
const (
	TypeTempHumidity               = "tempHumidity"
	TypeSwitch                     = "switch"
	TypeMotion                     = "motion"
	TypeRS485Request               = "rs485Request"
	TypeRS485Response              = "rs485Response"
	TypeRS485ChunkRequest          = "rs485ChunkRequest"
	TypeRS485ChunkResponse         = "rs485ChunkResponse"
	TypeRS485ChunkEnvelopeResponse = "rs485ChunkEnvelopeResponse"
	TypeMoisture                   = "moisture"
	TypeTempHumidityLight          = "tempHumidityLight"
	TypeTempHumidityAdc            = "tempHumidityAdc"
	TypeBoot                       = "boot"
	TypeText                       = "text"
	TypeRS485Config                = "rs485Config"

	// Re-typed status variants, delivered only when status messages are enabled.
	TypeMoistureStatus = "moistureStatus"
	TypeMotionStatus   = "motionStatus"
	TypeSwitchStatus   = "switchStatus"
)

// messageTypes maps 2-hex-digit type codes to symbolic names.
var messageTypes = map[string]string{
	"30": TypeTempHumidity,
	"31": TypeSwitch,
	"32": TypeMotion,
	"36": TypeRS485Request,
	"37": TypeRS485Response,
	"38": TypeRS485ChunkRequest,
	"39": TypeRS485ChunkResponse,
	"42": TypeMoisture,
	"44": TypeTempHumidityLight,
	"45": TypeTempHumidityAdc,
	"46": TypeRS485ChunkEnvelopeResponse,
	"60": TypeBoot,
	"61": TypeText,
	"70": TypeRS485Config,
}

// ignorableTypes are dropped immediately and silently.
var ignorableTypes = map[string]bool{
	"33": true,
	"34": true,
	"35": true,
}

// broadcastTypes may carry hop-count fields in their headers.
var broadcastTypes = map[string]bool{
	TypeTempHumidity:      true,
	TypeSwitch:            true,
	TypeMotion:            true,
	TypeMoisture:          true,
	TypeTempHumidityLight: true,
	TypeTempHumidityAdc:   true,
	TypeBoot:              true,
	TypeText:              true,
}

// Outbound message type codes.
const (
	cmdTypeText             = "61"
	cmdTypeRS485Request     = "36"
	cmdTypeRS485ChunkReq    = "38"
	cmdTypeRS485Config      = "70"
	cmdTypeLEDConfig        = "1c"
	cmdReservedByte         = "01"
	cmdFixedFieldBytes      = 5 // length + type + destination(2) + reserved
	maxOutboundMessageChars = 250
)

// Status / event marker bytes shared by the sensor families.
const (
	markerMotionStatus = "20"
	markerStatusOpen   = "21"
	markerStatusClosed = "22"
	markerEventOpen    = "81"
	markerEventClosed  = "82"
)

// LED color codes for the LED/lifetime configuration command. An LED that is
// switched off encodes as ledOff.
var ledColorCodes = struct {
	tx, rx, activity string
}{tx: "01", rx: "02", activity: "03"}

const ledOff = "00"

// sensorTypeCodes discriminate the target node kind in LED configuration.
var sensorTypeCodes = map[string]string{
	TypeMoisture:          "01",
	TypeMotion:            "02",
	TypeSwitch:            "03",
	TypeTempHumidity:      "04",
	TypeTempHumidityLight: "05",
}

// Bring-up handshake. The dongle must be stepped through dump mode, version
// query, MAC query and sink mode before frames can be trusted. VER is written
// as single raw characters followed by a newline: some dongle firmware drops
// the command when it arrives as one burst.
const (
	handshakeCmdDumpMode = "DP"
	handshakeCmdVersion  = "VER"
	handshakeCmdMac      = "MR"
	handshakeCmdSinkMode = "SS"

	handshakeDelay = 500 * time.Millisecond

	recordPrefixMac       = "MR:"
	recordPrefixContiki   = "ver:contiki"
	recordPrefixConectric = "ver:conectric-v"
	recordDumpModeOk      = "DP:Ok"
	recordSinkModeOk      = "SS:Ok"
)

// expectedEchoes are bare command echoes the dongle may repeat back; they are
// expected and carry no information.
var expectedEchoes = map[string]bool{
	handshakeCmdDumpMode: true,
	handshakeCmdVersion:  true,
	handshakeCmdMac:      true,
	handshakeCmdSinkMode: true,
}

// Deduplication window. Mesh rebroadcast delivers the same burst several
// times within a few seconds; anything older than the window is a new event.
const (
	dedupWindow        = 30 * time.Second
	dedupSweepInterval = 3 * time.Second
)

// UART parameter code tables for the rs485Config message family. The decode
// direction is the inverse of the encode direction.
var (
	baudRateCodes = map[int]string{
		2400:  "00",
		4800:  "01",
		9600:  "02",
		19200: "03",
	}
	parityCodes = map[string]string{
		"none": "00",
		"odd":  "01",
		"even": "02",
	}
	stopBitCodes = map[int]string{
		1: "00",
		2: "01",
	}
	bitMaskCodes = map[int]string{
		8: "00",
		7: "01",
	}
)
