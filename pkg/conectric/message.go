// SPDX-License-Identifier: Apache-2.0

package conectric

// Message is one decoded sensor event delivered to the caller.
type Message struct {
	// Type is the symbolic message type name from the registry, possibly
	// re-typed with a Status suffix for status reports.
	Type string `json:"type"`

	// Payload holds the decoded, type-specific fields. Nil when decoded
	// payload output is disabled.
	Payload map[string]any `json:"payload,omitempty"`

	// SensorID is the 4-hex-digit source address exactly as it appeared on
	// the wire; it is not normalized.
	SensorID string `json:"sensorId"`

	// SequenceNumber is the per-source frame sequence counter (0-255).
	SequenceNumber int `json:"sequenceNumber"`

	// Timestamp is seconds since epoch, or milliseconds when millisecond
	// timestamps are enabled.
	Timestamp int64 `json:"timestamp"`

	// NumHops and MaxHops are present only for broadcast message types and
	// only when hop reporting is enabled.
	NumHops *int `json:"numHops,omitempty"`
	MaxHops *int `json:"maxHops,omitempty"`

	// RawData is the untouched original record, when raw data is enabled.
	RawData string `json:"rawData,omitempty"`
}

// Identity is the gateway dongle's self-reported identity. All three fields
// must be populated before any frame is accepted.
type Identity struct {
	MACAddress       string `json:"macAddress"`
	ContikiVersion   string `json:"contikiVersion"`
	ConectricVersion string `json:"conectricVersion"`
}

// Complete reports whether every identity field has been learned.
func (i Identity) Complete() bool {
	return i.MACAddress != "" && i.ContikiVersion != "" && i.ConectricVersion != ""
}

// State is the bring-up handshake state.
type State int

const (
	StateDisconnected State = iota
	StatePortOpen
	StateAwaitingMac
	StateAwaitingVersions
	StateDumpModeConfirmed
	StateSinkModeReady
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StatePortOpen:
		return "portOpen"
	case StateAwaitingMac:
		return "awaitingMac"
	case StateAwaitingVersions:
		return "awaitingVersions"
	case StateDumpModeConfirmed:
		return "dumpModeConfirmed"
	case StateSinkModeReady:
		return "sinkModeReady"
	default:
		return "unknown"
	}
}
