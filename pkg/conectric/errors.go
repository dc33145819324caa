// SPDX-License-Identifier: Apache-2.0

package conectric

import "errors"

var (
	// ErrNotReady is returned when an outbound command is attempted with no
	// transport attached or before bring-up completed.
	ErrNotReady = errors.New("gateway not ready")

	// ErrExtendedHeader marks a frame whose header byte requests the extended
	// (multi-byte) header variant, which this engine rejects by policy.
	ErrExtendedHeader = errors.New("extended header not supported")

	// ErrUnsupportedPayloadType marks a frame whose payload type field is not
	// the simple payload variant.
	ErrUnsupportedPayloadType = errors.New("payload type not supported")

	// ErrRecordTooShort marks a frame record with fewer characters than the
	// offsets derived from its header require.
	ErrRecordTooShort = errors.New("record too short")

	// ErrValidation marks an outbound command whose parameters failed their
	// field constraints. Nothing is written to the transport.
	ErrValidation = errors.New("invalid command parameters")
)
