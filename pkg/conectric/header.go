// SPDX-License-Identifier: Apache-2.0

package conectric

import (
	"fmt"
	"strconv"
)

// FrameHeader is the interpretation of the first byte of an inbound frame.
// Length is in bytes, counted from the byte after the header byte to the
// start of the message-type field; every downstream field offset is relative
// to 2 + Length*2 hex characters into the record.
type FrameHeader struct {
	Length      int
	HeaderType  byte
	PayloadType byte
}

// ParseFrameHeader interprets the leading byte of a stripped frame record
// (prefix and checksum already removed). Extended headers and non-simple
// payload types are rejected; these are policy rejections, not corruption.
func ParseFrameHeader(record string) (FrameHeader, error) {
	if len(record) < 2 {
		return FrameHeader{}, ErrRecordTooShort
	}

	b, err := strconv.ParseUint(record[0:2], 16, 8)
	if err != nil {
		return FrameHeader{}, fmt.Errorf("header byte %q: %w", record[0:2], err)
	}

	hdr := FrameHeader{
		Length:      int(b) & headerLengthMask,
		HeaderType:  byte(b) & headerTypeMask,
		PayloadType: byte(b) & payloadTypeMask,
	}

	if hdr.HeaderType != 0 {
		return hdr, ErrExtendedHeader
	}
	if hdr.PayloadType != payloadTypeSimple {
		return hdr, ErrUnsupportedPayloadType
	}

	return hdr, nil
}
