// SPDX-License-Identifier: Apache-2.0

package conectric

import (
	"encoding/hex"
	"fmt"
)

// EncodeHex converts text to its lowercase hex representation, one byte per
// two output characters. Used by the text and RS-485 message families.
func EncodeHex(text string) string {
	return hex.EncodeToString([]byte(text))
}

// DecodeHex converts a hex string back to text. It is the inverse of
// EncodeHex for every byte string.
func DecodeHex(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid hex payload: %w", err)
	}
	return string(b), nil
}
