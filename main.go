// SPDX-License-Identifier: Apache-2.0
//
// Congate - Conectric USB Gateway Engine
//
// A CLI tool for running a Conectric wireless sensor network gateway:
// decoding mesh sensor messages, sending node commands, and capturing
// or replaying sessions.

package main

import (
	"os"

	"github.com/Conectric/conectric-usb-gateway-beta/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
