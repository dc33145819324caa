// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Long: `List the serial port devices visible to this machine.

USB ports are shown with their VID:PID and serial number. The gateway dongle
usually enumerates as a USB CDC-ACM device (/dev/ttyACM* on Linux,
/dev/tty.usbmodem* on macOS, COMn on Windows).

Exit codes:
  0 - At least one port found
  1 - No ports found`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to enumerate serial ports: %v", err)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return fmt.Errorf("no serial ports found")
	}

	for _, port := range ports {
		if port.IsUSB {
			fmt.Printf("%s  [USB %s:%s", port.Name, port.VID, port.PID)
			if port.SerialNumber != "" {
				fmt.Printf(" sn=%s", port.SerialNumber)
			}
			fmt.Printf("]\n")
		} else {
			fmt.Println(port.Name)
		}
	}
	return nil
}
