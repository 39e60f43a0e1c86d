package serialport

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// Discover returns the device node of the first port that looks like the
// sorter. The sorter's microcontroller enumerates as a USB CDC-ACM modem,
// so on Linux it appears as /dev/ttyACM<n>; the node number can change
// across reboots and resets, which is why the path is searched rather than
// configured.
//
// Returns ErrNoDevice when no candidate port is present.
func Discover() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("serialport: list ports: %w", err)
	}

	for _, name := range ports {
		if isSorterDevice(name) {
			return name, nil
		}
	}

	return "", ErrNoDevice
}

// isSorterDevice reports whether a port name looks like a USB CDC-ACM
// device node: ttyACM on Linux, usbmodem on macOS.
func isSorterDevice(name string) bool {
	return strings.Contains(name, "ttyACM") || strings.Contains(name, "usbmodem")
}
