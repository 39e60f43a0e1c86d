// Package serialport provides the real serial transport for the sorter
// link, implementing the link.Transport contract over go.bug.st/serial.
//
// It owns transport provisioning: discovering which tty device node is the
// sorter (the device enumerates as a USB CDC-ACM modem), opening it with
// the protocol's line settings (9600 8N1 by default), and retrying the open
// while the device is still booting.
package serialport
