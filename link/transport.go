package link

// Transport is the duplex byte-stream channel the protocol engine runs on,
// typically an open serial port.
//
// Provisioning is the transport's responsibility: the engine never opens,
// re-opens, or discovers a channel, and it never closes one. See the
// serialport package for a real implementation.
type Transport interface {
	// Write writes len(p) bytes to the channel.
	Write(p []byte) (n int, err error)

	// ReadLine blocks until a full line is available and returns it,
	// including the trailing terminator bytes.
	ReadLine() ([]byte, error)

	// BytesAvailable returns the number of bytes readable without blocking.
	BytesAvailable() (int, error)
}
