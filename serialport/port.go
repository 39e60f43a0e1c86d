package serialport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/sortation-tools/sortlink/internal/pool"
	"github.com/sortation-tools/sortlink/link"
)

// DefaultBaudRate is the line speed the sorter firmware is built for.
const DefaultBaudRate = 9600

// probeTimeout bounds the non-blocking read used by BytesAvailable.
const probeTimeout = time.Millisecond

// Sentinel errors for the serialport package.
var (
	ErrNoDevice   = errors.New("serialport: no sorter device found")
	ErrPortClosed = errors.New("serialport: port closed")
)

// Port is an open serial connection implementing link.Transport.
//
// Port is not goroutine-safe; the protocol engine already enforces a single
// reader and serialized writers.
type Port struct {
	port serial.Port
	path string

	// buf accumulates bytes read from the device that have not yet been
	// consumed as complete lines.
	buf     []byte
	scratch [256]byte
	closed  bool
}

// Compile-time check: Port implements link.Transport.
var _ link.Transport = (*Port)(nil)

// Open opens the serial device at path with the protocol's line settings.
func Open(path string, opts ...Option) (*Port, error) {
	cfg, err := newPortConfig(opts...)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	sp, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", path, err)
	}

	return &Port{port: sp, path: path}, nil
}

// OpenRetry opens the serial device at path, retrying on the configured
// interval until the open succeeds or ctx is cancelled. The sorter needs a
// few seconds to boot after power-up, during which its device node either
// does not exist or refuses to open.
func OpenRetry(ctx context.Context, path string, opts ...Option) (*Port, error) {
	cfg, err := newPortConfig(opts...)
	if err != nil {
		return nil, err
	}

	for {
		port, err := Open(path, opts...)
		if err == nil {
			return port, nil
		}

		timer := pool.GetTimer(cfg.retryInterval)

		select {
		case <-ctx.Done():
			pool.PutTimer(timer)

			return nil, fmt.Errorf("serialport: open %s: %w (last error: %w)", path, ctx.Err(), err)
		case <-timer.C:
		}

		pool.PutTimer(timer)
	}
}

// Path returns the device node path this port was opened on.
func (p *Port) Path() string { return p.path }

// Write writes len(b) bytes to the device.
func (p *Port) Write(b []byte) (int, error) {
	if p.closed {
		return 0, ErrPortClosed
	}

	written := 0
	for written < len(b) {
		n, err := p.port.Write(b[written:])
		written += n

		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// ReadLine blocks until a full LF-terminated line has been received and
// returns it, terminator included.
func (p *Port) ReadLine() ([]byte, error) {
	if p.closed {
		return nil, ErrPortClosed
	}

	if err := p.port.SetReadTimeout(serial.NoTimeout); err != nil {
		return nil, fmt.Errorf("serialport: set read timeout: %w", err)
	}

	for {
		if i := bytes.IndexByte(p.buf, '\n'); i >= 0 {
			line := make([]byte, i+1)
			copy(line, p.buf)

			rest := make([]byte, len(p.buf)-i-1)
			copy(rest, p.buf[i+1:])
			p.buf = rest

			return line, nil
		}

		n, err := p.port.Read(p.scratch[:])
		if err != nil {
			return nil, err
		}

		p.buf = append(p.buf, p.scratch[:n]...)
	}
}

// BytesAvailable returns the number of bytes readable without blocking.
//
// serial.Port exposes no input-queue count, so pending device bytes are
// pulled into the internal buffer with a near-zero read timeout and counted
// from there.
func (p *Port) BytesAvailable() (int, error) {
	if p.closed {
		return 0, ErrPortClosed
	}

	if len(p.buf) > 0 {
		return len(p.buf), nil
	}

	if err := p.port.SetReadTimeout(probeTimeout); err != nil {
		return 0, fmt.Errorf("serialport: set read timeout: %w", err)
	}

	n, err := p.port.Read(p.scratch[:])
	if err != nil {
		return 0, err
	}

	p.buf = append(p.buf, p.scratch[:n]...)

	return len(p.buf), nil
}

// Close closes the underlying device.
func (p *Port) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	return p.port.Close()
}

// --- Options ---

// Default retry interval for OpenRetry.
const DefaultRetryInterval = 500 * time.Millisecond

type portConfig struct {
	baudRate      int
	retryInterval time.Duration
}

func newPortConfig(opts ...Option) (*portConfig, error) {
	cfg := &portConfig{
		baudRate:      DefaultBaudRate,
		retryInterval: DefaultRetryInterval,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for opening a Port.
type Option interface {
	apply(*portConfig) error
}

type optFunc func(*portConfig) error

func (f optFunc) apply(cfg *portConfig) error { return f(cfg) }

// WithBaudRate sets the line speed. Must be positive.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *portConfig) error {
		if baud <= 0 {
			return fmt.Errorf("serialport: baud rate %d must be positive", baud)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithRetryInterval sets the delay between open attempts in OpenRetry.
func WithRetryInterval(d time.Duration) Option {
	return optFunc(func(cfg *portConfig) error {
		if d <= 0 {
			return errors.New("serialport: retry interval must be positive")
		}
		cfg.retryInterval = d

		return nil
	})
}
