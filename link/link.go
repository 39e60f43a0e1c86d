package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sortation-tools/sortlink/internal/pool"
	"github.com/sortation-tools/sortlink/logger"
	"github.com/sortation-tools/sortlink/wire"
)

// terminatorSize is the size of the line terminator (CR+LF) in bytes.
const terminatorSize = 2

// Handshake command codes.
const (
	// CodeReady signals that the sender is ready to proceed.
	CodeReady = "RDY"

	// CodeAck acknowledges the previous command.
	CodeAck = "ACK"

	// CodeNext requests the next step of the sorting sequence.
	CodeNext = "NXT"

	// CodeEnd signals the end of the sorting run.
	CodeEnd = "END"

	// CodeError reports a device error; the single argument is the message.
	CodeError = "ERR"

	// CodeData carries a measurement; the single argument is the payload.
	CodeData = "DAT"
)

// Sentinel errors for the link layer.
var (
	ErrNilTransport = errors.New("link: transport is nil")
	ErrTransport    = errors.New("link: transport failure")
	ErrReadTimeout  = errors.New("link: read timeout")
)

// Link drives the command protocol over a single transport.
//
// The read path is single-consumer: at most one ReadCommand/WaitFor call
// (or one running Dispatcher) may be active at a time. The protocol has no
// request IDs, so interleaved readers would steal each other's frames.
// Writes are serialized internally, so concurrent senders are safe.
type Link struct {
	transport Transport
	cfg       *config
	logger    logger.Logger

	writeMu sync.Mutex

	metrics LinkMetrics
}

// NewLink creates a Link over an already-open transport.
func NewLink(t Transport, opts ...Option) (*Link, error) {
	if t == nil {
		return nil, ErrNilTransport
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Link{
		transport: t,
		cfg:       cfg,
		logger:    cfg.logger,
	}, nil
}

// GetLogger returns the logger associated with the link.
func (l *Link) GetLogger() logger.Logger {
	return l.logger
}

// GetMetrics returns the metrics associated with the link.
func (l *Link) GetMetrics() *LinkMetrics {
	return &l.metrics
}

// --- Send path ---

// Send encodes the command and writes it to the transport as one
// CRLF-terminated frame.
//
// Encoding failures (non-ASCII content, reserved delimiters, oversized
// body) and transport write failures are hard failures of the send; a
// malformed frame is never put on the wire.
func (l *Link) Send(cmd *wire.Command) error {
	frame, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("link: encode %q: %w", cmd.Code, err)
	}

	frame = append(frame, '\r', '\n')

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.writeAll(frame); err != nil {
		l.metrics.incTransportErrCount()

		return fmt.Errorf("%w: write frame: %w", ErrTransport, err)
	}

	l.metrics.incCmdSendCount()
	l.logger.Debug("link: command sent", "code", cmd.Code, "argCount", len(cmd.Args))

	return nil
}

// SendReady sends a RDY command.
func (l *Link) SendReady() error {
	return l.Send(wire.NewCommand(CodeReady))
}

// SendAck sends an ACK command.
func (l *Link) SendAck() error {
	return l.Send(wire.NewCommand(CodeAck))
}

// SendNext sends a NXT command.
func (l *Link) SendNext() error {
	return l.Send(wire.NewCommand(CodeNext))
}

// SendEnd sends an END command.
func (l *Link) SendEnd() error {
	return l.Send(wire.NewCommand(CodeEnd))
}

// SendError sends an ERR command carrying the given message.
func (l *Link) SendError(message string) error {
	return l.Send(wire.NewCommand(CodeError, message))
}

// SendData sends a DAT command carrying the given payload.
func (l *Link) SendData(payload string) error {
	return l.Send(wire.NewCommand(CodeData, payload))
}

// writeAll writes all bytes in data to the transport.
func (l *Link) writeAll(data []byte) error {
	for written := 0; written < len(data); {
		n, err := l.transport.Write(data[written:])
		written += n

		if err != nil {
			return err
		}
	}

	return nil
}

// --- Receive path ---

// ReadCommand reads exactly one frame from the transport and decodes it.
//
// While the transport is idle it polls for pending bytes on the configured
// interval, honoring ctx cancellation and the configured read timeout; once
// data is pending it issues the blocking line read.
//
// Decode failures are counted, logged, and returned; the caller decides
// whether to keep waiting (see WaitFor). Transport failures wrap
// ErrTransport.
func (l *Link) ReadCommand(ctx context.Context) (*wire.Command, error) {
	return l.readCommand(ctx, l.deadline())
}

// readCommand is ReadCommand against a caller-supplied deadline, letting
// WaitFor spread one deadline across several reads.
func (l *Link) readCommand(ctx context.Context, deadline time.Time) (*wire.Command, error) {
	raw, err := l.readFrame(ctx, deadline)
	if err != nil {
		return nil, err
	}

	cmd, err := wire.Decode(raw)
	if err != nil {
		l.metrics.incFrameErrCount()
		l.logger.Warn("link: dropping invalid frame", "error", err)

		return nil, err
	}

	l.metrics.incCmdRecvCount()
	l.logger.Debug("link: command received", "code", cmd.Code, "argCount", len(cmd.Args))

	return cmd, nil
}

// WaitFor blocks until a command with the given code arrives and returns it.
//
// Commands with any other code are warned about and discarded permanently;
// there is no buffering or replay. Frames failing decode are likewise
// dropped, and the wait continues: a bad frame means no valid command has
// arrived yet.
//
// WaitFor returns early only on ctx cancellation, on ErrReadTimeout when a
// read timeout is configured, or on a transport failure. The configured
// read timeout bounds the whole wait: the deadline is fixed on entry, so a
// stream of discarded commands does not extend it.
func (l *Link) WaitFor(ctx context.Context, code string) (*wire.Command, error) {
	deadline := l.deadline()

	for {
		cmd, err := l.readCommand(ctx, deadline)
		if err != nil {
			if errors.Is(err, wire.ErrFrameIntegrity) || errors.Is(err, wire.ErrMalformedFrame) {
				// Already logged by ReadCommand; keep waiting.
				continue
			}

			return nil, err
		}

		if cmd.Code == code {
			return cmd, nil
		}

		l.metrics.incUnexpectedCmdCount()
		l.logger.Warn("link: unexpected command discarded",
			"received", cmd.Code,
			"expected", code)
	}
}

// deadline converts the configured read timeout into an absolute deadline.
// A zero time means no bound.
func (l *Link) deadline() time.Time {
	if l.cfg.readTimeout > 0 {
		return time.Now().Add(l.cfg.readTimeout)
	}

	return time.Time{}
}

// readFrame blocks until one full line is available, reads it, and strips
// the 2-byte terminator. A non-zero deadline caps the wait.
func (l *Link) readFrame(ctx context.Context, deadline time.Time) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: no frame within %v", ErrReadTimeout, l.cfg.readTimeout)
		}

		pending, err := l.transport.BytesAvailable()
		if err != nil {
			l.metrics.incTransportErrCount()

			return nil, fmt.Errorf("%w: poll: %w", ErrTransport, err)
		}

		if pending == 0 {
			if err := l.sleepPoll(ctx); err != nil {
				return nil, err
			}

			continue
		}

		line, err := l.transport.ReadLine()
		if err != nil {
			l.metrics.incTransportErrCount()

			return nil, fmt.Errorf("%w: read line: %w", ErrTransport, err)
		}

		if len(line) < terminatorSize {
			l.metrics.incFrameErrCount()
			l.logger.Warn("link: dropping short line", "bytes", len(line))

			return nil, fmt.Errorf("%w: short line (%d bytes)", wire.ErrMalformedFrame, len(line))
		}

		return line[:len(line)-terminatorSize], nil
	}
}

// sleepPoll waits one poll interval or until ctx is cancelled.
func (l *Link) sleepPoll(ctx context.Context) error {
	timer := pool.GetTimer(l.cfg.pollInterval)
	defer pool.PutTimer(timer)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
