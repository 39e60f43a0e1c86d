package link

import (
	"sync"
	"testing"
	"time"

	"github.com/sortation-tools/sortlink/wire"
)

// scriptTransport is an in-memory Transport fed with pre-queued inbound
// frames. Outbound writes are captured for inspection.
type scriptTransport struct {
	mu     sync.Mutex
	frames [][]byte // inbound lines, each including the CRLF terminator
	writes []byte

	pollErr  error // returned by BytesAvailable
	readErr  error // returned by ReadLine
	writeErr error // returned by Write
}

func (s *scriptTransport) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return 0, s.writeErr
	}

	s.writes = append(s.writes, p...)

	return len(p), nil
}

func (s *scriptTransport) ReadLine() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return nil, s.readErr
	}

	if len(s.frames) == 0 {
		panic("scriptTransport: ReadLine called with no pending frame")
	}

	line := s.frames[0]
	s.frames = s.frames[1:]

	return line, nil
}

func (s *scriptTransport) BytesAvailable() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pollErr != nil {
		return 0, s.pollErr
	}

	if len(s.frames) == 0 {
		return 0, nil
	}

	return len(s.frames[0]), nil
}

func (s *scriptTransport) queue(lines ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = append(s.frames, lines...)
}

func (s *scriptTransport) written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, len(s.writes))
	copy(out, s.writes)

	return out
}

// floodTransport serves an endless stream of the same inbound frame, at
// most one per interval. Outbound writes are discarded.
type floodTransport struct {
	mu       sync.Mutex
	frame    []byte // inbound line, including the CRLF terminator
	interval time.Duration
	last     time.Time
}

func (f *floodTransport) Write(p []byte) (int, error) {
	return len(p), nil
}

func (f *floodTransport) ReadLine() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = time.Now()

	line := make([]byte, len(f.frame))
	copy(line, f.frame)

	return line, nil
}

func (f *floodTransport) BytesAvailable() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if time.Since(f.last) < f.interval {
		return 0, nil
	}

	return len(f.frame), nil
}

// frameFor encodes a command and appends the CRLF terminator, producing the
// line as it would appear on the transport.
func frameFor(t *testing.T, code string, args ...string) []byte {
	t.Helper()

	frame, err := wire.NewCommand(code, args...).Encode()
	if err != nil {
		t.Fatalf("frameFor: %v", err)
	}

	return append(frame, '\r', '\n')
}

// corruptFrame returns the frame with its verification byte off by delta.
func corruptFrame(t *testing.T, frame []byte, delta byte) []byte {
	t.Helper()

	out := make([]byte, len(frame))
	copy(out, frame)
	out[0] += delta

	return out
}

// newTestLink creates a Link over the given transport with a short poll
// interval suitable for tests.
func newTestLink(t *testing.T, tr Transport, opts ...Option) *Link {
	t.Helper()

	defaults := []Option{WithPollInterval(MinPollInterval)}

	l, err := NewLink(tr, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestLink: %v", err)
	}

	return l
}
