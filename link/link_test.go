package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sortation-tools/sortlink/logger"
	"github.com/sortation-tools/sortlink/wire"
)

func TestNewLink_NilTransport(t *testing.T) {
	_, err := NewLink(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNilTransport)
}

// --- Send path ---

func TestLink_SendReady_WireBytes(t *testing.T) {
	tr := &scriptTransport{}
	l := newTestLink(t, tr)

	require.NoError(t, l.SendReady())

	// "RDY;" body, verification byte 4, CRLF terminator.
	assert.Equal(t, []byte{4, 'R', 'D', 'Y', ';', '\r', '\n'}, tr.written())
	assert.Equal(t, uint64(1), l.GetMetrics().CmdSendCount.Load())
}

func TestLink_SendError_WireBytes(t *testing.T) {
	tr := &scriptTransport{}
	l := newTestLink(t, tr)

	require.NoError(t, l.SendError("bad_sensor"))

	got := tr.written()
	require.Len(t, got, 17) // 1 + 14 + 2
	assert.Equal(t, byte(14), got[0])
	assert.Equal(t, "ERR;bad_sensor", string(got[1:15]))
	assert.Equal(t, "\r\n", string(got[15:]))
}

func TestLink_SendHelpers_Codes(t *testing.T) {
	tests := []struct {
		name string
		send func(*Link) error
		body string
	}{
		{"ack", (*Link).SendAck, "ACK;"},
		{"next", (*Link).SendNext, "NXT;"},
		{"end", (*Link).SendEnd, "END;"},
		{"data", func(l *Link) error { return l.SendData("4700") }, "DAT;4700"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &scriptTransport{}
			l := newTestLink(t, tr)

			require.NoError(t, tt.send(l))

			got := tr.written()
			assert.Equal(t, byte(len(tt.body)), got[0])
			assert.Equal(t, tt.body+"\r\n", string(got[1:]))
		})
	}
}

func TestLink_Send_EncodeFailure(t *testing.T) {
	tr := &scriptTransport{}
	l := newTestLink(t, tr)

	err := l.Send(wire.NewCommand("DAT", "47,0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrReservedDelimiter)
	assert.Empty(t, tr.written(), "nothing may reach the wire on encode failure")
}

func TestLink_Send_TransportFailure(t *testing.T) {
	tr := &scriptTransport{writeErr: errors.New("port gone")}
	l := newTestLink(t, tr)

	err := l.SendReady()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, uint64(1), l.GetMetrics().TransportErrCount.Load())
}

// --- Receive path ---

func TestLink_ReadCommand(t *testing.T) {
	tr := &scriptTransport{}
	tr.queue(frameFor(t, CodeData, "4700"))
	l := newTestLink(t, tr)

	cmd, err := l.ReadCommand(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CodeData, cmd.Code)
	assert.Equal(t, []string{"4700"}, cmd.Args)
	assert.Equal(t, uint64(1), l.GetMetrics().CmdRecvCount.Load())
}

func TestLink_ReadCommand_IntegrityFailure(t *testing.T) {
	tr := &scriptTransport{}
	tr.queue(corruptFrame(t, frameFor(t, CodeReady), 3))
	l := newTestLink(t, tr)

	cmd, err := l.ReadCommand(context.Background())
	require.Error(t, err)
	assert.Nil(t, cmd)
	assert.ErrorIs(t, err, wire.ErrFrameIntegrity)

	var ie *wire.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, byte(7), ie.Received)
	assert.Equal(t, 4, ie.Expected)

	assert.Equal(t, uint64(1), l.GetMetrics().FrameErrCount.Load())
}

func TestLink_ReadCommand_TransportFailure(t *testing.T) {
	tr := &scriptTransport{pollErr: errors.New("device unplugged")}
	l := newTestLink(t, tr)

	_, err := l.ReadCommand(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

// --- WaitFor ---

func TestLink_WaitFor_FiltersNonMatching(t *testing.T) {
	tr := &scriptTransport{}
	tr.queue(
		frameFor(t, CodeNext),
		frameFor(t, CodeAck),
		frameFor(t, CodeReady),
	)

	mockLog := logger.NewMockLogger()
	mockLog.On("Debug", mock.Anything, mock.Anything).Maybe()
	mockLog.On("Warn", mock.Anything, mock.Anything)

	l := newTestLink(t, tr, WithLogger(mockLog))

	cmd, err := l.WaitFor(context.Background(), CodeReady)
	require.NoError(t, err)
	assert.Equal(t, CodeReady, cmd.Code)

	// NXT and ACK each produced one warning and were discarded.
	mockLog.AssertNumberOfCalls(t, "Warn", 2)
	assert.Equal(t, uint64(2), l.GetMetrics().UnexpectedCmdCount.Load())
	assert.Equal(t, uint64(3), l.GetMetrics().CmdRecvCount.Load())
}

func TestLink_WaitFor_SkipsCorruptFrames(t *testing.T) {
	tr := &scriptTransport{}
	tr.queue(
		corruptFrame(t, frameFor(t, CodeReady), 1),
		frameFor(t, CodeReady),
	)
	l := newTestLink(t, tr)

	cmd, err := l.WaitFor(context.Background(), CodeReady)
	require.NoError(t, err)
	assert.Equal(t, CodeReady, cmd.Code)
	assert.Equal(t, uint64(1), l.GetMetrics().FrameErrCount.Load())
}

func TestLink_WaitFor_BlocksUntilCancelled(t *testing.T) {
	tr := &scriptTransport{} // never produces a frame
	l := newTestLink(t, tr)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := l.WaitFor(ctx, CodeReady)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond,
		"WaitFor must not return before cancellation")
}

func TestLink_WaitFor_ReadTimeout(t *testing.T) {
	tr := &scriptTransport{}
	l := newTestLink(t, tr, WithReadTimeout(50*time.Millisecond))

	_, err := l.WaitFor(context.Background(), CodeReady)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadTimeout)
}

func TestLink_WaitFor_ReadTimeoutUnderSteadyTraffic(t *testing.T) {
	// The wanted command never arrives, but unrelated commands keep
	// coming. The deadline is fixed when WaitFor is entered, so the
	// traffic must not push it back.
	tr := &floodTransport{
		frame:    frameFor(t, CodeNext),
		interval: 10 * time.Millisecond,
	}

	mockLog := logger.NewMockLogger()
	mockLog.On("Debug", mock.Anything, mock.Anything).Maybe()
	mockLog.On("Warn", mock.Anything, mock.Anything)

	l := newTestLink(t, tr, WithLogger(mockLog), WithReadTimeout(60*time.Millisecond))

	start := time.Now()
	_, err := l.WaitFor(context.Background(), CodeReady)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.GreaterOrEqual(t, l.GetMetrics().UnexpectedCmdCount.Load(), uint64(1),
		"commands must have been discarded before the timeout fired")
}

func TestLink_WaitFor_TransportFailure(t *testing.T) {
	tr := &scriptTransport{pollErr: errors.New("device unplugged")}
	l := newTestLink(t, tr)

	_, err := l.WaitFor(context.Background(), CodeReady)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

// --- Options ---

func TestNewLink_OptionValidation(t *testing.T) {
	tr := &scriptTransport{}

	_, err := NewLink(tr, WithPollInterval(0))
	assert.Error(t, err)

	_, err = NewLink(tr, WithPollInterval(2*time.Second))
	assert.Error(t, err)

	_, err = NewLink(tr, WithReadTimeout(-time.Second))
	assert.Error(t, err)

	_, err = NewLink(tr, WithLogger(nil))
	assert.Error(t, err)
}
