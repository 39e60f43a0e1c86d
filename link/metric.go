package link

import (
	"sync/atomic"
)

// LinkMetrics contains atomic metrics for a Link.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type LinkMetrics struct {
	// CmdSendCount indicates the number of commands sent.
	CmdSendCount atomic.Uint64
	// CmdRecvCount indicates the number of commands received and decoded.
	CmdRecvCount atomic.Uint64
	// FrameErrCount indicates the number of inbound frames dropped for
	// integrity or framing errors.
	FrameErrCount atomic.Uint64
	// UnexpectedCmdCount indicates the number of valid commands discarded
	// because they did not match the awaited code.
	UnexpectedCmdCount atomic.Uint64
	// TransportErrCount indicates the number of transport I/O failures.
	TransportErrCount atomic.Uint64
}

func (m *LinkMetrics) incCmdSendCount() {
	m.CmdSendCount.Add(1)
}

func (m *LinkMetrics) incCmdRecvCount() {
	m.CmdRecvCount.Add(1)
}

func (m *LinkMetrics) incFrameErrCount() {
	m.FrameErrCount.Add(1)
}

func (m *LinkMetrics) incUnexpectedCmdCount() {
	m.UnexpectedCmdCount.Add(1)
}

func (m *LinkMetrics) incTransportErrCount() {
	m.TransportErrCount.Add(1)
}
