// Package link implements the host side of the sorter handshake protocol on
// top of the wire frame codec.
//
// # Protocol Overview
//
// The host and the sorter device exchange a fixed vocabulary of commands to
// sequence a sorting run:
//
//   - RDY — ready
//   - ACK — acknowledge
//   - NXT — advance to the next step
//   - END — run complete
//   - ERR — device error, one message argument
//   - DAT — measurement data, one payload argument
//
// The link is half-duplex in practice: the host either sends a command or
// waits for one. [Link] is the synchronous engine: Send* helpers write one
// frame each, [Link.WaitFor] blocks until a specific command arrives,
// discarding (with a warning) anything else. [Dispatcher] optionally runs
// the receive path in the background and routes commands to registered
// handlers.
//
// # Error Recovery
//
// A frame failing its verification-byte check is logged and dropped; the
// protocol has no retransmission, so the wait loops simply keep waiting.
// Unexpected commands are likewise warned about and discarded. Only
// encoding failures and transport I/O failures are surfaced as hard errors.
package link
