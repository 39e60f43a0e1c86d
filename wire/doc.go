// Package wire implements the frame codec for the sorter command protocol.
//
// A command travels as one line on the serial link:
//
//	<verification-byte><code>;<arg1>,<arg2>,...<CR><LF>
//
// The verification byte is the first byte of the frame; its numeric value
// must equal the length of the remaining body (code, separator, and joined
// arguments). It is the protocol's only integrity check: there is no
// checksum and no retransmission. Frames whose declared length does not
// match their actual length are rejected on decode and dropped by the
// caller.
//
// The codec deals in frame bodies only. The 2-byte CRLF line terminator is
// applied on send and stripped on receive by the link layer, never by
// Encode/Decode.
//
// Content is restricted to ASCII. Arguments must not contain the ','
// argument delimiter or the ';' code separator; no escaping mechanism
// exists on the wire.
package wire
