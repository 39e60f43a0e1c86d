package wire

import (
	"fmt"
	"strings"
)

// CodeLength is the fixed length of a command code in bytes.
const CodeLength = 3

// MaxBodyLength is the maximum frame body length in bytes. The body length
// is carried in a single leading verification byte, so it cannot exceed 255.
const MaxBodyLength = 255

const (
	// codeSeparator terminates the command code in the frame body. It is
	// present even when the command carries no arguments.
	codeSeparator = ';'

	// argDelimiter separates arguments in the frame body.
	argDelimiter = ','
)

// Command is a single protocol command: a 3-character code identifying its
// purpose plus an ordered list of string arguments. Argument order is
// significant; control commands carry none.
//
// A Command is constructed per transfer and carries no state beyond the
// single frame it represents.
type Command struct {
	Code string
	Args []string
}

// NewCommand creates a Command with the given code and arguments.
//
// The code and arguments are validated on Encode, not here, so that a
// decoded Command and a constructed Command behave identically.
func NewCommand(code string, args ...string) *Command {
	return &Command{Code: code, Args: args}
}

// Encode serializes the command to its wire format, without the line
// terminator:
//
//	[verification(1)][code(3)][';'][args joined by ',']
//
// The verification byte equals the length of everything after it.
//
// Encode fails with ErrInvalidCode, ErrNonASCII, ErrReservedDelimiter, or
// ErrFrameTooLong on malformed input; the frame is never silently corrupted.
func (c *Command) Encode() ([]byte, error) {
	if len(c.Code) != CodeLength || !isASCII(c.Code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, c.Code)
	}

	bodyLen := CodeLength + 1
	for i, arg := range c.Args {
		if strings.ContainsRune(arg, codeSeparator) || strings.ContainsRune(arg, argDelimiter) {
			return nil, fmt.Errorf("%w: argument %d %q", ErrReservedDelimiter, i, arg)
		}
		if !isASCII(arg) {
			return nil, fmt.Errorf("%w: argument %d %q", ErrNonASCII, i, arg)
		}

		if i > 0 {
			bodyLen++
		}
		bodyLen += len(arg)
	}

	if bodyLen > MaxBodyLength {
		return nil, fmt.Errorf("%w: body is %d bytes, max %d", ErrFrameTooLong, bodyLen, MaxBodyLength)
	}

	buf := make([]byte, 0, 1+bodyLen)
	buf = append(buf, byte(bodyLen))
	buf = append(buf, c.Code...)
	buf = append(buf, codeSeparator)

	for i, arg := range c.Args {
		if i > 0 {
			buf = append(buf, argDelimiter)
		}
		buf = append(buf, arg...)
	}

	return buf, nil
}

// Decode deserializes a command from one frame, already stripped of its
// line terminator.
//
// The first byte is the verification value; if it does not equal the actual
// body length, Decode fails with *IntegrityError and no partial Command is
// returned. A body too short for a code and separator, or with the
// separator byte missing, fails with ErrMalformedFrame.
//
// An empty remainder after the separator decodes as zero arguments, not a
// single empty string. An originally empty argument list and a single
// empty-string argument are therefore indistinguishable after a round trip;
// Decode always yields the former.
func Decode(raw []byte) (*Command, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	body := raw[1:]
	if int(raw[0]) != len(body) {
		return nil, &IntegrityError{Received: raw[0], Expected: len(body)}
	}

	if len(body) < CodeLength+1 || body[CodeLength] != codeSeparator {
		return nil, fmt.Errorf("%w: body %q", ErrMalformedFrame, body)
	}

	cmd := &Command{Code: string(body[:CodeLength])}

	if rest := body[CodeLength+1:]; len(rest) > 0 {
		cmd.Args = strings.Split(string(rest), string(rune(argDelimiter)))
	}

	return cmd, nil
}

// isASCII reports whether s contains only single-byte ASCII characters,
// excluding the CR and LF bytes reserved for line framing.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 || s[i] == '\r' || s[i] == '\n' {
			return false
		}
	}

	return true
}
