package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCode indicates a command code that is not exactly
	// CodeLength ASCII characters.
	ErrInvalidCode = errors.New("wire: invalid command code")

	// ErrNonASCII indicates frame content outside the single-byte ASCII
	// range, or an embedded CR/LF that would break line framing.
	ErrNonASCII = errors.New("wire: non-ASCII frame content")

	// ErrReservedDelimiter indicates an argument containing the ','
	// delimiter or the ';' separator. The wire format has no escaping.
	ErrReservedDelimiter = errors.New("wire: argument contains reserved delimiter")

	// ErrFrameTooLong indicates a frame body longer than MaxBodyLength.
	// The body length must fit in the single verification byte.
	ErrFrameTooLong = errors.New("wire: frame body too long")

	// ErrMalformedFrame indicates a frame too short to hold a command code
	// and separator, or one whose separator byte is missing.
	ErrMalformedFrame = errors.New("wire: malformed frame")

	// ErrFrameIntegrity indicates a verification byte that does not match
	// the actual body length. Matched by IntegrityError via errors.Is.
	ErrFrameIntegrity = errors.New("wire: verification byte mismatch")
)

// IntegrityError reports a frame whose declared length (the verification
// byte) does not match its actual body length.
//
// errors.Is(err, ErrFrameIntegrity) reports true for this error.
type IntegrityError struct {
	// Received is the raw verification byte value from the wire.
	Received byte
	// Expected is the actual body length of the received frame.
	Expected int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("wire: verification byte mismatch: received %d, expected %d", e.Received, e.Expected)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrFrameIntegrity
}
