package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the codec. Detail errors below unwrap to one of these,
// so callers can branch with errors.Is without caring about the detail type.
var (
	ErrInvalidChecksum         = errors.New("invalid checksum")
	ErrOutOfBounds             = errors.New("out of bounds")
	ErrMalformedHex            = errors.New("malformed hex")
	ErrInvalidRange            = errors.New("invalid range")
	ErrUnrecognizedRecordShape = errors.New("unrecognized record shape")
)

// ErrorKind represents the category of codec error that occurred
type ErrorKind int

const (
	// ErrKindNone indicates the error did not come from the codec
	ErrKindNone ErrorKind = iota
	// ErrKindInvalidChecksum indicates a checksum mismatch on decode
	ErrKindInvalidChecksum
	// ErrKindOutOfBounds indicates an address or length outside a buffer or range
	ErrKindOutOfBounds
	// ErrKindMalformedHex indicates odd-length hex text or a non-hex pair
	ErrKindMalformedHex
	// ErrKindInvalidRange indicates a negative offset or length
	ErrKindInvalidRange
	// ErrKindUnrecognizedRecordShape indicates wire text that failed a record pre-check
	ErrKindUnrecognizedRecordShape
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindNone:
		return "None"
	case ErrKindInvalidChecksum:
		return "InvalidChecksum"
	case ErrKindOutOfBounds:
		return "OutOfBounds"
	case ErrKindMalformedHex:
		return "MalformedHex"
	case ErrKindInvalidRange:
		return "InvalidRange"
	case ErrKindUnrecognizedRecordShape:
		return "UnrecognizedRecordShape"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// KindOf classifies err by walking its chain. Errors that did not originate
// in this package report ErrKindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrKindNone
	case errors.Is(err, ErrInvalidChecksum):
		return ErrKindInvalidChecksum
	case errors.Is(err, ErrOutOfBounds):
		return ErrKindOutOfBounds
	case errors.Is(err, ErrMalformedHex):
		return ErrKindMalformedHex
	case errors.Is(err, ErrInvalidRange):
		return ErrKindInvalidRange
	case errors.Is(err, ErrUnrecognizedRecordShape):
		return ErrKindUnrecognizedRecordShape
	default:
		return ErrKindNone
	}
}

// ChecksumError is returned when a wire message fails checksum verification.
type ChecksumError struct {
	Expected string // Checksum computed over the message body
	Actual   string // Checksum found at the end of the wire text
	Preview  string // Truncated, escaped copy of the offending wire text
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("invalid checksum; expected %q, found %q in message %q",
		e.Expected, e.Actual, e.Preview)
}

func (e *ChecksumError) Unwrap() error { return ErrInvalidChecksum }

// BoundsError describes an access of Width bytes at Address that does not fit
// inside the span [Start, Start+Length).
type BoundsError struct {
	Address int
	Width   int
	Start   int
	Length  int
}

func (e *BoundsError) Error() string {
	if e.Width == 1 {
		return fmt.Sprintf("address 0x%04X is out of bounds [0x%04X, 0x%04X)",
			e.Address, e.Start, e.Start+e.Length)
	}
	return fmt.Sprintf("%d bytes at address 0x%04X are out of bounds [0x%04X, 0x%04X)",
		e.Width, e.Address, e.Start, e.Start+e.Length)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// HexError is returned when hex text cannot be decoded into bytes.
type HexError struct {
	Offset int    // Character offset of the bad pair, or -1 for odd length
	Pair   string // The offending characters
	Length int    // Length of the input text
}

func (e *HexError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("hex text must have an even length, got %d characters", e.Length)
	}
	return fmt.Sprintf("found illegal value %q at offset %d; expected hex characters", e.Pair, e.Offset)
}

func (e *HexError) Unwrap() error { return ErrMalformedHex }

// RangeError is returned for a memory range with a negative offset or length.
type RangeError struct {
	Field string
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s cannot be negative: %d", e.Field, e.Value)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// ShapeError is returned when wire text does not look like the record a
// decoder was asked to produce.
type ShapeError struct {
	Record  string // Record type the caller asked for
	Reason  string
	Preview string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("message %q does not appear to be a %s response: %s", e.Preview, e.Record, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrUnrecognizedRecordShape }

// IsChecksumError checks if an error is a checksum mismatch
func IsChecksumError(err error) bool {
	return errors.Is(err, ErrInvalidChecksum)
}

// IsBoundsError checks if an error is an out-of-bounds access
func IsBoundsError(err error) bool {
	return errors.Is(err, ErrOutOfBounds)
}

// IsHexError checks if an error is a hex decoding failure
func IsHexError(err error) bool {
	return errors.Is(err, ErrMalformedHex)
}

// IsShapeError checks if an error is a record pre-check failure
func IsShapeError(err error) bool {
	return errors.Is(err, ErrUnrecognizedRecordShape)
}
