package protocol

import (
	"fmt"
	"strings"
)

// ChecksumLength is the number of hex characters appended to every message.
const ChecksumLength = 2

// CalculateChecksum returns the 8-bit sum of the character codes in message,
// rendered as two uppercase hex digits. Wire text is ASCII, so each byte is
// one character.
func CalculateChecksum(message string) string {
	var sum byte
	for i := 0; i < len(message); i++ {
		sum += message[i]
	}
	return fmt.Sprintf("%02X", sum)
}

// AttachChecksum appends the checksum of message to message.
//
// Example:
//
//	AttachChecksum("r00000073") // "r00000073FC"
func AttachChecksum(message string) string {
	return message + CalculateChecksum(message)
}

// ExtractMessage strips the trailing checksum from wire text.
// It does not verify anything.
func ExtractMessage(wire string) string {
	if len(wire) < ChecksumLength {
		return ""
	}
	return wire[:len(wire)-ChecksumLength]
}

// ExtractChecksum returns the trailing checksum of wire text, uppercased.
// It does not verify anything.
func ExtractChecksum(wire string) string {
	if len(wire) < ChecksumLength {
		return strings.ToUpper(wire)
	}
	return strings.ToUpper(wire[len(wire)-ChecksumLength:])
}

// VerifyChecksum reports whether the checksum at the end of wire matches the
// message in front of it. The comparison ignores case.
func VerifyChecksum(wire string) bool {
	return CalculateChecksum(ExtractMessage(wire)) == ExtractChecksum(wire)
}

// AssertValidChecksum is VerifyChecksum with an informative error.
// The returned error is a *ChecksumError.
func AssertValidChecksum(wire string) error {
	expected := CalculateChecksum(ExtractMessage(wire))
	actual := ExtractChecksum(wire)
	if expected == actual {
		return nil
	}
	return &ChecksumError{
		Expected: expected,
		Actual:   actual,
		Preview:  preview(wire),
	}
}
