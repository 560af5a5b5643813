package protocol

import (
	"fmt"
	"strings"
)

// MessageType is the optional one-character tag at the start of a wire message.
// The tag's case is preserved exactly as it arrived so that a decoded message
// serializes back to the same text.
type MessageType byte

// Message type tags
const (
	TypeNone     MessageType = 0
	TypeRead     MessageType = 'r'
	TypeWrite    MessageType = 'w'
	TypeReserved MessageType = 'z' // meaning unknown; seen rarely from the device
)

// parseMessageType returns the tag for c, or TypeNone when c is not a tag.
func parseMessageType(c byte) MessageType {
	switch c {
	case 'r', 'R', 'w', 'W', 'z', 'Z':
		return MessageType(c)
	default:
		return TypeNone
	}
}

// Normalized returns the lower-case form of the tag.
func (t MessageType) Normalized() MessageType {
	if t >= 'A' && t <= 'Z' {
		return t + ('a' - 'A')
	}
	return t
}

// IsRead reports whether the tag is r or R.
func (t MessageType) IsRead() bool { return t.Normalized() == TypeRead }

// IsWrite reports whether the tag is w or W.
func (t MessageType) IsWrite() bool { return t.Normalized() == TypeWrite }

// String returns a human-readable tag name
func (t MessageType) String() string {
	switch t.Normalized() {
	case TypeNone:
		return "none"
	case TypeRead:
		return "read"
	case TypeWrite:
		return "write"
	case TypeReserved:
		return "reserved"
	default:
		return fmt.Sprintf("unknown(%q)", rune(t))
	}
}

// Message is a checksum-verified wire message: an optional type tag and the
// payload bytes carried as hex. The payload is based at address 0; read
// responses are re-based by ParseReadResponse.
type Message struct {
	Type    MessageType
	Payload *Memory
}

// NewMessage builds a message from a tag and payload. The payload is copied.
func NewMessage(t MessageType, payload *Memory) *Message {
	return &Message{Type: t, Payload: payload.Clone()}
}

// DecodeMessage parses wire text such as "r00000073FC".
//
// The checksum is verified first; on failure the error is a *ChecksumError.
// A leading r, w or z (either case) becomes the type tag. Everything between
// the tag and the checksum must be hex, otherwise the error is a *HexError.
func DecodeMessage(wire string) (*Message, error) {
	if err := AssertValidChecksum(wire); err != nil {
		return nil, err
	}

	body := ExtractMessage(wire)
	msg := &Message{}
	if len(body) > 0 {
		if t := parseMessageType(body[0]); t != TypeNone {
			msg.Type = t
			body = body[1:]
		}
	}

	payload, err := MemoryFromHex(body, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	msg.Payload = payload

	return msg, nil
}

// Serialize renders the message as checksum-suffixed wire text. The tag keeps
// the case it was decoded with but the payload is always uppercase hex, so
// wire text with lowercase payload digits serializes to a different string
// (and checksum) than it was decoded from.
func (m *Message) Serialize() string {
	var b strings.Builder
	if m.Type != TypeNone {
		b.WriteByte(byte(m.Type))
	}
	if m.Payload != nil {
		b.WriteString(m.Payload.HexString())
	}
	return AttachChecksum(b.String())
}

// StartsWith reports whether every byte of prefix matches the leading bytes
// of the payload.
func (m *Message) StartsWith(prefix *Memory) bool {
	if m.Payload == nil {
		return prefix.Len() == 0
	}
	return m.Payload.HasPrefix(prefix)
}

// String returns a debug representation of the message
func (m *Message) String() string {
	return fmt.Sprintf("Message<%s>", m.Serialize())
}
