package capture

import (
	"fmt"
	"time"

	"github.com/muurk/brewlink/internal/protocol"
)

// Direction tells which way a captured chunk travelled.
type Direction uint8

const (
	// ToDevice is traffic from a client towards the machine.
	ToDevice Direction = iota + 1
	// FromDevice is traffic from the machine back to a client.
	FromDevice
)

func (d Direction) String() string {
	switch d {
	case ToDevice:
		return "to_device"
	case FromDevice:
		return "from_device"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Record is one chunk of relayed traffic. Wire holds the bytes exactly as
// they were read from the socket; a chunk is not guaranteed to be one whole
// message.
type Record struct {
	Timestamp  time.Time `cbor:"1,keyasint"`
	SessionID  string    `cbor:"2,keyasint"`
	Direction  Direction `cbor:"3,keyasint"`
	Wire       []byte    `cbor:"4,keyasint"`
	ChecksumOK bool      `cbor:"5,keyasint"`
}

// NewRecord stamps a chunk with the current time and its checksum result.
func NewRecord(sessionID string, dir Direction, wire []byte) Record {
	return Record{
		Timestamp:  time.Now(),
		SessionID:  sessionID,
		Direction:  dir,
		Wire:       append([]byte(nil), wire...),
		ChecksumOK: protocol.VerifyChecksum(string(wire)),
	}
}

// String renders the record as one log line with unprintable bytes escaped.
func (r Record) String() string {
	mark := "ok"
	if !r.ChecksumOK {
		mark = "bad"
	}
	return fmt.Sprintf("%s %s %-11s %s [%s]",
		r.Timestamp.Format(time.RFC3339Nano),
		r.SessionID,
		r.Direction,
		protocol.EscapeUnprintables(string(r.Wire)),
		mark,
	)
}
