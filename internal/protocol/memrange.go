package protocol

import (
	"encoding/binary"
	"fmt"
)

// MaxAddress is the highest address the device will serve.
const MaxAddress = 0xFFFF

// Read windows the controller is known to answer.
const (
	ConfigWindowStart  = 0x0000
	ConfigWindowEnd    = 0x0078
	DisplayWindowStart = 0xB000
	DisplayWindowEnd   = 0xB04F
)

// readPreambleLength is the offset+length header at the front of a read
// response payload.
const readPreambleLength = 4

// MemoryRange is an immutable span of Length bytes starting at Offset.
type MemoryRange struct {
	offset int
	length int
}

// NewMemoryRange validates offset and length. Negative values yield a *RangeError.
func NewMemoryRange(offset, length int) (MemoryRange, error) {
	if offset < 0 {
		return MemoryRange{}, &RangeError{Field: "offset", Value: offset}
	}
	if length < 0 {
		return MemoryRange{}, &RangeError{Field: "length", Value: length}
	}
	return MemoryRange{offset: offset, length: length}, nil
}

// Offset returns the first address in the range.
func (r MemoryRange) Offset() int { return r.offset }

// Length returns the number of bytes in the range.
func (r MemoryRange) Length() int { return r.length }

// LastIndex returns the last address in the range. For an empty range this is
// Offset-1.
func (r MemoryRange) LastIndex() int { return r.offset + r.length - 1 }

// Includes reports whether addr lies within the range.
func (r MemoryRange) Includes(addr int) bool {
	return addr >= r.offset && addr <= r.LastIndex()
}

func (r MemoryRange) String() string {
	return fmt.Sprintf("[0x%04X+%d]", r.offset, r.length)
}

// checkAddressable enforces the protocol's 16-bit address ceiling. Offset and
// length are each sent as four hex digits, so neither may exceed MaxAddress.
func checkAddressable(r MemoryRange) error {
	if r.offset > MaxAddress || r.length > MaxAddress || r.LastIndex() > MaxAddress {
		return &BoundsError{Address: r.offset, Width: r.length, Start: 0, Length: MaxAddress + 1}
	}
	return nil
}

// ReadRequest asks the device for a range of its memory.
type ReadRequest struct {
	Range MemoryRange
}

// NewReadRequest validates a read of length bytes at offset. Negative input is
// a *RangeError; a range reaching past MaxAddress is a *BoundsError.
func NewReadRequest(offset, length int) (ReadRequest, error) {
	r, err := NewMemoryRange(offset, length)
	if err != nil {
		return ReadRequest{}, err
	}
	if err := checkAddressable(r); err != nil {
		return ReadRequest{}, err
	}
	return ReadRequest{Range: r}, nil
}

// Serialize renders the request as wire text, e.g. "r00000073FC".
func (r ReadRequest) Serialize() string {
	return AttachChecksum(fmt.Sprintf("r%04X%04X", r.Range.offset, r.Range.length))
}

// WriteRequest stores Data into device memory at Data's base address.
type WriteRequest struct {
	Data *Memory
}

// NewWriteRequest validates a write of data at offset. The data is copied.
func NewWriteRequest(offset int, data []byte) (WriteRequest, error) {
	return NewWriteRequestFromMemory(NewMemory(data, offset))
}

// NewWriteRequestFromMemory writes m at its own base address.
func NewWriteRequestFromMemory(m *Memory) (WriteRequest, error) {
	r, err := NewMemoryRange(m.Base(), m.Len())
	if err != nil {
		return WriteRequest{}, err
	}
	if err := checkAddressable(r); err != nil {
		return WriteRequest{}, err
	}
	return WriteRequest{Data: m.Clone()}, nil
}

// Range returns the span the request writes.
func (w WriteRequest) Range() MemoryRange { return w.Data.Range() }

// Serialize renders the request as wire text: w, offset, length, data, checksum.
func (w WriteRequest) Serialize() string {
	return AttachChecksum(fmt.Sprintf("w%04X%04X%s", w.Data.Base(), w.Data.Len(), w.Data.HexString()))
}

// ReadResponse is the device's answer to a ReadRequest. Data is based at the
// range offset, so record decoders address it with absolute device addresses.
type ReadResponse struct {
	Range MemoryRange
	Data  *Memory
}

// ParseReadResponse splits a read response payload into its preamble (offset
// and length, big-endian as they appear in the hex text) and the data bytes.
func ParseReadResponse(msg *Message) (*ReadResponse, error) {
	if !msg.Type.IsRead() {
		return nil, &ShapeError{Record: "read", Reason: fmt.Sprintf("type is %s", msg.Type), Preview: preview(msg.Serialize())}
	}
	payload := msg.Payload.Bytes()
	if len(payload) < readPreambleLength {
		return nil, &ShapeError{Record: "read", Reason: "payload shorter than preamble", Preview: preview(msg.Serialize())}
	}

	offset := int(binary.BigEndian.Uint16(payload[0:2]))
	length := int(binary.BigEndian.Uint16(payload[2:4]))
	data := payload[readPreambleLength:]
	if len(data) != length {
		return nil, &ShapeError{
			Record:  "read",
			Reason:  fmt.Sprintf("declared %d data bytes, found %d", length, len(data)),
			Preview: preview(msg.Serialize()),
		}
	}

	r, err := NewMemoryRange(offset, length)
	if err != nil {
		return nil, err
	}
	return &ReadResponse{Range: r, Data: NewMemory(data, offset)}, nil
}

// BuildReadResponse is the device side of ParseReadResponse; it renders data
// as a read response wire message. Used by simulators and tests.
func BuildReadResponse(data *Memory) string {
	return AttachChecksum(fmt.Sprintf("r%04X%04X%s", data.Base(), data.Len(), data.HexString()))
}
