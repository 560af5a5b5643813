package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Memory is a contiguous run of device memory that starts at a base address.
// Accessors take absolute device addresses, not indexes into the run, and
// every access is bounds-checked before any byte is read or written. Multi-byte
// integers are little-endian, which is how the controller stores them.
//
// A Memory owns its bytes: constructors, Slice and Clone all copy.
type Memory struct {
	base  int
	bytes []byte
}

// NewMemory copies data into a new Memory starting at address base.
func NewMemory(data []byte, base int) *Memory {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Memory{base: base, bytes: buf}
}

// MemoryOfLength returns length bytes of fill, based at address 0.
func MemoryOfLength(length int, fill byte) *Memory {
	buf := make([]byte, length)
	if fill != 0 {
		for i := range buf {
			buf[i] = fill
		}
	}
	return &Memory{bytes: buf}
}

// MemoryFromString returns the bytes of an ASCII string, based at address 0.
func MemoryFromString(s string) *Memory {
	return &Memory{bytes: []byte(s)}
}

// MemoryFromHex decodes hex text (either case) into a Memory based at base.
// Odd-length text or a non-hex pair yields a *HexError.
func MemoryFromHex(text string, base int) (*Memory, error) {
	if len(text)%2 != 0 {
		return nil, &HexError{Offset: -1, Length: len(text)}
	}
	buf, err := hex.DecodeString(text)
	if err != nil {
		var invalid hex.InvalidByteError
		if errors.As(err, &invalid) {
			// Report the whole pair that contained the bad character
			idx := strings.IndexByte(text, byte(invalid)) &^ 1
			return nil, &HexError{Offset: idx, Pair: text[idx : idx+2], Length: len(text)}
		}
		return nil, &HexError{Offset: 0, Pair: text, Length: len(text)}
	}
	return &Memory{base: base, bytes: buf}, nil
}

// Base returns the address of the first byte.
func (m *Memory) Base() int { return m.base }

// Len returns the number of bytes held.
func (m *Memory) Len() int { return len(m.bytes) }

// End returns the address one past the last byte.
func (m *Memory) End() int { return m.base + len(m.bytes) }

// Bytes returns a copy of the underlying bytes.
func (m *Memory) Bytes() []byte {
	out := make([]byte, len(m.bytes))
	copy(out, m.bytes)
	return out
}

// Range returns the span covered by m.
func (m *Memory) Range() MemoryRange {
	return MemoryRange{offset: m.base, length: len(m.bytes)}
}

// Contains reports whether width bytes starting at address all lie inside m.
func (m *Memory) Contains(address, width int) bool {
	return m.check(address, width) == nil
}

func (m *Memory) check(address, width int) error {
	if width < 0 || address < m.base || address+width > m.base+len(m.bytes) {
		return &BoundsError{Address: address, Width: width, Start: m.base, Length: len(m.bytes)}
	}
	return nil
}

func (m *Memory) index(address int) int { return address - m.base }

// Byte returns the byte at address.
func (m *Memory) Byte(address int) (byte, error) {
	if err := m.check(address, 1); err != nil {
		return 0, err
	}
	return m.bytes[m.index(address)], nil
}

// Bool returns false for a zero byte at address and true for anything else.
func (m *Memory) Bool(address int) (bool, error) {
	b, err := m.Byte(address)
	return b != 0, err
}

// Uint16 returns the little-endian 16-bit value at address.
func (m *Memory) Uint16(address int) (uint16, error) {
	if err := m.check(address, 2); err != nil {
		return 0, err
	}
	i := m.index(address)
	return uint16(m.bytes[i]) | uint16(m.bytes[i+1])<<8, nil
}

// Uint32 returns the little-endian 32-bit value at address.
func (m *Memory) Uint32(address int) (uint32, error) {
	if err := m.check(address, 4); err != nil {
		return 0, err
	}
	i := m.index(address)
	return uint32(m.bytes[i]) |
		uint32(m.bytes[i+1])<<8 |
		uint32(m.bytes[i+2])<<16 |
		uint32(m.bytes[i+3])<<24, nil
}

// ASCIIChar returns the byte at address as a character.
func (m *Memory) ASCIIChar(address int) (rune, error) {
	b, err := m.Byte(address)
	return rune(b), err
}

// Substring returns the bytes in [start, end) as a string.
func (m *Memory) Substring(start, end int) (string, error) {
	if err := m.check(start, end-start); err != nil {
		return "", err
	}
	return string(m.bytes[m.index(start):m.index(end)]), nil
}

// SubstringFrom returns the bytes from start to the end of m as a string.
// start must address a byte inside m.
func (m *Memory) SubstringFrom(start int) (string, error) {
	if err := m.check(start, 1); err != nil {
		return "", err
	}
	return string(m.bytes[m.index(start):]), nil
}

// SetByte writes value at address.
func (m *Memory) SetByte(address int, value byte) error {
	if err := m.check(address, 1); err != nil {
		return err
	}
	m.bytes[m.index(address)] = value
	return nil
}

// SetBool writes 1 for true and 0 for false at address.
func (m *Memory) SetBool(address int, value bool) error {
	var b byte
	if value {
		b = 1
	}
	return m.SetByte(address, b)
}

// SetUint16 writes value little-endian at address.
func (m *Memory) SetUint16(address int, value uint16) error {
	if err := m.check(address, 2); err != nil {
		return err
	}
	i := m.index(address)
	m.bytes[i] = byte(value)
	m.bytes[i+1] = byte(value >> 8)
	return nil
}

// SetUint32 writes value little-endian at address.
func (m *Memory) SetUint32(address int, value uint32) error {
	if err := m.check(address, 4); err != nil {
		return err
	}
	i := m.index(address)
	m.bytes[i] = byte(value)
	m.bytes[i+1] = byte(value >> 8)
	m.bytes[i+2] = byte(value >> 16)
	m.bytes[i+3] = byte(value >> 24)
	return nil
}

// SetASCIIChar writes the low byte of c at address.
func (m *Memory) SetASCIIChar(address int, c rune) error {
	return m.SetByte(address, byte(c))
}

// SetSubstring writes the bytes of s starting at address. Nothing is written
// unless all of s fits.
func (m *Memory) SetSubstring(address int, s string) error {
	if err := m.check(address, len(s)); err != nil {
		return err
	}
	copy(m.bytes[m.index(address):], s)
	return nil
}

// Slice copies the bytes in [start, end) into a new Memory based at start.
func (m *Memory) Slice(start, end int) (*Memory, error) {
	if err := m.check(start, end-start); err != nil {
		return nil, err
	}
	return NewMemory(m.bytes[m.index(start):m.index(end)], start), nil
}

// SliceFrom copies the bytes from start to the end of m into a new Memory
// based at start. start must address a byte inside m.
func (m *Memory) SliceFrom(start int) (*Memory, error) {
	if err := m.check(start, 1); err != nil {
		return nil, err
	}
	return NewMemory(m.bytes[m.index(start):], start), nil
}

// Clone returns an independent copy of m.
func (m *Memory) Clone() *Memory {
	return NewMemory(m.bytes, m.base)
}

// HasPrefix reports whether m begins with every byte of prefix. Base
// addresses are ignored; only byte values are compared.
func (m *Memory) HasPrefix(prefix *Memory) bool {
	if prefix.Len() > m.Len() {
		return false
	}
	for i, b := range prefix.bytes {
		if m.bytes[i] != b {
			return false
		}
	}
	return true
}

// HexString returns two uppercase hex digits per byte.
func (m *Memory) HexString() string {
	return strings.ToUpper(hex.EncodeToString(m.bytes))
}

// String returns a debug representation of the memory
func (m *Memory) String() string {
	return fmt.Sprintf("Memory[0x%04X:%s]", m.base, m.HexString())
}
