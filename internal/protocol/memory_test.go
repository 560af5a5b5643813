package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemory_ByteBounds(t *testing.T) {
	m := NewMemory([]byte{0x01, 0x02, 0x03, 0x04}, 0)

	tests := []struct {
		address int
		want    byte
		wantErr bool
	}{
		{address: -1, wantErr: true},
		{address: 0, want: 0x01},
		{address: 3, want: 0x04},
		{address: 4, wantErr: true},
		{address: 5, wantErr: true},
	}

	for _, tt := range tests {
		got, err := m.Byte(tt.address)
		if tt.wantErr {
			if !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("Byte(%d) error = %v, want ErrOutOfBounds", tt.address, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Byte(%d) unexpected error: %v", tt.address, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Byte(%d) = 0x%02x, want 0x%02x", tt.address, got, tt.want)
		}
	}
}

func TestMemory_AbsoluteAddressing(t *testing.T) {
	m := NewMemory([]byte{0xAA, 0xBB, 0xCC}, 0xB000)

	if m.Base() != 0xB000 || m.End() != 0xB003 || m.Len() != 3 {
		t.Fatalf("Base/End/Len = 0x%X/0x%X/%d, want 0xB000/0xB003/3", m.Base(), m.End(), m.Len())
	}

	if _, err := m.Byte(0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Byte(0) below base error = %v, want ErrOutOfBounds", err)
	}
	if got, err := m.Byte(0xB001); err != nil || got != 0xBB {
		t.Errorf("Byte(0xB001) = 0x%02x, %v; want 0xbb, nil", got, err)
	}
	if !m.Contains(0xB000, 3) {
		t.Error("Contains(0xB000, 3) = false, want true")
	}
	if m.Contains(0xB001, 3) {
		t.Error("Contains(0xB001, 3) = true, want false")
	}
}

func TestMemory_LittleEndian(t *testing.T) {
	m := MemoryOfLength(8, 0)

	if err := m.SetUint16(0, 0x1234); err != nil {
		t.Fatalf("SetUint16() error: %v", err)
	}
	if err := m.SetUint32(2, 0x12345678); err != nil {
		t.Fatalf("SetUint32() error: %v", err)
	}

	want := []byte{0x34, 0x12, 0x78, 0x56, 0x34, 0x12, 0x00, 0x00}
	if !bytes.Equal(m.Bytes(), want) {
		t.Errorf("bytes = % X, want % X", m.Bytes(), want)
	}

	if v, err := m.Uint16(0); err != nil || v != 0x1234 {
		t.Errorf("Uint16(0) = 0x%04x, %v; want 0x1234, nil", v, err)
	}
	if v, err := m.Uint32(2); err != nil || v != 0x12345678 {
		t.Errorf("Uint32(2) = 0x%08x, %v; want 0x12345678, nil", v, err)
	}
	if _, err := m.Uint32(5); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Uint32(5) error = %v, want ErrOutOfBounds", err)
	}
}

func TestMemory_FailedWriteLeavesBytesUntouched(t *testing.T) {
	m := NewMemory([]byte{0x01, 0x02, 0x03, 0x04}, 0)

	writes := []struct {
		name string
		fn   func() error
	}{
		{name: "SetUint32 straddling end", fn: func() error { return m.SetUint32(2, 0xDEADBEEF) }},
		{name: "SetUint16 past end", fn: func() error { return m.SetUint16(3, 0xFFFF) }},
		{name: "SetByte below base", fn: func() error { return m.SetByte(-1, 0xFF) }},
		{name: "SetSubstring too long", fn: func() error { return m.SetSubstring(1, "abcd") }},
	}

	for _, w := range writes {
		t.Run(w.name, func(t *testing.T) {
			err := w.fn()
			if !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("error = %v, want ErrOutOfBounds", err)
			}
			want := []byte{0x01, 0x02, 0x03, 0x04}
			if !bytes.Equal(m.Bytes(), want) {
				t.Errorf("bytes = % X, want % X", m.Bytes(), want)
			}
		})
	}
}

func TestMemory_BoolAndChars(t *testing.T) {
	m := MemoryFromString("ab\x00\x07")

	if v, _ := m.Bool(2); v {
		t.Error("Bool(2) = true for zero byte")
	}
	if v, _ := m.Bool(3); !v {
		t.Error("Bool(3) = false for non-zero byte")
	}
	if c, _ := m.ASCIIChar(1); c != 'b' {
		t.Errorf("ASCIIChar(1) = %q, want 'b'", c)
	}

	if err := m.SetBool(3, true); err != nil {
		t.Fatal(err)
	}
	if b, _ := m.Byte(3); b != 1 {
		t.Errorf("SetBool(true) stored 0x%02x, want 0x01", b)
	}
	if err := m.SetASCIIChar(0, 'z'); err != nil {
		t.Fatal(err)
	}
	if s, _ := m.Substring(0, 2); s != "zb" {
		t.Errorf("Substring(0, 2) = %q, want %q", s, "zb")
	}
}

func TestMemory_Substring(t *testing.T) {
	m := NewMemory([]byte("HELLO WORLD"), 0x10)

	if s, err := m.Substring(0x16, 0x1B); err != nil || s != "WORLD" {
		t.Errorf("Substring() = %q, %v; want %q, nil", s, err, "WORLD")
	}
	if s, err := m.SubstringFrom(0x16); err != nil || s != "WORLD" {
		t.Errorf("SubstringFrom() = %q, %v; want %q, nil", s, err, "WORLD")
	}
	if s, err := m.Substring(0x12, 0x12); err != nil || s != "" {
		t.Errorf("empty Substring() = %q, %v; want empty, nil", s, err)
	}
	if _, err := m.Substring(0x18, 0x1C); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Substring past end error = %v, want ErrOutOfBounds", err)
	}
	if _, err := m.Substring(0x14, 0x12); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("reversed Substring error = %v, want ErrOutOfBounds", err)
	}
	if _, err := m.SubstringFrom(0x1B); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("SubstringFrom(end) error = %v, want ErrOutOfBounds", err)
	}
}

func TestMemory_SlicePreservesAddressesAndCopies(t *testing.T) {
	m := NewMemory([]byte{0x10, 0x11, 0x12, 0x13, 0x14}, 0x100)

	s, err := m.Slice(0x102, 0x104)
	if err != nil {
		t.Fatalf("Slice() error: %v", err)
	}
	if s.Base() != 0x102 || s.Len() != 2 {
		t.Fatalf("Slice base/len = 0x%X/%d, want 0x102/2", s.Base(), s.Len())
	}
	if b, _ := s.Byte(0x103); b != 0x13 {
		t.Errorf("slice Byte(0x103) = 0x%02x, want 0x13", b)
	}

	if err := s.SetByte(0x102, 0xFF); err != nil {
		t.Fatal(err)
	}
	if b, _ := m.Byte(0x102); b != 0x12 {
		t.Errorf("write through slice changed parent: 0x%02x", b)
	}

	tail, err := m.SliceFrom(0x103)
	if err != nil {
		t.Fatalf("SliceFrom() error: %v", err)
	}
	if tail.HexString() != "1314" || tail.Base() != 0x103 {
		t.Errorf("SliceFrom() = %s, want base 0x103 hex 1314", tail)
	}

	if _, err := m.Slice(0xFF, 0x101); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Slice below base error = %v, want ErrOutOfBounds", err)
	}
}

func TestMemory_CopiesOnConstruction(t *testing.T) {
	data := []byte{1, 2, 3}
	m := NewMemory(data, 0)
	data[0] = 9
	if b, _ := m.Byte(0); b != 1 {
		t.Error("NewMemory shares caller's slice")
	}

	out := m.Bytes()
	out[1] = 9
	if b, _ := m.Byte(1); b != 2 {
		t.Error("Bytes() exposes internal storage")
	}

	c := m.Clone()
	_ = c.SetByte(2, 9)
	if b, _ := m.Byte(2); b != 3 {
		t.Error("Clone shares storage with original")
	}
}

func TestMemoryFromHex(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		base       int
		wantHex    string
		wantOffset int
		wantPair   string
		wantErr    bool
	}{
		{name: "upper case", text: "FFCC33", wantHex: "FFCC33"},
		{name: "lower case", text: "ffcc33", wantHex: "FFCC33"},
		{name: "empty", text: "", wantHex: ""},
		{name: "based", text: "0102", base: 0xB000, wantHex: "0102"},
		{name: "odd length", text: "FFCC3", wantErr: true, wantOffset: -1},
		{name: "bad pair", text: "FFGG", wantErr: true, wantOffset: 2, wantPair: "GG"},
		{name: "bad second char", text: "0Z11", wantErr: true, wantOffset: 0, wantPair: "0Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := MemoryFromHex(tt.text, tt.base)
			if tt.wantErr {
				var hexErr *HexError
				if !errors.As(err, &hexErr) {
					t.Fatalf("error = %v, want *HexError", err)
				}
				if !errors.Is(err, ErrMalformedHex) {
					t.Errorf("error should match ErrMalformedHex")
				}
				if hexErr.Offset != tt.wantOffset {
					t.Errorf("Offset = %d, want %d", hexErr.Offset, tt.wantOffset)
				}
				if hexErr.Pair != tt.wantPair {
					t.Errorf("Pair = %q, want %q", hexErr.Pair, tt.wantPair)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.HexString() != tt.wantHex {
				t.Errorf("HexString() = %q, want %q", m.HexString(), tt.wantHex)
			}
			if m.Base() != tt.base {
				t.Errorf("Base() = 0x%X, want 0x%X", m.Base(), tt.base)
			}
		})
	}

	m, _ := MemoryFromHex("FFCC33", 0)
	if b, _ := m.Byte(1); b != 0xCC {
		t.Errorf("Byte(1) = 0x%02x, want 0xcc", b)
	}
}

func TestMemory_HasPrefix(t *testing.T) {
	m := NewMemory([]byte{0x00, 0x00, 0x00, 0x73, 0x01}, 0)

	if !m.HasPrefix(NewMemory([]byte{0x00, 0x00, 0x00, 0x73}, 0x40)) {
		t.Error("HasPrefix() = false for matching prefix with different base")
	}
	if m.HasPrefix(NewMemory([]byte{0x00, 0x01}, 0)) {
		t.Error("HasPrefix() = true for mismatching prefix")
	}
	if m.HasPrefix(MemoryOfLength(6, 0)) {
		t.Error("HasPrefix() = true for prefix longer than memory")
	}
	if !m.HasPrefix(MemoryOfLength(0, 0)) {
		t.Error("HasPrefix() = false for empty prefix")
	}
}

func TestMemoryOfLength(t *testing.T) {
	m := MemoryOfLength(3, 0x20)
	if m.HexString() != "202020" || m.Base() != 0 {
		t.Errorf("MemoryOfLength(3, 0x20) = %s", m)
	}
	if got := m.String(); got != "Memory[0x0000:202020]" {
		t.Errorf("String() = %q", got)
	}
}
