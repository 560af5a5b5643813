package protocol

import (
	"errors"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name        string
		wire        string
		wantType    MessageType
		wantPayload string
	}{
		{name: "read command", wire: "r00000073FC", wantType: TypeRead, wantPayload: "00000073"},
		{name: "upper case tag", wire: "R00000073DC", wantType: 'R', wantPayload: "00000073"},
		{name: "untagged", wire: "00FFEC", wantType: TypeNone, wantPayload: "00FF"},
		{name: "reserved tag only", wire: "z7A", wantType: TypeReserved, wantPayload: ""},
		{name: "write", wire: "w00100002AB01DE", wantType: TypeWrite, wantPayload: "00100002AB01"},
		{name: "empty", wire: "00", wantType: TypeNone, wantPayload: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage(tt.wire)
			if err != nil {
				t.Fatalf("DecodeMessage(%q) error: %v", tt.wire, err)
			}
			if msg.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", msg.Type, tt.wantType)
			}
			if got := msg.Payload.HexString(); got != tt.wantPayload {
				t.Errorf("Payload = %q, want %q", got, tt.wantPayload)
			}
			if got := msg.Serialize(); got != tt.wire {
				t.Errorf("Serialize() = %q, want %q", got, tt.wire)
			}
		})
	}
}

func TestDecodeMessage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		wire     string
		wantKind ErrorKind
	}{
		{name: "bad checksum", wire: "r00000073FF", wantKind: ErrKindInvalidChecksum},
		{name: "non-hex payload", wire: "rXY23", wantKind: ErrKindMalformedHex},
		{name: "odd payload", wire: "W000" + CalculateChecksum("W000"), wantKind: ErrKindMalformedHex},
		{name: "too short", wire: "0", wantKind: ErrKindInvalidChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage(tt.wire)
			if err == nil {
				t.Fatalf("DecodeMessage(%q) = %v, want error", tt.wire, msg)
			}
			if msg != nil {
				t.Errorf("DecodeMessage(%q) returned a message alongside error", tt.wire)
			}
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf(%v) = %v, want %v", err, got, tt.wantKind)
			}
		})
	}
}

func TestDecodeMessage_HexErrorDetail(t *testing.T) {
	_, err := DecodeMessage("rXY23")
	var hexErr *HexError
	if !errors.As(err, &hexErr) {
		t.Fatalf("error = %v, want *HexError in chain", err)
	}
	if hexErr.Pair != "XY" || hexErr.Offset != 0 {
		t.Errorf("HexError = %+v, want pair XY at offset 0", hexErr)
	}
}

func TestMessageType(t *testing.T) {
	tests := []struct {
		t       MessageType
		isRead  bool
		isWrite bool
		str     string
	}{
		{t: TypeRead, isRead: true, str: "read"},
		{t: 'R', isRead: true, str: "read"},
		{t: TypeWrite, isWrite: true, str: "write"},
		{t: 'W', isWrite: true, str: "write"},
		{t: TypeReserved, str: "reserved"},
		{t: TypeNone, str: "none"},
	}

	for _, tt := range tests {
		if got := tt.t.IsRead(); got != tt.isRead {
			t.Errorf("%q.IsRead() = %v, want %v", rune(tt.t), got, tt.isRead)
		}
		if got := tt.t.IsWrite(); got != tt.isWrite {
			t.Errorf("%q.IsWrite() = %v, want %v", rune(tt.t), got, tt.isWrite)
		}
		if got := tt.t.String(); got != tt.str {
			t.Errorf("%q.String() = %q, want %q", rune(tt.t), got, tt.str)
		}
	}
}

func TestNewMessage(t *testing.T) {
	payload := NewMemory([]byte{0x00, 0x00, 0x00, 0x73}, 0)
	msg := NewMessage(TypeRead, payload)

	if got := msg.Serialize(); got != "r00000073FC" {
		t.Errorf("Serialize() = %q, want %q", got, "r00000073FC")
	}
	if got := msg.String(); got != "Message<r00000073FC>" {
		t.Errorf("String() = %q", got)
	}

	_ = payload.SetByte(3, 0x50)
	if got := msg.Serialize(); got != "r00000073FC" {
		t.Error("NewMessage did not copy its payload")
	}
}

func TestMessage_StartsWith(t *testing.T) {
	msg, err := DecodeMessage("r00000073FC")
	if err != nil {
		t.Fatal(err)
	}

	if !msg.StartsWith(NewMemory([]byte{0x00, 0x00}, 0)) {
		t.Error("StartsWith(0000) = false")
	}
	if msg.StartsWith(NewMemory([]byte{0xB0}, 0)) {
		t.Error("StartsWith(B0) = true")
	}

	empty := &Message{}
	if !empty.StartsWith(MemoryOfLength(0, 0)) {
		t.Error("empty message should start with empty prefix")
	}
}
