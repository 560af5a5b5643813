package protocol

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func TestCalculateChecksum(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{name: "empty message", message: "", want: "00"},
		{name: "machine state read", message: "r00000073", want: "FC"},
		{name: "display state read", message: "rB0000050", want: "09"},
		{name: "upper case tag", message: "R00000073", want: "DC"},
		{name: "untagged payload", message: "00FF", want: "EC"},
		{name: "plain text", message: "hello", want: "14"},
		{name: "wraps past 255", message: strings.Repeat("\xff", 3), want: "FD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateChecksum(tt.message); got != tt.want {
				t.Errorf("CalculateChecksum(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestCalculateChecksum_OrderInsensitive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	messages := []string{
		"r00000073",
		"rB0000050",
		"w0010000412345678",
		"the quick brown fox jumps over the lazy dog",
	}

	for _, msg := range messages {
		want := CalculateChecksum(msg)
		for i := 0; i < 20; i++ {
			b := []byte(msg)
			rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
			if got := CalculateChecksum(string(b)); got != want {
				t.Fatalf("CalculateChecksum(%q) = %q, want %q (permutation of %q)", b, got, want, msg)
			}
		}
	}
}

func TestAttachChecksum(t *testing.T) {
	if got := AttachChecksum("r00000073"); got != "r00000073FC" {
		t.Errorf("AttachChecksum() = %q, want %q", got, "r00000073FC")
	}
	if got := AttachChecksum(""); got != "00" {
		t.Errorf("AttachChecksum(\"\") = %q, want %q", got, "00")
	}
}

func TestExtractMessageAndChecksum(t *testing.T) {
	tests := []struct {
		wire         string
		wantMessage  string
		wantChecksum string
	}{
		{wire: "r00000073FC", wantMessage: "r00000073", wantChecksum: "FC"},
		{wire: "r00000073fc", wantMessage: "r00000073", wantChecksum: "FC"},
		{wire: "00", wantMessage: "", wantChecksum: "00"},
		{wire: "a", wantMessage: "", wantChecksum: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			if got := ExtractMessage(tt.wire); got != tt.wantMessage {
				t.Errorf("ExtractMessage(%q) = %q, want %q", tt.wire, got, tt.wantMessage)
			}
			if got := ExtractChecksum(tt.wire); got != tt.wantChecksum {
				t.Errorf("ExtractChecksum(%q) = %q, want %q", tt.wire, got, tt.wantChecksum)
			}
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	tests := []struct {
		wire string
		want bool
	}{
		{wire: "r00000073FC", want: true},
		{wire: "r00000073fc", want: true},
		{wire: "r00000073FF", want: false},
		{wire: "00", want: true},
		{wire: "", want: false},
		{wire: "z7A", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			if got := VerifyChecksum(tt.wire); got != tt.want {
				t.Errorf("VerifyChecksum(%q) = %v, want %v", tt.wire, got, tt.want)
			}
		})
	}
}

func TestVerifyChecksum_DetectsFlippedDigit(t *testing.T) {
	const digits = "0123456789ABCDEF"
	messages := []string{"", "r00000073", "rB0000050", "w00100002AB01", "z"}

	for _, msg := range messages {
		wire := AttachChecksum(msg)
		if !VerifyChecksum(wire) {
			t.Fatalf("VerifyChecksum(AttachChecksum(%q)) = false", msg)
		}

		for pos := len(wire) - 2; pos < len(wire); pos++ {
			for _, d := range digits {
				if byte(d) == wire[pos] {
					continue
				}
				flipped := wire[:pos] + string(d) + wire[pos+1:]
				if VerifyChecksum(flipped) {
					t.Errorf("VerifyChecksum(%q) = true, want false", flipped)
				}
			}
		}
	}
}

func TestAssertValidChecksum(t *testing.T) {
	if err := AssertValidChecksum("r00000073FC"); err != nil {
		t.Fatalf("AssertValidChecksum() unexpected error: %v", err)
	}

	err := AssertValidChecksum("r00000073FF")
	if err == nil {
		t.Fatal("AssertValidChecksum() expected error, got nil")
	}
	if !errors.Is(err, ErrInvalidChecksum) {
		t.Errorf("error %v should match ErrInvalidChecksum", err)
	}

	var csErr *ChecksumError
	if !errors.As(err, &csErr) {
		t.Fatalf("error should be a *ChecksumError, got %T", err)
	}
	if csErr.Expected != "FC" {
		t.Errorf("Expected = %q, want %q", csErr.Expected, "FC")
	}
	if csErr.Actual != "FF" {
		t.Errorf("Actual = %q, want %q", csErr.Actual, "FF")
	}
	if csErr.Preview != "r00000073..." {
		t.Errorf("Preview = %q, want %q", csErr.Preview, "r00000073...")
	}
}

func TestAssertValidChecksum_EscapesPreview(t *testing.T) {
	err := AssertValidChecksum("\r\nXX")
	var csErr *ChecksumError
	if !errors.As(err, &csErr) {
		t.Fatalf("error should be a *ChecksumError, got %v", err)
	}
	if csErr.Preview != `\r\nXX` {
		t.Errorf("Preview = %q, want %q", csErr.Preview, `\r\nXX`)
	}
}

func TestEscapeUnprintables(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "printable", in: "r00000073FC", want: "r00000073FC"},
		{name: "named escapes", in: "a\tb\n\\", want: `a\tb\n\\`},
		{name: "nul", in: "\x00", want: `\0`},
		{name: "control byte", in: "\x01", want: `\x01`},
		{name: "delete", in: "\x7f", want: `\x7f`},
		{name: "raw high byte", in: "\xb0", want: `\xb0`},
		{name: "replacement character", in: "\uFFFD", want: `\uFFFD`},
		{name: "greeting", in: "*HELLO*", want: "*HELLO*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeUnprintables(tt.in); got != tt.want {
				t.Errorf("EscapeUnprintables(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
