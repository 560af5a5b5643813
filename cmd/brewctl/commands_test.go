package main

import (
	"testing"

	"github.com/muurk/brewlink/internal/protocol"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"B000", 0xB000, false},
		{"0xB000", 0xB000, false},
		{"0X73", 0x73, false},
		{"b000", 0xB000, false},
		{"", 0, true},
		{"xyz", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseHex(%q) = %#x, want %#x", tt.in, got, tt.want)
			}
		})
	}
}

func TestHexDump(t *testing.T) {
	m := protocol.NewMemory([]byte("Hello\x00"), 0xB000)
	want := "B000  48 65 6C 6C 6F 00                                Hello.\n"
	if got := hexDump(m); got != want {
		t.Errorf("hexDump() =\n%q\nwant\n%q", got, want)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("3f1c2a7b-0000"); got != "3f1c2a7b" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q", got)
	}
}

func TestValueOr(t *testing.T) {
	if valueOr("", "off") != "off" || valueOr("on", "off") != "on" {
		t.Error("valueOr did not fall back correctly")
	}
}
