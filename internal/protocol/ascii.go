package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// namedEscapes maps characters with a conventional backslash escape.
var namedEscapes = map[rune]string{
	'\\':     `\\`,
	0:        `\0`,
	'\b':     `\b`,
	'\f':     `\f`,
	'\n':     `\n`,
	'\r':     `\r`,
	'\t':     `\t`,
	'\v':     `\v`,
	'\uFFFD': `\uFFFD`,
	'\uFEFF': `\uFEFF`,
}

// EscapeUnprintables makes s safe to print on a single console line.
// Control characters and the 0x7F-0xFF range become \xNN escapes. Text that
// is not valid UTF-8 (raw bytes off the wire) is treated one byte per character.
func EscapeUnprintables(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	if utf8.ValidString(s) {
		for _, r := range s {
			escapeRune(&b, r)
		}
	} else {
		for i := 0; i < len(s); i++ {
			escapeRune(&b, rune(s[i]))
		}
	}
	return b.String()
}

func escapeRune(b *strings.Builder, r rune) {
	if esc, ok := namedEscapes[r]; ok {
		b.WriteString(esc)
		return
	}
	if r < 32 || (r >= 127 && r < 256) {
		fmt.Fprintf(b, `\x%02x`, r)
		return
	}
	b.WriteRune(r)
}

// previewLength is how many characters of a wire message are quoted in errors.
const previewLength = 9

// preview returns the first few characters of s, escaped, with an ellipsis
// marker when s was longer.
func preview(s string) string {
	if len(s) > previewLength {
		return EscapeUnprintables(s[:previewLength]) + "..."
	}
	return EscapeUnprintables(s)
}
