package interactive

import (
	"regexp"
	"strings"
)

var (
	readCommand  = regexp.MustCompile(`^r([0-9A-F]{2}){4}$`)
	writeCommand = regexp.MustCompile(`^w([0-9A-F]{2}){4,}$`)

	// tag, offset, length, data, checksum
	messageParts = regexp.MustCompile(`^(.)(....)(....)(.*)(..)$`)
)

var quitWords = map[string]bool{
	"quit":  true,
	"exit":  true,
	"leave": true,
	"end":   true,
	"bye":   true,
	"q":     true,
}

// AllowCommand reports whether a typed line is a command the console will
// send: a read with offset and length, or a write with offset, length and
// optional data. Hex must be uppercase and the checksum is left off; the
// console attaches it.
func AllowCommand(line string) bool {
	return readCommand.MatchString(line) || writeCommand.MatchString(line)
}

// ShouldQuit reports whether line is one of the quit words, in any case.
func ShouldQuit(line string) bool {
	return quitWords[strings.ToLower(line)]
}

// PrettyPrint spaces a wire message into its fields, e.g.
// "r00000073FC" becomes "r 0000 0073 FC". Messages too short to split are
// returned unchanged.
func PrettyPrint(wire string) string {
	m := messageParts.FindStringSubmatch(wire)
	if m == nil {
		return wire
	}
	parts := make([]string, 0, len(m)-1)
	for _, p := range m[1:] {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
