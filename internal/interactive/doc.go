// Package interactive is the command console behind "brewctl interactive".
//
// Type a command without its checksum, for example r00000073, and the console
// attaches the checksum, sends it and prints the reply split into fields:
//
//	? r00000073
//	→ r 0000 0073 FC ✓
//	← r 0000 0073 0001...  ✓
//
// Only reads (r + offset + length) and writes (w + offset + length + data) in
// uppercase hex are sent. quit, exit, leave, end, bye or q leave the console.
package interactive
