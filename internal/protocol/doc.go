// Package protocol implements the espresso machine controller's wire protocol.
//
// The controller exposes a flat 64KB memory space. Clients read and write
// ranges of it using short ASCII messages: an optional one-letter type tag,
// a payload of hex byte pairs, and a two-digit additive checksum.
//
// # Wire Format
//
//	[<type>]<hex-payload><checksum>
//
//   - type: r (read), w (write) or z (reserved), either case, optional
//   - hex-payload: pairs of hex digits, one pair per byte
//   - checksum: low 8 bits of the sum of every preceding character, as two
//     uppercase hex digits
//
// A read command is r + 4-digit offset + 4-digit length, so reading the
// configuration window is "r00000073" + "FC". The device echoes the offset and
// length in front of the data it returns.
//
// # Memory
//
// Memory is the bounds-checked byte store used everywhere in this package.
// It has a base address and all accessors take absolute device addresses, so a
// read response covering 0xB000-0xB04F is addressed as 0xB000.. rather than
// 0... Multi-byte integers are little-endian.
//
// # Records
//
// Two structured records are overlaid on device memory:
//
//   - MachineState at 0x0000: temperatures, PID constants, three pressure
//     profiles, counters and timers
//   - DisplayState at 0xB000: live temperatures, pump pressure, clock and the
//     four 16-character display lines
//
// Both are positional. Because a record has no self-describing tag, the
// Decode*Response functions check the checksum and the read echo prefix first
// and refuse anything else.
//
// # Usage Example
//
//	req, err := protocol.NewReadRequest(0x0000, 0x73)
//	if err != nil {
//	    return err
//	}
//	conn.Write([]byte(req.Serialize()))
//
//	// ... collect the reply ...
//
//	state, err := protocol.DecodeMachineStateResponse(reply)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(state.ProfileA)
//
// # Error Handling
//
// Every failure unwraps to one of ErrInvalidChecksum, ErrOutOfBounds,
// ErrMalformedHex, ErrInvalidRange or ErrUnrecognizedRecordShape. KindOf
// classifies an arbitrary error chain. Decoders never return a partial record.
//
// # Thread Safety
//
// All functions are stateless. A Memory is not safe for concurrent mutation,
// but slices and clones copy, so handing a slice to another goroutine is safe.
package protocol
