// Package session talks to an espresso machine controller over TCP.
//
// The controller has no message terminator. A reply is whatever arrives
// after a command until the line goes quiet, 200ms by default. One Session
// carries one command at a time; concurrent callers are serialized.
//
// # Usage Example
//
//	s, err := session.Dial(ctx, "192.168.1.50:1774", session.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	state, err := s.MachineState(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(state.CoffeeTemperature)
//
// Replies are returned whatever their checksum. Exchange leaves checking to
// the caller, while ReadMemory and the record helpers reject bad checksums
// and replies that do not match the request.
package session
