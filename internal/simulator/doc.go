// Package simulator emulates an espresso machine controller over TCP.
//
// The device greets each client with *HELLO*, then answers read commands
// with read responses from a shared 64KB memory image and acknowledges write
// commands by echoing their offset and length. Anything with a bad checksum
// or an out-of-range address gets no reply at all, which is also how the real
// controller behaves.
//
// It backs "brewctl simulate" and the transport tests:
//
//	dev := simulator.NewDevice(simulator.Options{})
//	srv, err := simulator.Start("127.0.0.1", 0, dev)
//	if err != nil {
//	    return err
//	}
//	defer srv.Shutdown(context.Background())
//	addr := srv.Addr().String()
package simulator
