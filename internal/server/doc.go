// Package server runs a TCP listener that hands each accepted connection to
// a Handler in its own goroutine.
//
// The simulator and the relay both serve through it. A Server tracks its
// open connections so Shutdown can close them and wait for their handlers:
//
//	srv := server.New(&server.Config{Host: "127.0.0.1", Port: 1774, Name: "simulator"}, dev)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until SIGINT or SIGTERM. Tests call Listen and Serve instead
// and stop the server with Shutdown; port 0 picks a free port, see Addr.
package server
