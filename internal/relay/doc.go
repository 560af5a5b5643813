// Package relay sits between a client and an espresso machine and forwards
// traffic unchanged in both directions.
//
// Each accepted client gets its own upstream connection and a random session
// ID. Every chunk read from either side is written to the other, logged with
// its checksum result and, when a capture sink is configured, recorded.
// Closing either side closes the other.
//
// The relay listens on 127.0.0.1 by default:
//
//	w, _ := capture.Create("kitchen.cbor")
//	r := relay.New(relay.Config{ListenPort: 1774, Upstream: "192.168.1.50:1774", Capture: w})
//	if err := r.Start(); err != nil {
//	    log.Fatal(err)
//	}
package relay
