// Package capture records relayed traffic to disk.
//
// A capture file is a plain concatenation of CBOR-encoded Records with
// integer map keys. Files are append-only; a relay that restarts keeps adding
// to the same file, and the session ID on each record separates connections.
//
//	w, err := capture.Create("captures/kitchen.cbor")
//	...
//	w.Write(capture.NewRecord(sessionID, capture.ToDevice, chunk))
//
// Reading back:
//
//	r, err := capture.Open("captures/kitchen.cbor")
//	for {
//	    rec, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    fmt.Println(rec)
//	}
package capture
