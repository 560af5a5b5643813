// Package logging provides structured logging for the brewlink tools.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the session, relay and CLI. It provides both general
// logging functions and specialized functions for wire-protocol traffic.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, quiet-period timing)
//   - Info: Normal operations (connections, wire messages)
//   - Warn: Non-fatal issues (bad checksums, missing greeting)
//   - Error: Fatal issues (listener failures, dial errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Machine state read",
//	    zap.String("remote_addr", "192.168.1.50:1774"),
//	    zap.Int("bytes", 115),
//	)
//
// # Specialized Logging
//
// Connection Logging:
//
//	logging.LogConnection(remoteAddr, "connection_accepted")
//	logging.LogConnection(remoteAddr, "upstream_dialed")
//	logging.LogConnection(remoteAddr, "connection_closed")
//
// Wire Message Logging:
//
//	logging.LogWireMessage(remoteAddr, "to_device", protocol.VerifyChecksum(wire), []byte(wire))
//	logging.LogWireMessage(remoteAddr, "from_device", ok, chunk)
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// BREWLINK_LOG_LEVEL:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Log lines go to stderr so they never mix with command output on stdout.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once initialized.
package logging
