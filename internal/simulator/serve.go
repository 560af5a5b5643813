package simulator

import (
	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/server"
	"go.uber.org/zap"
)

// NewServer returns a TCP server that serves dev. Call Start for a blocking
// foreground server or Listen and Serve to run it in the background.
func NewServer(host string, port int, dev *Device) *server.Server {
	return server.New(&server.Config{Host: host, Port: port, Name: "simulator"}, dev)
}

// Start binds host:port and serves dev in a background goroutine. Port 0
// picks a free port; read it back from the returned server's Addr.
func Start(host string, port int, dev *Device) (*server.Server, error) {
	srv := NewServer(host, port, dev)
	if err := srv.Listen(); err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(); err != nil {
			logging.Error("Simulator stopped", zap.Error(err))
		}
	}()
	return srv, nil
}
