package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/muurk/brewlink/internal/logging"
	"go.uber.org/zap"
)

// shutdownGrace bounds how long Shutdown waits for handlers when ctx has no
// deadline.
const shutdownGrace = 10 * time.Second

// Handler serves one accepted connection. ctx is cancelled when the server
// shuts down. The server closes conn after ServeConn returns.
type Handler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, conn net.Conn)

// ServeConn calls f(ctx, conn).
func (f HandlerFunc) ServeConn(ctx context.Context, conn net.Conn) { f(ctx, conn) }

// Config holds the listener configuration
type Config struct {
	Host string
	Port int
	Name string // Used in log messages, e.g. "relay"
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server accepts TCP connections and hands each to a Handler in its own
// goroutine.
type Server struct {
	config   *Config
	handler  Handler
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a new Server instance
func New(config *Config, handler Handler) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:      config,
		handler:     handler,
		ctx:         ctx,
		cancel:      cancel,
		activeConns: make(map[string]net.Conn),
	}
}

// Listen binds the configured address without accepting yet. Port 0 picks a
// free port; see Addr.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections on the bound listener until Shutdown. It returns
// nil when the listener is closed by Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	logging.Info("Server listening for connections",
		zap.String("server", s.config.Name),
		zap.String("addr", s.listener.Addr().String()),
	)
	return s.acceptConnections()
}

// Start binds, serves and blocks until SIGINT/SIGTERM or an accept failure.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...", zap.String("server", s.config.Name))
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// acceptConnections accepts and handles incoming connections
func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Listener closed during shutdown
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// track registers conn and its handler with the wait group. Once Shutdown
// has begun it refuses, so no handler starts after Shutdown waits.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	s.activeConns[conn.RemoteAddr().String()] = conn
	return true
}

// handleConnection serves conn and untracks it when the handler returns
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")
	s.handler.ServeConn(s.ctx, conn)
}

// Shutdown stops accepting, closes every active connection and waits for
// handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...", zap.String("server", s.config.Name))

	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		err = ctx.Err()
	case <-time.After(shutdownGrace):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
