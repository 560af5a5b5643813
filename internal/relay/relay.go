package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/brewlink/internal/capture"
	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/protocol"
	"github.com/muurk/brewlink/internal/server"
	"go.uber.org/zap"
)

// DefaultListenHost keeps the relay off the network unless asked otherwise.
const DefaultListenHost = "127.0.0.1"

// DefaultDialTimeout bounds the upstream connect for each client.
const DefaultDialTimeout = 10 * time.Second

const chunkSize = 4 << 10

// Config holds the relay configuration
type Config struct {
	ListenHost  string
	ListenPort  int
	Upstream    string // machine host:port
	DialTimeout time.Duration

	// Capture receives every relayed chunk when set.
	Capture capture.Sink
}

// Relay forwards client connections to the machine byte for byte, logging and
// optionally capturing everything that passes through. Nothing is altered or
// dropped, even chunks with a bad checksum.
type Relay struct {
	config Config
	srv    *server.Server

	mu       sync.Mutex
	sessions map[string]*proxySession
}

// New creates a relay. Empty fields take their defaults.
func New(config Config) *Relay {
	if config.ListenHost == "" {
		config.ListenHost = DefaultListenHost
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	r := &Relay{
		config:   config,
		sessions: make(map[string]*proxySession),
	}
	r.srv = server.New(&server.Config{Host: config.ListenHost, Port: config.ListenPort, Name: "relay"}, r)
	return r
}

// Listen binds the listen address.
func (r *Relay) Listen() error { return r.srv.Listen() }

// Serve accepts clients until Shutdown.
func (r *Relay) Serve() error { return r.srv.Serve() }

// Start binds, serves and blocks until interrupted.
func (r *Relay) Start() error {
	logging.Info("Starting relay",
		zap.String("listen", net.JoinHostPort(r.config.ListenHost, fmt.Sprint(r.config.ListenPort))),
		zap.String("upstream", r.config.Upstream),
		zap.Bool("capture", r.config.Capture != nil),
	)
	return r.srv.Start()
}

// Addr returns the bound address, or nil before Listen.
func (r *Relay) Addr() net.Addr { return r.srv.Addr() }

// Shutdown stops accepting and closes every open session on both sides.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, s := range r.sessions {
		s.close()
	}
	r.mu.Unlock()
	return r.srv.Shutdown(ctx)
}

// ActiveSessions returns the number of relayed connections.
func (r *Relay) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ServeConn relays one client connection.
func (r *Relay) ServeConn(ctx context.Context, client net.Conn) {
	id := uuid.New().String()
	clientAddr := client.RemoteAddr().String()

	dialCtx, cancel := context.WithTimeout(ctx, r.config.DialTimeout)
	defer cancel()

	var d net.Dialer
	upstream, err := d.DialContext(dialCtx, "tcp", r.config.Upstream)
	if err != nil {
		logging.Error("Failed to connect to machine",
			zap.String("session_id", id),
			zap.String("remote_addr", clientAddr),
			zap.String("upstream", r.config.Upstream),
			zap.Error(err),
		)
		return
	}

	s := &proxySession{
		id:       id,
		client:   client,
		upstream: upstream,
		capture:  r.config.Capture,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
	}()

	logging.Info("Relay session started",
		zap.String("session_id", id),
		zap.String("remote_addr", clientAddr),
		zap.String("upstream", upstream.RemoteAddr().String()),
	)
	s.run()
	logging.Info("Relay session ended",
		zap.String("session_id", id),
		zap.String("remote_addr", clientAddr),
		zap.Int("chunks", s.chunkCount()),
	)
}

type proxySession struct {
	id       string
	client   net.Conn // incoming
	upstream net.Conn // machine
	capture  capture.Sink

	closeOnce sync.Once

	mu     sync.Mutex
	chunks int
}

// run copies both ways until one side closes, then closes the other.
func (s *proxySession) run() {
	errc := make(chan error, 2)
	go func() {
		errc <- s.copy(capture.ToDevice, s.client, s.upstream)
	}()
	go func() {
		errc <- s.copy(capture.FromDevice, s.upstream, s.client)
	}()

	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil {
			logging.Debug("Relay copy ended",
				zap.String("session_id", s.id),
				zap.Error(err),
			)
		}
		s.close()
	}
}

func (s *proxySession) close() {
	s.closeOnce.Do(func() {
		_ = s.client.Close()
		_ = s.upstream.Close()
	})
}

func (s *proxySession) chunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

func (s *proxySession) copy(dir capture.Direction, src, dst net.Conn) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, werr := dst.Write(chunk); werr != nil {
				return fmt.Errorf("%s: write to peer: %w", dir, werr)
			}
			s.record(dir, chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%s: read: %w", dir, err)
		}
	}
}

func (s *proxySession) record(dir capture.Direction, chunk []byte) {
	s.mu.Lock()
	s.chunks++
	s.mu.Unlock()

	logging.LogWireMessage(s.client.RemoteAddr().String(), dir.String(), protocol.VerifyChecksum(string(chunk)), chunk)
	if s.capture != nil {
		s.capture.Write(capture.NewRecord(s.id, dir, chunk))
	}
}
