package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/protocol"
	"go.uber.org/zap"
)

// Greeting is what the machine sends right after a client connects.
const Greeting = "*HELLO*"

// Default timings.
const (
	DefaultDialTimeout     = 10 * time.Second
	DefaultQuietPeriod     = 200 * time.Millisecond
	DefaultReplyTimeout    = 5 * time.Second
	DefaultGreetingTimeout = 5 * time.Second
)

const readBufferSize = 1024

var (
	// ErrNoReply is returned when the machine sends nothing before the reply
	// timeout.
	ErrNoReply = errors.New("no reply from machine")

	// ErrClosed is returned after the session has been closed.
	ErrClosed = errors.New("session closed")
)

// Options controls connection and reply timing.
type Options struct {
	DialTimeout time.Duration

	// QuietPeriod ends a reply: once the machine has sent something and
	// then stays silent this long, the reply is complete.
	QuietPeriod time.Duration

	// ReplyTimeout bounds the wait for the first byte of a reply.
	ReplyTimeout time.Duration

	// ExpectGreeting makes Dial wait up to GreetingTimeout for *HELLO*
	// before returning. A missing greeting is logged, not fatal.
	ExpectGreeting  bool
	GreetingTimeout time.Duration
}

// DefaultOptions returns the timings the tools use unless configured
// otherwise.
func DefaultOptions() Options {
	return Options{
		DialTimeout:     DefaultDialTimeout,
		QuietPeriod:     DefaultQuietPeriod,
		ReplyTimeout:    DefaultReplyTimeout,
		ExpectGreeting:  true,
		GreetingTimeout: DefaultGreetingTimeout,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.QuietPeriod <= 0 {
		o.QuietPeriod = d.QuietPeriod
	}
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = d.ReplyTimeout
	}
	if o.GreetingTimeout <= 0 {
		o.GreetingTimeout = d.GreetingTimeout
	}
	return o
}

// Session is one TCP connection to a machine. Exchanges are serialized, so a
// Session may be shared between goroutines, but the machine itself only ever
// sees one command at a time.
type Session struct {
	conn   net.Conn
	remote string
	opts   Options

	mu     sync.Mutex
	buf    []byte
	closed bool
}

// Dial connects to addr and, if asked to, waits for the greeting.
func Dial(ctx context.Context, addr string, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	logging.LogConnection(addr, "connected")

	s := New(conn, opts)
	if opts.ExpectGreeting {
		if err := s.awaitGreeting(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return s, nil
}

// New wraps an established connection. No greeting is awaited.
func New(conn net.Conn, opts Options) *Session {
	return &Session{
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		opts:   opts.withDefaults(),
		buf:    make([]byte, readBufferSize),
	}
}

// RemoteAddr returns the machine's address.
func (s *Session) RemoteAddr() string { return s.remote }

// Close closes the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	logging.LogConnection(s.remote, "closed")
	return s.conn.Close()
}

func (s *Session) awaitGreeting(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.collect(ctx, s.opts.GreetingTimeout)
	switch {
	case errors.Is(err, ErrNoReply):
		logging.Warn("No greeting from machine, continuing",
			zap.String("remote_addr", s.remote),
			zap.Duration("waited", s.opts.GreetingTimeout),
		)
		return nil
	case err != nil:
		return fmt.Errorf("failed to read greeting: %w", err)
	}

	if string(data) != Greeting {
		logging.Warn("Unexpected greeting",
			zap.String("remote_addr", s.remote),
			zap.String("data", protocol.EscapeUnprintables(string(data))),
		)
		return nil
	}
	logging.Debug("Greeting received", zap.String("remote_addr", s.remote))
	return nil
}

// Exchange sends wire text and returns the machine's reply. The reply is
// returned as received, whatever its checksum; callers decode it. A stray
// greeting in front of the reply is dropped.
func (s *Session) Exchange(ctx context.Context, wire string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.send(ctx, wire); err != nil {
		return "", err
	}

	data, err := s.collect(ctx, s.opts.ReplyTimeout)
	if err != nil {
		return "", fmt.Errorf("failed to read reply to %s: %w", protocol.EscapeUnprintables(wire), err)
	}

	reply := strings.TrimPrefix(string(data), Greeting)
	logging.LogWireMessage(s.remote, "from_device", protocol.VerifyChecksum(reply), []byte(reply))
	return reply, nil
}

// Send writes wire text without waiting for a reply.
func (s *Session) Send(ctx context.Context, wire string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, wire)
}

func (s *Session) send(ctx context.Context, wire string) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if _, err := io.WriteString(s.conn, wire); err != nil {
		return fmt.Errorf("failed to send to %s: %w", s.remote, err)
	}
	logging.LogWireMessage(s.remote, "to_device", protocol.VerifyChecksum(wire), []byte(wire))
	return nil
}

// collect reads until the line has been quiet for QuietPeriod after at least
// one byte arrived. wait bounds the time to the first byte.
func (s *Session) collect(ctx context.Context, wait time.Duration) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}

	// Unblock a pending Read when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var out []byte
	firstByteDeadline := time.Now().Add(wait)

	for {
		deadline := firstByteDeadline
		if len(out) > 0 {
			deadline = time.Now().Add(s.opts.QuietPeriod)
		}
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := s.conn.Read(s.buf)
		if n > 0 {
			out = append(out, s.buf[:n]...)
			logging.Debug("Read from machine",
				zap.String("remote_addr", s.remote),
				zap.Int("bytes", n),
				zap.Int("total", len(out)),
			)
		}
		if err == nil {
			continue
		}

		var netErr net.Error
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.As(err, &netErr) && netErr.Timeout():
			if len(out) > 0 {
				return out, nil
			}
			return nil, ErrNoReply
		case errors.Is(err, io.EOF) && len(out) > 0:
			return out, nil
		default:
			return nil, err
		}
	}
}

// WaitClosed blocks until the machine closes the connection, discarding
// anything it sends. It returns nil on a clean close.
func (s *Session) WaitClosed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := s.conn.SetReadDeadline(time.Time{}); err != nil {
		return err
	}
	for {
		n, err := s.conn.Read(s.buf)
		if n > 0 {
			logging.LogWireMessage(s.remote, "from_device", protocol.VerifyChecksum(string(s.buf[:n])), s.buf[:n])
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}
