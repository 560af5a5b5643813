package relay

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/brewlink/internal/capture"
	"github.com/muurk/brewlink/internal/session"
	"github.com/muurk/brewlink/internal/simulator"
)

type memorySink struct {
	mu   sync.Mutex
	recs []capture.Record
}

func (m *memorySink) Write(rec capture.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
}

func (m *memorySink) records() []capture.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capture.Record(nil), m.recs...)
}

func startRelay(t *testing.T, upstream string, sink capture.Sink) *Relay {
	t.Helper()
	r := New(Config{ListenPort: 0, Upstream: upstream, DialTimeout: time.Second, Capture: sink})
	if err := r.Listen(); err != nil {
		t.Fatal(err)
	}
	go func() { _ = r.Serve() }()
	t.Cleanup(func() { _ = r.Shutdown(context.Background()) })
	return r
}

func startSimulator(t *testing.T) string {
	t.Helper()
	srv, err := simulator.Start("127.0.0.1", 0, simulator.NewDevice(simulator.Options{}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv.Addr().String()
}

func sessionOptions() session.Options {
	return session.Options{
		QuietPeriod:     50 * time.Millisecond,
		ReplyTimeout:    time.Second,
		ExpectGreeting:  true,
		GreetingTimeout: time.Second,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(Config{Upstream: "10.0.0.5:1774"})
	if r.config.ListenHost != DefaultListenHost {
		t.Errorf("ListenHost = %q, want %q", r.config.ListenHost, DefaultListenHost)
	}
	if r.config.DialTimeout != DefaultDialTimeout {
		t.Errorf("DialTimeout = %v, want %v", r.config.DialTimeout, DefaultDialTimeout)
	}
	if r.Addr() != nil {
		t.Error("Addr() should be nil before Listen")
	}
}

func TestRelay_ForwardsAndCaptures(t *testing.T) {
	sink := &memorySink{}
	r := startRelay(t, startSimulator(t), sink)

	ctx := context.Background()
	s, err := session.Dial(ctx, r.Addr().String(), sessionOptions())
	if err != nil {
		t.Fatalf("Dial(relay) error: %v", err)
	}

	state, err := s.MachineState(ctx)
	if err != nil {
		t.Fatalf("MachineState() through relay: %v", err)
	}
	if *state != *simulator.SampleMachineState() {
		t.Errorf("state = %+v", state)
	}
	if r.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions() = %d, want 1", r.ActiveSessions())
	}
	_ = s.Close()

	waitFor(t, "session to end", func() bool { return r.ActiveSessions() == 0 })

	recs := sink.records()
	if len(recs) < 3 {
		t.Fatalf("captured %d records, want greeting, request and reply", len(recs))
	}

	var sawGreeting, sawRequest bool
	for _, rec := range recs {
		if rec.SessionID != recs[0].SessionID {
			t.Errorf("session IDs differ within one connection: %q vs %q", rec.SessionID, recs[0].SessionID)
		}
		switch {
		case rec.Direction == capture.FromDevice && strings.HasPrefix(string(rec.Wire), simulator.Greeting):
			sawGreeting = true
		case rec.Direction == capture.ToDevice && string(rec.Wire) == "r00000073FC":
			sawRequest = true
			if !rec.ChecksumOK {
				t.Error("request captured with bad checksum flag")
			}
		}
	}
	if !sawGreeting || !sawRequest {
		t.Errorf("greeting seen %v, request seen %v in %v", sawGreeting, sawRequest, recs)
	}
}

func TestRelay_ForwardsBadChecksums(t *testing.T) {
	sink := &memorySink{}
	r := startRelay(t, startSimulator(t), sink)

	conn, err := net.Dial("tcp", r.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte("r00000073FF")); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "bad chunk to be captured", func() bool {
		for _, rec := range sink.records() {
			if rec.Direction == capture.ToDevice && string(rec.Wire) == "r00000073FF" {
				return !rec.ChecksumOK
			}
		}
		return false
	})
}

func TestRelay_UpstreamUnavailable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	dead := l.Addr().String()
	_ = l.Close()

	r := startRelay(t, dead, nil)
	conn, err := net.Dial("tcp", r.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	if n, err := conn.Read(buf); err == nil {
		t.Errorf("read %q, want the relay to close the client", buf[:n])
	}
}

func TestRelay_ShutdownClosesSessions(t *testing.T) {
	r := New(Config{Upstream: startSimulator(t), DialTimeout: time.Second})
	if err := r.Listen(); err != nil {
		t.Fatal(err)
	}
	go func() { _ = r.Serve() }()

	conn, err := net.Dial("tcp", r.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	waitFor(t, "session to start", func() bool { return r.ActiveSessions() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if r.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d after Shutdown", r.ActiveSessions())
	}
}
