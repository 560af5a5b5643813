package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"
)

func startEcho(t *testing.T) *Server {
	t.Helper()
	srv := New(&Config{Host: "127.0.0.1", Port: 0, Name: "echo"}, HandlerFunc(func(ctx context.Context, conn net.Conn) {
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte(line))
		<-ctx.Done()
	}))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	go func() { _ = srv.Serve() }()
	return srv
}

func TestConfigAddr(t *testing.T) {
	tests := []struct {
		config Config
		want   string
	}{
		{Config{Host: "127.0.0.1", Port: 1774}, "127.0.0.1:1774"},
		{Config{Host: "", Port: 80}, ":80"},
		{Config{Host: "::1", Port: 1774}, "[::1]:1774"},
	}
	for _, tt := range tests {
		if got := tt.config.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}

func TestServer_ServesAndShutsDown(t *testing.T) {
	srv := startEcho(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte("r00000073FC\n")); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if got != "r00000073FC\n" {
		t.Errorf("echo = %q", got)
	}
	if n := srv.GetActiveConnections(); n != 1 {
		t.Errorf("GetActiveConnections() = %d, want 1", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if n := srv.GetActiveConnections(); n != 0 {
		t.Errorf("GetActiveConnections() after shutdown = %d", n)
	}
	if _, err := net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond); err == nil {
		t.Error("dial after Shutdown should fail")
	}
}

func TestServer_ServeBeforeListen(t *testing.T) {
	srv := New(&Config{Name: "idle"}, HandlerFunc(func(context.Context, net.Conn) {}))
	if srv.Addr() != nil {
		t.Error("Addr() before Listen should be nil")
	}
	if err := srv.Serve(); err == nil {
		t.Error("Serve() before Listen should fail")
	}
}

func TestServer_RefusesConnectionsAfterShutdown(t *testing.T) {
	srv := New(&Config{Name: "closing"}, HandlerFunc(func(context.Context, net.Conn) {
		t.Error("handler ran after Shutdown")
	}))
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	client, conn := net.Pipe()
	defer func() { _ = client.Close() }()
	if srv.track(conn) {
		t.Fatal("track() accepted a connection after Shutdown")
	}
	if n := srv.GetActiveConnections(); n != 0 {
		t.Errorf("GetActiveConnections() = %d, want 0", n)
	}

	// A second Shutdown has nothing to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error: %v", err)
	}
}
