package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = prev })
	return logs
}

func TestInitialize(t *testing.T) {
	prev := logger
	t.Cleanup(func() { logger = prev })

	tests := []struct {
		name    string
		level   string
		env     string
		wantErr bool
		enabled zapcore.Level
	}{
		{name: "silent by default", level: "", env: ""},
		{name: "explicit debug", level: "debug", enabled: zapcore.DebugLevel},
		{name: "from environment", level: "", env: "warn", enabled: zapcore.WarnLevel},
		{name: "unknown level", level: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(LogLevelEnvVar, tt.env)

			err := Initialize(tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Initialize() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}

			if tt.level == "" && tt.env == "" {
				if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
					t.Error("logger should be silent when no level is set")
				}
				return
			}
			if !GetLogger().Core().Enabled(tt.enabled) {
				t.Errorf("level %v should be enabled", tt.enabled)
			}
		})
	}
}

func TestLogWireMessage(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	LogWireMessage("10.0.0.2:1774", "from_device", true, []byte("r00000073FC\r\n"))
	LogWireMessage("10.0.0.2:1774", "from_device", false, []byte("r00000073FF"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}

	good := entries[0]
	if good.Level != zapcore.InfoLevel {
		t.Errorf("valid message logged at %v, want info", good.Level)
	}
	fields := good.ContextMap()
	if fields["wire"] != `r00000073FC\r\n` {
		t.Errorf("wire field = %q, want escaped text", fields["wire"])
	}
	if fields["length"] != int64(13) {
		t.Errorf("length field = %v, want 13", fields["length"])
	}
	if _, ok := fields["hex_dump"]; ok {
		t.Error("hex_dump should only be added at debug level")
	}

	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("bad checksum logged at %v, want warn", entries[1].Level)
	}
}

func TestLogWireMessage_DebugAddsHex(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogWireMessage("peer", "to_device", true, []byte{'z', '7', 'A'})

	fields := logs.All()[0].ContextMap()
	if fields["hex_dump"] != "7a3741" {
		t.Errorf("hex_dump = %q, want %q", fields["hex_dump"], "7a3741")
	}
}

func TestDumps(t *testing.T) {
	if got := asciiDump([]byte("ab\x00\x7f")); got != "ab.." {
		t.Errorf("asciiDump() = %q", got)
	}
	if got := hexDump(nil); got != "" {
		t.Errorf("hexDump(nil) = %q", got)
	}

	long := []byte(strings.Repeat("A", maxDumpBytes+10))
	if got := hexDump(long); !strings.HasSuffix(got, "...") || len(got) != 2*maxDumpBytes+3 {
		t.Errorf("hexDump() of long input has length %d", len(got))
	}
	if got := truncate(long); len(got) != maxDumpBytes+3 {
		t.Errorf("truncate() length = %d", len(got))
	}
}
