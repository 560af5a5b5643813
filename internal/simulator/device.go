package simulator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/protocol"
	"go.uber.org/zap"
)

// MemorySize is the simulated address space.
const MemorySize = protocol.MaxAddress + 1

// Greeting is sent to every new connection unless disabled.
const Greeting = "*HELLO*"

// DefaultQuietPeriod is how long an incomplete command may sit in the buffer
// before it is dropped.
const DefaultQuietPeriod = 200 * time.Millisecond

// Options configures a Device.
type Options struct {
	// NoGreeting suppresses *HELLO* on connect.
	NoGreeting bool

	// QuietPeriod drops a partial command after this much silence.
	QuietPeriod time.Duration

	// IdleTimeout closes a connection that has been silent this long.
	// Zero keeps idle connections open.
	IdleTimeout time.Duration
}

// Device is an in-memory espresso machine controller. It answers read and
// write commands against a 64KB memory image seeded with plausible records.
// It is safe for concurrent use; every connection sees the same memory.
type Device struct {
	opts Options

	mu       sync.Mutex
	memory   *protocol.Memory
	commands int
}

// NewDevice creates a device seeded with SampleMachineState and
// SampleDisplayState.
func NewDevice(opts Options) *Device {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	d := &Device{
		opts:   opts,
		memory: protocol.MemoryOfLength(MemorySize, 0),
	}
	d.load(protocol.EncodeMachineState(SampleMachineState()))
	d.load(protocol.EncodeDisplayState(SampleDisplayState()))
	return d
}

func (d *Device) load(m *protocol.Memory) {
	if err := d.memory.SetSubstring(m.Base(), string(m.Bytes())); err != nil {
		panic(fmt.Sprintf("seed record does not fit: %v", err))
	}
}

// SampleMachineState is the configuration a fresh device starts with.
func SampleMachineState() *protocol.MachineState {
	return &protocol.MachineState{
		TemperatureUnit:   protocol.Celsius,
		Language:          protocol.LanguageEnglish,
		CoffeeTemperature: 93,
		SteamTemperature:  125,
		CoffeePID:         protocol.PIDConstants{Proportional: 20, Integral: 3, Derivative: 40},
		GroupPID:          protocol.PIDConstants{Proportional: 15, Integral: 2, Derivative: 30},
		SteamPID:          protocol.PIDConstants{Proportional: 25, Integral: 4, Derivative: 50},
		ProfileA:          protocol.DefaultProfileA(),
		ProfileB:          protocol.DefaultProfileB(),
		ProfileC:          protocol.DefaultProfileC(),
		WaterSource:       protocol.WaterReservoir,
		ActiveProfile:     0,
		SteamCleanTime:    5,
		IsServiceBoilerOn: true,

		CoffeeCyclesSubtotal: 312,
		CoffeeCyclesTotal:    48211,

		AutoOnTime:      protocol.TimeOfDay{Hour: 6, Minute: 30},
		AutoStandbyTime: protocol.TimeOfDay{Hour: 22, Minute: 0},
		AutoSkipDay:     protocol.Sunday,
	}
}

// SampleDisplayState is the display a fresh device shows.
func SampleDisplayState() *protocol.DisplayState {
	return &protocol.DisplayState{
		CoffeeTemperature: 93,
		SteamTemperature:  124,
		PumpPressure:      0,
		Time:              protocol.TimeOfDay{Hour: 7, Minute: 15},
		Day:               protocol.Wednesday,
		Status:            0x01,
		DisplayText: [protocol.DisplayLines]string{
			"    READY       ",
			"Coffee  93C     ",
			"Steam  124C     ",
			"Profile A       ",
		},
	}
}

// Snapshot returns a copy of [start, end) of device memory.
func (d *Device) Snapshot(start, end int) (*protocol.Memory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.memory.Slice(start, end)
}

// Commands returns how many commands the device has answered.
func (d *Device) Commands() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commands
}

// Handle executes one wire command and returns the reply. ok is false when
// the device stays silent, which is what it does with anything it cannot
// parse or serve.
func (d *Device) Handle(wire string) (reply string, ok bool) {
	if err := protocol.AssertValidChecksum(wire); err != nil {
		logging.Debug("Simulator dropping command", zap.Error(err))
		return "", false
	}
	msg, err := protocol.DecodeMessage(wire)
	if err != nil {
		logging.Debug("Simulator dropping command", zap.Error(err))
		return "", false
	}

	payload := msg.Payload.Bytes()
	if len(payload) < 4 {
		return "", false
	}
	offset := int(binary.BigEndian.Uint16(payload[0:2]))
	length := int(binary.BigEndian.Uint16(payload[2:4]))
	data := payload[4:]

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case msg.Type.IsRead() && len(data) == 0:
		m, err := d.memory.Slice(offset, offset+length)
		if err != nil {
			logging.Debug("Simulator read out of range", zap.Error(err))
			return "", false
		}
		d.commands++
		return protocol.BuildReadResponse(m), true

	case msg.Type.IsWrite() && len(data) == length:
		if err := d.memory.SetSubstring(offset, string(data)); err != nil {
			logging.Debug("Simulator write out of range", zap.Error(err))
			return "", false
		}
		d.commands++
		return protocol.AttachChecksum(fmt.Sprintf("w%04X%04X", offset, length)), true
	}
	return "", false
}

// ServeConn speaks the device side of the protocol on conn until the peer
// disconnects, the idle timeout passes or ctx is cancelled.
func (d *Device) ServeConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if !d.opts.NoGreeting {
		if _, err := io.WriteString(conn, Greeting); err != nil {
			return
		}
	}

	buf := make([]byte, 512)
	var pending []byte
	for {
		var deadline time.Time
		switch {
		case len(pending) > 0:
			deadline = time.Now().Add(d.opts.QuietPeriod)
		case d.opts.IdleTimeout > 0:
			deadline = time.Now().Add(d.opts.IdleTimeout)
		}
		_ = conn.SetReadDeadline(deadline)

		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			if protocol.VerifyChecksum(string(pending)) {
				wire := string(pending)
				pending = nil
				logging.LogWireMessage(remote, "to_device", true, []byte(wire))
				if reply, ok := d.Handle(wire); ok {
					if _, err := io.WriteString(conn, reply); err != nil {
						return
					}
				}
			}
		}
		if err == nil {
			continue
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			if len(pending) > 0 {
				logging.LogWireMessage(remote, "to_device", false, pending)
				pending = nil
				continue
			}
			logging.LogConnection(remote, "idle_timeout")
			return
		}
		return
	}
}
