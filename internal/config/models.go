package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Defaults for a fresh registry.
const (
	DefaultPort                   = 1774
	DefaultQuietPeriodMillis      = 200
	DefaultDialTimeoutSeconds     = 10
	DefaultGreetingTimeoutSeconds = 5
)

// Registry represents the entire user configuration file.
// It stores known machines and application preferences.
type Registry struct {
	Version     int                 `yaml:"version"`
	Machines    map[string]*Machine `yaml:"machines,omitempty"` // Keyed by a short user-chosen name
	Preferences *Preferences        `yaml:"preferences,omitempty"`
}

// Machine represents a single espresso machine controller on the network.
type Machine struct {
	Address  string    `yaml:"address"`             // Host name or IP address
	Port     int       `yaml:"port,omitempty"`      // TCP port; 0 means Preferences.DefaultPort
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last successful connection
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultPort            int    `yaml:"default_port"`
	QuietPeriodMillis      int    `yaml:"quiet_period_ms"`          // Silence that ends a device reply
	DialTimeoutSeconds     int    `yaml:"dial_timeout_seconds"`     // TCP connect timeout
	GreetingTimeoutSeconds int    `yaml:"greeting_timeout_seconds"` // How long to wait for *HELLO*
	LogLevel               string `yaml:"log_level,omitempty"`      // Used when BREWLINK_LOG_LEVEL is unset
}

// QuietPeriod returns the reply quiet period as a duration.
func (p *Preferences) QuietPeriod() time.Duration {
	return time.Duration(p.QuietPeriodMillis) * time.Millisecond
}

// DialTimeout returns the connect timeout as a duration.
func (p *Preferences) DialTimeout() time.Duration {
	return time.Duration(p.DialTimeoutSeconds) * time.Second
}

// GreetingTimeout returns the greeting wait as a duration.
func (p *Preferences) GreetingTimeout() time.Duration {
	return time.Duration(p.GreetingTimeoutSeconds) * time.Second
}

func defaultPreferences() *Preferences {
	return &Preferences{
		DefaultPort:            DefaultPort,
		QuietPeriodMillis:      DefaultQuietPeriodMillis,
		DialTimeoutSeconds:     DefaultDialTimeoutSeconds,
		GreetingTimeoutSeconds: DefaultGreetingTimeoutSeconds,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Machines:    make(map[string]*Machine),
		Preferences: defaultPreferences(),
	}
}

// GetMachine retrieves a machine by name.
// Returns nil if the machine doesn't exist in the registry.
func (r *Registry) GetMachine(name string) *Machine {
	return r.Machines[name]
}

// EnsureMachine ensures a machine entry exists in the registry.
// Returns the machine entry (existing or newly created).
func (r *Registry) EnsureMachine(name string) *Machine {
	if r.Machines == nil {
		r.Machines = make(map[string]*Machine)
	}

	if m, exists := r.Machines[name]; exists {
		return m
	}

	m := &Machine{}
	r.Machines[name] = m
	return m
}

// SetMachine records the address of a machine, creating it if needed.
func (r *Registry) SetMachine(name, address string, port int, nickname string) *Machine {
	m := r.EnsureMachine(name)
	m.Address = address
	m.Port = port
	if nickname != "" {
		m.Nickname = nickname
	}
	return m
}

// RemoveMachine deletes a machine. It reports whether the machine existed.
func (r *Registry) RemoveMachine(name string) bool {
	if _, ok := r.Machines[name]; !ok {
		return false
	}
	delete(r.Machines, name)
	return true
}

// UpdateMachineLastSeen stamps a machine as seen now.
func (r *Registry) UpdateMachineLastSeen(name string) {
	r.EnsureMachine(name).LastSeen = time.Now()
}

// ResolveAddress turns a registered machine name or a host[:port] string into
// a dial address. A bare host gets Preferences.DefaultPort.
func (r *Registry) ResolveAddress(target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("no machine or address given")
	}

	port := DefaultPort
	if r.Preferences != nil && r.Preferences.DefaultPort != 0 {
		port = r.Preferences.DefaultPort
	}

	if m := r.GetMachine(target); m != nil {
		if m.Address == "" {
			return "", fmt.Errorf("machine %q has no address", target)
		}
		if m.Port != 0 {
			port = m.Port
		}
		return net.JoinHostPort(m.Address, strconv.Itoa(port)), nil
	}

	if host, p, err := net.SplitHostPort(target); err == nil {
		if _, err := strconv.Atoi(p); err != nil {
			return "", fmt.Errorf("invalid port in %q", target)
		}
		return net.JoinHostPort(host, p), nil
	}

	return net.JoinHostPort(target, strconv.Itoa(port)), nil
}
