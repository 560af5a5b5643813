// Package config provides user configuration management for brewlink.
//
// This package manages a YAML-based configuration file that stores the
// espresso machines a user talks to (by short name) and connection
// preferences such as the reply quiet period. The configuration follows
// OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/brewlink/config.yaml or $HOME/.config/brewlink/config.yaml
//   - macOS: $HOME/.config/brewlink/config.yaml
//   - Windows: %LOCALAPPDATA%\brewlink\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SetMachine("kitchen", "192.168.1.50", 0, "Kitchen")
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
//	addr, err := registry.ResolveAddress("kitchen") // "192.168.1.50:1774"
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
