// Brewctl talks to espresso machine controllers over their TCP wire protocol.
//
// It reads and writes controller memory, decodes the machine configuration
// and display records, relays and captures traffic between other clients and
// a machine, and runs a local machine simulator for testing.
//
// Usage:
//
//	brewctl [command] [flags]
//
// Machines can be addressed by host[:port] or by a name registered with
// 'brewctl config add'. See 'brewctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/brewlink/internal/config"
	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

// registry is loaded before every command runs.
var registry *config.Registry

var rootCmd = &cobra.Command{
	Use:   "brewctl",
	Short: "Espresso machine controller utility",
	Long: `A utility for espresso machine controllers that speak the checksummed
ASCII-hex memory protocol on TCP port 1774.

Reads and decodes the machine configuration and live display, reads and
writes raw memory, relays and captures traffic, and simulates a machine.

Logging is silent unless --log-level or BREWLINK_LOG_LEVEL is set.`,
	Version: version.Full(),
	Example: `  # Show a machine's configuration
  brewctl machine 192.168.1.50

  # Register a machine and use its name
  brewctl config add kitchen 192.168.1.50
  brewctl display kitchen

  # Type raw commands
  brewctl interactive kitchen`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		registry = reg
		return initLogging(reg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/brewlink/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

func loadRegistry() (*config.Registry, error) {
	if configPath != "" {
		return config.LoadRegistryFile(configPath)
	}
	return config.LoadRegistry()
}

func saveRegistry(reg *config.Registry) error {
	if configPath != "" {
		return reg.SaveFile(configPath)
	}
	return reg.Save()
}

// initLogging picks the level from the flag, then the environment, then the
// config file.
func initLogging(reg *config.Registry) error {
	level := logLevel
	if level == "" {
		level = os.Getenv(logging.LogLevelEnvVar)
	}
	if level == "" && reg.Preferences != nil {
		level = reg.Preferences.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("brewctl %s\n", info)
		fmt.Printf("  %s %s\n", info.GoVersion, info.Platform)
	},
}
