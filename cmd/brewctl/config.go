package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/muurk/brewlink/internal/config"
	"github.com/muurk/brewlink/internal/ui"
)

// Config command flags
var (
	machinePort     int
	machineNickname string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configPathCmd)

	configAddCmd.Flags().IntVar(&machinePort, "port", 0, "TCP port (default: preferences.default_port)")
	configAddCmd.Flags().StringVar(&machineNickname, "nickname", "", "Friendly name shown in listings")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage known machines and preferences",
	Long: `Manage the configuration file that names machines and holds preferences
such as timeouts, the default port and the log level.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig()
		if err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Configuration created", map[string]string{"Path": path})
		return nil
	},
}

var configAddCmd = &cobra.Command{
	Use:     "add <name> <address>",
	Short:   "Register a machine under a short name",
	Example: `  brewctl config add kitchen 192.168.1.50 --nickname "Kitchen machine"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, address := args[0], args[1]
		if machinePort < 0 || machinePort > 65535 {
			return fmt.Errorf("port %d out of range", machinePort)
		}
		registry.SetMachine(name, address, machinePort, machineNickname)
		if err := saveRegistry(registry); err != nil {
			return err
		}

		resolved, err := registry.ResolveAddress(name)
		if err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Machine saved", map[string]string{
			"Name":    name,
			"Address": resolved,
		})
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered machines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(registry.Machines) == 0 {
			fmt.Println("No machines registered. Add one with 'brewctl config add <name> <address>'.")
			return nil
		}

		names := make([]string, 0, len(registry.Machines))
		for name := range registry.Machines {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "NAME\tADDRESS\tNICKNAME\tLAST SEEN")
		for _, name := range names {
			m := registry.Machines[name]
			addr, err := registry.ResolveAddress(name)
			if err != nil {
				addr = "-"
			}
			seen := "never"
			if !m.LastSeen.IsZero() {
				seen = m.LastSeen.Local().Format("2006-01-02 15:04")
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, addr, valueOr(m.Nickname, "-"), seen)
		}
		return tw.Flush()
	},
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Forget a registered machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !registry.RemoveMachine(args[0]) {
			return fmt.Errorf("no machine named %q", args[0])
		}
		return saveRegistry(registry)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		_, statErr := os.Stat(path)
		fmt.Printf("%s (exists: %s)\n", path, strconv.FormatBool(statErr == nil))
		return nil
	},
}
