package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/brewlink/internal/capture"
	"github.com/muurk/brewlink/internal/config"
	"github.com/muurk/brewlink/internal/interactive"
	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/protocol"
	"github.com/muurk/brewlink/internal/relay"
	"github.com/muurk/brewlink/internal/session"
	"github.com/muurk/brewlink/internal/simulator"
	"github.com/muurk/brewlink/internal/ui"
)

// Tool command flags
var (
	listenHost     string
	listenPort     int
	captureFile    string
	sessionFilter  string
	captureFormat  string
	simNoGreeting  bool
	simIdleTimeout time.Duration
	idleProbe      bool
)

func init() {
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(idleCmd)

	relayCmd.Flags().StringVar(&listenHost, "listen-host", relay.DefaultListenHost, "Address to listen on (use 0.0.0.0 for all interfaces)")
	relayCmd.Flags().IntVar(&listenPort, "listen-port", config.DefaultPort, "Port to listen on")
	relayCmd.Flags().StringVar(&captureFile, "capture", "", "Append relayed traffic to this capture file")

	captureCmd.Flags().StringVar(&sessionFilter, "session", "", "Only show records from this session ID")
	captureCmd.Flags().StringVar(&captureFormat, "format", "text", "Output format (text, json)")

	simulateCmd.Flags().StringVar(&listenHost, "host", "127.0.0.1", "Address to listen on")
	simulateCmd.Flags().IntVar(&listenPort, "port", config.DefaultPort, "Port to listen on")
	simulateCmd.Flags().BoolVar(&simNoGreeting, "no-hello", false, "Don't greet new connections with *HELLO*")
	simulateCmd.Flags().DurationVar(&simIdleTimeout, "idle-timeout", 0, "Drop connections silent for this long (0 = never)")

	idleCmd.Flags().BoolVar(&idleProbe, "probe", true, "Send one small read after the greeting, then go quiet")
}

// interactiveCmd opens a raw command console
var interactiveCmd = &cobra.Command{
	Use:   "interactive <machine>",
	Short: "Type raw commands at a machine",
	Long: `Open a console on a machine. Type a read or write command without its
checksum; the checksum is attached, the command sent and the reply shown.

  r<offset><length>         e.g. r00000073
  w<offset><length><data>   e.g. w000200015C

Hex must be uppercase. Type quit, exit or q to leave.`,
	Args: cobra.ExactArgs(1),
	RunE: runInteractive,
}

func runInteractive(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := commandContext()
	defer cancel()

	p := ui.NewPrinter(os.Stdout)
	s, err := connect(ctx, target)
	if err != nil {
		p.PrintFailure("Connection failed", err, connectTroubleshooting(target))
		return err
	}
	defer func() { _ = s.Close() }()

	machineHeader(p, "Interactive", "brewctl interactive "+target, target)

	console, err := interactive.New(s, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	return console.Run(ctx)
}

// relayCmd runs the traffic relay
var relayCmd = &cobra.Command{
	Use:   "relay <machine>",
	Short: "Relay and log traffic between clients and a machine",
	Long: `Listen for clients and forward their traffic to the machine unchanged,
logging every chunk with its checksum result. With --capture, every chunk is
also appended to a capture file for 'brewctl capture'.

Point an existing app at this host instead of the machine to see what it sends.
Logging is turned on at info level unless a level is set.`,
	Example: `  brewctl relay kitchen --capture kitchen.cbor
  brewctl relay 192.168.1.50 --listen-host 0.0.0.0 --listen-port 1774`,
	Args: cobra.ExactArgs(1),
	RunE: runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	target := args[0]
	upstream, err := registry.ResolveAddress(target)
	if err != nil {
		return err
	}
	if err := ensureLogging("info"); err != nil {
		return err
	}

	cfg := relay.Config{
		ListenHost:  listenHost,
		ListenPort:  listenPort,
		Upstream:    upstream,
		DialTimeout: registry.Preferences.DialTimeout(),
	}
	if captureFile != "" {
		w, err := capture.Create(captureFile)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		cfg.Capture = w
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Relay", "brewctl relay "+target, map[string]string{
		"Listen":   fmt.Sprintf("%s:%d", listenHost, listenPort),
		"Upstream": upstream,
		"Capture":  valueOr(captureFile, "off"),
	})

	return relay.New(cfg).Start()
}

// ensureLogging turns logging on at level when nothing else has asked for
// it; servers are useless silent.
func ensureLogging(level string) error {
	if logLevel != "" || os.Getenv(logging.LogLevelEnvVar) != "" || registry.Preferences.LogLevel != "" {
		return nil
	}
	logLevel = level
	return initLogging(registry)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// captureCmd prints a capture file
var captureCmd = &cobra.Command{
	Use:   "capture <file>",
	Short: "Print a capture file written by the relay",
	Example: `  brewctl capture kitchen.cbor
  brewctl capture kitchen.cbor --session 3f1c... --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

// captureView is the JSON form of a record with readable wire text.
type captureView struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	Direction  string    `json:"direction"`
	Wire       string    `json:"wire"`
	ChecksumOK bool      `json:"checksum_ok"`
}

func runCapture(cmd *cobra.Command, args []string) error {
	r, err := capture.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	enc := json.NewEncoder(os.Stdout)
	n := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("capture record %d: %w", n+1, err)
		}
		if sessionFilter != "" && rec.SessionID != sessionFilter {
			continue
		}
		n++

		if captureFormat == "json" {
			if err := enc.Encode(captureView{
				Timestamp:  rec.Timestamp,
				SessionID:  rec.SessionID,
				Direction:  rec.Direction.String(),
				Wire:       string(rec.Wire),
				ChecksumOK: rec.ChecksumOK,
			}); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s %s %s\n",
			rec.Timestamp.Format("15:04:05.000"),
			shortID(rec.SessionID),
			ui.RenderWireLine(rec.Direction == capture.ToDevice, string(rec.Wire), rec.ChecksumOK),
		)
	}

	if captureFormat != "json" {
		fmt.Printf("\n%d records\n", n)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// simulateCmd runs a simulated machine
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated machine",
	Long: `Serve a simulated machine controller with a 64KB memory image seeded with a
sample configuration and display. Reads and writes behave like a real
controller; anything malformed is silently ignored.`,
	Example: `  brewctl simulate --port 1774
  brewctl machine 127.0.0.1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureLogging("info"); err != nil {
			return err
		}
		dev := simulator.NewDevice(simulator.Options{
			NoGreeting:  simNoGreeting,
			QuietPeriod: registry.Preferences.QuietPeriod(),
			IdleTimeout: simIdleTimeout,
		})

		ui.NewPrinter(os.Stdout).PrintHeader("Simulator", "brewctl simulate", map[string]string{
			"Listen":       fmt.Sprintf("%s:%d", listenHost, listenPort),
			"Greeting":     strconv.FormatBool(!simNoGreeting),
			"Idle timeout": valueOr(durationOrEmpty(simIdleTimeout), "never"),
		})
		return simulator.NewServer(listenHost, listenPort, dev).Start()
	},
}

func durationOrEmpty(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.String()
}

// idleCmd measures how long the machine keeps a silent client
var idleCmd = &cobra.Command{
	Use:   "idle <machine>",
	Short: "Measure how long the machine tolerates an idle client",
	Long: `Connect, wait for the greeting, send one small read and then stay silent
until the machine drops the connection. Prints the elapsed time.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdle,
}

func runIdle(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := commandContext()
	defer cancel()

	p := ui.NewPrinter(os.Stdout)
	machineHeader(p, "Idle Timeout", "brewctl idle "+target, target)

	start := time.Now()
	s, err := connect(ctx, target)
	if err != nil {
		p.PrintFailure("Connection failed", err, connectTroubleshooting(target))
		return err
	}
	defer func() { _ = s.Close() }()

	if idleProbe {
		time.Sleep(100 * time.Millisecond)
		req, err := protocol.NewReadRequest(0x0000, 1)
		if err != nil {
			return err
		}
		if _, err := s.Exchange(ctx, req.Serialize()); err != nil && !errors.Is(err, session.ErrNoReply) {
			p.PrintFailure("Probe failed", err, nil)
			return err
		}
	}

	p.PrintPleaseWait("Waiting for the machine to drop the connection", "press Ctrl-C to give up")

	done := make(chan error, 1)
	go func() { done <- s.WaitClosed(ctx) }()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Println(fmt.Sprintf("  elapsed %s", time.Since(start).Round(time.Second)))
		case err := <-done:
			elapsed := time.Since(start).Round(time.Millisecond)
			if errors.Is(err, context.Canceled) {
				p.PrintWarning("Gave up waiting", map[string]string{"Elapsed": elapsed.String()})
				return nil
			}
			if err != nil {
				p.PrintFailure("Connection failed", err, []string{"Elapsed: " + elapsed.String()})
				return err
			}
			p.PrintSuccess("Machine closed the connection", map[string]string{"Elapsed": elapsed.String()})
			return nil
		}
	}
}
