package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/protocol"
	"github.com/muurk/brewlink/internal/session"
	"github.com/muurk/brewlink/internal/ui"
	"go.uber.org/zap"
)

// Machine command flags
var (
	replyTimeout  time.Duration
	noGreeting    bool
	outputFormat  string
	assumeYes     bool
	applyFile     string
	watchInterval time.Duration
	verifyOnly    bool
)

func init() {
	rootCmd.PersistentFlags().DurationVar(&replyTimeout, "reply-timeout", session.DefaultReplyTimeout, "How long to wait for the machine to start replying")
	rootCmd.PersistentFlags().BoolVar(&noGreeting, "no-greeting", false, "Don't wait for the *HELLO* greeting after connecting")

	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(machineCmd)
	rootCmd.AddCommand(displayCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)

	checksumCmd.Flags().BoolVar(&verifyOnly, "verify", false, "Verify a message that already carries a checksum")

	for _, c := range []*cobra.Command{decodeCmd, machineCmd, displayCmd, readCmd} {
		c.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	}
	machineCmd.Flags().StringVar(&applyFile, "apply", "", "Write the machine state from a JSON file (as printed by --format json)")
	machineCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the write confirmation prompt")
	writeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the write confirmation prompt")
	displayCmd.Flags().DurationVar(&watchInterval, "watch", 0, "Refresh at this interval until interrupted (e.g. 2s)")
}

// commandContext is cancelled on SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func sessionOptions() session.Options {
	p := registry.Preferences
	return session.Options{
		DialTimeout:     p.DialTimeout(),
		QuietPeriod:     p.QuietPeriod(),
		ReplyTimeout:    replyTimeout,
		ExpectGreeting:  !noGreeting,
		GreetingTimeout: p.GreetingTimeout(),
	}
}

// connect resolves target and dials it. A registered machine gets its
// last-seen time updated.
func connect(ctx context.Context, target string) (*session.Session, error) {
	addr, err := registry.ResolveAddress(target)
	if err != nil {
		return nil, err
	}

	s, err := session.Dial(ctx, addr, sessionOptions())
	if err != nil {
		return nil, err
	}

	if registry.GetMachine(target) != nil {
		registry.UpdateMachineLastSeen(target)
		if err := saveRegistry(registry); err != nil {
			logging.Warn("Failed to save last-seen time", zap.String("machine", target), zap.Error(err))
		}
	}
	return s, nil
}

func connectTroubleshooting(target string) []string {
	return []string{
		"Check the machine is powered on and on the network",
		fmt.Sprintf("Check the address: brewctl config list (target was %q)", target),
		"The controller accepts one client at a time; close other apps",
		"Try again with --log-level debug to see the traffic",
	}
}

func machineHeader(p *ui.Printer, title, command, target string) {
	params := map[string]string{"Machine": target}
	if addr, err := registry.ResolveAddress(target); err == nil && addr != target {
		params["Address"] = addr
	}
	p.PrintHeader(title, command, params)
}

// parseHex accepts "B000", "0xB000" or "0XB000".
func parseHex(s string) (int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex number %q", s)
	}
	return int(v), nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// checksumCmd computes or verifies a message checksum
var checksumCmd = &cobra.Command{
	Use:   "checksum <message>",
	Short: "Attach or verify a message checksum",
	Long: `Print a message with its two-digit checksum attached, or with --verify,
check a message that already ends in one.`,
	Example: `  brewctl checksum r00000073
  brewctl checksum --verify r00000073FC`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg := args[0]
		if !verifyOnly {
			fmt.Println(protocol.AttachChecksum(msg))
			return nil
		}

		if err := protocol.AssertValidChecksum(msg); err != nil {
			fmt.Printf("%s %s\n", ui.ChecksumMark(false), protocol.EscapeUnprintables(msg))
			return err
		}
		fmt.Printf("%s %s\n", ui.ChecksumMark(true), protocol.EscapeUnprintables(msg))
		return nil
	},
}

// decodeCmd decodes a captured wire message offline
var decodeCmd = &cobra.Command{
	Use:   "decode <wire>",
	Short: "Decode a wire message without a machine",
	Long: `Decode a wire message, such as one copied from a capture or a debug log.

Replies to the configuration and display reads are decoded into records.
Other read responses are shown as a memory range, anything else as its
type and payload.`,
	Example: `  brewctl decode rB000000305A0714
  brewctl decode --format json "$(cat reply.txt)"`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	wire := strings.TrimSpace(args[0])
	asJSON := outputFormat == "json"

	switch {
	case protocol.LooksLikeMachineState(wire):
		st, err := protocol.DecodeMachineStateResponse(wire)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(st)
		}
		fmt.Println(ui.RenderMachineState(st))
		return nil

	case protocol.LooksLikeDisplayState(wire):
		st, err := protocol.DecodeDisplayStateResponse(wire)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(st)
		}
		fmt.Println(ui.RenderDisplayState(st))
		return nil
	}

	if err := protocol.AssertValidChecksum(wire); err != nil {
		return err
	}
	msg, err := protocol.DecodeMessage(wire)
	if err != nil {
		return err
	}

	if msg.Type.IsRead() {
		if resp, err := protocol.ParseReadResponse(msg); err == nil {
			if asJSON {
				return printJSON(map[string]any{
					"offset": resp.Range.Offset(),
					"length": resp.Range.Length(),
					"data":   resp.Data.HexString(),
				})
			}
			fmt.Print(hexDump(resp.Data))
			return nil
		}
	}

	if asJSON {
		return printJSON(map[string]string{"type": msg.Type.String(), "payload": msg.Payload.HexString()})
	}
	fmt.Println(msg)
	return nil
}

// hexDump prints 16 bytes per row with absolute addresses.
func hexDump(m *protocol.Memory) string {
	var b strings.Builder
	data := m.Bytes()
	for i := 0; i < len(data); i += 16 {
		end := min(i+16, len(data))
		row := data[i:end]

		ascii := make([]byte, len(row))
		for j, c := range row {
			if c >= 0x20 && c < 0x7F {
				ascii[j] = c
			} else {
				ascii[j] = '.'
			}
		}
		fmt.Fprintf(&b, "%04X  %-47s  %s\n", m.Base()+i, fmt.Sprintf("% X", row), ascii)
	}
	return b.String()
}

// machineCmd reads (and optionally writes) the configuration record
var machineCmd = &cobra.Command{
	Use:   "machine <machine>",
	Short: "Show or write the machine configuration",
	Long: `Read the configuration record: temperatures, PID constants, pressure
profiles, counters and timers.

With --apply, a record saved with --format json is written back to the
machine after confirmation. Pressure profiles are checked against the
machine limits before anything is sent.`,
	Example: `  brewctl machine kitchen
  brewctl machine kitchen --format json > state.json
  brewctl machine kitchen --apply state.json`,
	Args: cobra.ExactArgs(1),
	RunE: runMachine,
}

func runMachine(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := commandContext()
	defer cancel()

	p := ui.NewPrinter(os.Stdout)
	if applyFile != "" {
		return applyMachineState(ctx, p, target)
	}

	s, err := connect(ctx, target)
	if err != nil {
		if outputFormat != "json" {
			p.PrintFailure("Connection failed", err, connectTroubleshooting(target))
		}
		return err
	}
	defer func() { _ = s.Close() }()

	st, err := s.MachineState(ctx)
	if err != nil {
		if outputFormat != "json" {
			p.PrintFailure("Failed to read machine state", err, nil)
		}
		return err
	}

	if outputFormat == "json" {
		return printJSON(st)
	}
	machineHeader(p, "Machine State", "brewctl machine "+target, target)
	p.Println(ui.RenderMachineState(st))
	return nil
}

func applyMachineState(ctx context.Context, p *ui.Printer, target string) error {
	data, err := os.ReadFile(applyFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", applyFile, err)
	}
	var st protocol.MachineState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to parse %s: %w", applyFile, err)
	}

	machineHeader(p, "Write Machine State", "brewctl machine "+target+" --apply "+applyFile, target)
	p.Println(ui.RenderMachineState(&st))
	p.Newline()

	if !assumeYes && !ui.MemoryWriteConfirmation(os.Stdin, os.Stdout, target) {
		p.PrintWarning("Write cancelled", nil)
		return nil
	}

	s, err := connect(ctx, target)
	if err != nil {
		p.PrintFailure("Connection failed", err, connectTroubleshooting(target))
		return err
	}
	defer func() { _ = s.Close() }()

	ack, err := s.WriteMachineState(ctx, &st)
	if err != nil {
		p.PrintFailure("Failed to write machine state", err, []string{
			"Nothing is written if a profile step is out of range",
			fmt.Sprintf("Pressure limit is %d, duration limit is %d", protocol.MaxPressure, protocol.MaxDuration),
		})
		return err
	}
	p.PrintSuccess("Machine state written", map[string]string{
		"Bytes":       strconv.Itoa(protocol.MachineStateLength),
		"Reply":       protocol.EscapeUnprintables(ack),
		"Reply valid": fmt.Sprint(protocol.VerifyChecksum(ack)),
	})
	return nil
}

// displayCmd reads the live display record
var displayCmd = &cobra.Command{
	Use:   "display <machine>",
	Short: "Show what the machine's display shows",
	Example: `  brewctl display kitchen
  brewctl display kitchen --watch 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runDisplay,
}

func runDisplay(cmd *cobra.Command, args []string) error {
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

	if outputFormat != "json" {
		machineHeader(p, "Display", "brewctl display "+target, target)
	}

	for {
		st, err := s.DisplayState(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.PrintFailure("Failed to read display", err, nil)
			return err
		}

		if outputFormat == "json" {
			if err := printJSON(st); err != nil {
				return err
			}
		} else {
			p.Println(ui.RenderDisplayState(st))
		}

		if watchInterval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watchInterval):
		}
	}
}

// readCmd reads a raw memory range
var readCmd = &cobra.Command{
	Use:   "read <machine> <offset> <length>",
	Short: "Read a range of machine memory",
	Long: `Read length bytes of controller memory starting at offset. Both are hex.
The range must stay below 0x10000.`,
	Example: `  brewctl read kitchen 0000 73
  brewctl read kitchen 0xB000 0x50 --format json`,
	Args: cobra.ExactArgs(3),
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	target := args[0]
	offset, err := parseHex(args[1])
	if err != nil {
		return err
	}
	length, err := parseHex(args[2])
	if err != nil {
		return err
	}
	req, err := protocol.NewReadRequest(offset, length)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	p := ui.NewPrinter(os.Stdout)
	s, err := connect(ctx, target)
	if err != nil {
		p.PrintFailure("Connection failed", err, connectTroubleshooting(target))
		return err
	}
	defer func() { _ = s.Close() }()

	resp, err := s.ReadMemory(ctx, req)
	if err != nil {
		p.PrintFailure("Read failed", err, []string{
			"The machine stays silent for ranges it does not serve",
			"Try a smaller range or check the offset",
		})
		return err
	}

	if outputFormat == "json" {
		return printJSON(map[string]any{
			"offset": resp.Range.Offset(),
			"length": resp.Range.Length(),
			"data":   resp.Data.HexString(),
		})
	}
	machineHeader(p, "Memory Read", fmt.Sprintf("brewctl read %s %04X %04X", target, offset, length), target)
	p.Println(hexDump(resp.Data))
	return nil
}

// writeCmd writes raw bytes into machine memory
var writeCmd = &cobra.Command{
	Use:   "write <machine> <offset> <hex-data>",
	Short: "Write bytes into machine memory",
	Long: `Write raw bytes into controller memory at offset (hex).

This bypasses every record check. Writing the wrong bytes can leave the machine
misconfigured; you are asked to confirm unless --yes is given.`,
	Example: `  # Set the coffee boiler target temperature to 92
  brewctl write kitchen 0002 5C`,
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

func runWrite(cmd *cobra.Command, args []string) error {
	target := args[0]
	offset, err := parseHex(args[1])
	if err != nil {
		return err
	}
	data, err := protocol.MemoryFromHex(args[2], offset)
	if err != nil {
		return err
	}
	req, err := protocol.NewWriteRequestFromMemory(data)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(os.Stdout)
	machineHeader(p, "Memory Write", "brewctl write "+strings.Join(args, " "), target)
	p.Println(hexDump(data))

	if !assumeYes && !ui.MemoryWriteConfirmation(os.Stdin, os.Stdout, target) {
		p.PrintWarning("Write cancelled", nil)
		return nil
	}

	ctx, cancel := commandContext()
	defer cancel()

	s, err := connect(ctx, target)
	if err != nil {
		p.PrintFailure("Connection failed", err, connectTroubleshooting(target))
		return err
	}
	defer func() { _ = s.Close() }()

	ack, err := s.WriteMemory(ctx, req)
	if err != nil {
		if errors.Is(err, session.ErrNoReply) {
			p.PrintWarning("No acknowledgement", map[string]string{"Sent": req.Serialize()})
			return err
		}
		p.PrintFailure("Write failed", err, nil)
		return err
	}
	p.PrintSuccess("Memory written", map[string]string{
		"Range":       req.Range().String(),
		"Reply":       protocol.EscapeUnprintables(ack),
		"Reply valid": fmt.Sprint(protocol.VerifyChecksum(ack)),
	})
	return nil
}
