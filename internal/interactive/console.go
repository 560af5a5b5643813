package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/protocol"
	"github.com/muurk/brewlink/internal/session"
	"github.com/muurk/brewlink/internal/ui"
	"go.uber.org/zap"
)

// Prompt is shown before each command on a terminal.
const Prompt = "? "

// Exchanger sends one wire message and returns the reply.
type Exchanger interface {
	Exchange(ctx context.Context, wire string) (string, error)
}

// LineReader yields typed lines. io.EOF ends the console.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Console reads commands, sends them and prints both sides of the exchange.
type Console struct {
	ex    Exchanger
	lines LineReader
	out   io.Writer
}

// New creates a console on in and out. A terminal gets a readline prompt
// with history; anything else is read line by line without a prompt.
func New(ex Exchanger, in *os.File, out io.Writer) (*Console, error) {
	if !ui.IsTerminal(in) {
		return NewWithReader(ex, in, out), nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           in,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{ex: ex, lines: rl, out: rl.Stdout()}, nil
}

// NewWithReader creates a console that reads plain lines from r.
func NewWithReader(ex Exchanger, r io.Reader, out io.Writer) *Console {
	return &Console{ex: ex, lines: &plainReader{scanner: bufio.NewScanner(r)}, out: out}
}

// Run loops until a quit word, end of input or ctx is done. A command the
// machine does not answer is reported and the loop continues; any other
// transport failure ends the console with that error.
func (c *Console) Run(ctx context.Context) error {
	defer func() { _ = c.lines.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := c.lines.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case ShouldQuit(line):
			return nil
		case !AllowCommand(line):
			_, _ = fmt.Fprintln(c.out, ui.ErrorMessageStyle.Render(ui.FailureMarker+" Invalid command"))
			continue
		}

		if err := c.send(ctx, line); err != nil {
			return err
		}
	}
}

func (c *Console) send(ctx context.Context, command string) error {
	wire := protocol.AttachChecksum(command)
	_, _ = fmt.Fprintln(c.out, ui.RenderWireLine(true, PrettyPrint(wire), true))

	reply, err := c.ex.Exchange(ctx, wire)
	switch {
	case errors.Is(err, session.ErrNoReply):
		_, _ = fmt.Fprintln(c.out, ui.WarningStyle.Render(ui.WarningMarker+" No reply"))
		return nil
	case err != nil:
		return err
	}

	ok := protocol.VerifyChecksum(reply)
	if !ok {
		logging.Warn("Reply failed checksum", zap.String("reply", protocol.EscapeUnprintables(reply)))
	}
	_, _ = fmt.Fprintln(c.out, ui.RenderWireLine(false, PrettyPrint(reply), ok))
	return nil
}

type plainReader struct {
	scanner *bufio.Scanner
}

func (p *plainReader) Readline() (string, error) {
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (p *plainReader) Close() error { return nil }
