// Package shell is a line-oriented command shell for the serial console.
package shell

import (
	"errors"
	"io"
	"sort"

	"github.com/google/shlex"

	"efm32hal/hal"
)

// MaxLine is the longest accepted input line.
const MaxLine = 96

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad arguments")
	ErrLineTooLong    = errors.New("line too long")
	ErrNotResponding  = errors.New("device not responding")
)

// Handler runs a command. args[0] is the command name.
type Handler func(out io.Writer, args []string) error

// Command is a registered shell command
type Command struct {
	Name    string
	Usage   string
	Help    string
	Handler Handler
}

// Shell collects input bytes into lines and dispatches them to commands.
type Shell struct {
	commands map[string]*Command
	out      io.Writer
	line     []byte
	overflow bool
	lastCR   bool

	// Prompt is written after each command. Echo sends typed characters
	// back to the terminal.
	Prompt string
	Echo   bool
}

// New creates a shell writing to out. out must accept whole writes; wrap a
// non-blocking port with hal.BlockingWriter.
func New(out io.Writer) *Shell {
	s := &Shell{
		commands: make(map[string]*Command),
		out:      out,
		line:     make([]byte, 0, MaxLine),
		Prompt:   "> ",
		Echo:     true,
	}
	s.Register("help", "help [command]", "list commands", s.help)
	return s
}

// Register adds a command. A later registration with the same name
// replaces the earlier one.
func (s *Shell) Register(name, usage, help string, h Handler) {
	s.commands[name] = &Command{Name: name, Usage: usage, Help: help, Handler: h}
}

// Commands returns the registered command names in order.
func (s *Shell) Commands() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Shell) print(msg string) {
	io.WriteString(s.out, msg)
}

// Exec runs one line. Errors are returned, not printed.
func (s *Shell) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return ErrUsage
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := s.commands[args[0]]
	if !ok {
		return ErrUnknownCommand
	}
	hal.RecordEvent(hal.EvtCommand, hal.NoPeripheral, uint32(len(args)), 0)
	return cmd.Handler(s.out, args)
}

// Feed handles one input byte: printable characters are collected, backspace
// edits and CR or LF runs the line.
func (s *Shell) Feed(b byte) {
	wasCR := s.lastCR
	s.lastCR = b == '\r'
	switch {
	case b == '\r' || b == '\n':
		if b == '\n' && wasCR {
			return
		}
		s.runLine()
	case b == 0x08 || b == 0x7F:
		if len(s.line) > 0 {
			s.line = s.line[:len(s.line)-1]
			if s.Echo {
				s.print("\b \b")
			}
		}
	case b == 0x03: // Ctrl-C drops the line
		s.line = s.line[:0]
		s.overflow = false
		s.print("^C\r\n" + s.Prompt)
	case b >= 0x20 && b < 0x7F:
		if len(s.line) == MaxLine {
			s.overflow = true
			return
		}
		s.line = append(s.line, b)
		if s.Echo {
			s.out.Write([]byte{b})
		}
	}
}

func (s *Shell) runLine() {
	if s.Echo {
		s.print("\r\n")
	}
	var err error
	if s.overflow {
		err = ErrLineTooLong
	} else {
		err = s.Exec(string(s.line))
	}
	if err != nil {
		s.print("error: " + err.Error() + "\r\n")
	}
	s.line = s.line[:0]
	s.overflow = false
	s.print(s.Prompt)
}

// Poll feeds every byte r has ready. It returns nil once r reports
// hal.ErrWouldBlock and any other read error as is.
func (s *Shell) Poll(r io.ByteReader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			if hal.IsNotReady(err) {
				return nil
			}
			return err
		}
		s.Feed(b)
	}
}

func (s *Shell) help(out io.Writer, args []string) error {
	if len(args) > 1 {
		cmd, ok := s.commands[args[1]]
		if !ok {
			return ErrUnknownCommand
		}
		io.WriteString(out, cmd.Usage+"\r\n  "+cmd.Help+"\r\n")
		return nil
	}
	for _, name := range s.Commands() {
		cmd := s.commands[name]
		io.WriteString(out, pad(cmd.Usage, 24)+cmd.Help+"\r\n")
	}
	return nil
}

func pad(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s + " "
}
