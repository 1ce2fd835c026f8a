// pg12-term is a serial terminal for the board console.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	tty "github.com/mattn/go-tty"

	"efm32hal/board"
	"efm32hal/host/console"
	"efm32hal/host/serial"
)

var (
	device      = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud        = flag.Int("baud", 0, "Baud rate (0 = from the board profile)")
	profilePath = flag.String("profile", "", "Board profile (YAML or JSON); empty for the SLSTK3402A")
	crlf        = flag.Bool("crlf", false, "Send CR for each LF typed")
	verbose     = flag.Bool("verbose", false, "Trace traffic as hex on stderr")
	dump        = flag.Bool("dump-profile", false, "Print the board profile and exit")
)

func main() {
	flag.Parse()

	prof, err := board.LoadFile(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *dump {
		data, err := prof.Marshal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	if err := run(prof); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
}

func run(prof *board.Profile) error {
	cfg := serial.ConfigFor(*device, prof)
	if *baud != 0 {
		cfg.Baud = *baud
	}

	fmt.Printf("Connecting to %s (%s console on USART%d, %d baud)...\n",
		cfg.Device, prof.Name, prof.Console.USART, cfg.Baud)
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	defer port.Close()
	if err := port.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", cfg.Device, err)
	}

	term, err := tty.Open()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer term.Close()
	restore, err := term.Raw()
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer restore()

	fmt.Print("Connected. Press Ctrl-] to quit.\r\n")

	opts := []console.Option{}
	if *crlf {
		opts = append(opts, console.WithCRLF())
	}
	if *verbose {
		opts = append(opts, console.WithTrace(crlfWriter{os.Stderr}))
	}
	sess := console.New(port, term.Output(), opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = sess.Run(ctx, term.Input())

	rx, tx := sess.Stats()
	fmt.Printf("\r\nDisconnected (%d bytes in, %d bytes out).\r\n", rx, tx)
	return err
}

// crlfWriter turns LF into CRLF for a terminal in raw mode
type crlfWriter struct{ w io.Writer }

func (c crlfWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+4)
	for _, b := range p {
		if b == '\n' {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
