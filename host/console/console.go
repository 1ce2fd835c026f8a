// Package console connects a local terminal to the board's serial console.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Escape is the default detach key, Ctrl-].
const Escape = 0x1D

// ErrDetached is returned by Send when the escape key is seen.
var ErrDetached = errors.New("console: detached")

// Session pumps bytes between a serial port and a terminal.
type Session struct {
	port   io.ReadWriter
	out    io.Writer
	trace  io.Writer
	escape byte
	crlf   bool

	mu     sync.Mutex
	rx, tx atomic.Uint64
}

// Option configures a Session.
type Option func(*Session)

// WithTrace logs every transfer as a hex line to w.
func WithTrace(w io.Writer) Option {
	return func(s *Session) { s.trace = w }
}

// WithEscape replaces the detach key.
func WithEscape(b byte) Option {
	return func(s *Session) { s.escape = b }
}

// WithCRLF sends a carriage return for each line feed typed.
func WithCRLF() Option {
	return func(s *Session) { s.crlf = true }
}

// New returns a session between port and the terminal output out.
func New(port io.ReadWriter, out io.Writer, opts ...Option) *Session {
	s := &Session{port: port, out: out, escape: Escape}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the number of bytes received from and sent to the port.
func (s *Session) Stats() (rx, tx uint64) {
	return s.rx.Load(), s.tx.Load()
}

func (s *Session) log(dir string, p []byte) {
	if s.trace == nil || len(p) == 0 {
		return
	}
	s.mu.Lock()
	fmt.Fprintf(s.trace, "%s % x\n", dir, p)
	s.mu.Unlock()
}

// Send forwards typed bytes to the port. It stops at the escape key and
// returns ErrDetached; bytes before the key are still sent.
func (s *Session) Send(p []byte) (int, error) {
	data := p
	detached := false
	for i, b := range p {
		if b == s.escape {
			data = p[:i]
			detached = true
			break
		}
	}
	if s.crlf {
		translated := make([]byte, len(data))
		for i, b := range data {
			if b == '\n' {
				b = '\r'
			}
			translated[i] = b
		}
		data = translated
	}

	n, err := s.port.Write(data)
	s.tx.Add(uint64(n))
	s.log("tx", data[:n])
	if err != nil {
		return n, fmt.Errorf("write to port: %w", err)
	}
	if detached {
		return n, ErrDetached
	}
	return n, nil
}

// Receive copies the port to the terminal until ctx is done or the port
// fails. A port opened with a read timeout reports io.EOF when no data
// arrived; that is not treated as the end of the stream.
func (s *Session) Receive(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := s.port.Read(buf)
		if n > 0 {
			s.rx.Add(uint64(n))
			s.log("rx", buf[:n])
			if _, werr := s.out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write to terminal: %w", werr)
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read from port: %w", err)
		}
	}
}

func (s *Session) forward(keys io.Reader) error {
	buf := make([]byte, 64)
	for {
		n, err := keys.Read(buf)
		if n > 0 {
			if _, serr := s.Send(buf[:n]); serr != nil {
				return serr
			}
		}
		if err != nil {
			return err
		}
	}
}

// Run pumps both directions until the escape key is typed, keys reach
// EOF, ctx is done or the port fails. The port is not closed; a receive
// blocked in Read returns once the caller closes it.
func (s *Session) Run(ctx context.Context, keys io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recvErr := make(chan error, 1)
	go func() { recvErr <- s.Receive(ctx) }()
	keyErr := make(chan error, 1)
	go func() { keyErr <- s.forward(keys) }()

	select {
	case err := <-keyErr:
		if errors.Is(err, ErrDetached) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case err := <-recvErr:
		return err
	case <-ctx.Done():
		return nil
	}
}
