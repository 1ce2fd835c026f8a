package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakePort reads from a pipe fed by the test and records writes
type fakePort struct {
	rx  *io.PipeReader
	tx  syncBuffer
	err error
}

func (p *fakePort) Read(b []byte) (int, error) { return p.rx.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.tx.Write(b)
}

func newPort(t *testing.T) (*fakePort, *io.PipeWriter) {
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })
	return &fakePort{rx: r}, w
}

func TestSend(t *testing.T) {
	port, _ := newPort(t)
	s := New(port, io.Discard, WithCRLF())

	n, err := s.Send([]byte("led 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "led 0\r", port.tx.String())

	n, err = s.Send([]byte("x\x1dy"))
	assert.ErrorIs(t, err, ErrDetached)
	assert.Equal(t, 1, n)
	assert.Equal(t, "led 0\rx", port.tx.String(), "bytes after the escape key are dropped")

	_, tx := s.Stats()
	assert.Equal(t, uint64(7), tx)
}

func TestSendCustomEscape(t *testing.T) {
	port, _ := newPort(t)
	s := New(port, io.Discard, WithEscape('q'))
	_, err := s.Send([]byte("\x1dq"))
	assert.ErrorIs(t, err, ErrDetached)
	assert.Equal(t, "\x1d", port.tx.String())
}

func TestSendPortError(t *testing.T) {
	port, _ := newPort(t)
	port.err = errors.New("unplugged")
	_, err := New(port, io.Discard).Send([]byte("a"))
	assert.ErrorContains(t, err, "unplugged")
}

func TestReceive(t *testing.T) {
	port, w := newPort(t)
	var out, trace syncBuffer
	s := New(port, &out, WithTrace(&trace))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Receive(ctx) }()

	_, err := w.Write([]byte("hello\r\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return out.String() == "hello\r\n" }, time.Second, time.Millisecond)
	assert.Contains(t, trace.String(), "rx 68 65 6c 6c 6f 0d 0a")

	cancel()
	w.CloseWithError(io.EOF)
	require.NoError(t, <-done)

	rx, _ := s.Stats()
	assert.Equal(t, uint64(7), rx)
}

func TestReceivePortFailure(t *testing.T) {
	port, w := newPort(t)
	s := New(port, io.Discard)
	w.CloseWithError(errors.New("device removed"))
	err := s.Receive(context.Background())
	assert.ErrorContains(t, err, "device removed")
}

func TestRunDetaches(t *testing.T) {
	port, w := newPort(t)
	var out syncBuffer
	s := New(port, &out)
	keysR, keysW := io.Pipe()
	t.Cleanup(func() { keysW.Close() })

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), keysR) }()

	go w.Write([]byte("> "))
	assert.Eventually(t, func() bool { return out.String() == "> " }, time.Second, time.Millisecond)

	_, err := keysW.Write([]byte("temp\r\x1d"))
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, "temp\r", port.tx.String())
}

func TestRunEndsAtKeyboardEOF(t *testing.T) {
	port, _ := newPort(t)
	s := New(port, io.Discard)
	err := s.Run(context.Background(), strings.NewReader("help\r"))
	require.NoError(t, err)
	assert.Equal(t, "help\r", port.tx.String())
}

func TestRunCancelled(t *testing.T) {
	port, _ := newPort(t)
	s := New(port, io.Discard)
	keysR, keysW := io.Pipe()
	t.Cleanup(func() { keysW.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Run(ctx, keysR))
}
