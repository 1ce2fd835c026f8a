package shell

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"efm32hal/hal"
)

func newShell() (*Shell, *strings.Builder, *[][]string) {
	var out strings.Builder
	var calls [][]string
	s := New(&out)
	s.Register("echo", "echo <args>", "print arguments", func(w io.Writer, args []string) error {
		calls = append(calls, args)
		io.WriteString(w, strings.Join(args[1:], "|")+"\r\n")
		return nil
	})
	s.Register("fail", "fail", "always fails", func(io.Writer, []string) error {
		return errors.New("boom")
	})
	return s, &out, &calls
}

func TestExec(t *testing.T) {
	s, out, calls := newShell()

	require.NoError(t, s.Exec(`echo "a b" c`))
	assert.Equal(t, [][]string{{"echo", "a b", "c"}}, *calls)
	assert.Equal(t, "a b|c\r\n", out.String())

	assert.NoError(t, s.Exec("   "))
	assert.ErrorIs(t, s.Exec("nope"), ErrUnknownCommand)
	assert.ErrorIs(t, s.Exec(`echo "unterminated`), ErrUsage)
	assert.EqualError(t, s.Exec("fail"), "boom")
}

func TestFeedRunsLines(t *testing.T) {
	s, out, calls := newShell()
	for _, b := range []byte("echo hi\r\n") {
		s.Feed(b)
	}
	assert.Len(t, *calls, 1, "CR LF runs the line once")
	assert.Equal(t, "echo hi\r\nhi\r\n> ", out.String())

	out.Reset()
	for _, b := range []byte("fail\n") {
		s.Feed(b)
	}
	assert.Equal(t, "fail\r\nerror: boom\r\n> ", out.String())
}

func TestFeedEditing(t *testing.T) {
	s, out, calls := newShell()
	s.Echo = false

	for _, b := range []byte("echX\x7fo ok\r") {
		s.Feed(b)
	}
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"echo", "ok"}, (*calls)[0])

	out.Reset()
	for _, b := range []byte("echo lost\x03") {
		s.Feed(b)
	}
	assert.Equal(t, "^C\r\n> ", out.String())
	s.Feed('\r')
	assert.Len(t, *calls, 1, "Ctrl-C dropped the line")

	// control characters other than editing keys are ignored
	for _, b := range []byte("echo \x1b\x01x\r") {
		s.Feed(b)
	}
	require.Len(t, *calls, 2)
	assert.Equal(t, []string{"echo", "x"}, (*calls)[1])
}

func TestFeedOverflow(t *testing.T) {
	s, out, calls := newShell()
	s.Echo = false
	for i := 0; i < MaxLine+10; i++ {
		s.Feed('a')
	}
	s.Feed('\r')
	assert.Empty(t, *calls)
	assert.Contains(t, out.String(), ErrLineTooLong.Error())

	out.Reset()
	for _, b := range []byte("echo again\r") {
		s.Feed(b)
	}
	assert.Len(t, *calls, 1, "the next line is accepted")
}

// byteSource returns its data, then ErrWouldBlock or a final error
type byteSource struct {
	data []byte
	err  error
}

func (b *byteSource) ReadByte() (byte, error) {
	if len(b.data) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, hal.ErrWouldBlock
	}
	c := b.data[0]
	b.data = b.data[1:]
	return c, nil
}

func TestPoll(t *testing.T) {
	s, _, calls := newShell()
	src := &byteSource{data: []byte("echo 1\recho")}
	require.NoError(t, s.Poll(src))
	assert.Len(t, *calls, 1)

	src.data = []byte(" 2\r")
	require.NoError(t, s.Poll(src))
	require.Len(t, *calls, 2)
	assert.Equal(t, []string{"echo", "2"}, (*calls)[1])

	framing := errors.New("framing error")
	src.err = framing
	assert.ErrorIs(t, s.Poll(src), framing)
}

func TestHelp(t *testing.T) {
	s, out, _ := newShell()
	assert.Equal(t, []string{"echo", "fail", "help"}, s.Commands())

	require.NoError(t, s.Exec("help"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\r\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "echo <args>"))
	assert.Contains(t, lines[0], "print arguments")

	out.Reset()
	require.NoError(t, s.Exec("help fail"))
	assert.Equal(t, "fail\r\n  always fails\r\n", out.String())
	assert.ErrorIs(t, s.Exec("help nope"), ErrUnknownCommand)
}

func TestFixed(t *testing.T) {
	assert.Equal(t, "21.49", fixed(21490, 1000, 2))
	assert.Equal(t, "-5.02", fixed(-5020, 1000, 2))
	assert.Equal(t, "43.94", fixed(4394, 100, 2))
	assert.Equal(t, "0.05", fixed(5, 100, 2))
}
