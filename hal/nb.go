package hal

import (
	"errors"
	"io"
)

// Block retries op until it returns something other than ErrWouldBlock.
// It busy-waits, so it is only suitable where spinning is acceptable.
func Block(op func() error) error {
	for {
		err := op()
		if !errors.Is(err, ErrWouldBlock) {
			return err
		}
	}
}

// Poll retries op at most attempts times. If op is still not ready a
// PeripheralBusyError naming peripheral and opName is returned.
func Poll(attempts int, peripheral, opName string, op func() error) error {
	for i := 0; i < attempts; i++ {
		err := op()
		if !errors.Is(err, ErrWouldBlock) {
			return err
		}
	}
	return &PeripheralBusyError{Peripheral: peripheral, Op: opName}
}

// IsNotReady reports whether err is the non-blocking "not ready" outcome.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

type blockingWriter struct{ w io.Writer }

// BlockingWriter returns a writer that retries short non-blocking writes on
// w until all of p is written or another error occurs.
func BlockingWriter(w io.Writer) io.Writer {
	return blockingWriter{w}
}

func (b blockingWriter) Write(p []byte) (int, error) {
	done := 0
	for done < len(p) {
		n, err := b.w.Write(p[done:])
		done += n
		if err != nil && !errors.Is(err, ErrWouldBlock) {
			return done, err
		}
	}
	return done, nil
}
