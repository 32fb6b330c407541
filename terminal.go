package readline

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-tty"
	"golang.org/x/term"
)

// terminalInterface abstracts the terminal backend so the engine can run
// against both a real terminal (go-tty) and a deterministic mock in tests.
//
// Raw mode is a globally scoped resource: exactly one active read owns it,
// and Restore must succeed on every exit path, including cancellation.
type terminalInterface interface {
	SetRaw() error                        // enter raw/no-echo mode
	Restore() error                       // restore the pre-SetRaw configuration
	Size() (width, height int, err error) // terminal dimensions with safe fallbacks
	ReadRune() (rune, int, error)         // read one Unicode character
	Buffered() bool                       // whether input bytes are already pending
	Resize() <-chan WindowSize            // resize notifications, nil if unsupported
	Output() io.Writer                    // writer for draw operations
	Close() error                         // release the device
}

// realTerminal drives an actual terminal. go-tty supplies cross-platform
// input, size queries and SIGWINCH delivery; golang.org/x/term owns the raw
// mode state so restoration works no matter how the read ends; go-colorable
// keeps ANSI output working on Windows.
type realTerminal struct {
	tty           *tty.TTY
	output        io.Writer
	stdinFd       int
	originalState *term.State
	closed        bool
	resizeOnce    sync.Once
	resizeCh      chan WindowSize
}

func newRealTerminal() (*realTerminal, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}

	var output io.Writer = os.Stdout
	if runtime.GOOS == "windows" {
		output = colorable.NewColorableStdout()
	}

	return &realTerminal{
		tty:     t,
		output:  output,
		stdinFd: int(os.Stdin.Fd()),
	}, nil
}

func (t *realTerminal) SetRaw() error {
	// Capture the current state every time so restoration always targets
	// the configuration that was live when this read began.
	if term.IsTerminal(t.stdinFd) {
		state, err := term.GetState(t.stdinFd)
		if err != nil {
			return err
		}
		t.originalState = state
		if _, err := term.MakeRaw(t.stdinFd); err != nil {
			return err
		}
	}
	return nil
}

func (t *realTerminal) Restore() error {
	if t.originalState != nil && term.IsTerminal(t.stdinFd) {
		err := term.Restore(t.stdinFd, t.originalState)
		t.originalState = nil
		return err
	}
	return nil
}

func (t *realTerminal) Size() (width, height int, err error) {
	w, h, err := t.tty.Size()
	if err != nil || w <= 0 || h <= 0 {
		// Safe fallback so layout math never divides by zero.
		return 80, 24, err
	}
	return w, h, nil
}

func (t *realTerminal) ReadRune() (rune, int, error) {
	r, err := t.tty.ReadRune()
	if err != nil {
		return 0, 0, err
	}
	return r, 1, nil
}

func (t *realTerminal) Buffered() bool {
	return t.tty.Buffered()
}

func (t *realTerminal) Resize() <-chan WindowSize {
	t.resizeOnce.Do(func() {
		t.resizeCh = make(chan WindowSize, 1)
		go func() {
			for ws := range t.tty.SIGWINCH() {
				// Only the latest geometry matters.
				select {
				case <-t.resizeCh:
				default:
				}
				t.resizeCh <- WindowSize{Width: ws.W, Height: ws.H}
			}
			close(t.resizeCh)
		}()
	})
	return t.resizeCh
}

func (t *realTerminal) Output() io.Writer {
	return t.output
}

func (t *realTerminal) Close() error {
	// go-tty panics on double close on Windows; guard it.
	if t.closed {
		return nil
	}
	if t.tty != nil {
		err := t.tty.Close()
		t.closed = true
		return err
	}
	return nil
}
