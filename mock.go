package readline

import (
	"bytes"
	"io"
	"sync"
)

// mockTerminal implements terminalInterface for tests. Input is fed through
// a channel so tests can script exact keystroke orderings, interleave resize
// notifications, and end the stream to simulate EOF. All draw output is
// captured for inspection.
type mockTerminal struct {
	mu       sync.Mutex
	keys     chan rune
	resizeCh chan WindowSize
	out      bytes.Buffer
	width    int
	height   int

	raw      bool
	restores int // Restore calls, for verifying unconditional teardown
	closed   bool
}

// newMockTerminal creates a mock whose input is the given script followed by
// EOF.
func newMockTerminal(input string) *mockTerminal {
	m := newOpenMockTerminal()
	m.feed(input)
	close(m.keys)
	return m
}

// newOpenMockTerminal creates a mock whose input stays open so the test can
// feed keystrokes and resizes incrementally.
func newOpenMockTerminal() *mockTerminal {
	return &mockTerminal{
		keys:     make(chan rune, 1024),
		resizeCh: make(chan WindowSize, 4),
		width:    80,
		height:   24,
	}
}

func (m *mockTerminal) feed(input string) {
	for _, r := range input {
		m.keys <- r
	}
}

func (m *mockTerminal) endInput() {
	close(m.keys)
}

func (m *mockTerminal) pushResize(size WindowSize) {
	m.mu.Lock()
	m.width, m.height = size.Width, size.Height
	m.mu.Unlock()
	m.resizeCh <- size
}

func (m *mockTerminal) SetRaw() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = true
	return nil
}

func (m *mockTerminal) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = false
	m.restores++
	return nil
}

func (m *mockTerminal) rawMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw
}

func (m *mockTerminal) restoreCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restores
}

func (m *mockTerminal) Size() (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height, nil
}

func (m *mockTerminal) ReadRune() (rune, int, error) {
	r, ok := <-m.keys
	if !ok {
		return 0, 0, io.EOF
	}
	return r, 1, nil
}

func (m *mockTerminal) Buffered() bool {
	return len(m.keys) > 0
}

func (m *mockTerminal) Resize() <-chan WindowSize {
	return m.resizeCh
}

func (m *mockTerminal) Output() io.Writer {
	return &m.out
}

func (m *mockTerminal) output() string {
	return m.out.String()
}

func (m *mockTerminal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
