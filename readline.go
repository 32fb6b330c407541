package readline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Common errors.
var (
	// ErrEOF reports that the input has no more data. It is routine
	// control flow, not a failure: callers should treat it like an
	// absent result.
	ErrEOF = errors.New("EOF")
	// ErrInterrupted is the cancellation signal raised when the user
	// presses Ctrl+C. It unwinds the entire read call and can be
	// intercepted with errors.Is or OnInterrupt.
	ErrInterrupted = errors.New("interrupted")
)

// Config holds the session-scoped settings. It is immutable once the
// session has been constructed.
type Config struct {
	Prefix       string   // prompt prefix, e.g. "$ "
	Completer    Completer // completion function, nil disables Tab completion
	HistoryFile  string   // history persistence path, empty keeps history in memory
	HistoryLimit int      // maximum history entries kept (default 1000)
	HandleSigInt bool     // deliver Ctrl+C / SIGINT as an Interrupt event
	Prefs        *Prefs   // editing preferences, nil loads PrefsFile or defaults
	PrefsFile    string   // TOML preference file, read once at construction
}

// Option configures a Session.
type Option func(*Config)

// WithCompleter sets the completion function.
func WithCompleter(completer Completer) Option {
	return func(c *Config) {
		c.Completer = completer
	}
}

// WithHistoryFile enables history persistence at the given path. The path
// may start with "~/".
func WithHistoryFile(path string) Option {
	return func(c *Config) {
		c.HistoryFile = path
	}
}

// WithHistoryLimit caps the number of history entries kept in memory.
func WithHistoryLimit(limit int) Option {
	return func(c *Config) {
		c.HistoryLimit = limit
	}
}

// WithPrefs sets the editing preferences directly.
func WithPrefs(prefs *Prefs) Option {
	return func(c *Config) {
		c.Prefs = prefs
	}
}

// WithPrefsFile loads the editing preferences from a TOML file. Ignored
// when WithPrefs is also given.
func WithPrefsFile(path string) Option {
	return func(c *Config) {
		c.PrefsFile = path
	}
}

// WithEditMode overrides the editing mode regardless of preference file.
func WithEditMode(mode EditMode) Option {
	return func(c *Config) {
		if c.Prefs == nil {
			c.Prefs = DefaultPrefs()
		}
		c.Prefs.EditMode = mode
	}
}

// WithBellStyle overrides the bell style regardless of preference file.
func WithBellStyle(style BellStyle) Option {
	return func(c *Config) {
		if c.Prefs == nil {
			c.Prefs = DefaultPrefs()
		}
		c.Prefs.BellStyle = style
	}
}

// WithSigIntHandling controls whether Ctrl+C and SIGINT are delivered to
// the driver as Interrupt events. It is on by default; turning it off
// leaves 0x03 as an ordinary bindable key.
func WithSigIntHandling(enabled bool) Option {
	return func(c *Config) {
		c.HandleSigInt = enabled
	}
}

// Session reads lines interactively when attached to a terminal and
// degrades to plain buffered UTF-8 reads when it is not. One Session may
// serve many ReadLine calls; Settings and Prefs outlive all of them.
type Session struct {
	config  Config
	prefs   *Prefs
	history *History

	in     io.Reader
	out    io.Writer
	reader *bufio.Reader // lazy, for the non-terminal input path

	terminal terminalInterface // lazy, for the interactive paths
	keys     *keyReader        // lazy, shared by every read on the terminal
	closed   bool

	// test hooks; nil means probe the real streams
	forceInTerm  *bool
	forceOutTerm *bool
}

// New creates a session with the given prompt prefix.
//
// Example:
//
//	s, err := readline.New("$ ",
//		readline.WithCompleter(readline.NewFileCompleter()),
//		readline.WithHistoryFile("~/.myapp_history"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	line, err := s.ReadLine(context.Background())
func New(prefix string, opts ...Option) (*Session, error) {
	config := Config{
		Prefix:       prefix,
		HistoryLimit: defaultHistoryLimit,
		HandleSigInt: true,
	}
	for _, opt := range opts {
		opt(&config)
	}

	prefs := config.Prefs
	if prefs == nil && config.PrefsFile != "" {
		loaded, err := LoadPrefs(config.PrefsFile)
		if err != nil {
			return nil, err
		}
		prefs = loaded
	}
	if prefs == nil {
		prefs = DefaultPrefs()
	}

	history := newHistory(config.HistoryFile, config.HistoryLimit)
	if err := history.Load(); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var out io.Writer = os.Stdout
	if runtime.GOOS == "windows" {
		out = colorable.NewColorableStdout()
	}

	return &Session{
		config:  config,
		prefs:   prefs,
		history: history,
		in:      os.Stdin,
		out:     out,
	}, nil
}

// ReadLine reads one line. The read path is chosen per call from whether
// the input and output streams are attached to a terminal:
//
//   - both terminals: the full interactive editor
//   - input not a terminal: prompt, then one buffered UTF-8 line
//   - input a terminal, output not: a raw character-echo loop with no
//     editing, sharing the interactive event source so Ctrl+C still cancels
//
// A successful non-blank line is appended to history. ErrEOF reports that
// the input is exhausted; ErrInterrupted reports a Ctrl+C cancellation.
func (s *Session) ReadLine(ctx context.Context) (string, error) {
	inTerm := s.inputIsTerminal()
	outTerm := s.outputIsTerminal()

	var line string
	var err error
	switch {
	case inTerm && outTerm:
		line, err = s.readInteractive(ctx)
	case inTerm && !outTerm:
		line, err = s.readEcho(ctx)
	default:
		line, err = s.readBuffered(outTerm)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		s.history.Add(line)
	}
	return line, nil
}

// readInteractive runs the editing state machine on a raw terminal. Raw
// mode and the event source are scoped to exactly this call and are torn
// down on every exit path.
func (s *Session) readInteractive(ctx context.Context) (string, error) {
	t, err := s.openTerminal()
	if err != nil {
		return "", fmt.Errorf("failed to open terminal: %w", err)
	}
	if err := t.SetRaw(); err != nil {
		return "", fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() {
		if err := t.Restore(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to restore terminal: %v\n", err)
		}
	}()

	events := openEventSource(t, s.openKeyReader(t), s.config.HandleSigInt)
	defer events.Close()

	width, _, _ := t.Size()
	sc := &SessionContext{
		Prefs:     s.prefs,
		prefix:    s.config.Prefix,
		renderer:  newRenderer(t.Output(), width, s.prefs.BellStyle),
		history:   s.history,
		completer: s.config.Completer,
	}

	var km *KeyMap
	switch s.prefs.EditMode {
	case EditVi:
		km = newViMap(sc)
	default:
		km = newEmacsMap(sc)
	}
	return runDriver(ctx, sc, events.Events(), newLine(), km)
}

// readBuffered is the degraded path for non-terminal input: write the
// prompt, then read one line. End of stream before any character is the
// explicit no-more-input result.
func (s *Session) readBuffered(outTerm bool) (string, error) {
	if err := s.writePrompt(outTerm); err != nil {
		return "", err
	}
	if s.reader == nil {
		s.reader = bufio.NewReader(s.in)
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", ErrEOF
			}
			// Final line without a trailing newline.
			return line, nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// readEcho is the degraded path for terminal input with non-terminal
// output: a raw character-echo loop sharing the interactive event source,
// so interrupts are still caught. Each character is echoed verbatim as it
// is read; no line editing is available. The end-of-input key terminates
// only while the buffer is still empty.
func (s *Session) readEcho(ctx context.Context) (string, error) {
	t, err := s.openTerminal()
	if err != nil {
		return "", fmt.Errorf("failed to open terminal: %w", err)
	}
	if err := t.SetRaw(); err != nil {
		return "", fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() {
		if err := t.Restore(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to restore terminal: %v\n", err)
		}
	}()

	events := openEventSource(t, s.openKeyReader(t), s.config.HandleSigInt)
	defer events.Close()

	var buf []rune
	for {
		var ev Event
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev = <-events.Events():
		}
		switch ev.Kind {
		case EventInterrupt:
			return "", ErrInterrupted
		case EventResize:
			// No layout to maintain in this mode.
		case EventError:
			if errors.Is(ev.Err, io.EOF) {
				if len(buf) == 0 {
					return "", ErrEOF
				}
				return string(buf), nil
			}
			return "", fmt.Errorf("failed to read input: %w", ev.Err)
		case EventKey:
			if ev.Key.Seq != "" {
				continue
			}
			switch r := ev.Key.Rune; r {
			case '\r', '\n':
				if _, err := io.WriteString(s.out, "\n"); err != nil {
					return "", err
				}
				return string(buf), nil
			case 0x04:
				if len(buf) == 0 {
					return "", ErrEOF
				}
			default:
				buf = append(buf, r)
				if _, err := io.WriteString(s.out, string(r)); err != nil {
					return "", err
				}
			}
		}
	}
}

func (s *Session) writePrompt(outTerm bool) error {
	if outTerm {
		// A terminal that fails to open is not fatal here: the prompt
		// falls through to the raw stream below.
		if t, err := s.openTerminal(); err == nil {
			_, err := io.WriteString(t.Output(), s.config.Prefix)
			return err
		}
	}
	if _, err := io.WriteString(s.out, s.config.Prefix); err != nil {
		return err
	}
	return s.flush()
}

// Write sends program output through the session. When the output stream
// is a terminal it is routed through the terminal writer so the layout
// bookkeeping stays consistent; otherwise it is raw UTF-8, flushed
// explicitly.
func (s *Session) Write(p []byte) (int, error) {
	if s.outputIsTerminal() && s.terminal != nil {
		return s.terminal.Output().Write(p)
	}
	n, err := s.out.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.flush()
}

// WriteString is a convenience wrapper around Write.
func (s *Session) WriteString(text string) (int, error) {
	return s.Write([]byte(text))
}

func (s *Session) flush() error {
	type flusher interface{ Flush() error }
	if f, ok := s.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// History returns the session's history collaborator.
func (s *Session) History() *History {
	return s.history
}

// Close saves the history and releases the terminal. Safe to call more
// than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.history.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
	}
	if s.keys != nil {
		s.keys.Close()
	}
	if s.terminal != nil {
		return s.terminal.Close()
	}
	return nil
}

func (s *Session) openTerminal() (terminalInterface, error) {
	if s.terminal != nil {
		return s.terminal, nil
	}
	t, err := newRealTerminal()
	if err != nil {
		return nil, err
	}
	s.terminal = t
	return t, nil
}

// openKeyReader starts the terminal's decode loop on first use. Reads on
// the cached terminal all share it: starting a second reader on the same
// device would let a stale goroutine steal the next keystroke.
func (s *Session) openKeyReader(t terminalInterface) *keyReader {
	if s.keys == nil {
		s.keys = newKeyReader(t)
	}
	return s.keys
}

func (s *Session) inputIsTerminal() bool {
	if s.forceInTerm != nil {
		return *s.forceInTerm
	}
	return streamIsTerminal(s.in)
}

func (s *Session) outputIsTerminal() bool {
	if s.forceOutTerm != nil {
		return *s.forceOutTerm
	}
	return streamIsTerminal(s.out)
}

func streamIsTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// OnInterrupt runs read and, when it was cancelled with ErrInterrupted,
// substitutes the fallback computation. Any other outcome passes through
// untouched.
//
// Example:
//
//	line, err := readline.OnInterrupt(
//		func() (string, error) { return s.ReadLine(ctx) },
//		func() (string, error) { return "", nil },
//	)
func OnInterrupt(read func() (string, error), fallback func() (string, error)) (string, error) {
	line, err := read()
	if errors.Is(err, ErrInterrupted) {
		return fallback()
	}
	return line, err
}
