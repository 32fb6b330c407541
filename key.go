package readline

// Key is one decoded keystroke: either a single rune (printable or control
// character) or an escape sequence with the leading ESC stripped, such as
// "[A" for the up arrow or "b" for Alt+B.
type Key struct {
	Rune rune
	Seq  string
}

func keyRune(r rune) Key {
	return Key{Rune: r}
}

func keySeq(s string) Key {
	return Key{Seq: s}
}

func isPrintable(r rune) bool {
	return r >= 32 && r != 0x7f
}

// EffectKind tags the visual consequence of one key action.
type EffectKind int

const (
	// EffectChange diffs the current state against the successor. The
	// common case: never emits more output than a full redraw would.
	EffectChange EffectKind = iota
	// EffectRedraw erases the line region (or the whole layout when Clear
	// is set) and draws the successor from scratch.
	EffectRedraw
	// EffectPrintLines emits extra lines outside the editing region, then
	// draws the successor fresh.
	EffectPrintLines
	// EffectBell diffs to the successor and rings the bell.
	EffectBell
)

// Effect pairs an EffectKind with the successor LineState the screen must
// show once the effect has been applied.
type Effect struct {
	Kind  EffectKind
	Clear bool     // EffectRedraw: wipe the full multi-row layout first
	Lines []string // EffectPrintLines: emitted verbatim above the prompt
	Next  LineState
}

func change(next LineState) Effect {
	return Effect{Kind: EffectChange, Next: next}
}

func redraw(clear bool, next LineState) Effect {
	return Effect{Kind: EffectRedraw, Clear: clear, Next: next}
}

func printLines(lines []string, next LineState) Effect {
	return Effect{Kind: EffectPrintLines, Lines: lines, Next: next}
}

func ringBell(next LineState) Effect {
	return Effect{Kind: EffectBell, Next: next}
}

// KeyResult is what a handler produces for one keystroke: either a final
// outcome that ends the read (a submitted line, or a sentinel error such as
// ErrEOF), or an Effect to apply plus the KeyMap for the next keystroke.
type KeyResult struct {
	Done bool
	Line string
	Err  error

	Effect Effect
	Next   *KeyMap // nil keeps the current map
}

func final(line string) KeyResult {
	return KeyResult{Done: true, Line: line}
}

func abort(err error) KeyResult {
	return KeyResult{Done: true, Err: err}
}

func cont(e Effect) KeyResult {
	return KeyResult{Effect: e}
}

func contTo(e Effect, next *KeyMap) KeyResult {
	return KeyResult{Effect: e, Next: next}
}

// Handler reacts to one keystroke. It runs synchronously on the event loop
// and may call the completion and history collaborators.
type Handler func(k Key, s LineState, sc *SessionContext) KeyResult

// KeyMap maps keystrokes to handlers for one editing mode (or mode phase:
// the Vi module uses separate maps for insert and command state). A lookup
// miss leaves the state and map unchanged and rings the bell.
type KeyMap struct {
	bindings  map[rune]Handler
	sequences map[string]Handler
	fallback  Handler // printable runes with no explicit binding
}

func newKeyMap() *KeyMap {
	return &KeyMap{
		bindings:  make(map[rune]Handler),
		sequences: make(map[string]Handler),
	}
}

func (m *KeyMap) bind(r rune, h Handler) {
	m.bindings[r] = h
}

func (m *KeyMap) bindSeq(seq string, h Handler) {
	m.sequences[seq] = h
}

// lookup resolves a keystroke to its handler. Printable runes without an
// explicit binding fall back to the map's self-insert handler when one is
// installed.
func (m *KeyMap) lookup(k Key) (Handler, bool) {
	if k.Seq != "" {
		h, ok := m.sequences[k.Seq]
		return h, ok
	}
	if h, ok := m.bindings[k.Rune]; ok {
		return h, true
	}
	if m.fallback != nil && isPrintable(k.Rune) {
		return m.fallback, true
	}
	return nil, false
}
