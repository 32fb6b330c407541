package readline

import "strings"

// emacsMode holds the per-read state of the Emacs key table: the history
// snapshot being browsed and the kill buffer. A fresh instance is created
// for every interactive read.
type emacsMode struct {
	sc      *SessionContext
	km      *KeyMap
	hist    []string
	histIdx int
	stash   string // in-progress line stashed while browsing history
	kill    string // last killed text, for Ctrl+Y
}

// newEmacsMap builds the Emacs key table for one read.
func newEmacsMap(sc *SessionContext) *KeyMap {
	m := &emacsMode{sc: sc, hist: sc.historyEntries()}
	m.histIdx = len(m.hist)
	m.km = m.buildMap()
	return m.km
}

func (m *emacsMode) buildMap() *KeyMap {
	km := newKeyMap()
	km.fallback = m.selfInsert

	km.bind('\r', m.submit)
	km.bind('\n', m.submit)
	km.bind(0x03, m.cancel)        // Ctrl+C (when not promoted to an event)
	km.bind(0x04, m.eofOrDelete)   // Ctrl+D
	km.bind(0x01, m.moveHome)      // Ctrl+A
	km.bind(0x05, m.moveEnd)       // Ctrl+E
	km.bind(0x02, m.moveLeft)      // Ctrl+B
	km.bind(0x06, m.moveRight)     // Ctrl+F
	km.bind(0x0b, m.killToEnd)     // Ctrl+K
	km.bind(0x15, m.killToStart)   // Ctrl+U
	km.bind(0x17, m.killWordBack)  // Ctrl+W
	km.bind(0x19, m.yank)          // Ctrl+Y
	km.bind(0x14, m.transpose)     // Ctrl+T
	km.bind(0x0c, m.clearScreen)   // Ctrl+L
	km.bind(0x10, m.historyUp)     // Ctrl+P
	km.bind(0x0e, m.historyDown)   // Ctrl+N
	km.bind(0x12, m.startSearch)   // Ctrl+R
	km.bind('\t', m.complete)      // Tab
	km.bind(0x7f, m.backspace)     // Backspace
	km.bind('\b', m.backspace)     // Ctrl+H

	km.bindSeq("[A", m.historyUp)
	km.bindSeq("[B", m.historyDown)
	km.bindSeq("[C", m.moveRight)
	km.bindSeq("[D", m.moveLeft)
	km.bindSeq("[H", m.moveHome)
	km.bindSeq("[F", m.moveEnd)
	km.bindSeq("[3~", m.deleteChar)
	km.bindSeq("[1;5C", m.wordRight) // Ctrl+Right
	km.bindSeq("[1;5D", m.wordLeft)  // Ctrl+Left
	km.bindSeq("b", m.wordLeft)      // Alt+B
	km.bindSeq("f", m.wordRight)     // Alt+F
	km.bindSeq("d", m.killWordForward)

	return km
}

// asLine coerces the driver state to the durable edit variant. The Emacs
// table is only ever active over *Line states.
func asLine(s LineState) *Line {
	if l, ok := s.(*Line); ok {
		return l
	}
	return newLine()
}

func (m *emacsMode) selfInsert(k Key, s LineState, _ *SessionContext) KeyResult {
	m.histIdx = len(m.hist)
	return cont(change(asLine(s).insert(k.Rune)))
}

func (m *emacsMode) submit(_ Key, s LineState, _ *SessionContext) KeyResult {
	return final(asLine(s).Text())
}

func (m *emacsMode) cancel(_ Key, _ LineState, _ *SessionContext) KeyResult {
	return abort(ErrInterrupted)
}

func (m *emacsMode) eofOrDelete(k Key, s LineState, sc *SessionContext) KeyResult {
	line := asLine(s)
	if line.empty() {
		return abort(ErrEOF)
	}
	return m.deleteChar(k, s, sc)
}

func (m *emacsMode) backspace(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, ok := asLine(s).deleteBack()
	if !ok {
		return cont(ringBell(line))
	}
	return cont(change(line))
}

func (m *emacsMode) deleteChar(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, ok := asLine(s).deleteForward()
	if !ok {
		return cont(ringBell(line))
	}
	return cont(change(line))
}

func (m *emacsMode) moveLeft(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).moveLeft()))
}

func (m *emacsMode) moveRight(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).moveRight()))
}

func (m *emacsMode) moveHome(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).moveHome()))
}

func (m *emacsMode) moveEnd(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).moveEnd()))
}

func (m *emacsMode) wordLeft(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).moveWordLeft()))
}

func (m *emacsMode) wordRight(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).moveWordRight()))
}

func (m *emacsMode) killToEnd(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, killed := asLine(s).killToEnd()
	if killed != "" {
		m.kill = killed
	}
	return cont(change(line))
}

func (m *emacsMode) killToStart(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, killed := asLine(s).killToStart()
	if killed != "" {
		m.kill = killed
	}
	return cont(change(line))
}

func (m *emacsMode) killWordBack(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, killed := asLine(s).deleteWordBack()
	if killed != "" {
		m.kill = killed
	}
	return cont(change(line))
}

func (m *emacsMode) killWordForward(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, killed := asLine(s).deleteWordForward()
	if killed != "" {
		m.kill = killed
	}
	return cont(change(line))
}

func (m *emacsMode) yank(_ Key, s LineState, _ *SessionContext) KeyResult {
	if m.kill == "" {
		return cont(ringBell(asLine(s)))
	}
	return cont(change(asLine(s).insertText(m.kill)))
}

func (m *emacsMode) transpose(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).transpose()))
}

func (m *emacsMode) clearScreen(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(redraw(true, asLine(s)))
}

func (m *emacsMode) complete(_ Key, s LineState, sc *SessionContext) KeyResult {
	return cont(completeLine(asLine(s), sc))
}

func (m *emacsMode) historyUp(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	if m.histIdx == 0 {
		return cont(ringBell(line))
	}
	if m.histIdx == len(m.hist) {
		m.stash = line.Text()
	}
	m.histIdx--
	return cont(change(lineOf(m.hist[m.histIdx])))
}

func (m *emacsMode) historyDown(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	if m.histIdx >= len(m.hist) {
		return cont(ringBell(line))
	}
	m.histIdx++
	if m.histIdx == len(m.hist) {
		return cont(change(lineOf(m.stash)))
	}
	return cont(change(lineOf(m.hist[m.histIdx])))
}

func (m *emacsMode) startSearch(_ Key, s LineState, _ *SessionContext) KeyResult {
	sm := &searchMode{
		resume: m.km,
		saved:  asLine(s),
		hist:   m.hist,
		idx:    len(m.hist),
	}
	return contTo(change(sm.state()), sm.buildMap())
}

// searchMode is the reverse-i-search sub-state entered with Ctrl+R. It owns
// its own KeyMap and threads a temporary searchState overlay through the
// driver; leaving it hands control back to the Emacs map.
type searchMode struct {
	resume *KeyMap
	saved  *Line // line to restore when the search is cancelled
	hist   []string
	query  []rune
	idx    int // index of the current match, len(hist) when none yet
	match  string
	failed bool
}

func (m *searchMode) buildMap() *KeyMap {
	km := newKeyMap()
	km.fallback = m.extend
	km.bind('\r', m.accept)
	km.bind('\n', m.accept)
	km.bind(0x1b, m.accept)   // ESC
	km.bind(0x07, m.cancel)   // Ctrl+G
	km.bind(0x03, m.cancel)   // Ctrl+C (when not promoted to an event)
	km.bind(0x12, m.previous) // Ctrl+R: older match
	km.bind(0x7f, m.shrink)
	km.bind('\b', m.shrink)
	return km
}

func (m *searchMode) state() *searchState {
	return &searchState{query: string(m.query), match: m.match, failed: m.failed}
}

// search finds the most recent entry before from containing the query.
func (m *searchMode) search(from int) {
	q := strings.ToLower(string(m.query))
	for i := from - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(m.hist[i]), q) {
			m.idx = i
			m.match = m.hist[i]
			m.failed = false
			return
		}
	}
	m.failed = true
}

func (m *searchMode) extend(k Key, _ LineState, _ *SessionContext) KeyResult {
	m.query = append(m.query, k.Rune)
	m.search(len(m.hist))
	return cont(change(m.state()))
}

func (m *searchMode) shrink(_ Key, _ LineState, _ *SessionContext) KeyResult {
	if len(m.query) == 0 {
		return cont(ringBell(m.state()))
	}
	m.query = m.query[:len(m.query)-1]
	m.failed = false
	m.match = ""
	m.idx = len(m.hist)
	if len(m.query) > 0 {
		m.search(len(m.hist))
	}
	return cont(change(m.state()))
}

func (m *searchMode) previous(_ Key, _ LineState, _ *SessionContext) KeyResult {
	if m.failed || len(m.query) == 0 {
		return cont(ringBell(m.state()))
	}
	from := m.idx
	if from > len(m.hist) {
		from = len(m.hist)
	}
	prevFailed := m.failed
	m.search(from)
	if m.failed && !prevFailed {
		// No older match; keep the current one.
		m.failed = false
		return cont(ringBell(m.state()))
	}
	return cont(change(m.state()))
}

// accept leaves search mode keeping the matched entry as the edit line.
func (m *searchMode) accept(_ Key, _ LineState, _ *SessionContext) KeyResult {
	line := m.saved
	if m.match != "" {
		line = lineOf(m.match)
	}
	return contTo(change(line), m.resume)
}

// cancel abandons the search and restores the original line.
func (m *searchMode) cancel(_ Key, _ LineState, _ *SessionContext) KeyResult {
	return contTo(change(m.saved), m.resume)
}
