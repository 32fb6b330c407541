package readline

// viMode holds the per-read state of the Vi key tables. Insert and command
// phases are separate KeyMaps over the same mode value; every transition
// between them is an explicit next-map handoff, so the driver never needs
// to know which phase it is in.
type viMode struct {
	sc        *SessionContext
	insertKM  *KeyMap
	commandKM *KeyMap
	hist      []string
	histIdx   int
	stash     string
	count     int    // pending count for command-mode motions
	regionMul int    // count typed before d, multiplied with the region's own
	yank      string // delete buffer, for p/P
	undo      *Line  // line before the last destructive command
}

// newViMap builds the Vi key tables for one read. Editing starts in insert
// phase, the way line-oriented vi bindings conventionally do.
func newViMap(sc *SessionContext) *KeyMap {
	m := &viMode{sc: sc, hist: sc.historyEntries()}
	m.histIdx = len(m.hist)
	m.insertKM = m.buildInsertMap()
	m.commandKM = m.buildCommandMap()
	return m.insertKM
}

func (m *viMode) buildInsertMap() *KeyMap {
	km := newKeyMap()
	km.fallback = m.selfInsert
	km.bind('\r', m.submit)
	km.bind('\n', m.submit)
	km.bind(0x03, m.cancel)
	km.bind(0x04, m.eofIfEmpty)
	km.bind(0x1b, m.toCommand) // ESC
	km.bind('\t', m.complete)
	km.bind(0x7f, m.backspace)
	km.bind('\b', m.backspace)
	km.bind(0x17, m.killWordBack) // Ctrl+W
	km.bind(0x15, m.killToStart)  // Ctrl+U
	km.bindSeq("[C", m.moveRightIns)
	km.bindSeq("[D", m.moveLeftIns)
	km.bindSeq("[A", m.historyUp)
	km.bindSeq("[B", m.historyDown)
	km.bindSeq("[3~", m.deleteUnderIns)
	return km
}

func (m *viMode) buildCommandMap() *KeyMap {
	km := newKeyMap()

	km.bind('\r', m.submit)
	km.bind('\n', m.submit)
	km.bind(0x03, m.cancel)
	km.bind(0x04, m.eofIfEmpty)

	// phase switches
	km.bind('i', m.insertHere)
	km.bind('a', m.insertAfter)
	km.bind('I', m.insertAtStart)
	km.bind('A', m.insertAtEnd)

	// motions
	km.bind('h', m.motion(func(l *Line) *Line { return l.moveLeft() }))
	km.bind('l', m.motion(func(l *Line) *Line { return l.moveRight() }))
	km.bind(' ', m.motion(func(l *Line) *Line { return l.moveRight() }))
	km.bind('0', m.zero)
	km.bind('^', m.motion(func(l *Line) *Line { return l.moveHome() }))
	km.bind('$', m.motion(func(l *Line) *Line { return l.moveEnd() }))
	km.bind('b', m.motion(func(l *Line) *Line { return l.moveWordLeft() }))
	km.bind('w', m.motion(func(l *Line) *Line { return l.moveWordRight() }))
	km.bind('e', m.motion(func(l *Line) *Line { return l.moveWordEnd() }))
	km.bindSeq("[C", m.motion(func(l *Line) *Line { return l.moveRight() }))
	km.bindSeq("[D", m.motion(func(l *Line) *Line { return l.moveLeft() }))

	// counts
	for d := '1'; d <= '9'; d++ {
		km.bind(d, m.digit)
	}

	// edits
	km.bind('x', m.deleteUnder)
	km.bind('X', m.deleteBefore)
	km.bind('D', m.deleteToEnd)
	km.bind('d', m.startDelete)
	km.bind('r', m.startReplace)
	km.bind('p', m.pasteAfter)
	km.bind('P', m.pasteBefore)
	km.bind('u', m.undoLast)

	// history
	km.bind('k', m.historyUp)
	km.bind('j', m.historyDown)
	km.bindSeq("[A", m.historyUp)
	km.bindSeq("[B", m.historyDown)

	return km
}

// takeCount consumes the pending count, defaulting to one.
func (m *viMode) takeCount() int {
	n := m.count
	m.count = 0
	if n <= 0 {
		return 1
	}
	return n
}

// takeRegionCount consumes both counts of a pending delete. The count
// before d multiplies the one after it, so 2d3w spans six words.
func (m *viMode) takeRegionCount() int {
	n := m.regionMul * m.takeCount()
	m.regionMul = 0
	if n <= 0 {
		return 1
	}
	return n
}

// remember stashes the line for the single-level undo.
func (m *viMode) remember(l *Line) {
	m.undo = l
}

// insert-phase handlers

func (m *viMode) selfInsert(k Key, s LineState, _ *SessionContext) KeyResult {
	m.histIdx = len(m.hist)
	return cont(change(asLine(s).insert(k.Rune)))
}

func (m *viMode) submit(_ Key, s LineState, _ *SessionContext) KeyResult {
	return final(asLine(s).Text())
}

func (m *viMode) cancel(_ Key, _ LineState, _ *SessionContext) KeyResult {
	return abort(ErrInterrupted)
}

func (m *viMode) eofIfEmpty(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	if line.empty() {
		return abort(ErrEOF)
	}
	return cont(ringBell(line))
}

func (m *viMode) toCommand(_ Key, s LineState, _ *SessionContext) KeyResult {
	// Entering command phase steps the cursor back onto the last typed
	// rune, vi style.
	return contTo(change(asLine(s).moveLeft()), m.commandKM)
}

func (m *viMode) complete(_ Key, s LineState, sc *SessionContext) KeyResult {
	return cont(completeLine(asLine(s), sc))
}

func (m *viMode) backspace(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, ok := asLine(s).deleteBack()
	if !ok {
		return cont(ringBell(line))
	}
	return cont(change(line))
}

func (m *viMode) killWordBack(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, _ := asLine(s).deleteWordBack()
	return cont(change(line))
}

func (m *viMode) killToStart(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, _ := asLine(s).killToStart()
	return cont(change(line))
}

func (m *viMode) moveLeftIns(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).moveLeft()))
}

func (m *viMode) moveRightIns(_ Key, s LineState, _ *SessionContext) KeyResult {
	return cont(change(asLine(s).moveRight()))
}

func (m *viMode) deleteUnderIns(_ Key, s LineState, _ *SessionContext) KeyResult {
	line, _ := asLine(s).deleteForward()
	return cont(change(line))
}

// command-phase handlers

func (m *viMode) insertHere(_ Key, s LineState, _ *SessionContext) KeyResult {
	m.count = 0
	return contTo(change(asLine(s)), m.insertKM)
}

func (m *viMode) insertAfter(_ Key, s LineState, _ *SessionContext) KeyResult {
	m.count = 0
	return contTo(change(asLine(s).moveRight()), m.insertKM)
}

func (m *viMode) insertAtStart(_ Key, s LineState, _ *SessionContext) KeyResult {
	m.count = 0
	return contTo(change(asLine(s).moveHome()), m.insertKM)
}

func (m *viMode) insertAtEnd(_ Key, s LineState, _ *SessionContext) KeyResult {
	m.count = 0
	return contTo(change(asLine(s).moveEnd()), m.insertKM)
}

func (m *viMode) motion(move func(*Line) *Line) Handler {
	return func(_ Key, s LineState, _ *SessionContext) KeyResult {
		line := asLine(s)
		for range m.takeCount() {
			line = move(line)
		}
		return cont(change(line))
	}
}

func (m *viMode) digit(k Key, s LineState, _ *SessionContext) KeyResult {
	m.count = m.count*10 + int(k.Rune-'0')
	return cont(change(asLine(s)))
}

// zero is a motion unless a count is pending, in which case it is a digit.
func (m *viMode) zero(k Key, s LineState, sc *SessionContext) KeyResult {
	if m.count > 0 {
		return m.digit(k, s, sc)
	}
	return cont(change(asLine(s).moveHome()))
}

func (m *viMode) deleteUnder(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	m.remember(line)
	deleted := make([]rune, 0, 1)
	for range m.takeCount() {
		next, ok := line.deleteForward()
		if !ok {
			break
		}
		deleted = append(deleted, []rune(line.Content())[line.CursorOffset()])
		line = next
	}
	if len(deleted) == 0 {
		return cont(ringBell(line))
	}
	m.yank = string(deleted)
	return cont(change(line))
}

func (m *viMode) deleteBefore(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	m.remember(line)
	changed := false
	for range m.takeCount() {
		next, ok := line.deleteBack()
		if !ok {
			break
		}
		line = next
		changed = true
	}
	if !changed {
		return cont(ringBell(line))
	}
	return cont(change(line))
}

func (m *viMode) deleteToEnd(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	m.remember(line)
	m.count = 0
	next, killed := line.killToEnd()
	if killed != "" {
		m.yank = killed
	}
	return cont(change(next))
}

// startDelete enters the pending-delete sub-map: the next keys name the
// region to delete, optionally prefixed with its own count.
func (m *viMode) startDelete(_ Key, s LineState, _ *SessionContext) KeyResult {
	m.regionMul = m.takeCount()
	km := newKeyMap()
	km.bind('d', m.deleteLine)
	km.bind('w', m.deleteWord)
	km.bind('$', m.deleteRest)
	km.bind('0', m.pendingZero)
	for d := '1'; d <= '9'; d++ {
		km.bind(d, m.digit)
	}
	km.fallback = m.abortPending
	km.bind(0x1b, m.abortPending)
	return contTo(change(asLine(s)), km)
}

// pendingZero is d0 unless count digits came first, in which case it
// extends the count.
func (m *viMode) pendingZero(k Key, s LineState, sc *SessionContext) KeyResult {
	if m.count > 0 {
		return m.digit(k, s, sc)
	}
	return m.deleteToStart(k, s, sc)
}

func (m *viMode) deleteLine(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	m.remember(line)
	m.count, m.regionMul = 0, 0
	if text := line.Text(); text != "" {
		m.yank = text
	}
	return contTo(change(newLine()), m.commandKM)
}

func (m *viMode) deleteWord(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	m.remember(line)
	killed := ""
	for range m.takeRegionCount() {
		next, k := line.deleteWordForward()
		if k == "" {
			break
		}
		killed += k
		line = next
	}
	if killed != "" {
		m.yank = killed
	}
	return contTo(change(line), m.commandKM)
}

func (m *viMode) deleteRest(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	m.remember(line)
	m.count, m.regionMul = 0, 0
	next, killed := line.killToEnd()
	if killed != "" {
		m.yank = killed
	}
	return contTo(change(next), m.commandKM)
}

func (m *viMode) deleteToStart(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	m.remember(line)
	m.count, m.regionMul = 0, 0
	next, killed := line.killToStart()
	if killed != "" {
		m.yank = killed
	}
	return contTo(change(next), m.commandKM)
}

func (m *viMode) abortPending(_ Key, s LineState, _ *SessionContext) KeyResult {
	m.count, m.regionMul = 0, 0
	return contTo(ringBell(asLine(s)), m.commandKM)
}

// startReplace enters the pending-replace sub-map: the next printable rune
// overwrites the one under the cursor.
func (m *viMode) startReplace(_ Key, s LineState, _ *SessionContext) KeyResult {
	km := newKeyMap()
	km.fallback = m.replaceWith
	km.bind(0x1b, m.abortPending)
	return contTo(change(asLine(s)), km)
}

func (m *viMode) replaceWith(k Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	m.remember(line)
	m.count = 0
	return contTo(change(line.replaceUnder(k.Rune)), m.commandKM)
}

func (m *viMode) pasteAfter(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	if m.yank == "" {
		return cont(ringBell(line))
	}
	m.remember(line)
	m.count = 0
	return cont(change(line.moveRight().insertText(m.yank).moveLeft()))
}

func (m *viMode) pasteBefore(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	if m.yank == "" {
		return cont(ringBell(line))
	}
	m.remember(line)
	m.count = 0
	return cont(change(line.insertText(m.yank).moveLeft()))
}

func (m *viMode) undoLast(_ Key, s LineState, _ *SessionContext) KeyResult {
	line := asLine(s)
	if m.undo == nil {
		return cont(ringBell(line))
	}
	restored := m.undo
	m.undo = line
	return cont(change(restored))
}

func (m *viMode) historyUp(_ Key, s LineState, _ *SessionContext) KeyResult {
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

func (m *viMode) historyDown(_ Key, s LineState, _ *SessionContext) KeyResult {
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
