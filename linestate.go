package readline

import "strings"

// LineState is a snapshot of what the editing region currently shows. The
// driver replaces it wholesale on every transition and the renderer diffs two
// snapshots to compute the minimal redraw. Implementations must be immutable
// once handed to the driver.
type LineState interface {
	// Content returns the visible text that follows the prompt prefix.
	Content() string
	// CursorOffset returns the rune offset of the cursor within Content.
	CursorOffset() int
	// Temporary reports whether the state is a transient overlay (such as
	// an incremental search prompt) that should be wiped rather than
	// scrolled away before printing extra lines.
	Temporary() bool
}

// Cleared is the canonical empty layout: nothing drawn, cursor at the origin.
// Diffing from Cleared is a full draw; diffing to Cleared is a full erase.
var Cleared LineState = clearedState{}

type clearedState struct{}

func (clearedState) Content() string   { return "" }
func (clearedState) CursorOffset() int { return 0 }
func (clearedState) Temporary() bool   { return false }

func isCleared(s LineState) bool {
	_, ok := s.(clearedState)
	return ok
}

// Line is the durable edit buffer used by the Emacs and Vi modes: the runes
// before the cursor and the runes after it. All editing operations return a
// fresh Line and leave the receiver untouched.
type Line struct {
	before []rune
	after  []rune
}

func newLine() *Line {
	return &Line{}
}

// lineOf builds a Line with the cursor at the end of text.
func lineOf(text string) *Line {
	return &Line{before: []rune(text)}
}

// Content implements LineState.
func (l *Line) Content() string {
	return string(l.before) + string(l.after)
}

// CursorOffset implements LineState.
func (l *Line) CursorOffset() int {
	return len(l.before)
}

// Temporary implements LineState.
func (l *Line) Temporary() bool {
	return false
}

// Text returns the whole buffer contents.
func (l *Line) Text() string {
	return l.Content()
}

func (l *Line) empty() bool {
	return len(l.before) == 0 && len(l.after) == 0
}

func (l *Line) clone() *Line {
	return &Line{
		before: append([]rune(nil), l.before...),
		after:  append([]rune(nil), l.after...),
	}
}

func (l *Line) insert(r rune) *Line {
	n := l.clone()
	n.before = append(n.before, r)
	return n
}

func (l *Line) insertText(text string) *Line {
	n := l.clone()
	n.before = append(n.before, []rune(text)...)
	return n
}

// deleteBack removes the rune before the cursor. The bool is false when the
// cursor is already at the start of the line.
func (l *Line) deleteBack() (*Line, bool) {
	if len(l.before) == 0 {
		return l, false
	}
	n := l.clone()
	n.before = n.before[:len(n.before)-1]
	return n, true
}

// deleteForward removes the rune under the cursor.
func (l *Line) deleteForward() (*Line, bool) {
	if len(l.after) == 0 {
		return l, false
	}
	n := l.clone()
	n.after = n.after[1:]
	return n, true
}

func (l *Line) moveLeft() *Line {
	if len(l.before) == 0 {
		return l
	}
	n := l.clone()
	r := n.before[len(n.before)-1]
	n.before = n.before[:len(n.before)-1]
	n.after = append([]rune{r}, n.after...)
	return n
}

func (l *Line) moveRight() *Line {
	if len(l.after) == 0 {
		return l
	}
	n := l.clone()
	r := n.after[0]
	n.after = n.after[1:]
	n.before = append(n.before, r)
	return n
}

func (l *Line) moveHome() *Line {
	if len(l.before) == 0 {
		return l
	}
	return &Line{after: append(append([]rune(nil), l.before...), l.after...)}
}

func (l *Line) moveEnd() *Line {
	if len(l.after) == 0 {
		return l
	}
	return &Line{before: append(append([]rune(nil), l.before...), l.after...)}
}

// moveTo places the cursor at the given rune offset, clamped to the buffer.
func (l *Line) moveTo(offset int) *Line {
	all := []rune(l.Content())
	if offset < 0 {
		offset = 0
	}
	if offset > len(all) {
		offset = len(all)
	}
	return &Line{
		before: append([]rune(nil), all[:offset]...),
		after:  append([]rune(nil), all[offset:]...),
	}
}

// isWordChar follows the usual editor convention: letters, digits and
// underscore belong to a word, everything else separates words.
func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// wordBoundary returns the rune offset of the next word boundary in the
// given direction (-1 backwards, +1 forwards) from the current cursor.
func (l *Line) wordBoundary(direction int) int {
	all := []rune(l.Content())
	pos := len(l.before)
	if direction > 0 {
		for pos < len(all) && !isWordChar(all[pos]) {
			pos++
		}
		for pos < len(all) && isWordChar(all[pos]) {
			pos++
		}
		return pos
	}
	if pos > 0 {
		pos--
	}
	for pos > 0 && !isWordChar(all[pos]) {
		pos--
	}
	for pos > 0 && isWordChar(all[pos-1]) {
		pos--
	}
	return pos
}

func (l *Line) moveWordLeft() *Line {
	return l.moveTo(l.wordBoundary(-1))
}

func (l *Line) moveWordRight() *Line {
	return l.moveTo(l.wordBoundary(1))
}

// moveWordEnd places the cursor on the last rune of the current or next
// word, vi "e" style.
func (l *Line) moveWordEnd() *Line {
	boundary := l.moveRight().wordBoundary(1)
	if boundary == 0 {
		return l
	}
	return l.moveTo(boundary - 1)
}

// deleteWordBack removes the word before the cursor and returns the removed
// text so the caller can stash it in a kill buffer.
func (l *Line) deleteWordBack() (*Line, string) {
	if len(l.before) == 0 {
		return l, ""
	}
	boundary := l.wordBoundary(-1)
	killed := string(l.before[boundary:])
	n := &Line{
		before: append([]rune(nil), l.before[:boundary]...),
		after:  append([]rune(nil), l.after...),
	}
	return n, killed
}

// deleteWordForward removes the word after the cursor.
func (l *Line) deleteWordForward() (*Line, string) {
	if len(l.after) == 0 {
		return l, ""
	}
	all := []rune(l.Content())
	cursor := len(l.before)
	boundary := l.wordBoundary(1)
	killed := string(all[cursor:boundary])
	n := &Line{
		before: append([]rune(nil), l.before...),
		after:  append([]rune(nil), all[boundary:]...),
	}
	return n, killed
}

// killToEnd removes everything from the cursor to the end of the line.
func (l *Line) killToEnd() (*Line, string) {
	if len(l.after) == 0 {
		return l, ""
	}
	killed := string(l.after)
	return &Line{before: append([]rune(nil), l.before...)}, killed
}

// killToStart removes everything from the start of the line to the cursor.
func (l *Line) killToStart() (*Line, string) {
	if len(l.before) == 0 {
		return l, ""
	}
	killed := string(l.before)
	return &Line{after: append([]rune(nil), l.after...)}, killed
}

// transpose swaps the two runes around the cursor, Ctrl+T style: the rune
// before the cursor moves past the rune under it and the cursor advances.
func (l *Line) transpose() *Line {
	if len(l.before) == 0 {
		return l
	}
	n := l.clone()
	if len(n.after) == 0 {
		if len(n.before) < 2 {
			return l
		}
		last := len(n.before) - 1
		n.before[last-1], n.before[last] = n.before[last], n.before[last-1]
		return n
	}
	r := n.after[0]
	n.after = n.after[1:]
	i := len(n.before) - 1
	n.before = append(n.before[:i], r, n.before[i])
	return n
}

// replaceUnder overwrites the rune under the cursor without moving it.
func (l *Line) replaceUnder(r rune) *Line {
	if len(l.after) == 0 {
		return l
	}
	n := l.clone()
	n.after[0] = r
	return n
}

// searchState renders an incremental reverse history search overlay in place
// of the normal edit line. It is temporary: printing extra lines wipes it
// instead of scrolling it away.
type searchState struct {
	query  string
	match  string
	failed bool
}

func (s *searchState) Content() string {
	var b strings.Builder
	if s.failed {
		b.WriteString("failing ")
	}
	b.WriteString("(reverse-i-search)`")
	b.WriteString(s.query)
	b.WriteString("': ")
	b.WriteString(s.match)
	return b.String()
}

func (s *searchState) CursorOffset() int {
	return len([]rune(s.Content()))
}

func (s *searchState) Temporary() bool {
	return true
}
