package readline

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// WindowSize is the terminal geometry reported by the resize watcher.
type WindowSize struct {
	Width  int
	Height int
}

// gridPos is a cell position within the prompt layout, relative to the cell
// the prefix starts at. Row 0, column 0 is the layout origin.
type gridPos struct {
	row int
	col int
}

// renderer executes draw operations against the terminal. It owns the layout
// geometry: how the prefix and line content wrap across physical rows at the
// current terminal width, and where the cursor sits within that layout.
//
// The central operation is drawLineDiff, which rewrites only the cells that
// differ between two LineStates. Every other draw operation is defined in
// terms of it: drawLine is a diff from the Cleared sentinel, clearLine is a
// diff to it. The invariant maintained across all operations is that the
// visible screen content after a dispatch is identical to a fresh render of
// the successor state, no matter how many rows the text wraps across.
type renderer struct {
	out   io.Writer
	width int
	bell  BellStyle
	rows  int // rows occupied by the layout drawn last
}

func newRenderer(out io.Writer, width int, bell BellStyle) *renderer {
	if width <= 0 {
		width = 80
	}
	return &renderer{out: out, width: width, bell: bell, rows: 1}
}

// cellWidth reports how many terminal columns r occupies once rendered.
// Control runes render in caret notation (^A) and take two columns; other
// widths come from go-runewidth so East Asian wide runes stay intact.
func cellWidth(r rune) int {
	if r < 32 || r == 0x7f {
		return 2
	}
	return runewidth.RuneWidth(r)
}

// expandRune returns the byte representation actually written for r.
func expandRune(r rune) string {
	if r == 0x7f {
		return "^?"
	}
	if r < 32 {
		return "^" + string('@'+r)
	}
	return string(r)
}

// visualWidth is the total column count of s after caret expansion.
func visualWidth(s string) int {
	w := 0
	for _, r := range s {
		w += cellWidth(r)
	}
	return w
}

func (r *renderer) emit(s string) error {
	_, err := io.WriteString(r.out, s)
	return err
}

// layoutRunes returns the full cell content of a state's layout, prefix
// included. The Cleared sentinel has no layout at all.
func layoutRunes(prefix string, s LineState) []rune {
	if isCleared(s) {
		return nil
	}
	return []rune(prefix + s.Content())
}

func cursorIndex(prefix string, s LineState) int {
	if isCleared(s) {
		return 0
	}
	return len([]rune(prefix)) + s.CursorOffset()
}

// posAt computes the grid position of the rune at index idx, applying the
// same wrap rules writeRunes uses: a rune that does not fit in the remaining
// columns wraps early, and an exactly filled row wraps immediately so the
// column always stays strictly below the width.
func (r *renderer) posAt(runes []rune, idx int) gridPos {
	var p gridPos
	for i := 0; i < idx && i < len(runes); i++ {
		w := cellWidth(runes[i])
		if p.col+w > r.width {
			p.row++
			p.col = 0
		}
		p.col += w
		if p.col >= r.width {
			p.row++
			p.col = 0
		}
	}
	return p
}

func (r *renderer) endPos(runes []rune) gridPos {
	return r.posAt(runes, len(runes))
}

// moveCursor emits the escape codes taking the cursor from one grid
// position to another. Nothing is emitted when the positions coincide.
func (r *renderer) moveCursor(from, to gridPos) error {
	var b strings.Builder
	if to.row < from.row {
		fmt.Fprintf(&b, "\x1b[%dA", from.row-to.row)
	} else if to.row > from.row {
		fmt.Fprintf(&b, "\x1b[%dB", to.row-from.row)
	}
	if to.col != from.col || to.row != from.row {
		b.WriteString("\r")
		if to.col > 0 {
			fmt.Fprintf(&b, "\x1b[%dC", to.col)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	return r.emit(b.String())
}

// writeRunes writes cells starting at p, emitting explicit wraps so the
// geometry never depends on the terminal's auto-wrap behavior. A wide rune
// that does not fit in the remaining columns clears the rest of the row
// before wrapping so no stale cell survives there.
func (r *renderer) writeRunes(p gridPos, runes []rune) (gridPos, error) {
	var b strings.Builder
	for _, rn := range runes {
		w := cellWidth(rn)
		if p.col+w > r.width {
			b.WriteString("\x1b[K\r\n")
			p.row++
			p.col = 0
		}
		b.WriteString(expandRune(rn))
		p.col += w
		if p.col >= r.width {
			b.WriteString("\r\n")
			p.row++
			p.col = 0
		}
	}
	if b.Len() == 0 {
		return p, nil
	}
	return p, r.emit(b.String())
}

func commonPrefixLen(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// drawLineDiff updates the screen from one state to another, touching only
// the cells after the first point of divergence. Passing Cleared as from is
// a full draw; passing Cleared as to erases the layout and leaves the cursor
// at the origin.
func (r *renderer) drawLineDiff(prefix string, from, to LineState) error {
	fromRunes := layoutRunes(prefix, from)
	toRunes := layoutRunes(prefix, to)

	n := commonPrefixLen(fromRunes, toRunes)
	cur := r.posAt(fromRunes, cursorIndex(prefix, from))
	split := r.posAt(toRunes, n)
	if err := r.moveCursor(cur, split); err != nil {
		return err
	}
	cur, err := r.writeRunes(split, toRunes[n:])
	if err != nil {
		return err
	}

	// Wipe whatever the old layout had beyond the new one.
	fromEnd := r.endPos(fromRunes)
	if fromEnd.row > cur.row || (fromEnd.row == cur.row && fromEnd.col > cur.col) {
		if err := r.emit("\x1b[K"); err != nil {
			return err
		}
		for row := cur.row + 1; row <= fromEnd.row; row++ {
			if err := r.emit("\x1b[B\r\x1b[K"); err != nil {
				return err
			}
			cur = gridPos{row: row, col: 0}
		}
	}

	target := r.posAt(toRunes, cursorIndex(prefix, to))
	if err := r.moveCursor(cur, target); err != nil {
		return err
	}
	r.rows = r.endPos(toRunes).row + 1
	return nil
}

// drawLine draws s from scratch, assuming the cursor sits at the layout
// origin of an empty region.
func (r *renderer) drawLine(prefix string, s LineState) error {
	return r.drawLineDiff(prefix, Cleared, s)
}

// clearLine erases the layout of s and leaves the cursor at the origin.
func (r *renderer) clearLine(prefix string, s LineState) error {
	return r.drawLineDiff(prefix, s, Cleared)
}

// clearLayout moves to the layout origin and wipes everything below it.
func (r *renderer) clearLayout(prefix string, s LineState) error {
	cur := r.posAt(layoutRunes(prefix, s), cursorIndex(prefix, s))
	if err := r.moveCursor(cur, gridPos{}); err != nil {
		return err
	}
	r.rows = 1
	return r.emit("\x1b[J")
}

// moveToNextLine ends the visual segment: the cursor drops below the last
// row of the layout and the layout is abandoned to the scrollback.
func (r *renderer) moveToNextLine(prefix string, s LineState) error {
	runes := layoutRunes(prefix, s)
	cur := r.posAt(runes, cursorIndex(prefix, s))
	last := r.endPos(runes)
	if err := r.moveCursor(cur, last); err != nil {
		return err
	}
	r.rows = 1
	return r.emit("\r\n")
}

// reposition recomputes the layout for a new terminal width and redraws the
// state in place. No edit is applied.
func (r *renderer) reposition(size WindowSize, prefix string, s LineState) error {
	if err := r.clearLayout(prefix, s); err != nil {
		return err
	}
	if size.Width > 0 {
		r.width = size.Width
	}
	return r.drawLine(prefix, s)
}

// ringBell emits the bell per the configured style. BellNone emits zero
// bytes.
func (r *renderer) ringBell() error {
	switch r.bell {
	case BellNone:
		return nil
	case BellVisual:
		return r.emit("\x1b[?5h\x1b[?5l")
	default:
		return r.emit("\a")
	}
}

// apply dispatches one Effect: the visual consequence of a key action,
// transitioning the screen from current to effect.Next.
func (r *renderer) apply(prefix string, e Effect, current LineState) error {
	switch e.Kind {
	case EffectRedraw:
		if e.Clear {
			if err := r.clearLayout(prefix, current); err != nil {
				return err
			}
		} else {
			if err := r.clearLine(prefix, current); err != nil {
				return err
			}
		}
		return r.drawLine(prefix, e.Next)
	case EffectPrintLines:
		if current.Temporary() {
			if err := r.clearLine(prefix, current); err != nil {
				return err
			}
		} else {
			if err := r.moveToNextLine(prefix, current); err != nil {
				return err
			}
		}
		for _, line := range e.Lines {
			if err := r.emit(line + "\r\n"); err != nil {
				return err
			}
		}
		return r.drawLine(prefix, e.Next)
	case EffectBell:
		if err := r.drawLineDiff(prefix, current, e.Next); err != nil {
			return err
		}
		return r.ringBell()
	default: // EffectChange
		return r.drawLineDiff(prefix, current, e.Next)
	}
}
