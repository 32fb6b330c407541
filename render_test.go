package readline

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScreen is a minimal terminal emulator for the escape codes the
// renderer emits. It lets the tests assert on visible content and cursor
// position instead of raw byte streams.
type fakeScreen struct {
	width int
	cells [][]rune
	row   int
	col   int
	bells int
}

func newFakeScreen(width int) *fakeScreen {
	return &fakeScreen{width: width}
}

func (f *fakeScreen) ensureRow(row int) {
	for len(f.cells) <= row {
		f.cells = append(f.cells, nil)
	}
}

func (f *fakeScreen) put(r rune) {
	f.ensureRow(f.row)
	line := f.cells[f.row]
	w := runewidth.RuneWidth(r)
	for len(line) < f.col+w {
		line = append(line, ' ')
	}
	line[f.col] = r
	if w == 2 {
		line[f.col+1] = 0 // wide-rune continuation cell
	}
	f.cells[f.row] = line
	f.col += w
}

func (f *fakeScreen) clearToEOL() {
	f.ensureRow(f.row)
	if f.col < len(f.cells[f.row]) {
		f.cells[f.row] = f.cells[f.row][:f.col]
	}
}

func (f *fakeScreen) clearBelow() {
	f.clearToEOL()
	if f.row+1 < len(f.cells) {
		f.cells = f.cells[:f.row+1]
	}
}

// feed consumes renderer output.
func (f *fakeScreen) feed(s string) {
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\r':
			f.col = 0
		case '\n':
			f.row++
		case '\a':
			f.bells++
		case 0x1b:
			i += f.escape(runes[i+1:])
		default:
			f.put(r)
		}
	}
}

// escape interprets one CSI sequence and returns how many runes it used.
func (f *fakeScreen) escape(rest []rune) int {
	if len(rest) == 0 || rest[0] != '[' {
		return 0
	}
	j := 1
	for j < len(rest) && (rest[j] == '?' || rest[j] == ';' || (rest[j] >= '0' && rest[j] <= '9')) {
		j++
	}
	if j >= len(rest) {
		return j
	}
	arg := 1
	if n, err := strconv.Atoi(string(rest[1:j])); err == nil {
		arg = n
	}
	switch rest[j] {
	case 'A':
		f.row -= arg
		if f.row < 0 {
			f.row = 0
		}
	case 'B':
		f.row += arg
	case 'C':
		f.col += arg
	case 'D':
		f.col -= arg
		if f.col < 0 {
			f.col = 0
		}
	case 'K':
		f.clearToEOL()
	case 'J':
		f.clearBelow()
	case 'h', 'l': // visual bell toggles, no cell change
	}
	return j + 1
}

// content returns the visible rows, trailing blanks trimmed.
func (f *fakeScreen) content() []string {
	rows := make([]string, 0, len(f.cells))
	for _, line := range f.cells {
		var b strings.Builder
		for _, c := range line {
			if c == 0 {
				continue
			}
			b.WriteRune(c)
		}
		rows = append(rows, strings.TrimRight(b.String(), " "))
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	return rows
}

type cursorPos struct{ row, col int }

func (f *fakeScreen) cursor() cursorPos {
	return cursorPos{row: f.row, col: f.col}
}

// renderFresh draws s on a blank screen and returns the screen.
func renderFresh(t *testing.T, width int, prefix string, s LineState) *fakeScreen {
	t.Helper()
	var buf bytes.Buffer
	r := newRenderer(&buf, width, BellNone)
	require.NoError(t, r.drawLine(prefix, s))
	screen := newFakeScreen(width)
	screen.feed(buf.String())
	return screen
}

func lineAt(text string, cursor int) *Line {
	return lineOf(text).moveTo(cursor)
}

func TestDrawLineDiffMatchesFullRedraw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		width  int
		prefix string
		from   LineState
		to     LineState
	}{
		{
			name:   "append one rune",
			width:  80,
			prefix: "$ ",
			from:   lineAt("hell", 4),
			to:     lineAt("hello", 5),
		},
		{
			name:   "delete in the middle",
			width:  80,
			prefix: "$ ",
			from:   lineAt("hello", 3),
			to:     lineAt("helo", 2),
		},
		{
			name:   "cursor move only",
			width:  80,
			prefix: "> ",
			from:   lineAt("hello", 5),
			to:     lineAt("hello", 0),
		},
		{
			name:   "replace everything",
			width:  80,
			prefix: "> ",
			from:   lineAt("make build", 10),
			to:     lineAt("git status", 10),
		},
		{
			name:   "shrink across wrapped rows",
			width:  10,
			prefix: "$ ",
			from:   lineAt("abcdefghijklmnopqrstuvwxyz", 26),
			to:     lineAt("abc", 3),
		},
		{
			name:   "grow across wrapped rows",
			width:  10,
			prefix: "$ ",
			from:   lineAt("abc", 3),
			to:     lineAt("abcdefghijklmnopqrstuvwxyz", 26),
		},
		{
			name:   "wide runes wrap without splitting",
			width:  10,
			prefix: "$ ",
			from:   lineAt("日本語テキスト", 7),
			to:     lineAt("日本語テキスト編集", 9),
		},
		{
			name:   "control rune renders as caret",
			width:  80,
			prefix: "$ ",
			from:   lineAt("a", 1),
			to:     lineAt("a\x01b", 3),
		},
		{
			name:   "from empty prompt",
			width:  80,
			prefix: "% ",
			from:   newLine(),
			to:     lineAt("quit", 4),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			r := newRenderer(&buf, tt.width, BellNone)
			require.NoError(t, r.drawLine(tt.prefix, tt.from))
			require.NoError(t, r.drawLineDiff(tt.prefix, tt.from, tt.to))

			got := newFakeScreen(tt.width)
			got.feed(buf.String())

			want := renderFresh(t, tt.width, tt.prefix, tt.to)
			assert.Equal(t, want.content(), got.content(), "diffed screen must equal a fresh render")
			assert.Equal(t, want.cursor(), got.cursor(), "cursor must land where a fresh render puts it")
		})
	}
}

func TestDrawLineDiffToCleared(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newRenderer(&buf, 10, BellNone)
	state := lineAt("abcdefghijklmnop", 16)
	require.NoError(t, r.drawLine("$ ", state))
	require.NoError(t, r.clearLine("$ ", state))

	screen := newFakeScreen(10)
	screen.feed(buf.String())
	assert.Empty(t, screen.content(), "clearing must leave a blank screen")
	assert.Equal(t, cursorPos{}, screen.cursor(), "cursor must return to the origin")
}

func TestDrawLineDiffIsNoLargerThanRedraw(t *testing.T) {
	t.Parallel()

	from := lineAt("hello world", 11)
	to := lineAt("hello worlds", 12)

	var diffOut bytes.Buffer
	r1 := newRenderer(&diffOut, 80, BellNone)
	require.NoError(t, r1.drawLine("$ ", from))
	diffOut.Reset()
	require.NoError(t, r1.drawLineDiff("$ ", from, to))

	var fullOut bytes.Buffer
	r2 := newRenderer(&fullOut, 80, BellNone)
	require.NoError(t, r2.drawLine("$ ", from))
	fullOut.Reset()
	require.NoError(t, r2.clearLine("$ ", from))
	require.NoError(t, r2.drawLine("$ ", to))

	assert.LessOrEqual(t, diffOut.Len(), fullOut.Len(), "a diff must never cost more than a full redraw")
}

func TestRingBellStyles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bell BellStyle
		want string
	}{
		{name: "audible", bell: BellAudible, want: "\a"},
		{name: "visual", bell: BellVisual, want: "\x1b[?5h\x1b[?5l"},
		{name: "none emits zero bytes", bell: BellNone, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			r := newRenderer(&buf, 80, tt.bell)
			require.NoError(t, r.ringBell())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestApplyPrintLinesDurableState(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newRenderer(&buf, 40, BellNone)
	state := lineAt("ls", 2)
	require.NoError(t, r.drawLine("$ ", state))

	effect := printLines([]string{"file.go", "file_test.go"}, state)
	require.NoError(t, r.apply("$ ", effect, state))

	screen := newFakeScreen(40)
	screen.feed(buf.String())
	assert.Equal(t, []string{"$ ls", "file.go", "file_test.go", "$ ls"}, screen.content(),
		"a durable line scrolls away and the prompt is redrawn below the listing")
}

func TestApplyPrintLinesTemporaryState(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newRenderer(&buf, 40, BellNone)
	overlay := &searchState{query: "gi", match: "git status"}
	require.NoError(t, r.drawLine("$ ", overlay))

	next := lineAt("git status", 10)
	require.NoError(t, r.apply("$ ", printLines([]string{"note"}, next), overlay))

	screen := newFakeScreen(40)
	screen.feed(buf.String())
	assert.Equal(t, []string{"note", "$ git status"}, screen.content(),
		"a temporary overlay is wiped, not scrolled away")
}

func TestApplyRedrawClear(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newRenderer(&buf, 20, BellNone)
	state := lineAt("hello world again", 17)
	require.NoError(t, r.drawLine("$ ", state))
	require.NoError(t, r.apply("$ ", redraw(true, state), state))

	screen := newFakeScreen(20)
	screen.feed(buf.String())
	want := renderFresh(t, 20, "$ ", state)
	assert.Equal(t, want.content(), screen.content())
	assert.Equal(t, want.cursor(), screen.cursor())
}

func TestApplyBellDiffsThenRings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newRenderer(&buf, 80, BellAudible)
	state := lineAt("abc", 3)
	require.NoError(t, r.drawLine("$ ", state))
	require.NoError(t, r.apply("$ ", ringBell(state), state))

	screen := newFakeScreen(80)
	screen.feed(buf.String())
	assert.Equal(t, 1, screen.bells, "exactly one bell")
	assert.Equal(t, []string{"$ abc"}, screen.content(), "state is unchanged")
}

func TestReposition(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newRenderer(&buf, 10, BellNone)
	state := lineAt("abcdefghijklmnop", 8)
	require.NoError(t, r.drawLine("$ ", state))
	require.NoError(t, r.reposition(WindowSize{Width: 40, Height: 24}, "$ ", state))

	screen := newFakeScreen(40)
	screen.feed(buf.String())
	want := renderFresh(t, 40, "$ ", state)
	assert.Equal(t, want.content(), screen.content(), "resize redraws the same state at the new width")
	assert.Equal(t, want.cursor(), screen.cursor())
	assert.Equal(t, 40, r.width)
}

func TestMoveToNextLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newRenderer(&buf, 10, BellNone)
	state := lineAt("abcdefghijklmnop", 2)
	require.NoError(t, r.drawLine("$ ", state))
	require.NoError(t, r.moveToNextLine("$ ", state))

	screen := newFakeScreen(10)
	screen.feed(buf.String())
	last := len(screen.content())
	assert.Equal(t, cursorPos{row: last, col: 0}, screen.cursor(),
		"cursor must land at column zero below the layout")
}

func TestCellWidth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, cellWidth('a'))
	assert.Equal(t, 2, cellWidth('日'))
	assert.Equal(t, 2, cellWidth(0x01), "control runes render as ^A")
	assert.Equal(t, 2, cellWidth(0x7f))
	assert.Equal(t, "^A", expandRune(0x01))
	assert.Equal(t, "^?", expandRune(0x7f))
	assert.Equal(t, "x", expandRune('x'))
}
