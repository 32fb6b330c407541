package readline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// editEmacs runs one emacs-mode read over the given keystrokes.
func editEmacs(t *testing.T, sc *SessionContext, evs []Event) (string, error) {
	t.Helper()
	line, _, err := runScript(t, sc, newEmacsMap(sc), evs)
	return line, err
}

func TestEmacsCursorMotion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys string
		want string
	}{
		{name: "ctrl-a inserts at start", keys: "bc\x01a\r", want: "abc"},
		{name: "ctrl-e returns to end", keys: "ab\x01\x05c\r", want: "abc"},
		{name: "ctrl-b steps left", keys: "ac\x02b\r", want: "abc"},
		{name: "ctrl-f steps right", keys: "ac\x02\x06d\r", want: "acd"},
		{name: "left at start is harmless", keys: "\x02\x02x\r", want: "x"},
		{name: "right at end is harmless", keys: "x\x06\x06y\r", want: "xy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sc := emacsContext(t)
			line, err := editEmacs(t, sc, keyEvents(tt.keys))
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestEmacsArrowSequences(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	evs := keyEvents("ac")
	evs = append(evs, seqEvent("[D")) // Left
	evs = append(evs, keyEvents("b")...)
	evs = append(evs, seqEvent("[C")) // Right
	evs = append(evs, keyEvents("d\r")...)

	line, err := editEmacs(t, sc, evs)
	require.NoError(t, err)
	assert.Equal(t, "abcd", line)
}

func TestEmacsDeleteSequence(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	evs := keyEvents("abc")
	evs = append(evs, seqEvent("[H"))  // Home
	evs = append(evs, seqEvent("[3~")) // Delete
	evs = append(evs, keyEvents("\r")...)

	line, err := editEmacs(t, sc, evs)
	require.NoError(t, err)
	assert.Equal(t, "bc", line)
}

func TestEmacsKillAndYank(t *testing.T) {
	t.Parallel()

	// Kill the whole line with Ctrl+A Ctrl+K, then yank it back twice.
	sc := emacsContext(t)
	line, err := editEmacs(t, sc, keyEvents("hello\x01\x0b\x19\x19\r"))
	require.NoError(t, err)
	assert.Equal(t, "hellohello", line)
}

func TestEmacsKillToStart(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	// Ctrl+U from the middle keeps the tail, then Ctrl+Y pastes the head
	// back at the end.
	line, err := editEmacs(t, sc, keyEvents("foobar\x02\x02\x02\x15\x05\x19\r"))
	require.NoError(t, err)
	assert.Equal(t, "barfoo", line)
}

func TestEmacsKillWordBack(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	line, err := editEmacs(t, sc, keyEvents("git status\x17\r"))
	require.NoError(t, err)
	assert.Equal(t, "git ", line)
}

func TestEmacsWordMotion(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	evs := keyEvents("one two")
	evs = append(evs, seqEvent("b")) // Alt+B, back one word
	evs = append(evs, keyEvents("X")...)
	evs = append(evs, keyEvents("\r")...)

	line, err := editEmacs(t, sc, evs)
	require.NoError(t, err)
	assert.Equal(t, "one Xtwo", line)
}

func TestEmacsYankEmptyRingsBell(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	line, out, err := runScript(t, sc, newEmacsMap(sc), keyEvents("a\x19b\r"))
	require.NoError(t, err)
	assert.Equal(t, "ab", line, "yank with an empty kill buffer changes nothing")
	assert.Contains(t, out, "\a")
}

func TestEmacsTranspose(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	line, err := editEmacs(t, sc, keyEvents("ab\x14\r"))
	require.NoError(t, err)
	assert.Equal(t, "ba", line)
}

func TestEmacsCtrlDOnEmptyLineIsEOF(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	_, err := editEmacs(t, sc, keyEvents("\x04"))
	assert.ErrorIs(t, err, ErrEOF)
}

func TestEmacsCtrlDDeletesWhenLineNotEmpty(t *testing.T) {
	t.Parallel()

	sc := emacsContext(t)
	line, err := editEmacs(t, sc, keyEvents("ab\x01\x04\r"))
	require.NoError(t, err)
	assert.Equal(t, "b", line)
}

func TestEmacsHistoryNavigation(t *testing.T) {
	t.Parallel()

	t.Run("up recalls newest first", func(t *testing.T) {
		t.Parallel()
		local := emacsContext(t, "first", "second")
		line, err := editEmacs(t, local, keyEvents("\x10\r"))
		require.NoError(t, err)
		assert.Equal(t, "second", line)
	})

	t.Run("up twice reaches the oldest", func(t *testing.T) {
		t.Parallel()
		local := emacsContext(t, "first", "second")
		line, err := editEmacs(t, local, keyEvents("\x10\x10\r"))
		require.NoError(t, err)
		assert.Equal(t, "first", line)
	})

	t.Run("down restores the stashed draft", func(t *testing.T) {
		t.Parallel()
		local := emacsContext(t, "first", "second")
		line, err := editEmacs(t, local, keyEvents("draft\x10\x0e\r"))
		require.NoError(t, err)
		assert.Equal(t, "draft", line)
	})

	t.Run("up past the oldest rings the bell", func(t *testing.T) {
		t.Parallel()
		local := emacsContext(t, "only")
		line, out, err := runScript(t, local, newEmacsMap(local), keyEvents("\x10\x10\r"))
		require.NoError(t, err)
		assert.Equal(t, "only", line)
		assert.Contains(t, out, "\a")
	})
}

func TestEmacsReverseSearch(t *testing.T) {
	t.Parallel()

	t.Run("accept keeps the match", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t, "git status", "make build")
		line, err := editEmacs(t, sc, keyEvents("\x12git\r\r"))
		require.NoError(t, err)
		assert.Equal(t, "git status", line)
	})

	t.Run("ctrl-r steps to an older match", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t, "git push", "git status")
		line, err := editEmacs(t, sc, keyEvents("\x12git\x12\r\r"))
		require.NoError(t, err)
		assert.Equal(t, "git push", line)
	})

	t.Run("cancel restores the original line", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t, "git status")
		line, err := editEmacs(t, sc, keyEvents("abc\x12git\x07\r"))
		require.NoError(t, err)
		assert.Equal(t, "abc", line)
	})

	t.Run("shrink backs the query off", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t, "make", "man")
		line, err := editEmacs(t, sc, keyEvents("\x12mak\x7f\r\r"))
		require.NoError(t, err)
		assert.Equal(t, "man", line)
	})

	t.Run("overlay renders the search prompt", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t, "git status")
		_, out, err := runScript(t, sc, newEmacsMap(sc), keyEvents("\x12gi\r\r"))
		require.NoError(t, err)
		assert.Contains(t, out, "reverse-i-search")
	})
}

func TestEmacsTabCompletion(t *testing.T) {
	t.Parallel()

	completerFor := func(suggestions ...string) Completer {
		return func(d Document) []Suggestion {
			word := d.WordBeforeCursor()
			var out []Suggestion
			for _, s := range suggestions {
				if strings.HasPrefix(s, word) {
					out = append(out, Suggestion{Text: s})
				}
			}
			return out
		}
	}

	t.Run("unique match completes in place", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t)
		sc.completer = completerFor("status")
		line, err := editEmacs(t, sc, keyEvents("sta\t\r"))
		require.NoError(t, err)
		assert.Equal(t, "status", line)
	})

	t.Run("common prefix is extended", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t)
		sc.completer = completerFor("remote", "rebase", "reset")
		line, err := editEmacs(t, sc, keyEvents("r\t\r"))
		require.NoError(t, err)
		assert.Equal(t, "re", line)
	})

	t.Run("ambiguous candidates are listed", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t)
		sc.completer = completerFor("status", "stash")
		line, out, err := runScript(t, sc, newEmacsMap(sc), keyEvents("sta\t\r"))
		require.NoError(t, err)
		assert.Equal(t, "sta", line, "listing candidates leaves the line unchanged")
		assert.Contains(t, out, "status")
		assert.Contains(t, out, "stash")
	})

	t.Run("no completer rings the bell", func(t *testing.T) {
		t.Parallel()
		sc := emacsContext(t)
		line, out, err := runScript(t, sc, newEmacsMap(sc), keyEvents("x\t\r"))
		require.NoError(t, err)
		assert.Equal(t, "x", line)
		assert.Contains(t, out, "\a")
	})
}

func TestEmacsCtrlCInKeymapCancels(t *testing.T) {
	t.Parallel()

	// When SIGINT handling is off, 0x03 arrives as an ordinary key and the
	// binding produces the same cancellation.
	sc := emacsContext(t)
	_, err := editEmacs(t, sc, keyEvents("abc\x03"))
	assert.ErrorIs(t, err, ErrInterrupted)
}
