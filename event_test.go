package readline

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestSource builds an event source over a throwaway key reader, torn
// down with the test.
func openTestSource(tb testing.TB, term terminalInterface, handleSigInt bool) *eventSource {
	tb.Helper()

	kr := newKeyReader(term)
	tb.Cleanup(kr.Close)
	return openEventSource(term, kr, handleSigInt)
}

// collectEvents drains the source until the stream errors out or the count
// is reached.
func collectEvents(t *testing.T, es *eventSource, n int) []Event {
	t.Helper()

	var out []Event
	for len(out) < n {
		select {
		case ev := <-es.Events():
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d events: %v", len(out), out)
		}
	}
	return out
}

func TestEventSourceDecodesPlainRunes(t *testing.T) {
	t.Parallel()

	es := openTestSource(t, newMockTerminal("abc"), false)
	defer es.Close()

	evs := collectEvents(t, es, 4)
	for i, want := range []rune{'a', 'b', 'c'} {
		assert.Equal(t, EventKey, evs[i].Kind)
		assert.Equal(t, keyRune(want), evs[i].Key)
	}
	assert.Equal(t, EventError, evs[3].Kind)
	assert.ErrorIs(t, evs[3].Err, io.EOF)
}

func TestEventSourceDecodesEscapeSequences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  Key
	}{
		{name: "arrow up", input: "\x1b[A", want: keySeq("[A")},
		{name: "delete", input: "\x1b[3~", want: keySeq("[3~")},
		{name: "ctrl-right", input: "\x1b[1;5C", want: keySeq("[1;5C")},
		{name: "application-mode home", input: "\x1bOH", want: keySeq("OH")},
		{name: "alt-b", input: "\x1bb", want: keySeq("b")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			es := openTestSource(t, newMockTerminal(tt.input), false)
			defer es.Close()

			evs := collectEvents(t, es, 1)
			assert.Equal(t, EventKey, evs[0].Kind)
			assert.Equal(t, tt.want, evs[0].Key)
		})
	}
}

func TestEventSourceLoneEscape(t *testing.T) {
	t.Parallel()

	// Nothing follows the ESC, so after the grace period it stands alone.
	es := openTestSource(t, newMockTerminal("\x1b"), false)
	defer es.Close()

	evs := collectEvents(t, es, 1)
	assert.Equal(t, EventKey, evs[0].Kind)
	assert.Equal(t, keyRune(0x1b), evs[0].Key)
}

func TestEventSourceEscapeThenText(t *testing.T) {
	t.Parallel()

	// A sequence followed by ordinary text must not swallow the text.
	es := openTestSource(t, newMockTerminal("\x1b[Ax"), false)
	defer es.Close()

	evs := collectEvents(t, es, 2)
	assert.Equal(t, keySeq("[A"), evs[0].Key)
	assert.Equal(t, keyRune('x'), evs[1].Key)
}

func TestEventSourceInterruptPromotion(t *testing.T) {
	t.Parallel()

	t.Run("promoted when handling is on", func(t *testing.T) {
		t.Parallel()
		es := openTestSource(t, newMockTerminal("a\x03b"), true)
		defer es.Close()

		evs := collectEvents(t, es, 3)
		assert.Equal(t, EventKey, evs[0].Kind)
		assert.Equal(t, EventInterrupt, evs[1].Kind)
		assert.Equal(t, keyRune('b'), evs[2].Key, "the stream continues past an interrupt")
	})

	t.Run("ordinary key when handling is off", func(t *testing.T) {
		t.Parallel()
		es := openTestSource(t, newMockTerminal("\x03"), false)
		defer es.Close()

		evs := collectEvents(t, es, 1)
		assert.Equal(t, EventKey, evs[0].Kind)
		assert.Equal(t, keyRune(0x03), evs[0].Key)
	})
}

func TestEventSourceResize(t *testing.T) {
	t.Parallel()

	term := newOpenMockTerminal()
	es := openTestSource(t, term, false)
	defer es.Close()

	term.pushResize(WindowSize{Width: 120, Height: 40})

	evs := collectEvents(t, es, 1)
	assert.Equal(t, EventResize, evs[0].Kind)
	assert.Equal(t, WindowSize{Width: 120, Height: 40}, evs[0].Size)
}

func TestEventSourcePreservesKeyOrder(t *testing.T) {
	t.Parallel()

	es := openTestSource(t, newMockTerminal("hello"), false)
	defer es.Close()

	evs := collectEvents(t, es, 5)
	var got []rune
	for _, ev := range evs {
		require.Equal(t, EventKey, ev.Kind)
		got = append(got, ev.Key.Rune)
	}
	assert.Equal(t, []rune("hello"), got)
}

func TestEventSourceCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	es := openTestSource(t, newMockTerminal(""), true)
	es.Close()
	es.Close()
}

func TestEventSourceCloseUnblocksProducers(t *testing.T) {
	t.Parallel()

	// More input than the event buffer holds; closing must detach this
	// source rather than leave the decode loop stuck on a full channel.
	term := newOpenMockTerminal()
	term.feed("0123456789abcdef")
	es := openTestSource(t, term, false)

	collectEvents(t, es, 1)
	es.Close()
	term.endInput()
}

func TestKeyReaderHandsKeysToLaterSources(t *testing.T) {
	t.Parallel()

	term := newOpenMockTerminal()
	kr := newKeyReader(term)
	defer kr.Close()

	es1 := openEventSource(term, kr, false)
	term.feed("a")
	evs := collectEvents(t, es1, 1)
	assert.Equal(t, keyRune('a'), evs[0].Key)
	es1.Close()

	// A key typed after the first read ends belongs to the next one.
	term.feed("b")
	es2 := openEventSource(term, kr, false)
	defer es2.Close()
	evs = collectEvents(t, es2, 1)
	assert.Equal(t, keyRune('b'), evs[0].Key)
}

func TestKeyReaderRedeliversStreamEnd(t *testing.T) {
	t.Parallel()

	term := newMockTerminal("")
	kr := newKeyReader(term)
	defer kr.Close()

	es1 := openEventSource(term, kr, false)
	evs := collectEvents(t, es1, 1)
	assert.Equal(t, EventError, evs[0].Kind)
	es1.Close()

	es2 := openEventSource(term, kr, false)
	defer es2.Close()
	evs = collectEvents(t, es2, 1)
	assert.Equal(t, EventError, evs[0].Kind)
	assert.ErrorIs(t, evs[0].Err, io.EOF)
}

func TestKeyHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key{Rune: 'a'}, keyRune('a'))
	assert.Equal(t, Key{Seq: "[A"}, keySeq("[A"))
	assert.True(t, isPrintable('a'))
	assert.True(t, isPrintable('日'))
	assert.False(t, isPrintable(0x03))
	assert.False(t, isPrintable(0x7f))
}
