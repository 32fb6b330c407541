package readline

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// SessionContext aggregates everything a handler or the driver may need:
// the session configuration, the loaded preferences, and the live renderer
// bound to this read's terminal. It is passed explicitly; nothing here is
// ambient.
type SessionContext struct {
	Prefs     *Prefs
	prefix    string
	renderer  *renderer
	history   *History
	completer Completer
}

// historyEntries returns a stable snapshot for mode-local navigation.
func (sc *SessionContext) historyEntries() []string {
	if sc.history == nil {
		return nil
	}
	return sc.history.Entries()
}

// runDriver is the interactive event loop: it threads a LineState and a
// KeyMap through the ordered Event stream until a handler produces a final
// result or the read is cancelled. Events are processed strictly in arrival
// order; the only suspension point is the wait for the next event.
//
// The concrete LineState representation may change across transitions (the
// Vi module switches between insert and command variants); the driver is
// agnostic to it and only requires that each effect's successor matches
// what the returned next KeyMap expects.
func runDriver(ctx context.Context, sc *SessionContext, events <-chan Event, state LineState, km *KeyMap) (string, error) {
	r := sc.renderer
	if err := r.drawLine(sc.prefix, state); err != nil {
		return "", fmt.Errorf("failed to draw prompt: %w", err)
	}

	for {
		var ev Event
		select {
		case <-ctx.Done():
			_ = r.moveToNextLine(sc.prefix, state)
			return "", ctx.Err()
		case ev = <-events:
		}

		switch ev.Kind {
		case EventInterrupt:
			// End the visual segment, then unwind the whole read.
			if err := r.moveToNextLine(sc.prefix, state); err != nil {
				return "", err
			}
			return "", ErrInterrupted

		case EventResize:
			// Pure geometry: recompute the layout, no edit applied.
			if err := r.reposition(ev.Size, sc.prefix, state); err != nil {
				return "", err
			}

		case EventError:
			_ = r.moveToNextLine(sc.prefix, state)
			if errors.Is(ev.Err, io.EOF) {
				return "", ErrEOF
			}
			return "", fmt.Errorf("failed to read input: %w", ev.Err)

		case EventKey:
			h, ok := km.lookup(ev.Key)
			if !ok {
				// Unmapped keys are not errors: bell, nothing changes.
				if err := r.ringBell(); err != nil {
					return "", err
				}
				continue
			}
			res := h(ev.Key, state, sc)
			if res.Done {
				if err := r.moveToNextLine(sc.prefix, state); err != nil {
					return "", err
				}
				if res.Err != nil {
					return "", res.Err
				}
				return res.Line, nil
			}
			if err := r.apply(sc.prefix, res.Effect, state); err != nil {
				return "", err
			}
			state = res.Effect.Next
			if res.Next != nil {
				km = res.Next
			}
		}
	}
}
