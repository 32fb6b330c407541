package readline

import (
	"os"
	"os/signal"
	"sync"
	"time"
)

// EventKind tags one driver input.
type EventKind int

// Event kinds delivered by the event source.
const (
	// EventKey carries one decoded keystroke.
	EventKey EventKind = iota
	// EventInterrupt is a user cancel (Ctrl-C or SIGINT).
	EventInterrupt
	// EventResize carries the new terminal geometry.
	EventResize
	// EventError reports a failure of the underlying input; the stream
	// ends after it.
	EventError
)

// Event is one driver input. Keystrokes, interrupts and resizes are merged
// into a single ordered stream so the driver never observes two events
// concurrently.
type Event struct {
	Kind EventKind
	Key  Key
	Size WindowSize
	Err  error
}

// keyEvent pairs one decoded keystroke with the error that ended the stream.
type keyEvent struct {
	key Key
	err error
}

// keyReader owns the terminal's single decode goroutine. Sequence decoding
// needs lookahead, so only one reader may ever touch the device, and the
// session caches its terminal across reads, so the decode loop has to
// outlive any one of them. Each eventSource attaches as the current
// subscriber and detaches on Close; a keystroke decoded while no subscriber
// is attached is held until the next one arrives rather than dropped.
type keyReader struct {
	term terminalInterface

	mu  sync.Mutex
	sub *eventSource
	err error // final stream error, redelivered to later subscribers

	subChanged chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

func newKeyReader(t terminalInterface) *keyReader {
	kr := &keyReader{
		term:       t,
		subChanged: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go kr.run()
	return kr
}

// Close releases the decode loop. Only the session owning the terminal
// calls it; individual reads detach their subscriber instead.
func (kr *keyReader) Close() {
	kr.closeOnce.Do(func() { close(kr.done) })
}

func (kr *keyReader) run() {
	for {
		k, err := kr.readKey()
		if err != nil {
			kr.mu.Lock()
			kr.err = err
			kr.mu.Unlock()
			kr.deliver(keyEvent{err: err})
			return
		}
		if !kr.deliver(keyEvent{key: k}) {
			return
		}
	}
}

// deliver hands one decoded keystroke to the current subscriber, waiting
// for one to attach when none is. It returns false only when the reader
// itself was closed, so a keystroke typed between two reads reaches the
// next read instead of vanishing with the previous one.
func (kr *keyReader) deliver(kv keyEvent) bool {
	for {
		kr.mu.Lock()
		sub := kr.sub
		kr.mu.Unlock()
		if sub == nil {
			select {
			case <-kr.subChanged:
				continue
			case <-kr.done:
				return false
			}
		}
		if sub.deliverKey(kv) {
			return true
		}
		// The subscriber closed while the key was in hand; forget it and
		// retry with whoever attaches next.
		kr.mu.Lock()
		if kr.sub == sub {
			kr.sub = nil
		}
		kr.mu.Unlock()
	}
}

func (kr *keyReader) attach(es *eventSource) {
	kr.mu.Lock()
	kr.sub = es
	err := kr.err
	kr.mu.Unlock()
	select {
	case kr.subChanged <- struct{}{}:
	default:
	}
	// The stream already ended; every later subscriber must observe the
	// error too. The decode loop may hand it over once more concurrently,
	// which consumers read past.
	if err != nil {
		es.send(Event{Kind: EventError, Err: err})
	}
}

func (kr *keyReader) detach(es *eventSource) {
	kr.mu.Lock()
	if kr.sub == es {
		kr.sub = nil
	}
	kr.mu.Unlock()
}

// eventSource turns decoded keystrokes, SIGWINCH and SIGINT into one Event
// stream for a single read. Opening it registers the signal handlers and
// subscribes to the terminal's key reader; Close always restores both, on
// every exit path of the owning read.
type eventSource struct {
	term         terminalInterface
	keys         *keyReader
	handleSigInt bool
	events       chan Event
	done         chan struct{}
	sig          chan os.Signal
	closeOnce    sync.Once
}

func openEventSource(t terminalInterface, keys *keyReader, handleSigInt bool) *eventSource {
	es := &eventSource{
		term:         t,
		keys:         keys,
		handleSigInt: handleSigInt,
		events:       make(chan Event, 8),
		done:         make(chan struct{}),
	}
	if handleSigInt {
		es.sig = make(chan os.Signal, 1)
		signal.Notify(es.sig, os.Interrupt)
		go es.watchSignals()
	}
	go es.watchResize()
	keys.attach(es)
	return es
}

// Events returns the merged stream. It is unbounded from the consumer's
// point of view and cannot be restarted once it reports an error.
func (es *eventSource) Events() <-chan Event {
	return es.events
}

// Close tears the source down, unregisters its signal handler and detaches
// it from the key reader. Safe to call more than once.
func (es *eventSource) Close() {
	es.closeOnce.Do(func() {
		if es.sig != nil {
			signal.Stop(es.sig)
		}
		close(es.done)
		es.keys.detach(es)
	})
}

// send delivers an event unless the source was closed first. The closed
// check runs before the buffered send so a closed source never accepts an
// event that nobody will read.
func (es *eventSource) send(ev Event) bool {
	select {
	case <-es.done:
		return false
	default:
	}
	select {
	case es.events <- ev:
		return true
	case <-es.done:
		return false
	}
}

// deliverKey is the key reader's entry point into this source. Interrupt
// promotion is a per-read setting, so it happens here rather than in the
// shared decode loop.
func (es *eventSource) deliverKey(kv keyEvent) bool {
	switch {
	case kv.err != nil:
		return es.send(Event{Kind: EventError, Err: kv.err})
	// In raw mode Ctrl-C arrives as a plain rune. It is promoted to an
	// Interrupt event only when the session asked for it; otherwise it
	// stays an ordinary, bindable key.
	case es.handleSigInt && kv.key.Seq == "" && kv.key.Rune == 0x03:
		return es.send(Event{Kind: EventInterrupt})
	default:
		return es.send(Event{Kind: EventKey, Key: kv.key})
	}
}

func (es *eventSource) watchSignals() {
	for {
		select {
		case <-es.sig:
			if !es.send(Event{Kind: EventInterrupt}) {
				return
			}
		case <-es.done:
			return
		}
	}
}

func (es *eventSource) watchResize() {
	ch := es.term.Resize()
	if ch == nil {
		return
	}
	for {
		select {
		case size, ok := <-ch:
			if !ok {
				return
			}
			if !es.send(Event{Kind: EventResize, Size: size}) {
				return
			}
		case <-es.done:
			return
		}
	}
}

// readKey decodes one logical keystroke, translating escape sequences into
// Key.Seq values with the leading ESC stripped.
func (kr *keyReader) readKey() (Key, error) {
	r, _, err := kr.term.ReadRune()
	if err != nil {
		return Key{}, err
	}
	if r != 0x1b {
		return keyRune(r), nil
	}
	seq, err := kr.readSequence()
	if err != nil {
		return Key{}, err
	}
	if seq == "" {
		return keyRune(0x1b), nil
	}
	return keySeq(seq), nil
}

// readSequence reads the remainder of an escape sequence. A bare ESC (the
// Vi mode-switch key) is detected by giving the terminal a brief moment to
// deliver any pending sequence bytes; if nothing arrives the ESC stands
// alone and an empty string is returned.
func (kr *keyReader) readSequence() (string, error) {
	if !kr.term.Buffered() {
		time.Sleep(5 * time.Millisecond)
		if !kr.term.Buffered() {
			return "", nil
		}
	}
	seq := make([]rune, 0, 8)
	for range 10 {
		r, _, err := kr.term.ReadRune()
		if err != nil {
			return "", err
		}
		seq = append(seq, r)
		// Alt+<key> arrives as ESC followed by a single non-CSI rune.
		if len(seq) == 1 && r != '[' && r != 'O' {
			return string(seq), nil
		}
		if len(seq) >= 2 {
			if seq[0] == 'O' {
				return string(seq), nil
			}
			if (r >= 'A' && r <= 'Z') || r == '~' {
				return string(seq), nil
			}
		}
		if !kr.term.Buffered() {
			return string(seq), nil
		}
	}
	return string(seq), nil
}
