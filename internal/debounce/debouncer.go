// Package debounce converts raw key-down/key-up signals into edge-triggered,
// rate-limited activation events. Holding a key produces exactly one
// activation: the key must be released before the next press counts, and
// presses closer than MinInterval apart are dropped. This is the sole
// anti-cheat mechanism for the races.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MinInterval is the minimum spacing between activations for the same key.
const MinInterval = 100 * time.Millisecond

// Listener receives activations for a registered key.
type Listener func(key string)

type keyState struct {
	pressed        bool
	lastActivation time.Time
}

// Debouncer tracks per-key press state for its registered keys. Raw events
// for unregistered keys are ignored.
type Debouncer struct {
	clock clockwork.Clock

	mu        sync.Mutex
	states    map[string]*keyState
	listeners map[string][]Listener
}

// New creates a debouncer using the given clock.
func New(clock clockwork.Clock) *Debouncer {
	return &Debouncer{
		clock:     clock,
		states:    make(map[string]*keyState),
		listeners: make(map[string][]Listener),
	}
}

// OnKey registers a listener for activations of the given key.
func (d *Debouncer) OnKey(key string, fn Listener) {
	key = NormalizeKey(key)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.listeners[key]; !ok {
		d.states[key] = &keyState{}
	}
	d.listeners[key] = append(d.listeners[key], fn)
}

// KeyDown processes a raw press. It fires listeners only on the pressed edge
// and only when MinInterval has elapsed since the last activation.
func (d *Debouncer) KeyDown(key string) {
	key = NormalizeKey(key)

	d.mu.Lock()
	state, ok := d.states[key]
	if !ok {
		d.mu.Unlock()
		return
	}

	now := d.clock.Now()

	// Hardware auto-repeat: key is still held down.
	if state.pressed {
		d.mu.Unlock()
		return
	}
	if !state.lastActivation.IsZero() && now.Sub(state.lastActivation) < MinInterval {
		d.mu.Unlock()
		return
	}

	state.pressed = true
	state.lastActivation = now
	fns := make([]Listener, len(d.listeners[key]))
	copy(fns, d.listeners[key])
	d.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

// KeyUp processes a raw release, re-arming the key unconditionally.
func (d *Debouncer) KeyUp(key string) {
	key = NormalizeKey(key)

	d.mu.Lock()
	defer d.mu.Unlock()
	if state, ok := d.states[key]; ok {
		state.pressed = false
	}
}

// Reset clears press state and rate-limit history for every key, keeping
// listener registrations.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, state := range d.states {
		state.pressed = false
		state.lastActivation = time.Time{}
	}
}

// Close drops all listeners and key state. The debouncer must not be used
// afterwards; teardown mirrors setup.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states = make(map[string]*keyState)
	d.listeners = make(map[string][]Listener)
}

// NormalizeKey folds a raw key name onto its logical channel: single
// alphanumerics are uppercased, the space bar becomes "Space", and symbolic
// key names are preserved as-is.
func NormalizeKey(key string) string {
	if key == " " {
		return "Space"
	}
	if len(key) == 1 {
		c := key[0]
		if c >= 'a' && c <= 'z' {
			return string(c - 'a' + 'A')
		}
	}
	return key
}
