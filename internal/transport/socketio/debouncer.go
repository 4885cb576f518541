package socketio

import (
	"sync"
	"time"
)

// BroadcastDebouncer collapses rapid controller state changes into batched
// broadcasts. Multiple subsystem triggers within the debounce window result
// in a single broadcast for each affected type (state, queue, settings).
// It satisfies the controller's Notifier.
type BroadcastDebouncer struct {
	window           time.Duration
	stateCallback    func()
	queueCallback    func()
	settingsCallback func()

	mu              sync.Mutex
	pendingState    bool
	pendingQueue    bool
	pendingSettings bool
	timer           *time.Timer
	stopped         bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
// stateCallback fires for "player" triggers, queueCallback for "playlist"
// (which implies a state push too, since the cursor may have moved), and
// settingsCallback for "settings".
func NewBroadcastDebouncer(window time.Duration, stateCallback, queueCallback, settingsCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:           window,
		stateCallback:    stateCallback,
		queueCallback:    queueCallback,
		settingsCallback: settingsCallback,
	}
}

// Trigger records that the given subsystem has changed. The broadcast
// callbacks are deferred until the debounce window elapses without further
// triggers.
func (d *BroadcastDebouncer) Trigger(subsystem string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch subsystem {
	case "player":
		d.pendingState = true
	case "playlist":
		d.pendingState = true
		d.pendingQueue = true
	case "settings":
		d.pendingSettings = true
	}

	// Reset the timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	doState := d.pendingState
	doQueue := d.pendingQueue
	doSettings := d.pendingSettings
	d.pendingState = false
	d.pendingQueue = false
	d.pendingSettings = false
	d.mu.Unlock()

	if doState && d.stateCallback != nil {
		d.stateCallback()
	}
	if doQueue && d.queueCallback != nil {
		d.queueCallback()
	}
	if doSettings && d.settingsCallback != nil {
		d.settingsCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingState = false
	d.pendingQueue = false
	d.pendingSettings = false
}
