// Package debounce collapses bursts of UI-change signals into one downstream
// pass per quiet period.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the reference debounce window.
const DefaultWindow = 100 * time.Millisecond

// Kind identifies a raw UI signal.
type Kind int

const (
	ContentChanged Kind = iota
	Scrolled
	WindowSwitched
)

func (k Kind) String() string {
	switch k {
	case ContentChanged:
		return "content_changed"
	case Scrolled:
		return "scrolled"
	case WindowSwitched:
		return "window_switched"
	default:
		return "unknown"
	}
}

// Signal is one raw notification from the UI observation source.
type Signal struct {
	Kind  Kind
	AppID string
}

// Handlers receive routed signals. OnChanged fires once per quiet period with
// the most recent ContentChanged signal; intermediate ones are dropped, not
// queued. OnScrolled and OnSwitched fire immediately from OnRawSignal.
type Handlers struct {
	OnChanged  func(appID string)
	OnScrolled func(appID string)
	OnSwitched func(appID string)
}

// Debouncer restarts a fixed timer on every ContentChanged signal and routes
// Scrolled and WindowSwitched around the timer. Visual lag is worse than a
// missed re-classification, so scroll signals never wait.
type Debouncer struct {
	window   time.Duration
	handlers Handlers

	mu      sync.Mutex
	timer   *time.Timer
	lastApp string
	closed  bool
}

// New creates a debouncer. Non-positive windows fall back to DefaultWindow.
func New(window time.Duration, h Handlers) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, handlers: h}
}

// OnRawSignal routes one raw signal.
func (d *Debouncer) OnRawSignal(sig Signal) {
	switch sig.Kind {
	case ContentChanged:
		d.restart(sig.AppID)
	case Scrolled:
		if d.handlers.OnScrolled != nil {
			d.handlers.OnScrolled(sig.AppID)
		}
	case WindowSwitched:
		d.cancelPending()
		if d.handlers.OnSwitched != nil {
			d.handlers.OnSwitched(sig.AppID)
		}
	}
}

// Flush fires any pending ContentChanged pass immediately. Used on shutdown
// and when timer scheduling is suspect; at worst it costs a redundant pass.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer == nil || !d.timer.Stop() {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	app := d.lastApp
	d.mu.Unlock()

	if d.handlers.OnChanged != nil {
		d.handlers.OnChanged(app)
	}
}

// Close cancels any pending pass. Further signals are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) restart(appID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.lastApp = appID
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire() })
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	app := d.lastApp
	d.mu.Unlock()

	if d.handlers.OnChanged != nil {
		d.handlers.OnChanged(app)
	}
}

func (d *Debouncer) cancelPending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
