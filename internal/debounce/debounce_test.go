package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestBurstCoalescesToOnePass(t *testing.T) {
	var fired int64
	d := New(30*time.Millisecond, Handlers{
		OnChanged: func(string) { atomic.AddInt64(&fired, 1) },
	})
	defer d.Close()

	for i := 0; i < 10; i++ {
		d.OnRawSignal(Signal{Kind: ContentChanged, AppID: "app"})
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt64(&fired); got != 1 {
		t.Errorf("expected exactly 1 pass for a burst, got %d", got)
	}
}

func TestMostRecentSignalSurvives(t *testing.T) {
	apps := make(chan string, 1)
	d := New(20*time.Millisecond, Handlers{
		OnChanged: func(app string) { apps <- app },
	})
	defer d.Close()

	d.OnRawSignal(Signal{Kind: ContentChanged, AppID: "old"})
	d.OnRawSignal(Signal{Kind: ContentChanged, AppID: "new"})

	select {
	case app := <-apps:
		if app != "new" {
			t.Errorf("expected most recent signal to survive, got %q", app)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced pass never fired")
	}
}

func TestScrolledBypassesDebounce(t *testing.T) {
	var scrolled, changed int64
	d := New(time.Hour, Handlers{
		OnChanged:  func(string) { atomic.AddInt64(&changed, 1) },
		OnScrolled: func(string) { atomic.AddInt64(&scrolled, 1) },
	})
	defer d.Close()

	d.OnRawSignal(Signal{Kind: Scrolled, AppID: "app"})

	if got := atomic.LoadInt64(&scrolled); got != 1 {
		t.Errorf("scroll should forward synchronously, got %d calls", got)
	}
	if got := atomic.LoadInt64(&changed); got != 0 {
		t.Errorf("scroll must not trigger a content pass, got %d", got)
	}
}

func TestWindowSwitchedCancelsPendingPass(t *testing.T) {
	var changed int64
	switched := make(chan string, 1)
	d := New(30*time.Millisecond, Handlers{
		OnChanged:  func(string) { atomic.AddInt64(&changed, 1) },
		OnSwitched: func(app string) { switched <- app },
	})
	defer d.Close()

	d.OnRawSignal(Signal{Kind: ContentChanged, AppID: "appA"})
	d.OnRawSignal(Signal{Kind: WindowSwitched, AppID: "appB"})

	select {
	case app := <-switched:
		if app != "appB" {
			t.Errorf("expected switch to appB, got %q", app)
		}
	case <-time.After(time.Second):
		t.Fatal("switch handler never fired")
	}

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt64(&changed); got != 0 {
		t.Errorf("pending pass should be cancelled on window switch, got %d", got)
	}
}

func TestFlushFiresPendingImmediately(t *testing.T) {
	fired := make(chan string, 1)
	d := New(time.Hour, Handlers{
		OnChanged: func(app string) { fired <- app },
	})
	defer d.Close()

	d.OnRawSignal(Signal{Kind: ContentChanged, AppID: "app"})
	d.Flush()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("flush should fire the pending pass")
	}
}

func TestFlushWithoutPendingIsNoop(t *testing.T) {
	var fired int64
	d := New(time.Hour, Handlers{
		OnChanged: func(string) { atomic.AddInt64(&fired, 1) },
	})
	defer d.Close()

	d.Flush()
	if got := atomic.LoadInt64(&fired); got != 0 {
		t.Errorf("flush with nothing pending fired %d passes", got)
	}
}

func TestCloseStopsFurtherSignals(t *testing.T) {
	var fired int64
	d := New(10*time.Millisecond, Handlers{
		OnChanged: func(string) { atomic.AddInt64(&fired, 1) },
	})

	d.OnRawSignal(Signal{Kind: ContentChanged, AppID: "app"})
	d.Close()
	d.OnRawSignal(Signal{Kind: ContentChanged, AppID: "app"})

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt64(&fired); got != 0 {
		t.Errorf("closed debouncer fired %d passes", got)
	}
}
