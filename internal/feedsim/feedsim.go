// Package feedsim provides a simulated screen backed by RSS feeds. It stands
// in for a real accessibility extractor: feed entries become on-screen text
// items with synthetic bounds, and scrolling moves them through a fixed
// viewport, recycling nodes that leave it.
package feedsim

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/earlyspark/scrollguard/internal/content"
	"github.com/earlyspark/scrollguard/internal/debounce"
)

const (
	viewportW  = 1080
	viewportH  = 2280
	itemHeight = 380
	maxEntries = 200
)

type entry struct {
	text   string
	handle *nodeHandle
}

// nodeHandle is the weak UI-node reference for a simulated item. Scrolling a
// node out of the viewport recycles it, exactly like list views do.
type nodeHandle struct {
	mu     sync.Mutex
	valid  bool
	bounds content.Rect
}

func (h *nodeHandle) Valid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.valid
}

func (h *nodeHandle) Bounds() (content.Rect, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.valid {
		return content.Rect{}, false
	}
	return h.bounds, true
}

func (h *nodeHandle) set(b content.Rect, valid bool) {
	h.mu.Lock()
	h.bounds = b
	h.valid = valid
	h.mu.Unlock()
}

// Screen is a scrollable feed viewport. It implements the pipeline's Source.
type Screen struct {
	mu      sync.Mutex
	appID   string
	entries []entry
	offset  int // pixels scrolled from the top
}

// NewScreen returns an empty screen for the given app identifier.
func NewScreen(appID string) *Screen {
	return &Screen{appID: appID}
}

// Load fetches one RSS feed and appends its entries to the screen. Titles
// and stripped descriptions become the item text.
func (s *Screen) Load(ctx context.Context, url string) error {
	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return fmt.Errorf("loading feed %s: %w", url, err)
	}

	items := make([]string, 0, len(feed.Items))
	for _, it := range feed.Items {
		desc := it.Description
		if desc == "" {
			desc = it.Content
		}
		text := strings.TrimSpace(it.Title + " " + truncate(stripHTML(desc), 300))
		if text == "" {
			continue
		}
		items = append(items, text)
	}

	s.LoadTexts(items)
	return nil
}

// LoadTexts appends raw text entries. Used by tests and the offline demo.
func (s *Screen) LoadTexts(texts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range texts {
		if len(s.entries) >= maxEntries {
			break
		}
		s.entries = append(s.entries, entry{text: t, handle: &nodeHandle{}})
	}
	s.reflowLocked()
}

// Snapshot returns the items currently inside the viewport.
func (s *Screen) Snapshot(ctx context.Context, appID string) ([]content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if appID != s.appID {
		return nil, fmt.Errorf("app %s is not on screen", appID)
	}

	var out []content.Item
	for _, e := range s.entries {
		b, ok := e.handle.Bounds()
		if !ok {
			continue
		}
		out = append(out, content.Item{Text: e.text, Bounds: b, Handle: e.handle})
	}
	return out, nil
}

// Scroll moves the viewport down by px pixels and reports whether anything
// is still below the fold.
func (s *Screen) Scroll(px int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := len(s.entries)*itemHeight - viewportH
	if max < 0 {
		max = 0
	}
	s.offset += px
	if s.offset > max {
		s.offset = max
	}
	if s.offset < 0 {
		s.offset = 0
	}
	s.reflowLocked()
	return s.offset < max
}

// AppID returns the simulated app identifier.
func (s *Screen) AppID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appID
}

// Len reports how many entries the screen holds, on and off viewport.
func (s *Screen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// reflowLocked recomputes every node's bounds against the current offset.
// Nodes outside the viewport are invalidated.
func (s *Screen) reflowLocked() {
	for i, e := range s.entries {
		top := i*itemHeight - s.offset
		visible := top+itemHeight > 0 && top < viewportH
		e.handle.set(content.Rect{X: 0, Y: top, W: viewportW, H: itemHeight}, visible)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Driver replays a browsing session against a signal sink: an initial
// content pass, then periodic scrolls until the screen bottoms out.
type Driver struct {
	Screen   *Screen
	Interval time.Duration
	Emit     func(debounce.Signal)
}

// Run drives the session until the feed is exhausted or ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	app := d.Screen.AppID()

	d.Emit(debounce.Signal{Kind: debounce.WindowSwitched, AppID: app})
	d.Emit(debounce.Signal{Kind: debounce.ContentChanged, AppID: app})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			more := d.Screen.Scroll(itemHeight)
			d.Emit(debounce.Signal{Kind: debounce.Scrolled, AppID: app})
			d.Emit(debounce.Signal{Kind: debounce.ContentChanged, AppID: app})
			if !more {
				return
			}
		}
	}
}
