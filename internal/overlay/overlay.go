// Package overlay maintains the 1:1 mapping between unproductive verdicts and
// visible masks, keeps masks aligned with their bound content, and reclaims
// masks that are no longer needed.
package overlay

import (
	"time"

	"github.com/google/uuid"

	"github.com/earlyspark/scrollguard/internal/content"
)

// DefaultLifetime is the reference fixed mask lifetime.
const DefaultLifetime = 30 * time.Second

// Surface renders masks. Implementations live outside the core; any error
// they return is swallowed here and the mask treated as not shown.
type Surface interface {
	Render(id string, bounds content.Rect) error
	Move(id string, bounds content.Rect) error
	Remove(id string) error
}

// Mask is one visual overlay bound to a content key. Exclusively owned by
// the Manager.
type Mask struct {
	Key       string
	Bounds    content.Rect
	Rationale string
	CreatedAt time.Time
	ExpiresAt time.Time

	surfaceID string
	handle    content.Handle
}

// Manager owns the registry of active masks keyed by content identity.
//
// Single-writer by contract: every method must be called from the one
// orchestration goroutine, so the registry needs no lock. Verdict callbacks
// arriving on worker goroutines are marshalled by the caller first.
type Manager struct {
	surface  Surface
	lifetime time.Duration
	now      func() time.Time

	masks map[string]*Mask
}

// New creates a manager rendering through surface. Non-positive lifetimes
// fall back to DefaultLifetime.
func New(surface Surface, lifetime time.Duration) *Manager {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Manager{
		surface:  surface,
		lifetime: lifetime,
		now:      time.Now,
		masks:    make(map[string]*Mask),
	}
}

// Show creates a mask for a content key, replacing any existing mask for the
// same key rather than duplicating it. handle may be nil when the source
// cannot provide a live reference. Returns false if the surface refused to
// render; the pipeline keeps operating for other items.
func (m *Manager) Show(key string, bounds content.Rect, rationale string, handle content.Handle) bool {
	if key == "" {
		return false
	}
	if old, ok := m.masks[key]; ok {
		m.surface.Remove(old.surfaceID)
		delete(m.masks, key)
	}

	now := m.now()
	mask := &Mask{
		Key:       key,
		Bounds:    bounds,
		Rationale: rationale,
		CreatedAt: now,
		ExpiresAt: now.Add(m.lifetime),
		surfaceID: uuid.NewString(),
		handle:    handle,
	}
	if err := m.surface.Render(mask.surfaceID, bounds); err != nil {
		// Render surface gone (permission revoked, teardown race). The mask
		// is simply not shown.
		return false
	}
	m.masks[key] = mask
	return true
}

// Reposition updates a mask's bounds in place. No-op if no mask exists for
// the key. Cheap enough to run for every active mask inside the scroll
// handler.
func (m *Manager) Reposition(key string, bounds content.Rect) {
	mask, ok := m.masks[key]
	if !ok {
		return
	}
	mask.Bounds = bounds
	m.surface.Move(mask.surfaceID, bounds)
}

// Hide removes a mask. Removing a nonexistent mask is a silent no-op.
func (m *Manager) Hide(key string) {
	mask, ok := m.masks[key]
	if !ok {
		return
	}
	m.surface.Remove(mask.surfaceID)
	delete(m.masks, key)
}

// HideAll tears down every active mask. Used on window switch and shutdown;
// never fails even when the render surface is already gone.
func (m *Manager) HideAll() {
	for key, mask := range m.masks {
		m.surface.Remove(mask.surfaceID)
		delete(m.masks, key)
	}
}

// Sweep removes expired masks and masks whose bound content no longer exists
// in the live UI, updating bounds for masks whose content moved. Called
// opportunistically on scroll and content-change passes. Returns the number
// of masks removed.
func (m *Manager) Sweep() int {
	now := m.now()
	removed := 0
	for key, mask := range m.masks {
		if now.After(mask.ExpiresAt) {
			m.surface.Remove(mask.surfaceID)
			delete(m.masks, key)
			removed++
			continue
		}
		if mask.handle == nil {
			continue
		}
		if !mask.handle.Valid() {
			// Orphaned: the element scrolled out and was recycled.
			m.surface.Remove(mask.surfaceID)
			delete(m.masks, key)
			removed++
			continue
		}
		if bounds, ok := mask.handle.Bounds(); ok && bounds != mask.Bounds {
			mask.Bounds = bounds
			m.surface.Move(mask.surfaceID, bounds)
		}
	}
	return removed
}

// Active returns the number of masks currently shown.
func (m *Manager) Active() int {
	return len(m.masks)
}

// Get returns the mask for a key, if one is active.
func (m *Manager) Get(key string) (Mask, bool) {
	mask, ok := m.masks[key]
	if !ok {
		return Mask{}, false
	}
	return *mask, true
}
