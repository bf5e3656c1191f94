package content

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Rect is a screen-space rectangle in pixels.
type Rect struct {
	X, Y, W, H int
}

// Handle is a weak reference to the live UI node an item was extracted from.
// The node may be recycled at any time; Valid reports whether it still exists
// and Bounds returns its current position when it does.
type Handle interface {
	Valid() bool
	Bounds() (Rect, bool)
}

// Item is one unit of extractable text with its on-screen bounds.
// Items are ephemeral: they are rebuilt on every extraction pass and must not
// be held across UI mutations.
type Item struct {
	Text   string
	Bounds Rect
	Handle Handle
}

// Key returns the item's content fingerprint.
func (i Item) Key() string {
	return Fingerprint(i.Text)
}

// Fingerprint returns a deterministic digest of normalized text: identical
// text after lowercasing and whitespace collapsing always yields the same
// fingerprint. Returns "" for empty or whitespace-only input.
func Fingerprint(text string) string {
	norm := Normalize(text)
	if norm == "" {
		return ""
	}
	h := sha256.Sum256([]byte(norm))
	return fmt.Sprintf("%x", h[:16])
}

// Normalize lowercases and collapses all whitespace runs to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Prepare sanitizes raw extracted text for classification: whitespace is
// collapsed and content is capped at 500 characters.
func Prepare(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	runes := []rune(s)
	if len(runes) > 500 {
		return string(runes[:500]) + "..."
	}
	return s
}
