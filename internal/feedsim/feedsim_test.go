package feedsim

import (
	"context"
	"fmt"
	"testing"
)

func TestSnapshotShowsOnlyViewport(t *testing.T) {
	s := NewScreen("com.example.feed")
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("entry number %d", i)
	}
	s.LoadTexts(texts)

	items, err := s.Snapshot(context.Background(), "com.example.feed")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) == 0 || len(items) >= 20 {
		t.Fatalf("expected a partial window of items, got %d", len(items))
	}
	if items[0].Text != "entry number 0" {
		t.Errorf("expected first entry on top, got %q", items[0].Text)
	}
}

func TestScrollInvalidatesRecycledNodes(t *testing.T) {
	s := NewScreen("app")
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("entry number %d", i)
	}
	s.LoadTexts(texts)

	items, _ := s.Snapshot(context.Background(), "app")
	first := items[0].Handle

	s.Scroll(itemHeight * 10)

	if first.Valid() {
		t.Error("node scrolled off screen should be invalid")
	}
	items, _ = s.Snapshot(context.Background(), "app")
	if items[0].Text == "entry number 0" {
		t.Error("viewport should have moved past the first entry")
	}
}

func TestScrollMovesVisibleBounds(t *testing.T) {
	s := NewScreen("app")
	s.LoadTexts([]string{"a", "b", "c", "d", "e", "f", "g", "h"})

	items, _ := s.Snapshot(context.Background(), "app")
	h := items[1].Handle
	before, _ := h.Bounds()

	s.Scroll(100)

	after, ok := h.Bounds()
	if !ok {
		t.Fatal("node should still be visible after a small scroll")
	}
	if after.Y != before.Y-100 {
		t.Errorf("expected bounds to shift up by 100, got %d -> %d", before.Y, after.Y)
	}
}

func TestScrollReportsExhaustion(t *testing.T) {
	s := NewScreen("app")
	s.LoadTexts([]string{"only", "a few", "entries"})

	if s.Scroll(itemHeight) {
		t.Error("a screen shorter than the viewport has nothing below the fold")
	}
}

func TestSnapshotWrongApp(t *testing.T) {
	s := NewScreen("com.a")
	s.LoadTexts([]string{"x"})
	if _, err := s.Snapshot(context.Background(), "com.b"); err == nil {
		t.Error("expected an error for an app that is not on screen")
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No tags here", "No tags here"},
		{"<div>  Multiple   spaces  </div>", "Multiple spaces"},
		{"", ""},
	}
	for _, tt := range tests {
		got := stripHTML(tt.input)
		if got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"abcd", 3, "abc"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		got := truncate(tt.input, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}
