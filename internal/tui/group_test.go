package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
)

func entry(id string, valid bool) *Entry {
	return &Entry{
		Dir:      "/fixtures/" + id,
		Manifest: &manifest.Manifest{FixtureID: id, Version: "1.0.0"},
		Valid:    valid,
	}
}

func TestGroupKey(t *testing.T) {
	if got := groupKey(entry("a", true)); got != groupValid {
		t.Errorf("groupKey(valid) = %q", got)
	}
	if got := groupKey(entry("a", false)); got != groupInvalid {
		t.Errorf("groupKey(invalid) = %q", got)
	}
}

func TestBuildGroupedItems(t *testing.T) {
	t.Run("empty fixtures", func(t *testing.T) {
		items := buildGroupedItems(nil)
		if items != nil {
			t.Errorf("expected nil, got %d items", len(items))
		}
	})

	t.Run("single group", func(t *testing.T) {
		items := buildGroupedItems([]*Entry{entry("b", true), entry("a", true)})

		// Expect 1 header + 2 fixture items
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}

		h, ok := items[0].(headerItem)
		if !ok {
			t.Fatal("first item should be a headerItem")
		}
		if h.label != "Valid (2)" {
			t.Errorf("header label = %q, want %q", h.label, "Valid (2)")
		}

		first, ok := items[1].(fixtureItem)
		if !ok || first.Title() != "a" {
			t.Errorf("second item = %v, want fixture a", items[1])
		}
	})

	t.Run("valid before invalid", func(t *testing.T) {
		items := buildGroupedItems([]*Entry{entry("broken", false), entry("ok", true)})

		if len(items) != 4 {
			t.Fatalf("expected 4 items, got %d", len(items))
		}
		if h := items[0].(headerItem); h.label != "Valid (1)" {
			t.Errorf("first header = %q", h.label)
		}
		if h := items[2].(headerItem); h.label != "Invalid (1)" {
			t.Errorf("second header = %q", h.label)
		}
	})
}

func TestSkipHeaders(t *testing.T) {
	items := buildGroupedItems([]*Entry{entry("a", true), entry("b", false)})
	l := list.New(items, newGroupedDelegate(), 80, 20)

	skipHeaders(&l, 1)
	if l.Index() != 1 {
		t.Errorf("Index() = %d, want 1", l.Index())
	}

	l.Select(2)
	skipHeaders(&l, 1)
	if l.Index() != 3 {
		t.Errorf("Index() = %d, want 3 after skipping down", l.Index())
	}

	l.Select(2)
	skipHeaders(&l, -1)
	if l.Index() != 1 {
		t.Errorf("Index() = %d, want 1 after skipping up", l.Index())
	}
}

func TestIsHeaderSelected(t *testing.T) {
	items := buildGroupedItems([]*Entry{entry("a", true)})
	l := list.New(items, newGroupedDelegate(), 80, 20)

	if !isHeaderSelected(&l) {
		t.Error("header should be selected at index 0")
	}
	l.Select(1)
	if isHeaderSelected(&l) {
		t.Error("fixture should be selected at index 1")
	}
}

func TestNavigationDirection(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want int
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, -1},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}, -1},
		{tea.KeyMsg{Type: tea.KeyDown}, 1},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, 1},
	}

	for _, tt := range tests {
		if got := navigationDirection(tt.key); got != tt.want {
			t.Errorf("navigationDirection(%q) = %d, want %d", tt.key.String(), got, tt.want)
		}
	}
}
