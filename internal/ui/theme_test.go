package ui

import (
	"strings"
	"testing"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
)

func TestItemLine(t *testing.T) {
	it := opentime.Item{
		ID:        "t1",
		Title:     "Buy groceries",
		Body:      &opentime.Task{Status: opentime.StatusTodo, Due: "2025-01-15"},
		XObsidian: &opentime.ObsidianExt{SourceFile: "Daily/2025-01-15.md", LineNumber: opentime.IntPtr(3)},
	}
	line := ItemLine(it)
	for _, want := range []string{IconTask, "task", "Buy groceries", "due 2025-01-15", "Daily/2025-01-15.md:3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestTypeIconCoversEveryType(t *testing.T) {
	seen := map[string]bool{}
	for _, typ := range opentime.ItemTypes {
		icon := TypeIcon(typ)
		if icon == IconInfo || seen[icon] {
			t.Fatalf("type %s has no distinct icon", typ)
		}
		seen[icon] = true
	}
}

func TestEveryTypeHasAColor(t *testing.T) {
	for _, typ := range opentime.ItemTypes {
		if _, ok := typeColors[typ]; !ok {
			t.Errorf("type %s has no color", typ)
		}
	}
	if got := typeLabel(opentime.TypeTask); !strings.Contains(got, "task") {
		t.Fatalf("typeLabel = %q", got)
	}
}

func TestHeadingAndLabel(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{Heading(IconExport, "Export"), IconExport + " Export"},
		{Heading("  ", "Plain"), "Plain"},
		{LabelValue("ID", "t1"), "ID: t1"},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.got, tt.want) {
			t.Errorf("%q does not contain %q", tt.got, tt.want)
		}
	}
}
