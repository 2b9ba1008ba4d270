package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
)

func testOptions() Options {
	fixed := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	return Options{
		Prefix:                 "obs",
		Timezone:               "UTC",
		DefaultDurationMinutes: 30,
		Generator:              opentime.NewGenerator(func() time.Time { return fixed }, nil),
	}
}

func onlyTask(t *testing.T, items []opentime.Item) (opentime.Item, *opentime.Task) {
	t.Helper()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d: %#v", len(items), items)
	}
	task, ok := items[0].Body.(*opentime.Task)
	if !ok {
		t.Fatalf("expected task body, got %T", items[0].Body)
	}
	return items[0], task
}

func TestCheckboxDueDate(t *testing.T) {
	line := "- [ ] Buy groceries 📅 2025-01-15"
	it, task := onlyTask(t, ParseCheckboxTasks(line, NewFileRef("Daily/2025-01-15.md"), testOptions()))
	if it.Title != "Buy groceries" {
		t.Fatalf("title = %q", it.Title)
	}
	if task.Status != opentime.StatusTodo || task.Due != "2025-01-15" {
		t.Fatalf("unexpected task %#v", task)
	}
	if task.Priority != nil || task.ScheduledStart != "" || len(it.Tags) != 0 {
		t.Fatalf("unexpected optional fields %#v tags=%v", task, it.Tags)
	}
	if !strings.HasPrefix(it.ID, "obs_task_buy-groceries_") {
		t.Fatalf("id = %q", it.ID)
	}
	x := it.XObsidian
	if x == nil || x.SourceFile != "Daily/2025-01-15.md" || *x.LineNumber != 1 || x.OriginalText != line {
		t.Fatalf("unexpected provenance %#v", x)
	}
}

func TestCheckboxCompletedWithPriority(t *testing.T) {
	it, task := onlyTask(t, ParseCheckboxTasks("- [x] Call doctor ⏫ #urgent", NewFileRef("todo.md"), testOptions()))
	if it.Title != "Call doctor" || task.Status != opentime.StatusDone {
		t.Fatalf("unexpected item %q %#v", it.Title, task)
	}
	if task.Priority == nil || *task.Priority != 9 {
		t.Fatalf("priority = %v", task.Priority)
	}
	if len(it.Tags) != 1 || it.Tags[0] != "urgent" {
		t.Fatalf("tags = %#v", it.Tags)
	}
}

func TestCheckboxPriorityTieBreak(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"- [ ] a 🔽", 1},
		{"- [ ] a ⏬", 1},
		{"- [ ] a 🔼", 5},
		{"- [ ] a 🔺", 9},
		{"- [ ] a 🔽 🔼", 5},
		{"- [ ] a 🔼 ⏫ 🔽", 9},
	}
	for _, tt := range tests {
		_, task := onlyTask(t, ParseCheckboxTasks(tt.line, NewFileRef("x.md"), testOptions()))
		if task.Priority == nil || *task.Priority != tt.want {
			t.Errorf("%q: priority = %v, want %d", tt.line, task.Priority, tt.want)
		}
	}
}

func TestCheckboxStripsEveryMarker(t *testing.T) {
	line := "  - [X] Water plants #home 🔁 daily ⏳ 2025-01-10 🛫 2025-01-09 ✅ 2025-01-11 #garden/indoor"
	it, task := onlyTask(t, ParseCheckboxTasks(line, NewFileRef("x.md"), testOptions()))
	if it.Title != "Water plants" {
		t.Fatalf("title = %q", it.Title)
	}
	if task.ScheduledStart != "2025-01-10T09:00:00" || task.Status != opentime.StatusDone {
		t.Fatalf("unexpected task %#v", task)
	}
	if len(it.Tags) != 2 || it.Tags[0] != "home" || it.Tags[1] != "garden/indoor" {
		t.Fatalf("tags = %#v", it.Tags)
	}
}

func TestCheckboxKeepsNumericHashes(t *testing.T) {
	it, _ := onlyTask(t, ParseCheckboxTasks("- [ ] Review PR #123 #work #work", NewFileRef("x.md"), testOptions()))
	if it.Title != "Review PR #123" {
		t.Fatalf("title = %q", it.Title)
	}
	if len(it.Tags) != 1 || it.Tags[0] != "work" {
		t.Fatalf("tags = %#v", it.Tags)
	}
}

func TestCheckboxIgnoresOtherLines(t *testing.T) {
	content := "# Today\n\nSome prose\n- plain bullet\n- [?] odd box\n- [ ] 📅 2025-01-15\n\r\n- [ ] Real one\n"
	items := ParseCheckboxTasks(content, NewFileRef("x.md"), testOptions())
	if len(items) != 1 || items[0].Title != "Real one" {
		t.Fatalf("unexpected items %#v", items)
	}
	if *items[0].XObsidian.LineNumber != 8 {
		t.Fatalf("line number = %d", *items[0].XObsidian.LineNumber)
	}
}
