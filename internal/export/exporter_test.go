package export

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
	"github.com/amirbrooks/obsidian-elysium/internal/prefs"
)

type memFS struct {
	mu       sync.Mutex
	files    map[string][]byte
	failOn   map[string]error
	ops      int
	mkdirErr error
}

func newMemFS() *memFS {
	return &memFS{files: map[string][]byte{}, failOn: map[string]error{}}
}

func (m *memFS) MkdirAll(string, fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	return m.mkdirErr
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	b, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return b, nil
}

func (m *memFS) WriteFile(path string, data []byte, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops++
	if err := m.failOn[path]; err != nil {
		return err
	}
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *memFS) Stat(string) (fs.FileInfo, error) { return nil, fs.ErrNotExist }
func (m *memFS) Remove(string) error              { return nil }

func (m *memFS) names() []string {
	var out []string
	for k := range m.files {
		out = append(out, filepath.Base(k))
	}
	sort.Strings(out)
	return out
}

type fixedPrefs prefs.Preferences

func (p fixedPrefs) ReadPreferences(context.Context) prefs.Preferences { return prefs.Preferences(p) }

func single() fixedPrefs {
	return fixedPrefs(prefs.Defaults())
}

func perItem() fixedPrefs {
	p := prefs.Defaults()
	p.ExportMode = prefs.ModePerItem
	return fixedPrefs(p)
}

func newTestExporter(fsys Filesystem, p PreferenceReader) (*Exporter, *bytes.Buffer) {
	var logs bytes.Buffer
	return &Exporter{
		FS:     fsys,
		Prefs:  p,
		Logger: log.New(&logs, "elysium: ", 0),
		Now:    func() time.Time { return time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC) },
	}, &logs
}

func task(id, title string) opentime.Item {
	return opentime.Item{ID: id, Title: title, Body: &opentime.Task{Status: opentime.StatusTodo}}
}

func TestItemFilename(t *testing.T) {
	tests := []struct {
		item opentime.Item
		want string
	}{
		{task("a", "Review PR #123!"), "elysium-task-review-pr-123.ot"},
		{task("a", "  Plan__the   trip  "), "elysium-task-plan-the-trip.ot"},
		{task("a", "Café — déjà vu"), "elysium-task-caf-dj-vu.ot"},
		{task("a", "!!!"), "elysium-task-untitled.ot"},
		{opentime.Item{ID: "e", Title: strings.Repeat("x", 80), Body: &opentime.Event{}}, "elysium-event-" + strings.Repeat("x", 50) + ".ot"},
	}
	for _, tt := range tests {
		if got := ItemFilename(tt.item); got != tt.want {
			t.Errorf("ItemFilename(%q) = %q, want %q", tt.item.Title, got, tt.want)
		}
	}
}

func TestSingleFilename(t *testing.T) {
	for in, want := range map[string]string{"": "elysium-schedule.ot", "plan": "plan.ot", "plan.ot": "plan.ot"} {
		if got := SingleFilename(in); got != want {
			t.Errorf("SingleFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExportNoDestinationDoesNoIO(t *testing.T) {
	fsys := newMemFS()
	e, _ := newTestExporter(fsys, single())
	_, err := e.ExportItems(context.Background(), []opentime.Item{task("a", "A")}, "  ", "UTC")
	if !errors.Is(err, ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
	if fsys.ops != 0 {
		t.Fatalf("expected no I/O, got %d operations", fsys.ops)
	}
}

func TestExportSingleFileMergesPrior(t *testing.T) {
	fsys := newMemFS()
	e, _ := newTestExporter(fsys, single())
	path := filepath.Join("/out", "elysium-schedule.ot")

	prior := opentime.NewDocument("UTC", "Elysium", time.Now())
	appOwned := opentime.Item{ID: "app-1", Title: "Made in the app", Body: &opentime.Reminder{Time: "2025-01-16T09:00:00"}}
	prior.Items = []opentime.Item{appOwned, task("t1", "Old title")}
	fsys.files[path] = opentime.Encode(prior)

	res, err := e.ExportItems(context.Background(), []opentime.Item{task("t1", "New title"), task("t2", "Fresh")}, "/out", "UTC")
	if err != nil {
		t.Fatalf("ExportItems: %v", err)
	}
	if res.Mode != prefs.ModeSingle || res.Attempted != 2 || res.Succeeded != 2 || len(res.Files) != 1 {
		t.Fatalf("unexpected result %#v", res)
	}
	doc, err := opentime.Decode(fsys.files[path])
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, it := range doc.Items {
		got = append(got, it.ID+"="+it.Title)
	}
	want := "app-1=Made in the app,t1=New title,t2=Fresh"
	if strings.Join(got, ",") != want {
		t.Fatalf("merged items = %v, want %s", got, want)
	}
	if doc.CreatedAt != "2025-01-15T08:00:00Z" || doc.GeneratedBy != DefaultGenerator {
		t.Fatalf("unexpected metadata %#v", doc)
	}
}

func TestExportCorruptPriorIsReplaced(t *testing.T) {
	fsys := newMemFS()
	e, logs := newTestExporter(fsys, single())
	path := filepath.Join("/out", "elysium-schedule.ot")
	fsys.files[path] = []byte("items: [this is : not {valid")

	res, err := e.ExportItems(context.Background(), []opentime.Item{task("t1", "Task")}, "/out", "UTC")
	if err != nil || res.Succeeded != 1 {
		t.Fatalf("export should proceed over a corrupt file: %#v %v", res, err)
	}
	doc, err := opentime.Decode(fsys.files[path])
	if err != nil || len(doc.Items) != 1 {
		t.Fatalf("expected a clean single-item file, got %v %v", doc, err)
	}
	if !strings.Contains(logs.String(), "warning:") {
		t.Fatalf("expected a logged warning, got %q", logs.String())
	}
}

func TestExportPerItemPartialFailure(t *testing.T) {
	fsys := newMemFS()
	e, _ := newTestExporter(fsys, perItem())
	fsys.failOn[filepath.Join("/out", "elysium-task-b.ot")] = errors.New("disk full")

	items := []opentime.Item{task("a", "A"), task("b", "B"), task("c", "C"), {ID: "r", Title: "No time", Body: &opentime.Reminder{}}}
	res, err := e.ExportItems(context.Background(), items, "/out", "UTC")
	if !errors.Is(err, ErrPartial) {
		t.Fatalf("expected ErrPartial, got %v", err)
	}
	if res.Attempted != 4 || res.Succeeded != 2 || len(res.Failures) != 2 {
		t.Fatalf("unexpected result %#v", res)
	}
	ids := map[string]bool{}
	for _, f := range res.Failures {
		ids[f.ItemID] = true
	}
	if !ids["b"] || !ids["r"] {
		t.Fatalf("unexpected failures %#v", res.Failures)
	}
	if names := fsys.names(); strings.Join(names, ",") != "elysium-task-a.ot,elysium-task-c.ot" {
		t.Fatalf("files = %v", names)
	}
	if !strings.Contains(res.Summary(), "2/4") {
		t.Fatalf("summary = %q", res.Summary())
	}
}

func TestExportPerItemMergesExistingFile(t *testing.T) {
	fsys := newMemFS()
	e, _ := newTestExporter(fsys, perItem())
	if _, err := e.ExportItems(context.Background(), []opentime.Item{task("a", "Same")}, "/out", "UTC"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ExportItems(context.Background(), []opentime.Item{task("b", "Same")}, "/out", "UTC"); err != nil {
		t.Fatal(err)
	}
	doc, err := opentime.Decode(fsys.files[filepath.Join("/out", "elysium-task-same.ot")])
	if err != nil || len(doc.Items) != 2 {
		t.Fatalf("expected both items in the shared file, got %v %v", doc, err)
	}
}

func TestExportSingleWriteFailure(t *testing.T) {
	fsys := newMemFS()
	e, _ := newTestExporter(fsys, single())
	fsys.failOn[filepath.Join("/out", "elysium-schedule.ot")] = errors.New("read-only")
	res, err := e.ExportItems(context.Background(), []opentime.Item{task("a", "A")}, "/out", "UTC")
	if err == nil || res.Succeeded != 0 || len(res.Failures) != 1 {
		t.Fatalf("expected a reported failure, got %#v %v", res, err)
	}
}

func TestExportItem(t *testing.T) {
	fsys := newMemFS()
	e, _ := newTestExporter(fsys, single())
	if err := e.ExportItem(context.Background(), task("a", "A"), "/out", ""); err != nil {
		t.Fatal(err)
	}
	err := e.ExportItem(context.Background(), opentime.Item{ID: "x", Title: "X", Body: &opentime.Event{}}, "/out", "")
	if !errors.Is(err, ErrPartial) || !strings.Contains(err.Error(), "start and end") {
		t.Fatalf("expected the validation reason, got %v", err)
	}
}

func TestExportToRealFolder(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "Elysium", "inbox")
	e := New(perItem(), nil)
	res, err := e.ExportItems(context.Background(), []opentime.Item{task("a", "Review PR #123!")}, dest, "UTC")
	if err != nil {
		t.Fatalf("ExportItems: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dest, "elysium-task-review-pr-123.ot"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "title: Review PR #123!") && !strings.Contains(string(b), `title: "Review PR #123!"`) {
		t.Fatalf("unexpected file:\n%s", b)
	}
	if len(res.Files) != 1 {
		t.Fatalf("files = %v", res.Files)
	}
}

func TestCheckFolderAccess(t *testing.T) {
	dir := t.TempDir()
	if !CheckFolderAccess(dir) {
		t.Fatalf("temp dir should be writable")
	}
	if !CheckFolderAccess(filepath.Join(dir, "not", "yet")) {
		t.Fatalf("missing folder under a writable parent should be creatable")
	}
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckFolderAccess(file) || CheckFolderAccess("") {
		t.Fatalf("files and empty paths are not folders")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("probe files left behind: %v", entries)
	}
}

func TestExportKeepsPriorItemsWithAwkwardText(t *testing.T) {
	fsys := newMemFS()
	e, logs := newTestExporter(fsys, single())
	path := filepath.Join("/out", "elysium-schedule.ot")

	appOwned := opentime.Item{ID: "app_task_1", Title: "From the app", Body: &opentime.Task{Status: opentime.StatusTodo}}
	indented := task("obs_task_2", "Indented notes")
	indented.Notes = "\n  indented first line\nsecond"
	control := task("obs_task_3", "bell\x07 in title")
	if _, err := e.ExportItems(context.Background(), []opentime.Item{appOwned, indented, control}, "/out", "UTC"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ExportItems(context.Background(), []opentime.Item{task("obs_task_4", "Later")}, "/out", "UTC"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(logs.String(), "warning:") {
		t.Fatalf("prior file should decode cleanly: %s", logs.String())
	}
	doc, err := opentime.Decode(fsys.files[path])
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, it := range doc.Items {
		got = append(got, it.ID)
	}
	if strings.Join(got, ",") != "app_task_1,obs_task_2,obs_task_3,obs_task_4" {
		t.Fatalf("items = %v", got)
	}
	if doc.Items[1].Notes != indented.Notes || doc.Items[2].Title != control.Title {
		t.Fatalf("text not preserved: %q %q", doc.Items[1].Notes, doc.Items[2].Title)
	}
}
