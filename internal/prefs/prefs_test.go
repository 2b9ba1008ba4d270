package prefs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

type mapStore struct {
	values map[string]string
	err    error
	exists bool
}

func (m mapStore) Read(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m mapStore) Exists(context.Context) bool { return m.exists }

func TestReadPreferencesDefaults(t *testing.T) {
	got := NewBridge(mapStore{}, nil).ReadPreferences(context.Background())
	if got.ExportMode != ModeSingle || got.SingleFilename != "elysium-schedule" || got.FolderPath != "" {
		t.Fatalf("unexpected defaults %#v", got)
	}
	if NewBridge(nil, nil).IsInstalled(context.Background()) {
		t.Fatalf("bridge without store should not report installed")
	}
}

func TestReadPreferencesValues(t *testing.T) {
	b := NewBridge(mapStore{exists: true, values: map[string]string{
		KeyExportMode:     "per-item\n",
		KeySingleFilename: "my-plan",
		KeyFolderPath:     "/Users/me/Elysium",
	}}, nil)
	got := b.ReadPreferences(context.Background())
	if got.ExportMode != ModePerItem || got.SingleFilename != "my-plan" || got.FolderPath != "/Users/me/Elysium" {
		t.Fatalf("unexpected preferences %#v", got)
	}
	if !b.IsInstalled(context.Background()) {
		t.Fatalf("expected installed")
	}
}

func TestReadPreferencesStoreErrorFallsBack(t *testing.T) {
	got := NewBridge(mapStore{err: errors.New("boom")}, nil).ReadPreferences(context.Background())
	if got != Defaults() {
		t.Fatalf("expected defaults on store error, got %#v", got)
	}
}

func TestParseExportMode(t *testing.T) {
	for in, want := range map[string]ExportMode{
		"single": ModeSingle, "per-item": ModePerItem, "PER_ITEM": ModePerItem, "": ModeSingle, "weird": ModeSingle,
	} {
		if got := ParseExportMode(in); got != want {
			t.Errorf("ParseExportMode(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestDefaultsStoreFallbackChain(t *testing.T) {
	var calls []string
	s := &DefaultsStore{Domain: DefaultDomain, Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, name+" "+strings.Join(args, " "))
		if name == "sh" {
			return []byte("per-item\n"), nil
		}
		return nil, exec.ErrNotFound
	}}
	v, ok, err := s.Read(context.Background(), KeyExportMode)
	if err != nil || !ok || v != "per-item" {
		t.Fatalf("Read = %q, %v, %v", v, ok, err)
	}
	want := []string{
		"defaults read com.elysium.app exportMode",
		"/usr/bin/defaults read com.elysium.app exportMode",
		"sh -c defaults 'read' 'com.elysium.app' 'exportMode'",
	}
	if strings.Join(calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %#v", calls)
	}
}

func TestDefaultsStoreMissingKey(t *testing.T) {
	calls := 0
	s := &DefaultsStore{Domain: DefaultDomain, Run: func(context.Context, string, ...string) ([]byte, error) {
		calls++
		return nil, &exec.ExitError{}
	}}
	v, ok, err := s.Read(context.Background(), KeyFolderPath)
	if err != nil || ok || v != "" {
		t.Fatalf("Read = %q, %v, %v", v, ok, err)
	}
	if calls != 1 {
		t.Fatalf("a missing key should not try fallbacks, got %d calls", calls)
	}
	if s.Exists(context.Background()) {
		t.Fatalf("Exists should be false when defaults fails")
	}
}

func TestDefaultsStoreUnavailable(t *testing.T) {
	s := &DefaultsStore{Domain: DefaultDomain, Run: func(context.Context, string, ...string) ([]byte, error) {
		return nil, exec.ErrNotFound
	}}
	if _, _, err := s.Read(context.Background(), KeyExportMode); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	missing := &FileStore{Path: path}
	if _, ok, err := missing.Read(context.Background(), KeyExportMode); ok || err != nil {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
	if missing.Exists(context.Background()) {
		t.Fatalf("missing file should not exist")
	}
	if err := os.WriteFile(path, []byte("exportMode: per-item\nobsidianFolderPath: /tmp/elysium\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := NewBridge(&FileStore{Path: path}, nil).ReadPreferences(context.Background())
	if got.ExportMode != ModePerItem || got.FolderPath != "/tmp/elysium" || got.SingleFilename != DefaultSingleFilename {
		t.Fatalf("unexpected preferences %#v", got)
	}
}
