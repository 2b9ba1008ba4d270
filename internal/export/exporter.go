// Package export writes OpenTime documents into the companion app's watched folder,
// merging with whatever is already there.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
	"github.com/amirbrooks/obsidian-elysium/internal/prefs"
)

var (
	ErrNoDestination = errors.New("no destination folder configured")
	ErrPartial       = errors.New("export incomplete")
)

const DefaultGenerator = "Elysium Obsidian Bridge"

type PreferenceReader interface {
	ReadPreferences(ctx context.Context) prefs.Preferences
}

type Exporter struct {
	FS        Filesystem
	Prefs     PreferenceReader
	Logger    *log.Logger
	Now       func() time.Time
	Generator string
}

// New returns an exporter writing to the real filesystem.
func New(p PreferenceReader, logger *log.Logger) *Exporter {
	return &Exporter{FS: OSFilesystem{}, Prefs: p, Logger: logger}
}

type Failure struct {
	ItemID string
	Path   string
	Err    error
}

type Result struct {
	Mode      prefs.ExportMode
	Attempted int
	Succeeded int
	// Files lists every file written, in write order.
	Files    []string
	Failures []Failure
}

func (r Result) Summary() string {
	files := "files"
	if len(r.Files) == 1 {
		files = "file"
	}
	s := fmt.Sprintf("exported %d/%d items to %d %s (%s)", r.Succeeded, r.Attempted, len(r.Files), files, r.Mode)
	if n := len(r.Failures); n > 0 {
		s += fmt.Sprintf(", %d failed", n)
	}
	return s
}

// ExportItems writes items to dest in the layout the preferences select. A partial
// outcome returns the result together with an error wrapping ErrPartial.
func (e *Exporter) ExportItems(ctx context.Context, items []opentime.Item, dest, timezone string) (Result, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return Result{}, ErrNoDestination
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	p := prefs.Defaults()
	if e.Prefs != nil {
		p = e.Prefs.ReadPreferences(ctx)
	}
	res := Result{Mode: p.ExportMode, Attempted: len(items)}

	unlock := lockDestination(dest)
	defer unlock()

	if err := e.FS.MkdirAll(dest, 0o755); err != nil {
		return res, fmt.Errorf("create destination %s: %w", dest, err)
	}

	valid := make([]opentime.Item, 0, len(items))
	for _, it := range items {
		if err := opentime.Validate(it); err != nil {
			res.Failures = append(res.Failures, Failure{ItemID: it.ID, Err: err})
			continue
		}
		valid = append(valid, it)
	}

	switch p.ExportMode {
	case prefs.ModePerItem:
		for _, it := range valid {
			if err := ctx.Err(); err != nil {
				res.Failures = append(res.Failures, Failure{ItemID: it.ID, Err: err})
				continue
			}
			path := filepath.Join(dest, ItemFilename(it))
			if err := e.writeMerged(path, []opentime.Item{it}, timezone); err != nil {
				e.logger().Printf("error: export %s: %v", it.ID, err)
				res.Failures = append(res.Failures, Failure{ItemID: it.ID, Path: path, Err: err})
				continue
			}
			res.Succeeded++
			res.Files = appendUnique(res.Files, path)
		}
	default:
		path := filepath.Join(dest, SingleFilename(p.SingleFilename))
		if err := e.writeMerged(path, valid, timezone); err != nil {
			e.logger().Printf("error: export %s: %v", path, err)
			for _, it := range valid {
				res.Failures = append(res.Failures, Failure{ItemID: it.ID, Path: path, Err: err})
			}
			return res, fmt.Errorf("write %s: %w", path, err)
		}
		res.Succeeded = len(valid)
		res.Files = append(res.Files, path)
	}

	if res.Succeeded < res.Attempted {
		return res, fmt.Errorf("%w: %d of %d items exported", ErrPartial, res.Succeeded, res.Attempted)
	}
	return res, nil
}

// ExportItem exports a single item.
func (e *Exporter) ExportItem(ctx context.Context, it opentime.Item, dest, timezone string) error {
	res, err := e.ExportItems(ctx, []opentime.Item{it}, dest, timezone)
	if err != nil && len(res.Failures) == 1 && res.Failures[0].Err != nil {
		return fmt.Errorf("%w: %v", err, res.Failures[0].Err)
	}
	return err
}

// writeMerged merges fresh into the document at path and rewrites it. A prior file
// that does not decode is logged and replaced.
func (e *Exporter) writeMerged(path string, fresh []opentime.Item, timezone string) error {
	var priorItems []opentime.Item
	priorTZ := ""
	data, err := e.FS.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	default:
		prior, derr := opentime.Decode(data)
		if derr != nil {
			e.logger().Printf("warning: %s is not a readable OpenTime file, replacing it: %v", path, derr)
			break
		}
		for _, s := range prior.Skipped {
			e.logger().Printf("warning: %s: dropping item %d: %s", path, s.Index, s.Reason)
		}
		priorItems = prior.Items
		priorTZ = prior.DefaultTimezone
	}

	if strings.TrimSpace(timezone) == "" {
		timezone = priorTZ
	}
	doc := opentime.NewDocument(timezone, e.generator(), e.now())
	doc.Items = opentime.Merge(priorItems, fresh)
	return e.FS.WriteFile(path, opentime.Encode(doc), 0o644)
}

// CheckFolderAccess reports whether path is a writable directory, or could be created
// as one. It writes and removes a probe file.
func (e *Exporter) CheckFolderAccess(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" {
		return false
	}
	info, err := e.FS.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false
		}
		probe := filepath.Join(path, ".elysium-probe-"+uuid.NewString())
		if err := e.FS.WriteFile(probe, nil, 0o644); err != nil {
			return false
		}
		_ = e.FS.Remove(probe)
		return true
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false
	}
	parent := filepath.Dir(filepath.Clean(path))
	if parent == path {
		return false
	}
	return e.CheckFolderAccess(parent)
}

// CheckFolderAccess probes path on the real filesystem.
func CheckFolderAccess(path string) bool {
	return (&Exporter{FS: OSFilesystem{}}).CheckFolderAccess(path)
}

func (e *Exporter) logger() *log.Logger {
	if e.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return e.Logger
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Exporter) generator() string {
	if e.Generator != "" {
		return e.Generator
	}
	return DefaultGenerator
}

var destinations sync.Map

// lockDestination serialises exports to one folder within this process.
func lockDestination(dest string) func() {
	key := filepath.Clean(dest)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	mu, _ := destinations.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
