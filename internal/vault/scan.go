package vault

import (
	"context"
	"io"
	"log"
	"runtime"
	"sync"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
	"github.com/amirbrooks/obsidian-elysium/internal/parser"
)

type Sources struct {
	Checkbox    bool
	TimeBlocks  bool
	Frontmatter bool
}

func AllSources() Sources {
	return Sources{Checkbox: true, TimeBlocks: true, Frontmatter: true}
}

type ScanOptions struct {
	Parser  parser.Options
	Sources Sources
	// Date overrides the file-name date for time blocks.
	Date string
	// Workers bounds parallel note parsing. Zero uses GOMAXPROCS.
	Workers int
	Logger  *log.Logger
}

// NoteError records a note that could not be read or whose frontmatter was rejected.
// The rest of the note's items are still returned.
type NoteError struct {
	Path string
	Err  error
}

type ScanResult struct {
	Notes  int
	Items  []opentime.Item
	Errors []NoteError
}

type noteResult struct {
	items []opentime.Item
	errs  []NoteError
}

// Scan parses every note. Notes are parsed in parallel; items are returned in note
// order and, within a note, frontmatter item first, then checkbox tasks, then time
// blocks.
func (v *Vault) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	refs, err := v.Notes()
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]noteResult, len(refs))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = v.parseNote(refs[i], opts)
			}
		}()
	}

	var cancelled error
feed:
	for i := range refs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if cancelled != nil {
		return nil, cancelled
	}

	res := &ScanResult{Notes: len(refs)}
	for _, r := range results {
		res.Items = append(res.Items, r.items...)
		for _, e := range r.errs {
			logger.Printf("warning: %s: %v", e.Path, e.Err)
		}
		res.Errors = append(res.Errors, r.errs...)
	}
	return res, nil
}

func (v *Vault) parseNote(ref parser.FileRef, opts ScanOptions) noteResult {
	var r noteResult
	content, err := v.Read(ref)
	if err != nil {
		r.errs = append(r.errs, NoteError{Path: ref.Path, Err: err})
		return r
	}
	if opts.Sources.Frontmatter {
		it, ok, err := parser.ParseFrontmatter(content, ref, opts.Parser)
		switch {
		case err != nil:
			r.errs = append(r.errs, NoteError{Path: ref.Path, Err: err})
		case ok:
			if it.XElysium == nil {
				it.XElysium = v.link(ref)
			}
			r.items = append(r.items, *it)
		}
	}
	if opts.Sources.Checkbox {
		r.items = append(r.items, parser.ParseCheckboxTasks(content, ref, opts.Parser)...)
	}
	if opts.Sources.TimeBlocks {
		r.items = append(r.items, parser.ParseTimeBlocks(content, ref, opts.Date, opts.Parser)...)
	}
	return r
}

// link marks an item as backed by the note at ref.
func (v *Vault) link(ref parser.FileRef) *opentime.ElysiumExt {
	return &opentime.ElysiumExt{
		ObsidianEnabled: true,
		VaultName:       v.Name,
		FolderPath:      ref.Folder,
		SourceFile:      ref.Path,
	}
}
