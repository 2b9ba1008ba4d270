// Package vault reads an Obsidian vault: it lists notes, runs the parsers over them
// and writes new source notes for items created outside the vault.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amirbrooks/obsidian-elysium/internal/fsutil"
	"github.com/amirbrooks/obsidian-elysium/internal/parser"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

type Vault struct {
	Root string
	// Name defaults to the root directory's base name.
	Name string
}

// Open opens the vault rooted at root. The directory must exist.
func Open(root string) (*Vault, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("%w: vault path is empty", ErrNotFound)
	}
	abs, err := filepath.Abs(fsutil.ExpandHome(root))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: vault %s", ErrNotFound, abs)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: vault %s is not a directory", ErrNotFound, abs)
	}
	return &Vault{Root: abs, Name: filepath.Base(abs)}, nil
}

// Notes lists the vault's markdown notes in sorted path order. Hidden directories
// such as .obsidian, .trash and .git are skipped.
func (v *Vault) Notes() ([]parser.FileRef, error) {
	var refs []parser.FileRef
	err := filepath.WalkDir(v.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == v.Root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != v.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isNoteFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(v.Root, path)
		if err != nil {
			return nil
		}
		refs = append(refs, parser.NewFileRef(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// Read returns the content of the note at the vault-relative path ref.Path.
func (v *Vault) Read(ref parser.FileRef) (string, error) {
	b, err := os.ReadFile(v.abs(ref.Path))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (v *Vault) abs(rel string) string {
	return filepath.Join(v.Root, filepath.FromSlash(rel))
}

func isNoteFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}
