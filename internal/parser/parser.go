// Package parser turns Obsidian markdown notes into OpenTime items. Each parser is
// pure: it reads the note text it is given and never touches the filesystem.
package parser

import (
	"path"
	"strings"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
)

const (
	DefaultPrefix          = "obs"
	DefaultDurationMinutes = 30
)

// Options carries the caller-configured defaults shared by every parser.
type Options struct {
	Prefix                 string
	Timezone               string
	DefaultDurationMinutes int
	// Generator mints ids. Nil uses the package default generator.
	Generator *opentime.Generator
}

func (o Options) prefix() string {
	if p := strings.TrimSpace(o.Prefix); p != "" {
		return p
	}
	return DefaultPrefix
}

func (o Options) duration() int {
	if o.DefaultDurationMinutes > 0 {
		return o.DefaultDurationMinutes
	}
	return DefaultDurationMinutes
}

func (o Options) newID(kind, title string) string {
	prefix := o.prefix() + "_" + kind
	if o.Generator != nil {
		return o.Generator.NewID(prefix, title)
	}
	return opentime.NewID(prefix, title)
}

// FileRef identifies a note by its vault-relative, slash-separated path.
type FileRef struct {
	Path   string
	Folder string
}

// NewFileRef derives the folder from p.
func NewFileRef(p string) FileRef {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
	folder := path.Dir(p)
	if folder == "." {
		folder = ""
	}
	return FileRef{Path: p, Folder: folder}
}

// Base is the file name without directory or extension.
func (f FileRef) Base() string {
	base := path.Base(f.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (f FileRef) provenance(line int, raw string) *opentime.ObsidianExt {
	x := &opentime.ObsidianExt{SourceFile: f.Path, FolderPath: f.Folder}
	if line > 0 {
		x.LineNumber = opentime.IntPtr(line)
		x.OriginalText = raw
	}
	return x
}

func splitLines(content string) []string {
	s := strings.ReplaceAll(content, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
