package export

import (
	"io/fs"
	"os"

	"github.com/amirbrooks/obsidian-elysium/internal/fsutil"
)

// Filesystem is the I/O the exporter performs. WriteFile must replace the target
// atomically.
type Filesystem interface {
	MkdirAll(path string, perm fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error
	Stat(path string) (fs.FileInfo, error)
	Remove(path string) error
}

type OSFilesystem struct{}

func (OSFilesystem) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }
func (OSFilesystem) ReadFile(path string) ([]byte, error)         { return os.ReadFile(path) }
func (OSFilesystem) Stat(path string) (fs.FileInfo, error)        { return os.Stat(path) }
func (OSFilesystem) Remove(path string) error                     { return os.Remove(path) }

func (OSFilesystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return fsutil.AtomicWriteFile(path, data, perm)
}
