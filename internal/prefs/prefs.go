// Package prefs reads the companion app's export preferences.
package prefs

import (
	"context"
	"io"
	"log"
	"strings"
)

type ExportMode string

const (
	ModeSingle  ExportMode = "single"
	ModePerItem ExportMode = "per-item"
)

const (
	DefaultDomain         = "com.elysium.app"
	DefaultSingleFilename = "elysium-schedule"

	KeyExportMode     = "exportMode"
	KeySingleFilename = "singleFileName"
	KeyFolderPath     = "obsidianFolderPath"
)

// ParseExportMode maps a stored value to a mode. Anything unrecognised is single.
func ParseExportMode(s string) ExportMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "per-item", "per_item", "peritem", "multiple", "multi":
		return ModePerItem
	default:
		return ModeSingle
	}
}

type Preferences struct {
	ExportMode     ExportMode
	SingleFilename string
	// FolderPath is empty when the app has no custom destination.
	FolderPath string
}

func Defaults() Preferences {
	return Preferences{ExportMode: ModeSingle, SingleFilename: DefaultSingleFilename}
}

// Store is a key-value view of one preference namespace.
type Store interface {
	Read(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context) bool
}

type Bridge struct {
	Store  Store
	Logger *log.Logger
}

func NewBridge(store Store, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Bridge{Store: store, Logger: logger}
}

// ReadPreferences never fails: missing keys and store errors fall back to Defaults.
func (b *Bridge) ReadPreferences(ctx context.Context) Preferences {
	p := Defaults()
	if b == nil || b.Store == nil {
		return p
	}
	if v, ok := b.read(ctx, KeyExportMode); ok {
		p.ExportMode = ParseExportMode(v)
	}
	if v, ok := b.read(ctx, KeySingleFilename); ok {
		p.SingleFilename = v
	}
	if v, ok := b.read(ctx, KeyFolderPath); ok {
		p.FolderPath = v
	}
	return p
}

func (b *Bridge) IsInstalled(ctx context.Context) bool {
	if b == nil || b.Store == nil {
		return false
	}
	return b.Store.Exists(ctx)
}

func (b *Bridge) read(ctx context.Context, key string) (string, bool) {
	v, ok, err := b.Store.Read(ctx, key)
	if err != nil {
		if b.Logger != nil {
			b.Logger.Printf("warning: preference %s: %v", key, err)
		}
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
