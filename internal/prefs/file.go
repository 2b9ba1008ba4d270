package prefs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/amirbrooks/obsidian-elysium/internal/fsutil"
)

// FileStore reads preferences from a YAML, JSON or TOML file, for hosts without a
// defaults database. Keys are matched case-insensitively.
type FileStore struct {
	Path string
}

func (s *FileStore) load() (*viper.Viper, error) {
	path := fsutil.ExpandHome(strings.TrimSpace(s.Path))
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *FileStore) Read(_ context.Context, key string) (string, bool, error) {
	v, err := s.load()
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !v.IsSet(key) {
		return "", false, nil
	}
	return v.GetString(key), true, nil
}

func (s *FileStore) Exists(_ context.Context) bool {
	_, err := os.Stat(fsutil.ExpandHome(strings.TrimSpace(s.Path)))
	return err == nil
}
