// Package config loads elysium's settings: defaults, then the global file, then the
// vault's own file, then ELYSIUM_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/amirbrooks/obsidian-elysium/internal/fsutil"
	"github.com/amirbrooks/obsidian-elysium/internal/parser"
	"github.com/amirbrooks/obsidian-elysium/internal/prefs"
)

const (
	dirName   = ".elysium"
	fileName  = "config.yaml"
	envPrefix = "ELYSIUM"
)

type Config struct {
	Vault                  string            `yaml:"vault" mapstructure:"vault"`
	Destination            string            `yaml:"destination" mapstructure:"destination"`
	Timezone               string            `yaml:"timezone" mapstructure:"timezone"`
	DefaultDurationMinutes int               `yaml:"default_duration_minutes" mapstructure:"default_duration_minutes"`
	IDPrefix               string            `yaml:"id_prefix" mapstructure:"id_prefix"`
	Generator              string            `yaml:"generator" mapstructure:"generator"`
	Sources                SourcesConfig     `yaml:"sources" mapstructure:"sources"`
	Preferences            PreferencesConfig `yaml:"preferences" mapstructure:"preferences"`
}

// SourcesConfig toggles the individual note parsers.
type SourcesConfig struct {
	Checkbox    bool `yaml:"checkbox" mapstructure:"checkbox"`
	TimeBlocks  bool `yaml:"time_blocks" mapstructure:"time_blocks"`
	Frontmatter bool `yaml:"frontmatter" mapstructure:"frontmatter"`
}

// PreferencesConfig selects the companion-app preference store. When File is set it
// replaces the macOS defaults domain.
type PreferencesConfig struct {
	Domain string `yaml:"domain" mapstructure:"domain"`
	File   string `yaml:"file" mapstructure:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Timezone:               "UTC",
		DefaultDurationMinutes: parser.DefaultDurationMinutes,
		IDPrefix:               parser.DefaultPrefix,
		Generator:              "Elysium Obsidian Bridge",
		Sources: SourcesConfig{
			Checkbox:    true,
			TimeBlocks:  true,
			Frontmatter: true,
		},
		Preferences: PreferencesConfig{Domain: prefs.DefaultDomain},
	}
}

// Load merges the global config with the config inside vault (which may be empty).
// Missing files are not errors; unreadable ones are.
func Load(vault string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadFile(GlobalConfigPath(), cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if vault == "" {
		vault = cfg.Vault
	}
	if vault != "" {
		if err := loadFile(ProjectConfigPath(vault), cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	applyEnv(cfg)
	if cfg.Vault == "" {
		cfg.Vault = vault
	}
	cfg.Vault = fsutil.ExpandHome(cfg.Vault)
	cfg.Destination = fsutil.ExpandHome(cfg.Destination)
	cfg.Preferences.File = fsutil.ExpandHome(cfg.Preferences.File)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if path == "" {
		return fs.ErrNotExist
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(cfg)
}

// applyEnv overlays ELYSIUM_* variables, e.g. ELYSIUM_DESTINATION or
// ELYSIUM_SOURCES_TIME_BLOCKS.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"vault", "destination", "timezone", "default_duration_minutes", "id_prefix", "generator",
		"sources.checkbox", "sources.time_blocks", "sources.frontmatter",
		"preferences.domain", "preferences.file",
	} {
		_ = v.BindEnv(key)
	}
	if s := v.GetString("vault"); s != "" {
		cfg.Vault = s
	}
	if s := v.GetString("destination"); s != "" {
		cfg.Destination = s
	}
	if s := v.GetString("timezone"); s != "" {
		cfg.Timezone = s
	}
	if v.IsSet("default_duration_minutes") {
		if n := v.GetInt("default_duration_minutes"); n > 0 {
			cfg.DefaultDurationMinutes = n
		}
	}
	if s := v.GetString("id_prefix"); s != "" {
		cfg.IDPrefix = s
	}
	if s := v.GetString("generator"); s != "" {
		cfg.Generator = s
	}
	if v.IsSet("sources.checkbox") {
		cfg.Sources.Checkbox = v.GetBool("sources.checkbox")
	}
	if v.IsSet("sources.time_blocks") {
		cfg.Sources.TimeBlocks = v.GetBool("sources.time_blocks")
	}
	if v.IsSet("sources.frontmatter") {
		cfg.Sources.Frontmatter = v.GetBool("sources.frontmatter")
	}
	if s := v.GetString("preferences.domain"); s != "" {
		cfg.Preferences.Domain = s
	}
	if s := v.GetString("preferences.file"); s != "" {
		cfg.Preferences.File = s
	}
}

// GlobalConfigPath returns ~/.elysium/config.yaml, or "" without a home directory.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, dirName, fileName)
}

// ProjectConfigPath returns the config path inside a vault.
func ProjectConfigPath(vault string) string {
	return filepath.Join(fsutil.ExpandHome(vault), dirName, fileName)
}

// ParserOptions derives the parser defaults from cfg.
func (c *Config) ParserOptions() parser.Options {
	return parser.Options{
		Prefix:                 c.IDPrefix,
		Timezone:               c.Timezone,
		DefaultDurationMinutes: c.DefaultDurationMinutes,
	}
}
