package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timezone != "UTC" || cfg.DefaultDurationMinutes != 30 || cfg.IDPrefix != "obs" {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if !cfg.Sources.Checkbox || !cfg.Sources.TimeBlocks || !cfg.Sources.Frontmatter {
		t.Fatalf("all sources should default on: %#v", cfg.Sources)
	}
	if cfg.Preferences.Domain != "com.elysium.app" {
		t.Fatalf("domain = %q", cfg.Preferences.Domain)
	}
}

func TestLoadLayering(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	vault := t.TempDir()
	writeConfig(t, filepath.Join(home, ".elysium", "config.yaml"), "timezone: Europe/Berlin\ndestination: /global/out\nid_prefix: me\n")
	writeConfig(t, filepath.Join(vault, ".elysium", "config.yaml"), "destination: /vault/out\nsources:\n  time_blocks: false\n")
	t.Setenv("ELYSIUM_ID_PREFIX", "env")
	t.Setenv("ELYSIUM_SOURCES_CHECKBOX", "false")

	cfg, err := Load(vault)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timezone != "Europe/Berlin" {
		t.Fatalf("global value lost: %q", cfg.Timezone)
	}
	if cfg.Destination != "/vault/out" {
		t.Fatalf("vault config should override global: %q", cfg.Destination)
	}
	if cfg.IDPrefix != "env" {
		t.Fatalf("environment should override files: %q", cfg.IDPrefix)
	}
	if cfg.Sources.TimeBlocks || cfg.Sources.Checkbox || !cfg.Sources.Frontmatter {
		t.Fatalf("unexpected sources %#v", cfg.Sources)
	}
	if cfg.Vault != vault {
		t.Fatalf("vault = %q", cfg.Vault)
	}
	opts := cfg.ParserOptions()
	if opts.Prefix != "env" || opts.Timezone != "Europe/Berlin" || opts.DefaultDurationMinutes != 30 {
		t.Fatalf("unexpected parser options %#v", opts)
	}
}

func TestLoadVaultFromGlobalConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	vault := t.TempDir()
	writeConfig(t, filepath.Join(home, ".elysium", "config.yaml"), "vault: "+vault+"\n")
	writeConfig(t, filepath.Join(vault, ".elysium", "config.yaml"), "default_duration_minutes: 45\n")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Vault != vault || cfg.DefaultDurationMinutes != 45 {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, filepath.Join(home, ".elysium", "config.yaml"), "timezone: [unclosed\n")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected an error for a malformed config file")
	}
}
