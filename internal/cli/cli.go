package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/obsidian-elysium/internal/config"
	"github.com/amirbrooks/obsidian-elysium/internal/export"
	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
	"github.com/amirbrooks/obsidian-elysium/internal/prefs"
	"github.com/amirbrooks/obsidian-elysium/internal/ui"
	"github.com/amirbrooks/obsidian-elysium/internal/vault"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitPartial  = 5
	ExitInternal = 10
)

const Version = "0.3.0"

type GlobalFlags struct {
	Vault   string
	Dest    string
	Verbose bool
}

// app carries the state every subcommand shares once the root command has loaded
// the configuration.
type app struct {
	gf     GlobalFlags
	cfg    *config.Config
	logger *log.Logger
	stdout io.Writer
	stderr io.Writer
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		return exitCode(err)
	}
	return ExitOK
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "elysium",
		Short:         "Bridge Obsidian notes to the Elysium planner",
		Long:          "elysium scans an Obsidian vault for tasks, time blocks and typed notes and exports them as OpenTime files into Elysium's watched folder.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.gf.Vault, "vault", "", "Vault root (default: config vault or ELYSIUM_VAULT)")
	pf.StringVar(&a.gf.Dest, "dest", "", "Export folder (default: config destination, then the app's folder preference)")
	pf.BoolVarP(&a.gf.Verbose, "verbose", "v", false, "Log warnings to stderr")

	root.AddCommand(
		newScanCmd(a),
		newExportCmd(a),
		newAddCmd(a),
		newCheckCmd(a),
		newPrefsCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) load() error {
	a.logger = log.New(io.Discard, "", 0)
	if a.gf.Verbose {
		a.logger = log.New(a.stderr, "elysium: ", 0)
	}
	cfg, err := config.Load(a.gf.Vault)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(a.gf.Vault) != "" {
		cfg.Vault = a.gf.Vault
	}
	a.cfg = cfg
	return nil
}

func (a *app) openVault() (*vault.Vault, error) {
	if strings.TrimSpace(a.cfg.Vault) == "" {
		return nil, usagef("no vault configured; pass --vault or set vault in %s", config.GlobalConfigPath())
	}
	return vault.Open(a.cfg.Vault)
}

func (a *app) bridge() *prefs.Bridge {
	var store prefs.Store
	if p := strings.TrimSpace(a.cfg.Preferences.File); p != "" {
		store = &prefs.FileStore{Path: p}
	} else {
		store = prefs.NewDefaultsStore(a.cfg.Preferences.Domain)
	}
	return prefs.NewBridge(store, a.logger)
}

func (a *app) exporter(b *prefs.Bridge) *export.Exporter {
	e := export.New(b, a.logger)
	e.Generator = a.cfg.Generator
	return e
}

// destination resolves the export folder: flag, then config, then the companion
// app's own folder preference.
func (a *app) destination(ctx context.Context, b *prefs.Bridge) string {
	if d := strings.TrimSpace(a.gf.Dest); d != "" {
		return d
	}
	if d := strings.TrimSpace(a.cfg.Destination); d != "" {
		return d
	}
	return b.ReadPreferences(ctx).FolderPath
}

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue),
		errors.Is(err, opentime.ErrInvalid),
		errors.Is(err, export.ErrNoDestination),
		strings.HasPrefix(err.Error(), "unknown command"),
		strings.Contains(err.Error(), "arg(s)"):
		return ExitUsage
	case errors.Is(err, vault.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, vault.ErrExists):
		return ExitConflict
	case errors.Is(err, export.ErrPartial):
		return ExitPartial
	default:
		return ExitInternal
	}
}
