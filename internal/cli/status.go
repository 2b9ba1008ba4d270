package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/obsidian-elysium/internal/config"
	"github.com/amirbrooks/obsidian-elysium/internal/export"
	"github.com/amirbrooks/obsidian-elysium/internal/ui"
	"github.com/amirbrooks/obsidian-elysium/internal/vault"
)

var errNotWritable = errors.New("folder is not writable")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Check that an export folder is writable (default: the resolved destination)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				path = a.destination(cmd.Context(), a.bridge())
			}
			if path == "" {
				return export.ErrNoDestination
			}
			if !export.CheckFolderAccess(path) {
				return fmt.Errorf("%w: %s: %w", vault.ErrNotFound, path, errNotWritable)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconDone+" writable")+" "+path)
			return nil
		},
	}
}

func newPrefsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prefs",
		Short: "Show the Elysium app's export preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b := a.bridge()
			p := b.ReadPreferences(ctx)
			out := cmd.OutOrStdout()

			installed := ui.Bad.Render("not found")
			if b.IsInstalled(ctx) {
				installed = ui.Good.Render("installed")
			}
			folder := p.FolderPath
			if folder == "" {
				folder = ui.Muted.Render("(not set)")
			}
			fmt.Fprintln(out, ui.Heading(ui.IconInfo, "Elysium preferences"))
			fmt.Fprintln(out, ui.LabelValue("App", installed))
			fmt.Fprintln(out, ui.LabelValue("Export mode", p.ExportMode))
			fmt.Fprintln(out, ui.LabelValue("Single file", export.SingleFilename(p.SingleFilename)))
			fmt.Fprintln(out, ui.LabelValue("Folder", folder))
			fmt.Fprintln(out, ui.LabelValue("Destination", a.destination(ctx, b)))
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# global:  %s\n", config.GlobalConfigPath())
			if a.cfg.Vault != "" {
				fmt.Fprintf(out, "# project: %s\n", config.ProjectConfigPath(a.cfg.Vault))
			}
			b, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		},
	})
	return cmd
}
