package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/obsidian-elysium/internal/export"
	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
	"github.com/amirbrooks/obsidian-elysium/internal/ui"
	"github.com/amirbrooks/obsidian-elysium/internal/vault"
)

type scanFlags struct {
	date    string
	workers int
	noTasks bool
	noTime  bool
	noFront bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Date for time blocks in notes without a dated file name (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel note parsers (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&f.noTasks, "no-tasks", false, "Skip checkbox tasks")
	cmd.Flags().BoolVar(&f.noTime, "no-time-blocks", false, "Skip time blocks")
	cmd.Flags().BoolVar(&f.noFront, "no-frontmatter", false, "Skip frontmatter items")
}

func (a *app) scan(ctx context.Context, f scanFlags) (*vault.ScanResult, error) {
	v, err := a.openVault()
	if err != nil {
		return nil, err
	}
	opts := vault.ScanOptions{
		Parser: a.cfg.ParserOptions(),
		Sources: vault.Sources{
			Checkbox:    a.cfg.Sources.Checkbox && !f.noTasks,
			TimeBlocks:  a.cfg.Sources.TimeBlocks && !f.noTime,
			Frontmatter: a.cfg.Sources.Frontmatter && !f.noFront,
		},
		Date:    f.date,
		Workers: f.workers,
		Logger:  a.logger,
	}
	return v.Scan(ctx, opts)
}

func newScanCmd(a *app) *cobra.Command {
	var f scanFlags
	var list bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Parse the vault and print the items as an OpenTime document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.scan(cmd.Context(), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if list {
				printItems(out, res)
				return nil
			}
			doc := opentime.NewDocument(a.cfg.Timezone, a.cfg.Generator, nowUTC())
			doc.Items = res.Items
			return opentime.EncodeTo(out, doc)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&list, "list", "l", false, "Print a readable item list instead")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Scan the vault and export the items to Elysium's folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := a.scan(ctx, f)
			if err != nil {
				return err
			}
			b := a.bridge()
			dest := a.destination(ctx, b)
			if dest == "" {
				return fmt.Errorf("%w; pass --dest or set destination in the config", export.ErrNoDestination)
			}
			result, err := a.exporter(b).ExportItems(ctx, res.Items, dest, a.cfg.Timezone)
			printResult(cmd.OutOrStdout(), result, res.Errors)
			return err
		},
	}
	f.register(cmd)
	return cmd
}

func printItems(w io.Writer, res *vault.ScanResult) {
	fmt.Fprintln(w, ui.Heading(ui.IconVault, fmt.Sprintf("%d items in %d notes", len(res.Items), res.Notes)))
	for _, it := range res.Items {
		fmt.Fprintln(w, "- "+ui.ItemLine(it))
	}
	printNoteErrors(w, res.Errors)
}

func printNoteErrors(w io.Writer, errs []vault.NoteError) {
	for _, ne := range errs {
		fmt.Fprintln(w, ui.Warn.Render(ui.IconWarn+" "+ne.Path)+" "+ui.Muted.Render(ne.Err.Error()))
	}
}

func printResult(w io.Writer, r export.Result, noteErrs []vault.NoteError) {
	icon, style := ui.IconDone, ui.Good
	if len(r.Failures) > 0 {
		icon, style = ui.IconWarn, ui.Warn
	}
	fmt.Fprintln(w, ui.Heading(ui.IconExport, "Export"))
	fmt.Fprintln(w, style.Render(icon+" "+r.Summary()))
	for _, p := range r.Files {
		fmt.Fprintln(w, "- "+ui.Muted.Render(p))
	}
	for _, fl := range r.Failures {
		reason := "unknown error"
		if fl.Err != nil {
			reason = fl.Err.Error()
		}
		if errors.Is(fl.Err, opentime.ErrInvalid) {
			reason = "skipped: " + reason
		}
		fmt.Fprintln(w, ui.Bad.Render("  "+fl.ItemID)+" "+reason)
	}
	printNoteErrors(w, noteErrs)
}
