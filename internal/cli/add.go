package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amirbrooks/obsidian-elysium/internal/export"
	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
	"github.com/amirbrooks/obsidian-elysium/internal/parser"
	"github.com/amirbrooks/obsidian-elysium/internal/prefs"
	"github.com/amirbrooks/obsidian-elysium/internal/ui"
	"github.com/amirbrooks/obsidian-elysium/internal/vault"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

type addFlags struct {
	status    string
	due       string
	scheduled string
	priority  int
	estimate  int
	start     string
	end       string
	at        string
	repeat    string
	location  string
	attendees []string
	target    string
	frequency string
	days      []string
	tags      []string
	steps     []string
	notes     string
	note      string
	dryRun    bool
}

func newAddCmd(a *app) *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "add <type> <title>",
		Short: "Create one item and export it",
		Long: "add builds a single goal, task, habit, reminder, event, appointment or project, " +
			"optionally writes a source note for it into the vault, and exports it.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return usagef("type and title are required")
			}
			if _, ok := opentime.ParseItemType(args[0]); !ok {
				return usagef("unknown type %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _ := opentime.ParseItemType(args[0])
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			it, err := f.build(t, title, a.cfg.IDPrefix)
			if err != nil {
				return err
			}
			if err := opentime.Validate(it); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			// The destination is checked before the note is written.
			var b *prefs.Bridge
			var dest string
			if !f.dryRun {
				b = a.bridge()
				dest = a.destination(ctx, b)
				if dest == "" {
					return fmt.Errorf("%w; pass --dest or set destination in the config", export.ErrNoDestination)
				}
				if !export.CheckFolderAccess(dest) {
					return fmt.Errorf("%w: %s: %w", vault.ErrNotFound, dest, errNotWritable)
				}
			}

			var v *vault.Vault
			var ref parser.FileRef
			if cmd.Flags().Changed("note") {
				if v, err = a.openVault(); err != nil {
					return err
				}
				if ref, err = v.WriteNote(&it, f.note); err != nil {
					return err
				}
				fmt.Fprintln(out, ui.LabelValue("Note", ref.Path))
			}

			if f.dryRun {
				doc := opentime.NewDocument(a.cfg.Timezone, a.cfg.Generator, nowUTC())
				doc.Items = []opentime.Item{it}
				return opentime.EncodeTo(out, doc)
			}

			if err := a.exporter(b).ExportItem(ctx, it, dest, a.cfg.Timezone); err != nil {
				if v != nil {
					if rerr := v.RemoveNote(ref); rerr != nil {
						a.logger.Printf("warning: remove %s: %v", ref.Path, rerr)
					}
				}
				return err
			}
			fmt.Fprintln(out, ui.Good.Render(ui.IconDone+" exported")+" "+ui.ItemLine(it))
			fmt.Fprintln(out, ui.LabelValue("ID", it.ID))
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.status, "status", "", "Task status (todo|in_progress|done|cancelled)")
	fl.StringVar(&f.due, "due", "", "Task due date (YYYY-MM-DD)")
	fl.StringVar(&f.scheduled, "scheduled", "", "Task scheduled start (date or date-time)")
	fl.IntVar(&f.priority, "priority", 0, "Task priority (1-9)")
	fl.IntVar(&f.estimate, "estimate", 0, "Estimate in minutes")
	fl.StringVar(&f.start, "start", "", "Event/appointment start (YYYY-MM-DDTHH:MM:SS)")
	fl.StringVar(&f.end, "end", "", "Event/appointment end (YYYY-MM-DDTHH:MM:SS)")
	fl.StringVar(&f.at, "time", "", "Reminder time (YYYY-MM-DDTHH:MM:SS)")
	fl.StringVar(&f.repeat, "repeat", "", "Reminder repeat rule")
	fl.StringVar(&f.location, "location", "", "Event/appointment location")
	fl.StringSliceVar(&f.attendees, "attendee", nil, "Appointment attendee (repeatable)")
	fl.StringVar(&f.target, "target", "", "Goal/project target date")
	fl.StringVar(&f.frequency, "freq", "daily", "Habit frequency (daily|weekly|custom)")
	fl.StringSliceVar(&f.days, "days", nil, "Habit days of week, e.g. Mon,Thu")
	fl.StringSliceVarP(&f.tags, "tag", "t", nil, "Tag (repeatable)")
	fl.StringArrayVar(&f.steps, "step", nil, "Checklist step (repeatable)")
	fl.StringVar(&f.notes, "notes", "", "Free-form notes")
	fl.StringVar(&f.note, "note", "", "Also write a source note, optionally into a vault folder (--note=Folder)")
	fl.Lookup("note").NoOptDefVal = "."
	fl.BoolVar(&f.dryRun, "dry-run", false, "Print the item instead of exporting it")
	return cmd
}

func (f addFlags) build(t opentime.ItemType, title, prefix string) (opentime.Item, error) {
	if prefix == "" {
		prefix = parser.DefaultPrefix
	}
	it := opentime.Item{
		ID:    opentime.NewID(prefix+"_"+string(t), title),
		Title: title,
		Tags:  cleanTags(f.tags),
		Notes: f.notes,
	}
	for i, s := range f.steps {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		it.Steps = append(it.Steps, opentime.Step{
			ID:     uuid.NewString(),
			Title:  s,
			Order:  i,
			Status: opentime.StepPending,
		})
	}

	switch t {
	case opentime.TypeTask:
		task := &opentime.Task{Status: opentime.StatusTodo, Due: f.due, ScheduledStart: f.scheduled}
		if f.status != "" {
			task.Status = opentime.TaskStatus(strings.ToLower(f.status))
		}
		if task.ScheduledStart != "" && !strings.Contains(task.ScheduledStart, "T") {
			task.ScheduledStart += "T09:00:00"
		}
		if f.priority != 0 {
			if f.priority < 1 || f.priority > 9 {
				return it, usagef("priority must be between 1 and 9")
			}
			task.Priority = opentime.IntPtr(f.priority)
		}
		task.EstimateMinutes = optInt(f.estimate)
		it.Body = task
	case opentime.TypeEvent:
		it.Body = &opentime.Event{Start: f.start, End: f.end, Location: f.location}
	case opentime.TypeAppointment:
		it.Body = &opentime.Appointment{Start: f.start, End: f.end, Location: f.location, Attendees: f.attendees}
	case opentime.TypeReminder:
		it.Body = &opentime.Reminder{Time: f.at, Repeat: f.repeat}
	case opentime.TypeGoal:
		it.Body = &opentime.Goal{TargetDate: f.target, EstimateMinutes: optInt(f.estimate)}
	case opentime.TypeProject:
		it.Body = &opentime.Project{TargetDate: f.target, EstimateMinutes: optInt(f.estimate)}
	case opentime.TypeHabit:
		freq := opentime.Frequency(strings.ToLower(f.frequency))
		switch freq {
		case opentime.FreqDaily, opentime.FreqWeekly, opentime.FreqCustom:
		default:
			return it, usagef("unknown frequency %q", f.frequency)
		}
		it.Body = &opentime.Habit{
			Pattern:         &opentime.HabitPattern{Freq: freq, DaysOfWeek: f.days},
			EstimateMinutes: optInt(f.estimate),
		}
	}
	return it, nil
}

func optInt(v int) *int {
	if v <= 0 {
		return nil
	}
	return opentime.IntPtr(v)
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#")); t != "" {
			out = append(out, t)
		}
	}
	return out
}
