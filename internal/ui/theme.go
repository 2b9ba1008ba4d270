package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
)

const (
	IconVault  = "🗂️"
	IconExport = "📤"
	IconDone   = "✅"
	IconWarn   = "⚠️"
	IconError  = "🧨"
	IconInfo   = "ℹ️"
	IconTask   = "☑️"
	IconEvent  = "🕒"
	IconGoal   = "🎯"
	IconHabit  = "🔁"
	IconBell   = "🔔"
	IconPerson = "🤝"
	IconBox    = "📦"
)

// Status styles shared by the commands.
var (
	Good  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("35"))
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178"))
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("160"))
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// accent styles headings and labels.
var accent = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))

// typeColors tints the type column of an item line.
var typeColors = map[opentime.ItemType]lipgloss.Color{
	opentime.TypeTask:        "39",
	opentime.TypeEvent:       "141",
	opentime.TypeAppointment: "141",
	opentime.TypeGoal:        "208",
	opentime.TypeProject:     "208",
	opentime.TypeHabit:       "36",
	opentime.TypeReminder:    "170",
}

func Heading(icon string, title string) string {
	if icon = strings.TrimSpace(icon); icon != "" {
		title = icon + " " + title
	}
	return accent.Render(title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", accent.Render(label+":"), value)
}

func typeLabel(t opentime.ItemType) string {
	st := lipgloss.NewStyle().Bold(true)
	if c, ok := typeColors[t]; ok {
		st = st.Foreground(c)
	}
	return st.Render(fmt.Sprintf("%-11s", t))
}

// TypeIcon picks the glyph shown next to an item of type t.
func TypeIcon(t opentime.ItemType) string {
	switch t {
	case opentime.TypeTask:
		return IconTask
	case opentime.TypeEvent:
		return IconEvent
	case opentime.TypeGoal:
		return IconGoal
	case opentime.TypeHabit:
		return IconHabit
	case opentime.TypeReminder:
		return IconBell
	case opentime.TypeAppointment:
		return IconPerson
	case opentime.TypeProject:
		return IconBox
	default:
		return IconInfo
	}
}

// ItemLine renders one item as "icon type title (when) source".
func ItemLine(it opentime.Item) string {
	var b strings.Builder
	b.WriteString(TypeIcon(it.Type()))
	b.WriteString(" ")
	b.WriteString(typeLabel(it.Type()))
	b.WriteString(" ")
	b.WriteString(it.Title)
	if when := itemWhen(it); when != "" {
		b.WriteString(" ")
		b.WriteString(Muted.Render("(" + when + ")"))
	}
	if x := it.XObsidian; x != nil && x.SourceFile != "" {
		src := x.SourceFile
		if x.LineNumber != nil {
			src = fmt.Sprintf("%s:%d", src, *x.LineNumber)
		}
		b.WriteString(" ")
		b.WriteString(Muted.Render(src))
	}
	return b.String()
}

func itemWhen(it opentime.Item) string {
	switch b := it.Body.(type) {
	case *opentime.Task:
		parts := []string{StatusText(string(b.Status))}
		if b.Due != "" {
			parts = append(parts, "due "+b.Due)
		}
		return strings.Join(parts, ", ")
	case *opentime.Event:
		return b.Start + " - " + b.End
	case *opentime.Appointment:
		return b.Start + " - " + b.End
	case *opentime.Reminder:
		return b.Time
	case *opentime.Goal:
		return b.TargetDate
	case *opentime.Project:
		return b.TargetDate
	case *opentime.Habit:
		if b.Pattern != nil {
			return string(b.Pattern.Freq)
		}
	}
	return ""
}

func StatusText(status string) string {
	switch opentime.TaskStatus(strings.ToLower(strings.TrimSpace(status))) {
	case opentime.StatusDone:
		return Good.Render("done")
	case opentime.StatusInProgress:
		return accent.Render("in progress")
	case opentime.StatusTodo:
		return Warn.Render("todo")
	default:
		return Muted.Render(status)
	}
}
