package opentime

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	itemIndent   = "    "
	nestedIndent = "      "
)

var headerLines = []string{
	"# OpenTime schedule",
	"# Generated from an Obsidian vault. Items are matched by id on re-export;",
	"# edits made here to items generated from notes are replaced on the next export.",
}

// Encode renders doc in the canonical OpenTime text form.
func Encode(doc *Document) []byte {
	var buf bytes.Buffer
	_ = EncodeTo(&buf, doc)
	return buf.Bytes()
}

// EncodeTo writes the canonical OpenTime text form of doc to w.
func EncodeTo(w io.Writer, doc *Document) error {
	e := &encoder{}
	e.document(doc)
	_, err := w.Write(e.buf.Bytes())
	return err
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) line(indent, s string) {
	e.buf.WriteString(indent)
	e.buf.WriteString(s)
	e.buf.WriteByte('\n')
}

func (e *encoder) document(doc *Document) {
	for _, h := range headerLines {
		e.line("", h)
	}
	version := doc.Version
	if version == "" {
		version = FormatVersion
	}
	e.line("", "opentime_version: "+quote(version))
	if doc.DefaultTimezone != "" {
		e.line("", "default_timezone: "+quote(doc.DefaultTimezone))
	}
	if doc.GeneratedBy != "" {
		e.line("", "generated_by: "+quote(doc.GeneratedBy))
	}
	if doc.CreatedAt != "" {
		e.line("", "created_at: "+quote(doc.CreatedAt))
	}
	e.buf.WriteByte('\n')
	if len(doc.Items) == 0 {
		e.line("", "items: []")
		return
	}
	e.line("", "items:")
	for i, it := range doc.Items {
		if i > 0 {
			e.buf.WriteByte('\n')
		}
		e.item(it)
	}
}

func (e *encoder) item(it Item) {
	e.line("  ", "- type: "+string(it.Type()))
	e.field(itemIndent, "id", it.ID)
	e.field(itemIndent, "title", it.Title)

	switch b := it.Body.(type) {
	case *Goal:
		e.line(itemIndent, "kind: goal")
		e.field(itemIndent, "target_date", b.TargetDate)
		e.float(itemIndent, "progress", b.Progress)
		e.field(itemIndent, "project_id", b.ProjectID)
		e.int(itemIndent, "estimate_minutes", b.EstimateMinutes)
		e.repeats(b.Repeats)
	case *Task:
		e.field(itemIndent, "status", string(b.Status))
		e.field(itemIndent, "due", b.Due)
		e.field(itemIndent, "scheduled_start", b.ScheduledStart)
		e.int(itemIndent, "estimate_minutes", b.EstimateMinutes)
		e.int(itemIndent, "actual_minutes", b.ActualMinutes)
		e.int(itemIndent, "priority", b.Priority)
		e.field(itemIndent, "goal_id", b.GoalID)
		e.field(itemIndent, "project_id", b.ProjectID)
		e.repeats(b.Repeats)
	case *Habit:
		if b.Pattern != nil {
			e.line(itemIndent, "pattern:")
			e.field(nestedIndent, "freq", string(b.Pattern.Freq))
			e.list(nestedIndent, "days_of_week", b.Pattern.DaysOfWeek)
		}
		if b.Window != nil {
			e.line(itemIndent, "window:")
			e.field(nestedIndent, "start_time", b.Window.StartTime)
			e.field(nestedIndent, "end_time", b.Window.EndTime)
		}
		if b.Streak != nil {
			e.line(itemIndent, "streak:")
			e.line(nestedIndent, "current: "+strconv.Itoa(b.Streak.Current))
			e.line(nestedIndent, "longest: "+strconv.Itoa(b.Streak.Longest))
		}
		e.field(itemIndent, "goal_id", b.GoalID)
		e.field(itemIndent, "project_id", b.ProjectID)
		e.int(itemIndent, "estimate_minutes", b.EstimateMinutes)
		e.repeats(b.Repeats)
	case *Reminder:
		e.field(itemIndent, "time", b.Time)
		e.field(itemIndent, "repeat", b.Repeat)
		e.field(itemIndent, "link", b.Link)
	case *Event:
		e.field(itemIndent, "start", b.Start)
		e.field(itemIndent, "end", b.End)
		e.bool(itemIndent, "all_day", b.AllDay)
		e.field(itemIndent, "timezone", b.Timezone)
		e.field(itemIndent, "location", b.Location)
		e.field(itemIndent, "recurrence", b.Recurrence)
		e.field(itemIndent, "goal_id", b.GoalID)
		e.field(itemIndent, "project_id", b.ProjectID)
	case *Appointment:
		e.field(itemIndent, "start", b.Start)
		e.field(itemIndent, "end", b.End)
		e.line(itemIndent, "attendees: "+flowList(b.Attendees))
		e.field(itemIndent, "location", b.Location)
		e.field(itemIndent, "provider", b.Provider)
		e.field(itemIndent, "goal_id", b.GoalID)
		e.field(itemIndent, "project_id", b.ProjectID)
	case *Project:
		e.line(itemIndent, "kind: project")
		e.list(itemIndent, "children", b.Children)
		e.float(itemIndent, "progress", b.Progress)
		e.field(itemIndent, "target_date", b.TargetDate)
		e.int(itemIndent, "estimate_minutes", b.EstimateMinutes)
	}

	e.list(itemIndent, "tags", it.Tags)
	e.list(itemIndent, "categories", it.Categories)
	e.notes(it.Notes)
	e.steps(it.Steps)
	e.links(it.Links)

	if x := it.XObsidian; x != nil {
		e.line(itemIndent, "x_obsidian:")
		e.field(nestedIndent, "source_file", x.SourceFile)
		e.int(nestedIndent, "line_number", x.LineNumber)
		e.field(nestedIndent, "original_text", x.OriginalText)
		e.field(nestedIndent, "folder_path", x.FolderPath)
	}
	if x := it.XElysium; x != nil {
		e.line(itemIndent, "x_elysium:")
		e.line(nestedIndent, "obsidian_enabled: "+strconv.FormatBool(x.ObsidianEnabled))
		e.field(nestedIndent, "vault_name", x.VaultName)
		e.field(nestedIndent, "folder_path", x.FolderPath)
		e.field(nestedIndent, "source_file", x.SourceFile)
		e.field(nestedIndent, "behavior", string(x.Behavior))
	}
	for _, ext := range it.Extra {
		e.extension(ext)
	}
}

// field writes key: value, omitting empty values.
func (e *encoder) field(indent, key, value string) {
	if value == "" {
		return
	}
	e.line(indent, key+": "+formatScalar(value))
}

func (e *encoder) int(indent, key string, v *int) {
	if v == nil {
		return
	}
	e.line(indent, key+": "+strconv.Itoa(*v))
}

func (e *encoder) float(indent, key string, v *float64) {
	if v == nil {
		return
	}
	e.line(indent, key+": "+strconv.FormatFloat(*v, 'f', -1, 64))
}

func (e *encoder) bool(indent, key string, v *bool) {
	if v == nil {
		return
	}
	e.line(indent, key+": "+strconv.FormatBool(*v))
}

func (e *encoder) list(indent, key string, values []string) {
	if len(values) == 0 {
		return
	}
	e.line(indent, key+": "+flowList(values))
}

func (e *encoder) repeats(r *Repeats) {
	if r == nil {
		return
	}
	e.line(itemIndent, "repeats:")
	e.line(nestedIndent, "enabled: "+strconv.FormatBool(r.Enabled))
	e.line(nestedIndent, "count: "+strconv.Itoa(r.Count))
	e.field(nestedIndent, "per", string(r.Per))
	if r.Per == PerWeek {
		e.list(nestedIndent, "weekdays", r.Weekdays)
	}
	e.field(nestedIndent, "end_type", string(r.EndType))
	switch r.EndType {
	case EndAfter:
		e.int(nestedIndent, "end_count", r.EndCount)
	case EndOnDate:
		e.field(nestedIndent, "end_date", r.EndDate)
	}
}

func (e *encoder) notes(notes string) {
	if notes == "" {
		return
	}
	if !strings.Contains(notes, "\n") {
		e.field(itemIndent, "notes", notes)
		return
	}
	body := strings.TrimRight(notes, "\n")
	trailing := len(notes) - len(body)
	// keep chomping would swallow the blank line between items
	if body == "" || trailing > 1 || hasUnprintable(notes) {
		e.line(itemIndent, "notes: "+quote(notes))
		return
	}
	chomp := "-"
	if trailing == 1 {
		chomp = ""
	}
	// an indented first content line would otherwise set the block's indentation
	indicator := ""
	for _, l := range strings.Split(body, "\n") {
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, " ") {
			indicator = "2"
		}
		break
	}
	e.line(itemIndent, "notes: |"+indicator+chomp)
	for _, l := range strings.Split(body, "\n") {
		if l == "" {
			e.buf.WriteByte('\n')
			continue
		}
		e.line(nestedIndent, l)
	}
}

func (e *encoder) steps(steps []Step) {
	if len(steps) == 0 {
		return
	}
	e.line(itemIndent, "steps:")
	for _, s := range steps {
		e.line(nestedIndent, "- id: "+formatScalar(s.ID))
		inner := nestedIndent + "  "
		e.field(inner, "title", s.Title)
		e.line(inner, "completed: "+strconv.FormatBool(s.Completed))
		e.field(inner, "due", s.Due)
		e.line(inner, "order: "+strconv.Itoa(s.Order))
		status := s.Status
		if status == "" {
			status = StepPending
			if s.Completed {
				status = StepCompleted
			}
		}
		e.field(inner, "status", string(status))
	}
}

func (e *encoder) links(links []Link) {
	if len(links) == 0 {
		return
	}
	e.line(itemIndent, "links:")
	for _, l := range links {
		e.line(nestedIndent, "- kind: "+formatScalar(string(l.Kind)))
		e.field(nestedIndent+"  ", "value", l.Value)
	}
}

// extension re-emits an unmodelled key through the yaml encoder, indented to item level.
func (e *encoder) extension(ext Extension) {
	if ext.Value == nil {
		return
	}
	node := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: ext.Key},
			stripPositions(ext.Value),
		},
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return
	}
	_ = enc.Close()
	for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if l == "" {
			e.buf.WriteByte('\n')
			continue
		}
		e.line(itemIndent, l)
	}
}

func stripPositions(n *yaml.Node) *yaml.Node {
	cp := *n
	cp.Line, cp.Column = 0, 0
	cp.HeadComment, cp.LineComment, cp.FootComment = "", "", ""
	if len(n.Content) > 0 {
		cp.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			cp.Content[i] = stripPositions(c)
		}
	}
	return &cp
}

func flowList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quote(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

const quoteTriggers = ":#[]{}|>&*?!,'\"%@\\`"

// needsQuotes reports whether s cannot be written as a bare scalar.
func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, quoteTriggers) || strings.ContainsAny(s, "\n\r") || hasUnprintable(s) {
		return true
	}
	if strings.TrimSpace(s) != s {
		return true
	}
	return strings.HasPrefix(s, "- ") || s == "-"
}

func formatScalar(s string) string {
	if needsQuotes(s) {
		return quote(s)
	}
	return s
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02x`, s[i])
		case r == '\\':
			b.WriteString(`\\`)
		case r == '"':
			b.WriteString(`\"`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case unprintable(r) && r <= 0xff:
			fmt.Fprintf(&b, `\x%02x`, r)
		case unprintable(r):
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
		i += size
	}
	b.WriteByte('"')
	return b.String()
}

// unprintable reports runes a YAML reader rejects or treats as a line break
// anywhere outside a double-quoted escape. Newline and tab are handled by callers.
func unprintable(r rune) bool {
	switch {
	case r == '\t' || r == '\n':
		return false
	case r < 0x20 || r == 0x7f:
		return true
	case r >= 0x80 && r <= 0x9f:
		return true
	case r == 0x2028 || r == 0x2029 || r == 0xfffe || r == 0xffff:
		return true
	}
	return false
}

func hasUnprintable(s string) bool {
	if !utf8.ValidString(s) {
		return true
	}
	for _, r := range s {
		if unprintable(r) {
			return true
		}
	}
	return false
}
