package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
)

var ErrFrontmatter = errors.New("invalid frontmatter")

const (
	defaultEventStart = "09:00"
	defaultEventEnd   = "10:00"
)

// SplitFrontmatter separates a leading "---" delimited block from the note body.
// ok is false when the note does not open with a complete block.
func SplitFrontmatter(content string) (front, body string, ok bool) {
	lines := splitLines(content)
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != "---" {
		return "", content, false
	}
	for i := 1; i < len(lines); i++ {
		l := strings.TrimRight(lines[i], " \t")
		if l != "---" && l != "..." {
			continue
		}
		front = strings.Join(lines[1:i], "\n")
		if i > 1 {
			front += "\n"
		}
		return front, strings.Join(lines[i+1:], "\n"), true
	}
	return "", content, false
}

// fields is a frontmatter mapping with duplicate keys resolved last-wins.
type fields map[string]*yaml.Node

func readFields(front string) (fields, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(front), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrontmatter, err)
	}
	f := fields{}
	if len(root.Content) == 0 {
		return f, nil
	}
	top := root.Content[0]
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return f, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: not a mapping", ErrFrontmatter)
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		v := top.Content[i+1]
		for v.Kind == yaml.AliasNode && v.Alias != nil {
			v = v.Alias
		}
		f[top.Content[i].Value] = v
	}
	return f, nil
}

func (f fields) has(key string) bool {
	n, ok := f[key]
	return ok && !(n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// defined reports whether key is written at all, even with an empty value.
func (f fields) defined(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) str(key string) string {
	n, ok := f[key]
	if !ok || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return strings.TrimSpace(n.Value)
}

// text keeps surrounding whitespace; used for notes.
func (f fields) text(key string) string {
	n, ok := f[key]
	if !ok || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

func (f fields) list(key string) []string {
	n, ok := f[key]
	if !ok {
		return nil
	}
	var raw []string
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		raw = strings.Split(n.Value, ",")
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if c.Kind == yaml.ScalarNode {
				raw = append(raw, c.Value)
			}
		}
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (f fields) int(key string) (*int, bool) {
	s := f.str(key)
	if s == "" {
		return nil, true
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v, true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		i := int(v)
		return &i, true
	}
	return nil, false
}

func (f fields) float(key string) (*float64, bool) {
	s := strings.TrimSuffix(f.str(key), "%")
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	if strings.HasSuffix(f.str(key), "%") {
		v /= 100
	}
	return &v, true
}

func (f fields) bool(key string) *bool {
	v, err := strconv.ParseBool(f.str(key))
	if err != nil {
		return nil
	}
	return &v
}

// ParseFrontmatter yields the item a note's frontmatter describes. ok is false when
// the note has no frontmatter or its type cannot be resolved. A malformed block, or
// an item missing a field its type requires, returns an error.
func ParseFrontmatter(content string, file FileRef, opts Options) (*opentime.Item, bool, error) {
	front, _, found := SplitFrontmatter(content)
	if !found {
		return nil, false, nil
	}
	f, err := readFields(front)
	if err != nil {
		return nil, false, err
	}
	t, ok := resolveType(f)
	if !ok {
		return nil, false, nil
	}

	title := f.str("title")
	if title == "" {
		title = file.Base()
	}
	it := &opentime.Item{
		ID:         f.str("id"),
		Title:      title,
		Tags:       cleanTags(f.list("tags")),
		Categories: f.list("categories"),
		Notes:      f.text("notes"),
		XObsidian:  file.provenance(0, ""),
	}
	if it.ID == "" {
		it.ID = opts.newID(string(t), title)
	}
	if it.Body, err = frontmatterBody(t, f, opts); err != nil {
		return nil, false, fmt.Errorf("%s: %w", file.Path, err)
	}
	if err := opentime.Validate(*it); err != nil {
		return nil, false, fmt.Errorf("%s: %w", file.Path, err)
	}
	return it, true, nil
}

func resolveType(f fields) (opentime.ItemType, bool) {
	if t, ok := opentime.ParseItemType(f.str("type")); ok {
		return t, true
	}
	switch {
	case f.has("due") || f.has("status"):
		return opentime.TypeTask, true
	case f.has("start") && f.has("end"):
		return opentime.TypeEvent, true
	case f.has("date") && (f.has("startTime") || f.has("endTime")):
		return opentime.TypeEvent, true
	case f.has("target_date") || f.defined("progress"):
		return opentime.TypeGoal, true
	case f.has("frequency"):
		return opentime.TypeHabit, true
	}
	return "", false
}

func frontmatterBody(t opentime.ItemType, f fields, opts Options) (opentime.Variant, error) {
	estimate, ok := f.int("estimate_minutes")
	if !ok {
		return nil, fmt.Errorf("%w: estimate_minutes is not a number", ErrFrontmatter)
	}
	switch t {
	case opentime.TypeTask:
		task := &opentime.Task{
			Status:          normalizeStatus(f.str("status")),
			Due:             f.str("due"),
			EstimateMinutes: estimate,
			Priority:        normalizePriority(f.str("priority")),
			GoalID:          f.str("goal_id"),
			ProjectID:       f.str("project_id"),
		}
		if s := f.str("scheduled"); s != "" {
			if !strings.Contains(s, "T") {
				s += scheduledTimeOfDay
			}
			task.ScheduledStart = s
		}
		return task, nil
	case opentime.TypeEvent:
		ev := &opentime.Event{
			Start:     f.str("start"),
			End:       f.str("end"),
			AllDay:    f.bool("all_day"),
			Timezone:  f.str("timezone"),
			Location:  f.str("location"),
			GoalID:    f.str("goal_id"),
			ProjectID: f.str("project_id"),
		}
		if date := f.str("date"); date != "" {
			if ev.Start == "" {
				ev.Start = date + "T" + orDefault(f.str("startTime"), defaultEventStart) + ":00"
			}
			if ev.End == "" {
				ev.End = date + "T" + orDefault(f.str("endTime"), defaultEventEnd) + ":00"
			}
		}
		if ev.Timezone == "" {
			ev.Timezone = strings.TrimSpace(opts.Timezone)
		}
		return ev, nil
	case opentime.TypeGoal:
		progress, ok := f.float("progress")
		if !ok {
			return nil, fmt.Errorf("%w: progress is not a number", ErrFrontmatter)
		}
		return &opentime.Goal{
			TargetDate:      f.str("target_date"),
			Progress:        progress,
			ProjectID:       f.str("project_id"),
			EstimateMinutes: estimate,
		}, nil
	case opentime.TypeHabit:
		return &opentime.Habit{
			Pattern: &opentime.HabitPattern{
				Freq:       normalizeFrequency(f.str("frequency")),
				DaysOfWeek: f.list("days_of_week"),
			},
			GoalID:          f.str("goal_id"),
			ProjectID:       f.str("project_id"),
			EstimateMinutes: estimate,
		}, nil
	case opentime.TypeReminder:
		return &opentime.Reminder{
			Time:   f.str("time"),
			Repeat: f.str("repeat"),
			Link:   f.str("link"),
		}, nil
	case opentime.TypeAppointment:
		return &opentime.Appointment{
			Start:     f.str("start"),
			End:       f.str("end"),
			Attendees: f.list("attendees"),
			Location:  f.str("location"),
			Provider:  f.str("provider"),
			GoalID:    f.str("goal_id"),
			ProjectID: f.str("project_id"),
		}, nil
	case opentime.TypeProject:
		progress, ok := f.float("progress")
		if !ok {
			return nil, fmt.Errorf("%w: progress is not a number", ErrFrontmatter)
		}
		return &opentime.Project{
			Children:        f.list("children"),
			Progress:        progress,
			TargetDate:      f.str("target_date"),
			EstimateMinutes: estimate,
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported type %q", ErrFrontmatter, t)
}

func normalizeStatus(s string) opentime.TaskStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in_progress", "in-progress", "in progress", "inprogress", "doing", "started", "active":
		return opentime.StatusInProgress
	case "done", "complete", "completed":
		return opentime.StatusDone
	case "cancelled", "canceled":
		return opentime.StatusCancelled
	default:
		return opentime.StatusTodo
	}
}

func normalizePriority(p string) *int {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return nil
	}
	if v, err := strconv.Atoi(p); err == nil {
		return &v
	}
	switch p {
	case "high", "h", "urgent", "u", "p0":
		return opentime.IntPtr(priorityHigh)
	case "medium", "med", "normal", "n":
		return opentime.IntPtr(priorityMedium)
	case "low", "l":
		return opentime.IntPtr(priorityLow)
	}
	return nil
}

func normalizeFrequency(s string) opentime.Frequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "week":
		return opentime.FreqWeekly
	case "custom":
		return opentime.FreqCustom
	default:
		return opentime.FreqDaily
	}
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(strings.TrimLeft(t, "#")); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
