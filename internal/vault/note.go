package vault

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/obsidian-elysium/internal/fsutil"
	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
	"github.com/amirbrooks/obsidian-elysium/internal/parser"
)

const maxNoteNameLen = 100

// WriteNote creates a markdown note for it under folder (vault-relative) and links
// the item to it through x_elysium and x_obsidian. The frontmatter reads back through
// parser.ParseFrontmatter with the same type, id and title. An existing note is never
// overwritten.
func (v *Vault) WriteNote(it *opentime.Item, folder string) (parser.FileRef, error) {
	if err := opentime.Validate(*it); err != nil {
		return parser.FileRef{}, err
	}
	folder = strings.Trim(path.Clean("/"+strings.ReplaceAll(folder, "\\", "/")), "/")
	ref := parser.NewFileRef(path.Join(folder, noteFilename(it.Title)))
	target := v.abs(ref.Path)
	if _, err := os.Stat(target); err == nil {
		return parser.FileRef{}, fmt.Errorf("%w: %s", ErrExists, ref.Path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return parser.FileRef{}, err
	}

	content, err := RenderNote(*it)
	if err != nil {
		return parser.FileRef{}, err
	}
	if err := fsutil.AtomicWriteFile(target, content, 0o644); err != nil {
		return parser.FileRef{}, err
	}
	it.XElysium = v.link(ref)
	it.XObsidian = &opentime.ObsidianExt{SourceFile: ref.Path, FolderPath: ref.Folder}
	return ref, nil
}

// RemoveNote deletes a note written by WriteNote.
func (v *Vault) RemoveNote(ref parser.FileRef) error {
	if ref.Path == "" {
		return nil
	}
	return os.Remove(v.abs(ref.Path))
}

// RenderNote renders it as a note: frontmatter, a heading, then the notes text.
func RenderNote(it opentime.Item) ([]byte, error) {
	m := &frontmatter{node: &yaml.Node{Kind: yaml.MappingNode}}
	m.set("type", string(it.Type()))
	m.set("id", it.ID)
	m.set("title", it.Title)

	switch b := it.Body.(type) {
	case *opentime.Task:
		m.set("status", string(b.Status))
		m.set("due", b.Due)
		m.set("scheduled", b.ScheduledStart)
		m.int("priority", b.Priority)
		m.int("estimate_minutes", b.EstimateMinutes)
		m.set("goal_id", b.GoalID)
		m.set("project_id", b.ProjectID)
	case *opentime.Event:
		m.set("start", b.Start)
		m.set("end", b.End)
		if b.AllDay != nil {
			m.set("all_day", strconv.FormatBool(*b.AllDay))
		}
		m.set("timezone", b.Timezone)
		m.set("location", b.Location)
		m.set("goal_id", b.GoalID)
		m.set("project_id", b.ProjectID)
	case *opentime.Goal:
		m.set("target_date", b.TargetDate)
		m.float("progress", b.Progress)
		m.set("project_id", b.ProjectID)
		m.int("estimate_minutes", b.EstimateMinutes)
	case *opentime.Habit:
		if b.Pattern != nil {
			m.set("frequency", string(b.Pattern.Freq))
			m.list("days_of_week", b.Pattern.DaysOfWeek)
		}
		m.set("goal_id", b.GoalID)
		m.set("project_id", b.ProjectID)
		m.int("estimate_minutes", b.EstimateMinutes)
	case *opentime.Reminder:
		m.set("time", b.Time)
		m.set("repeat", b.Repeat)
		m.set("link", b.Link)
	case *opentime.Appointment:
		m.set("start", b.Start)
		m.set("end", b.End)
		m.list("attendees", b.Attendees)
		m.set("location", b.Location)
		m.set("provider", b.Provider)
		m.set("goal_id", b.GoalID)
		m.set("project_id", b.ProjectID)
	case *opentime.Project:
		m.list("children", b.Children)
		m.float("progress", b.Progress)
		m.set("target_date", b.TargetDate)
		m.int("estimate_minutes", b.EstimateMinutes)
	}
	m.list("tags", it.Tags)
	m.list("categories", it.Categories)

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n\n# ")
	buf.WriteString(it.Title)
	buf.WriteString("\n")
	if notes := strings.TrimRight(it.Notes, "\n"); notes != "" {
		buf.WriteString("\n")
		buf.WriteString(notes)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

type frontmatter struct {
	node *yaml.Node
}

func (m *frontmatter) set(key, value string) {
	if value == "" {
		return
	}
	m.node.Content = append(m.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value},
	)
}

func (m *frontmatter) int(key string, v *int) {
	if v != nil {
		m.set(key, strconv.Itoa(*v))
	}
}

func (m *frontmatter) float(key string, v *float64) {
	if v != nil {
		m.set(key, strconv.FormatFloat(*v, 'f', -1, 64))
	}
}

func (m *frontmatter) list(key string, values []string) {
	if len(values) == 0 {
		return
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range values {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
	}
	m.node.Content = append(m.node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, seq)
}

// noteFilename strips characters Obsidian refuses in note names.
func noteFilename(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		if strings.ContainsRune(`\/:*?"<>|#^[]`, r) || r < 0x20 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	name := strings.Join(strings.Fields(b.String()), " ")
	name = strings.TrimLeft(name, ".")
	if r := []rune(name); len(r) > maxNoteNameLen {
		name = strings.TrimSpace(string(r[:maxNoteNameLen]))
	}
	if name == "" {
		name = "Untitled"
	}
	return name + ".md"
}
