package opentime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode reads an OpenTime document. It fails only when the file is not YAML or its top
// level is not a mapping; items that cannot be read are dropped and listed in Skipped.
func Decode(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	doc := &Document{}
	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}
	top := resolve(root.Content[0])
	if isNull(top) {
		return doc, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrDecode)
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i].Value, resolve(top.Content[i+1])
		var err error
		switch key {
		case "opentime_version":
			doc.Version, err = scalar(val)
		case "default_timezone":
			doc.DefaultTimezone, err = scalar(val)
		case "generated_by":
			doc.GeneratedBy, err = scalar(val)
		case "created_at":
			doc.CreatedAt, err = scalar(val)
		case "items":
			err = decodeItems(doc, val)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
		}
	}
	return doc, nil
}

func decodeItems(doc *Document, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return errors.New("expected a sequence")
	}
	for i, c := range n.Content {
		it, err := decodeItem(resolve(c))
		if err != nil {
			doc.Skipped = append(doc.Skipped, SkippedItem{Index: i, Reason: err.Error()})
			continue
		}
		doc.Items = append(doc.Items, it)
	}
	return nil
}

func decodeItem(n *yaml.Node) (Item, error) {
	var it Item
	if n.Kind != yaml.MappingNode {
		return it, errors.New("item is not a mapping")
	}
	typeNode := lookup(n, "type")
	if typeNode == nil {
		return it, errors.New("item has no type")
	}
	raw, err := scalar(typeNode)
	if err != nil {
		return it, fmt.Errorf("type: %w", err)
	}
	t, ok := ParseItemType(raw)
	if !ok {
		return it, fmt.Errorf("unknown item type %q", raw)
	}
	it.Body = NewBody(t)
	if task, ok := it.Body.(*Task); ok {
		task.Status = ""
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, resolve(n.Content[i+1])
		if key == "type" {
			continue
		}
		handled, err := decodeCommon(&it, key, val)
		if !handled && err == nil {
			handled, err = decodeBody(it.Body, key, val)
		}
		if err != nil {
			return it, fmt.Errorf("%s: %w", key, err)
		}
		if !handled {
			it.Extra = setExtension(it.Extra, key, n.Content[i+1])
		}
	}
	if strings.TrimSpace(it.ID) == "" {
		return it, errors.New("item has no id")
	}
	if task, ok := it.Body.(*Task); ok && task.Status == "" {
		task.Status = StatusTodo
	}
	return it, nil
}

func setExtension(exts []Extension, key string, val *yaml.Node) []Extension {
	for i := range exts {
		if exts[i].Key == key {
			exts[i].Value = val
			return exts
		}
	}
	return append(exts, Extension{Key: key, Value: val})
}

func decodeCommon(it *Item, key string, n *yaml.Node) (bool, error) {
	var err error
	switch key {
	case "id":
		it.ID, err = scalar(n)
	case "title":
		it.Title, err = scalar(n)
	case "tags":
		it.Tags, err = stringList(n)
	case "categories":
		it.Categories, err = stringList(n)
	case "notes":
		it.Notes, err = scalar(n)
	case "steps":
		it.Steps, err = decodeSteps(n)
	case "links":
		it.Links, err = decodeLinks(n)
	case "x_obsidian":
		it.XObsidian, err = decodeObsidian(n)
	case "x_elysium":
		it.XElysium, err = decodeElysium(n)
	default:
		return false, nil
	}
	return true, err
}

func decodeBody(body Variant, key string, n *yaml.Node) (bool, error) {
	var err error
	switch b := body.(type) {
	case *Goal:
		switch key {
		case "kind":
		case "target_date":
			b.TargetDate, err = scalar(n)
		case "progress":
			b.Progress, err = floatValue(n)
		case "project_id":
			b.ProjectID, err = scalar(n)
		case "estimate_minutes":
			b.EstimateMinutes, err = intValue(n)
		case "repeats":
			b.Repeats, err = decodeRepeats(n)
		default:
			return false, nil
		}
	case *Task:
		switch key {
		case "status":
			var s string
			s, err = scalar(n)
			b.Status = TaskStatus(s)
			if err == nil && !b.Status.Valid() {
				err = fmt.Errorf("unknown status %q", s)
			}
		case "due":
			b.Due, err = scalar(n)
		case "scheduled_start":
			b.ScheduledStart, err = scalar(n)
		case "estimate_minutes":
			b.EstimateMinutes, err = intValue(n)
		case "actual_minutes":
			b.ActualMinutes, err = intValue(n)
		case "priority":
			b.Priority, err = intValue(n)
		case "goal_id":
			b.GoalID, err = scalar(n)
		case "project_id":
			b.ProjectID, err = scalar(n)
		case "repeats":
			b.Repeats, err = decodeRepeats(n)
		default:
			return false, nil
		}
	case *Habit:
		switch key {
		case "pattern":
			b.Pattern, err = decodePattern(n)
		case "window":
			b.Window, err = decodeWindow(n)
		case "streak":
			b.Streak, err = decodeStreak(n)
		case "goal_id":
			b.GoalID, err = scalar(n)
		case "project_id":
			b.ProjectID, err = scalar(n)
		case "estimate_minutes":
			b.EstimateMinutes, err = intValue(n)
		case "repeats":
			b.Repeats, err = decodeRepeats(n)
		default:
			return false, nil
		}
	case *Reminder:
		switch key {
		case "time":
			b.Time, err = scalar(n)
		case "repeat":
			b.Repeat, err = scalar(n)
		case "link":
			b.Link, err = scalar(n)
		default:
			return false, nil
		}
	case *Event:
		switch key {
		case "start":
			b.Start, err = scalar(n)
		case "end":
			b.End, err = scalar(n)
		case "all_day":
			b.AllDay, err = boolValue(n)
		case "timezone":
			b.Timezone, err = scalar(n)
		case "location":
			b.Location, err = scalar(n)
		case "recurrence":
			b.Recurrence, err = scalar(n)
		case "goal_id":
			b.GoalID, err = scalar(n)
		case "project_id":
			b.ProjectID, err = scalar(n)
		default:
			return false, nil
		}
	case *Appointment:
		switch key {
		case "start":
			b.Start, err = scalar(n)
		case "end":
			b.End, err = scalar(n)
		case "attendees":
			b.Attendees, err = stringList(n)
		case "location":
			b.Location, err = scalar(n)
		case "provider":
			b.Provider, err = scalar(n)
		case "goal_id":
			b.GoalID, err = scalar(n)
		case "project_id":
			b.ProjectID, err = scalar(n)
		default:
			return false, nil
		}
	case *Project:
		switch key {
		case "kind":
		case "children":
			b.Children, err = stringList(n)
		case "progress":
			b.Progress, err = floatValue(n)
		case "target_date":
			b.TargetDate, err = scalar(n)
		case "estimate_minutes":
			b.EstimateMinutes, err = intValue(n)
		default:
			return false, nil
		}
	default:
		return false, nil
	}
	return true, err
}

func decodeRepeats(n *yaml.Node) (*Repeats, error) {
	if isNull(n) {
		return nil, nil
	}
	r := &Repeats{}
	err := eachPair(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "enabled":
			var b *bool
			if b, err = boolValue(v); b != nil {
				r.Enabled = *b
			}
		case "count":
			var c *int
			if c, err = intValue(v); c != nil {
				r.Count = *c
			}
		case "per":
			var s string
			s, err = scalar(v)
			r.Per = RepeatPer(s)
		case "weekdays":
			r.Weekdays, err = stringList(v)
		case "end_type":
			var s string
			s, err = scalar(v)
			r.EndType = RepeatEnd(s)
		case "end_count":
			r.EndCount, err = intValue(v)
		case "end_date":
			r.EndDate, err = scalar(v)
		}
		return err
	})
	return r, err
}

func decodePattern(n *yaml.Node) (*HabitPattern, error) {
	if isNull(n) {
		return nil, nil
	}
	p := &HabitPattern{}
	err := eachPair(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "freq":
			var s string
			s, err = scalar(v)
			p.Freq = Frequency(s)
		case "days_of_week":
			p.DaysOfWeek, err = stringList(v)
		}
		return err
	})
	return p, err
}

func decodeWindow(n *yaml.Node) (*TimeWindow, error) {
	if isNull(n) {
		return nil, nil
	}
	w := &TimeWindow{}
	err := eachPair(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "start_time":
			w.StartTime, err = scalar(v)
		case "end_time":
			w.EndTime, err = scalar(v)
		}
		return err
	})
	return w, err
}

func decodeStreak(n *yaml.Node) (*Streak, error) {
	if isNull(n) {
		return nil, nil
	}
	s := &Streak{}
	err := eachPair(n, func(key string, v *yaml.Node) error {
		var dst *int
		switch key {
		case "current":
			dst = &s.Current
		case "longest":
			dst = &s.Longest
		default:
			return nil
		}
		i, err := intValue(v)
		if i != nil {
			*dst = *i
		}
		return err
	})
	return s, err
}

func decodeSteps(n *yaml.Node) ([]Step, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("expected a sequence")
	}
	steps := make([]Step, 0, len(n.Content))
	for i, c := range n.Content {
		var s Step
		err := eachPair(resolve(c), func(key string, v *yaml.Node) error {
			var err error
			switch key {
			case "id":
				s.ID, err = scalar(v)
			case "title":
				s.Title, err = scalar(v)
			case "completed":
				var b *bool
				if b, err = boolValue(v); b != nil {
					s.Completed = *b
				}
			case "due":
				s.Due, err = scalar(v)
			case "order":
				var o *int
				if o, err = intValue(v); o != nil {
					s.Order = *o
				}
			case "status":
				var st string
				st, err = scalar(v)
				s.Status = StepStatus(st)
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func decodeLinks(n *yaml.Node) ([]Link, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("expected a sequence")
	}
	links := make([]Link, 0, len(n.Content))
	for i, c := range n.Content {
		var l Link
		err := eachPair(resolve(c), func(key string, v *yaml.Node) error {
			var err error
			switch key {
			case "kind":
				var k string
				k, err = scalar(v)
				l.Kind = LinkKind(k)
			case "value":
				l.Value, err = scalar(v)
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		links = append(links, l)
	}
	return links, nil
}

func decodeObsidian(n *yaml.Node) (*ObsidianExt, error) {
	if isNull(n) {
		return nil, nil
	}
	x := &ObsidianExt{}
	err := eachPair(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "source_file":
			x.SourceFile, err = scalar(v)
		case "line_number":
			x.LineNumber, err = intValue(v)
		case "original_text":
			x.OriginalText, err = scalar(v)
		case "folder_path":
			x.FolderPath, err = scalar(v)
		}
		return err
	})
	return x, err
}

func decodeElysium(n *yaml.Node) (*ElysiumExt, error) {
	if isNull(n) {
		return nil, nil
	}
	x := &ElysiumExt{}
	err := eachPair(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "obsidian_enabled":
			var b *bool
			if b, err = boolValue(v); b != nil {
				x.ObsidianEnabled = *b
			}
		case "vault_name":
			x.VaultName, err = scalar(v)
		case "folder_path":
			x.FolderPath, err = scalar(v)
		case "source_file":
			x.SourceFile, err = scalar(v)
		case "behavior":
			var s string
			s, err = scalar(v)
			x.Behavior = Behavior(s)
		}
		return err
	})
	return x, err
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	var found *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			found = resolve(n.Content[i+1])
		}
	}
	return found
}

func eachPair(n *yaml.Node, fn func(key string, v *yaml.Node) error) error {
	if n == nil || n.Kind != yaml.MappingNode {
		return errors.New("expected a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, resolve(n.Content[i+1])); err != nil {
			return fmt.Errorf("%s: %w", n.Content[i].Value, err)
		}
	}
	return nil
}

// scalar returns a node's text. A plain null, ~ or NULL is text too: the encoder
// writes such words bare, so only an empty value reads as absent.
func scalar(n *yaml.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", errors.New("expected a scalar")
	}
	return n.Value, nil
}

func intValue(n *yaml.Node) (*int, error) {
	if isNull(n) {
		return nil, nil
	}
	s, err := scalar(n)
	if err != nil || s == "" {
		return nil, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			return nil, fmt.Errorf("not an integer: %q", s)
		}
		v = int(f)
	}
	return &v, nil
}

func floatValue(n *yaml.Node) (*float64, error) {
	if isNull(n) {
		return nil, nil
	}
	s, err := scalar(n)
	if err != nil || s == "" {
		return nil, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &v, nil
}

func boolValue(n *yaml.Node) (*bool, error) {
	if isNull(n) {
		return nil, nil
	}
	s, err := scalar(n)
	if err != nil || s == "" {
		return nil, err
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not a boolean: %q", s)
	}
	return &v, nil
}

// stringList accepts a sequence of scalars or a single scalar.
func stringList(n *yaml.Node) ([]string, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		if n.Value == "" {
			return nil, nil
		}
		return []string{n.Value}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("expected a list")
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		s, err := scalar(resolve(c))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
