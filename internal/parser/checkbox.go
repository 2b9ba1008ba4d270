package parser

import (
	"regexp"
	"strings"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
)

const scheduledTimeOfDay = "T09:00:00"

const (
	priorityHigh   = 9
	priorityMedium = 5
	priorityLow    = 1
)

var (
	checkboxLine = regexp.MustCompile(`^\s*-\s*\[([ xX])\]\s*(.*)$`)

	dueDate       = emojiDate(`📅📆🗓`)
	scheduledDate = emojiDate(`⏳⌛`)
	startDate     = emojiDate(`🛫`)
	doneDate      = emojiDate(`✅`)
	recurrence    = regexp.MustCompile(`🔁\x{FE0F}?\s*\S+`)

	priorityHighMark   = regexp.MustCompile(`[🔺⏫]\x{FE0F}?`)
	priorityMediumMark = regexp.MustCompile(`🔼\x{FE0F}?`)
	priorityLowMark    = regexp.MustCompile(`[🔽⏬]\x{FE0F}?`)
)

func emojiDate(marks string) *regexp.Regexp {
	return regexp.MustCompile(`[` + marks + `]\x{FE0F}?\s*(\d{4}-\d{2}-\d{2})`)
}

type checkbox struct {
	done      bool
	title     string
	due       string
	scheduled string
	start     string
	doneOn    string
	priority  int
	tags      []string
}

// ParseCheckboxTasks yields one task per checkbox list item in content. Lines that
// are not checkboxes, or whose title is empty once markers are removed, are skipped.
func ParseCheckboxTasks(content string, file FileRef, opts Options) []opentime.Item {
	var items []opentime.Item
	for i, line := range splitLines(content) {
		cb, ok := parseCheckbox(line)
		if !ok {
			continue
		}
		task := &opentime.Task{Status: opentime.StatusTodo, Due: cb.due}
		if cb.done {
			task.Status = opentime.StatusDone
		}
		if cb.scheduled != "" {
			task.ScheduledStart = cb.scheduled + scheduledTimeOfDay
		}
		if cb.priority > 0 {
			task.Priority = opentime.IntPtr(cb.priority)
		}
		items = append(items, opentime.Item{
			ID:        opts.newID("task", cb.title),
			Title:     cb.title,
			Tags:      cb.tags,
			Body:      task,
			XObsidian: file.provenance(i+1, line),
		})
	}
	return items
}

func parseCheckbox(line string) (checkbox, bool) {
	m := checkboxLine.FindStringSubmatch(line)
	if m == nil {
		return checkbox{}, false
	}
	cb := checkbox{done: m[1] == "x" || m[1] == "X"}
	text := m[2]

	cb.due, text = takeDate(dueDate, text)
	cb.scheduled, text = takeDate(scheduledDate, text)
	cb.start, text = takeDate(startDate, text)
	cb.doneOn, text = takeDate(doneDate, text)
	text = recurrence.ReplaceAllString(text, "")

	switch {
	case priorityHighMark.MatchString(text):
		cb.priority = priorityHigh
	case priorityMediumMark.MatchString(text):
		cb.priority = priorityMedium
	case priorityLowMark.MatchString(text):
		cb.priority = priorityLow
	}
	for _, re := range []*regexp.Regexp{priorityHighMark, priorityMediumMark, priorityLowMark} {
		text = re.ReplaceAllString(text, "")
	}

	cb.tags, text = takeTags(text)
	cb.title = strings.TrimSpace(text)
	if cb.title == "" {
		return checkbox{}, false
	}
	return cb, true
}

// takeDate returns the first date captured by re and text with every match removed.
func takeDate(re *regexp.Regexp, text string) (string, string) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	return m[1], re.ReplaceAllString(text, "")
}

// takeTags pulls #tags out of text in order of first appearance. A tag must follow
// the start of the line or a non-tag byte and contain at least one non-digit, so
// "PR #123" keeps its number.
func takeTags(text string) ([]string, string) {
	var (
		tags []string
		rest strings.Builder
		seen = map[string]bool{}
	)
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '#' || (i > 0 && isTagChar(text[i-1])) || i+1 >= len(text) || !isTagChar(text[i+1]) {
			rest.WriteByte(ch)
			continue
		}
		j := i + 1
		for j < len(text) && isTagChar(text[j]) {
			j++
		}
		tag := text[i+1 : j]
		if strings.Trim(tag, "0123456789") == "" {
			rest.WriteByte(ch)
			continue
		}
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
		i = j - 1
	}
	return tags, rest.String()
}

func isTagChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '_' || b == '/':
		return true
	}
	return false
}
