package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/amirbrooks/obsidian-elysium/internal/opentime"
)

const minutesPerDay = 24 * 60

var (
	timeRange    = regexp.MustCompile(`^\s*-?\s*(\d{1,2}):(\d{2})\s*[-–—]\s*(\d{1,2}):(\d{2})\s+(.+)$`)
	timeSingle   = regexp.MustCompile(`^\s*-?\s*(\d{1,2}):(\d{2})\s+(.+)$`)
	filenameDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// DateFromFilename returns the first YYYY-MM-DD in the file's base name.
func DateFromFilename(file FileRef) string {
	return filenameDate.FindString(file.Base())
}

// ParseTimeBlocks yields one event per "HH:MM - HH:MM title" or "HH:MM title" line.
// date falls back to the file name; without either the note produces nothing.
func ParseTimeBlocks(content string, file FileRef, date string, opts Options) []opentime.Item {
	date = strings.TrimSpace(date)
	if date == "" {
		date = DateFromFilename(file)
	}
	if date == "" {
		return nil
	}
	var items []opentime.Item
	for i, line := range splitLines(content) {
		start, end, title, ok := parseTimeBlock(line, opts.duration())
		if !ok {
			continue
		}
		items = append(items, opentime.Item{
			ID:    opts.newID("ev", date+"_"+start),
			Title: title,
			Body: &opentime.Event{
				Start:    date + "T" + start + ":00",
				End:      date + "T" + end + ":00",
				Timezone: strings.TrimSpace(opts.Timezone),
			},
			XObsidian: file.provenance(i+1, line),
		})
	}
	return items
}

func parseTimeBlock(line string, duration int) (start, end, title string, ok bool) {
	if m := timeRange.FindStringSubmatch(line); m != nil {
		s, okS := clock(m[1], m[2])
		e, okE := clock(m[3], m[4])
		title = strings.TrimSpace(m[5])
		if !okS || !okE || title == "" {
			return "", "", "", false
		}
		return formatClock(s), formatClock(e), title, true
	}
	if m := timeSingle.FindStringSubmatch(line); m != nil {
		s, okS := clock(m[1], m[2])
		title = strings.TrimSpace(m[3])
		if !okS || title == "" {
			return "", "", "", false
		}
		return formatClock(s), formatClock((s + duration) % minutesPerDay), title, true
	}
	return "", "", "", false
}

// clock converts hour and minute digits to minutes after midnight.
func clock(h, m string) (int, bool) {
	hour, err := strconv.Atoi(h)
	if err != nil || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
